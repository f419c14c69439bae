package mixer

import (
	"context"
	"fmt"

	"github.com/andreykaipov/goobs"
	"github.com/andreykaipov/goobs/api/requests/sceneitems"
	"github.com/andreykaipov/goobs/api/requests/scenes"
)

// obsSession adapts a goobs websocket client to the Session interface.
type obsSession struct {
	client *goobs.Client
}

// GoobsDialer returns a Dialer for an obs-websocket endpoint, host in
// "host:port" form. An empty host disables the primary entirely.
func GoobsDialer(host, password string) Dialer {
	if host == "" {
		return nil
	}
	return func(ctx context.Context) (Session, error) {
		opts := []goobs.Option{}
		if password != "" {
			opts = append(opts, goobs.WithPassword(password))
		}
		client, err := goobs.New(host, opts...)
		if err != nil {
			return nil, fmt.Errorf("obs websocket dial %s: %w", host, err)
		}
		return &obsSession{client: client}, nil
	}
}

func (o *obsSession) CurrentScene(_ context.Context) (string, error) {
	resp, err := o.client.Scenes.GetCurrentProgramScene()
	if err != nil {
		return "", fmt.Errorf("get program scene: %w", err)
	}
	return resp.SceneName, nil
}

func (o *obsSession) Scenes(_ context.Context) ([]string, error) {
	resp, err := o.client.Scenes.GetSceneList()
	if err != nil {
		return nil, fmt.Errorf("get scene list: %w", err)
	}
	names := make([]string, 0, len(resp.Scenes))
	// GetSceneList returns newest-first; reverse into display order.
	for i := len(resp.Scenes) - 1; i >= 0; i-- {
		names = append(names, resp.Scenes[i].SceneName)
	}
	return names, nil
}

func (o *obsSession) SetScene(_ context.Context, name string) error {
	_, err := o.client.Scenes.SetCurrentProgramScene(
		scenes.NewSetCurrentProgramSceneParams().WithSceneName(name))
	if err != nil {
		return fmt.Errorf("set program scene %q: %w", name, err)
	}
	return nil
}

func (o *obsSession) SetSourceVisible(_ context.Context, scene, source string, visible bool) error {
	idResp, err := o.client.SceneItems.GetSceneItemId(
		sceneitems.NewGetSceneItemIdParams().WithSceneName(scene).WithSourceName(source))
	if err != nil {
		return fmt.Errorf("resolve item %q in %q: %w", source, scene, err)
	}
	_, err = o.client.SceneItems.SetSceneItemEnabled(
		sceneitems.NewSetSceneItemEnabledParams().
			WithSceneName(scene).
			WithSceneItemId(idResp.SceneItemId).
			WithSceneItemEnabled(visible))
	if err != nil {
		return fmt.Errorf("set item %q enabled=%t: %w", source, visible, err)
	}
	return nil
}

func (o *obsSession) Close() error {
	return o.client.Disconnect()
}
