package mixer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const fallbackTimeout = 2500 * time.Millisecond

// FallbackClient talks to the companion dashboard API that proxies a subset
// of mixer control: program-scene switching and scene listing, nothing else.
type FallbackClient struct {
	base   string
	client *http.Client
}

// NewFallbackClient returns nil for an empty base URL so callers can pass
// the result straight to New.
func NewFallbackClient(baseURL string) *FallbackClient {
	if baseURL == "" {
		return nil
	}
	return &FallbackClient{
		base:   strings.TrimRight(baseURL, "/"),
		client: &http.Client{Timeout: fallbackTimeout},
	}
}

// SetScene POSTs a program-scene switch.
func (f *FallbackClient) SetScene(ctx context.Context, name string) error {
	body, _ := json.Marshal(map[string]string{"sceneName": name})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.base+"/api/obs/program-scene", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("fallback scene switch unavailable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fallback scene switch failed (%d)", resp.StatusCode)
	}
	return nil
}

// Scenes fetches the scene list and current program scene.
func (f *FallbackClient) Scenes(ctx context.Context) (current string, names []string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.base+"/api/obs/scenes", nil)
	if err != nil {
		return "", nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("fallback scene list unavailable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("fallback scene list failed (%d)", resp.StatusCode)
	}
	var payload struct {
		Scenes       []string `json:"scenes"`
		CurrentScene string   `json:"currentProgramSceneName"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", nil, fmt.Errorf("fallback scene list decode: %w", err)
	}
	return payload.CurrentScene, payload.Scenes, nil
}
