// Package twitchapi contains minimal helpers to interact with Twitch Helix
// APIs for user id resolution, stream/follower polling, and clip creation.
// Read-only calls use an app access token; clip creation requires a user
// token with the clips:edit scope.
package twitchapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// HelixClient provides the Helix surface the poller and auto-clipper need.
type HelixClient struct {
	AppTokenSource  *TokenSource
	UserTokenSource *UserTokenSource // required only for CreateClip
	ClientID        string
	HTTPClient      *http.Client
}

func (hc *HelixClient) http() *http.Client {
	if hc.HTTPClient != nil {
		return hc.HTTPClient
	}
	return http.DefaultClient
}

func (hc *HelixClient) appRequest(ctx context.Context, method, rawURL string) (*http.Request, error) {
	tok, err := hc.AppTokenSource.Get(ctx)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Client-Id", hc.ClientID)
	req.Header.Set("Authorization", "Bearer "+tok)
	return req, nil
}

func closeBody(resp *http.Response) {
	if err := resp.Body.Close(); err != nil {
		slog.Warn("failed to close response body", slog.Any("err", err))
	}
}

// GetUserID resolves a login name to its user ID.
func (hc *HelixClient) GetUserID(ctx context.Context, login string) (string, error) {
	if login == "" {
		return "", fmt.Errorf("login empty")
	}
	req, err := hc.appRequest(ctx, http.MethodGet, "https://api.twitch.tv/helix/users")
	if err != nil {
		return "", err
	}
	q := req.URL.Query()
	q.Set("login", login)
	req.URL.RawQuery = q.Encode()
	resp, err := hc.http().Do(req)
	if err != nil {
		return "", err
	}
	defer closeBody(resp)
	var body struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	if len(body.Data) == 0 {
		return "", fmt.Errorf("user not found")
	}
	return body.Data[0].ID, nil
}

// StreamInfo describes the live stream, if any, for a broadcaster.
type StreamInfo struct {
	Live        bool
	Title       string
	GameName    string
	ViewerCount int
	StartedAt   time.Time
}

// GetStream returns the live stream for a broadcaster. A broadcaster who is
// offline yields Live=false and no error.
func (hc *HelixClient) GetStream(ctx context.Context, broadcasterID string) (StreamInfo, error) {
	if broadcasterID == "" {
		return StreamInfo{}, fmt.Errorf("broadcasterID empty")
	}
	req, err := hc.appRequest(ctx, http.MethodGet, "https://api.twitch.tv/helix/streams")
	if err != nil {
		return StreamInfo{}, err
	}
	q := req.URL.Query()
	q.Set("user_id", broadcasterID)
	req.URL.RawQuery = q.Encode()
	resp, err := hc.http().Do(req)
	if err != nil {
		return StreamInfo{}, err
	}
	defer closeBody(resp)
	var body struct {
		Data []struct {
			Title       string `json:"title"`
			GameName    string `json:"game_name"`
			ViewerCount int    `json:"viewer_count"`
			StartedAt   string `json:"started_at"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return StreamInfo{}, err
	}
	if len(body.Data) == 0 {
		return StreamInfo{}, nil
	}
	d := body.Data[0]
	started, _ := time.Parse(time.RFC3339, d.StartedAt)
	return StreamInfo{Live: true, Title: d.Title, GameName: d.GameName, ViewerCount: d.ViewerCount, StartedAt: started}, nil
}

// Follower is one entry from the channel followers list.
type Follower struct {
	UserID     string
	UserName   string
	FollowedAt time.Time
}

// GetChannelFollowers returns the follower total and the most recent
// followers, newest first.
func (hc *HelixClient) GetChannelFollowers(ctx context.Context, broadcasterID string, first int) (int, []Follower, error) {
	if broadcasterID == "" {
		return 0, nil, fmt.Errorf("broadcasterID empty")
	}
	if first <= 0 {
		first = 20
	}
	req, err := hc.appRequest(ctx, http.MethodGet, "https://api.twitch.tv/helix/channels/followers")
	if err != nil {
		return 0, nil, err
	}
	q := req.URL.Query()
	q.Set("broadcaster_id", broadcasterID)
	q.Set("first", strconv.Itoa(first))
	req.URL.RawQuery = q.Encode()
	resp, err := hc.http().Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer closeBody(resp)
	var body struct {
		Total int `json:"total"`
		Data  []struct {
			UserID     string `json:"user_id"`
			UserName   string `json:"user_name"`
			FollowedAt string `json:"followed_at"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, nil, err
	}
	out := make([]Follower, 0, len(body.Data))
	for _, f := range body.Data {
		at, _ := time.Parse(time.RFC3339, f.FollowedAt)
		out = append(out, Follower{UserID: f.UserID, UserName: f.UserName, FollowedAt: at})
	}
	return body.Total, out, nil
}

// CreateClip asks Twitch to cut a clip of the live broadcast. Requires a
// user token with clips:edit; returns the clip id and the edit URL.
func (hc *HelixClient) CreateClip(ctx context.Context, broadcasterID string) (string, string, error) {
	if broadcasterID == "" {
		return "", "", fmt.Errorf("broadcasterID empty")
	}
	if hc.UserTokenSource == nil {
		return "", "", fmt.Errorf("clip creation requires a user token")
	}
	tok, err := hc.UserTokenSource.Get(ctx)
	if err != nil {
		return "", "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.twitch.tv/helix/clips", nil)
	if err != nil {
		return "", "", err
	}
	q := req.URL.Query()
	q.Set("broadcaster_id", broadcasterID)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Client-Id", hc.ClientID)
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := hc.http().Do(req)
	if err != nil {
		return "", "", err
	}
	defer closeBody(resp)
	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return "", "", fmt.Errorf("clip creation failed: %s: %s", resp.Status, string(b))
	}
	var body struct {
		Data []struct {
			ID      string `json:"id"`
			EditURL string `json:"edit_url"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", "", err
	}
	if len(body.Data) == 0 {
		return "", "", fmt.Errorf("empty clip response")
	}
	return body.Data[0].ID, body.Data[0].EditURL, nil
}

// ChannelClipper binds a HelixClient to one broadcaster so callers that only
// ever clip a single channel carry no Twitch plumbing.
type ChannelClipper struct {
	Client        *HelixClient
	BroadcasterID string
}

// CreateClip cuts a clip on the bound channel.
func (c *ChannelClipper) CreateClip(ctx context.Context) (string, string, error) {
	return c.Client.CreateClip(ctx, c.BroadcasterID)
}
