package twitchapi

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/oauth2"
)

// twitchEndpoint is the id.twitch.tv OAuth2 endpoint.
var twitchEndpoint = oauth2.Endpoint{
	AuthURL:  "https://id.twitch.tv/oauth2/authorize",
	TokenURL: "https://id.twitch.tv/oauth2/token",
}

// UserTokenSource refreshes a user access token from a long-lived refresh
// token. Used only for operations an app token cannot perform (clips:edit).
type UserTokenSource struct {
	mu  sync.Mutex
	src oauth2.TokenSource

	// static is set by tests to bypass the refresh flow.
	static string
}

// NewUserTokenSource builds a source that refreshes on demand and reuses
// unexpired tokens. The refresh token must already carry the needed scopes.
func NewUserTokenSource(ctx context.Context, clientID, clientSecret, refreshToken string) (*UserTokenSource, error) {
	if clientID == "" || clientSecret == "" || refreshToken == "" {
		return nil, errors.New("missing client id/secret/refresh token for twitch user token")
	}
	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     twitchEndpoint,
	}
	seed := &oauth2.Token{RefreshToken: refreshToken}
	return &UserTokenSource{src: oauth2.ReuseTokenSource(nil, conf.TokenSource(ctx, seed))}, nil
}

// StaticUserToken returns a source that always yields tok. For tests.
func StaticUserToken(tok string) *UserTokenSource {
	return &UserTokenSource{static: tok}
}

// Get returns a valid user access token, refreshing if needed.
func (u *UserTokenSource) Get(_ context.Context) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.static != "" {
		return u.static, nil
	}
	if u.src == nil {
		return "", errors.New("user token source not configured")
	}
	tok, err := u.src.Token()
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}
