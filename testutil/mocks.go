// Package testutil provides httptest doubles for the external services the
// daemon talks to: the Twitch Helix API and the companion-app OBS fallback.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

// MockTwitchServer creates a test server that mocks Twitch Helix API responses
type MockTwitchServer struct {
	*httptest.Server
	Handlers map[string]http.HandlerFunc
}

// NewMockTwitchServer creates a new mock Twitch API server
func NewMockTwitchServer(t *testing.T) *MockTwitchServer {
	t.Helper()
	m := &MockTwitchServer{
		Handlers: make(map[string]http.HandlerFunc),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Path
		if handler, ok := m.Handlers[key]; ok {
			handler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(m.Close)
	return m
}

// Client returns an http.Client whose transport rewrites every request to
// this mock server, so code holding real Helix URLs hits the mock instead.
func (m *MockTwitchServer) Client(t *testing.T) *http.Client {
	t.Helper()
	u, err := url.Parse(m.URL)
	if err != nil {
		t.Fatalf("parse mock server url: %v", err)
	}
	return &http.Client{Transport: &RewriteTransport{Base: u}}
}

// RewriteTransport redirects outgoing requests to a test server while
// preserving the request path and query.
type RewriteTransport struct {
	Base *url.URL
}

func (rt *RewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.URL.Scheme = rt.Base.Scheme
	req.URL.Host = rt.Base.Host
	return http.DefaultTransport.RoundTrip(req)
}

// MockUserResponse adds a handler for /helix/users endpoint
func (m *MockTwitchServer) MockUserResponse(userID, login string) {
	m.Handlers["/helix/users"] = func(w http.ResponseWriter, r *http.Request) {
		response := map[string]any{
			"data": []map[string]string{
				{"id": userID, "login": login},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response) //nolint:errcheck // test mock response
	}
}

// MockStreamsResponse adds a handler for /helix/streams endpoint. Pass an
// empty slice to report the channel offline.
func (m *MockTwitchServer) MockStreamsResponse(streams []map[string]any) {
	m.Handlers["/helix/streams"] = func(w http.ResponseWriter, r *http.Request) {
		response := map[string]any{
			"data": streams,
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response) //nolint:errcheck // test mock response
	}
}

// MockFollowersResponse adds a handler for /helix/channels/followers.
// Each follower map needs user_id, user_name and followed_at (RFC3339).
func (m *MockTwitchServer) MockFollowersResponse(total int, followers []map[string]string) {
	m.Handlers["/helix/channels/followers"] = func(w http.ResponseWriter, r *http.Request) {
		response := map[string]any{
			"total": total,
			"data":  followers,
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response) //nolint:errcheck // test mock response
	}
}

// MockClipResponse adds a handler for POST /helix/clips
func (m *MockTwitchServer) MockClipResponse(clipID, editURL string) {
	m.Handlers["/helix/clips"] = func(w http.ResponseWriter, r *http.Request) {
		response := map[string]any{
			"data": []map[string]string{
				{"id": clipID, "edit_url": editURL},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(response) //nolint:errcheck // test mock response
	}
}

// NewMockFallbackServer mocks the companion-app OBS endpoints: scene list
// reads and program scene switches. Switched scene names are appended to
// *switched.
func NewMockFallbackServer(t *testing.T, scenes []string, current string, switched *[]string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/obs/scenes", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"scenes":                  scenes,
			"currentProgramSceneName": current,
		})
	})
	mux.HandleFunc("POST /api/obs/program-scene", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			SceneName string `json:"sceneName"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.SceneName == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if switched != nil {
			*switched = append(*switched, body.SceneName)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}
