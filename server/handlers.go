package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/onnwee/overlayd/autoclip"
	"github.com/onnwee/overlayd/bus"
	"github.com/onnwee/overlayd/eventlog"
	"github.com/onnwee/overlayd/mixer"
	"github.com/onnwee/overlayd/state"
	"github.com/onnwee/overlayd/trigger"
)

// Deps bundles everything the HTTP layer serves. EventLog, Runner and the
// trigger collaborators may be nil; the matching endpoints then report the
// feature as unavailable instead of panicking.
type Deps struct {
	Bus        *bus.Bus
	Store      *state.Store
	Soundboard *trigger.Soundboard
	Chaos      *trigger.Chaos
	Runner     *autoclip.Runner
	Mixer      *mixer.Facade
	EventLog   *eventlog.Log

	FallbackEnabled bool
	FallbackBaseURL string
}

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	ctx  context.Context
	deps Deps
}

// NewHandlers creates a new Handlers instance with the given dependencies.
func NewHandlers(ctx context.Context, deps Deps) *Handlers {
	return &Handlers{ctx: ctx, deps: deps}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeOK(w http.ResponseWriter, extra map[string]any) {
	out := map[string]any{"status": "ok"}
	for k, v := range extra {
		out[k] = v
	}
	writeJSON(w, http.StatusOK, out)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"status": "error", "message": msg})
}

// decodeBody decodes a JSON object body; an empty body yields an empty map.
func decodeBody(r *http.Request) (map[string]any, error) {
	out := map[string]any{}
	if r.Body == nil {
		return out, nil
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&out); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return out, nil
}

func asString(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func asBoolDefault(m map[string]any, key string, def bool) bool {
	if v, ok := m[key].(bool); ok {
		return v
	}
	return def
}

func requirePOST(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func sinceParam(r *http.Request, def time.Duration) time.Time {
	if v := r.URL.Query().Get("since"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t
		}
		if d, err := time.ParseDuration(v); err == nil {
			return time.Now().Add(-d)
		}
	}
	return time.Now().Add(-def)
}
