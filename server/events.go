package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/onnwee/overlayd/bus"
	"github.com/onnwee/overlayd/telemetry"
)

const heartbeatInterval = 15 * time.Second

// handleEvents streams bus events over Server-Sent Events. On connect the
// client receives a snapshot replay (keyboard status, subtitle settings,
// subtitle state, avatar settings, goals, in that order) before live events.
// The subscription is registered before the snapshot is read, so a mutation
// racing the connect shows up in the live stream rather than getting lost.
func (h *Handlers) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	subID := r.URL.Query().Get("client_id")
	if subID == "" {
		subID = uuid.NewString()
	}
	sub, err := h.deps.Bus.Subscribe(subID)
	if err != nil {
		http.Error(w, "subscriber id in use", http.StatusConflict)
		return
	}
	defer h.deps.Bus.Unsubscribe(subID)
	telemetry.SetSubscriberCount(h.deps.Bus.SubscriberCount())
	defer func() { telemetry.SetSubscriberCount(h.deps.Bus.SubscriberCount()) }()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Subscriber-ID", subID)

	store := h.deps.Store
	snapshot := []bus.Event{
		{Topic: "keyboard_status", Payload: store.Keyboard.Status()},
		{Topic: "subtitle_settings", Payload: store.Subtitles.Settings()},
		{Topic: "subtitle_update", Payload: store.Subtitles.State()},
		{Topic: "avatar_settings", Payload: store.Avatar.Snapshot()},
		{Topic: "goals_update", Payload: store.Goals.Snapshot()},
	}
	for _, ev := range snapshot {
		if !writeSSE(w, flusher, ev) {
			return
		}
	}
	if !writeSSE(w, flusher, bus.Event{Topic: "stats_update", Payload: store.Stats.Snapshot()}) {
		return
	}

	ctx := r.Context()
	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			if _, err := w.Write([]byte(": heartbeat\n\n")); err != nil {
				return
			}
			flusher.Flush()
		case ev, open := <-sub.Events():
			if !open {
				return
			}
			if !writeSSE(w, flusher, ev) {
				return
			}
		}
	}
}

func writeSSE(w http.ResponseWriter, flusher http.Flusher, ev bus.Event) bool {
	if _, err := w.Write([]byte("data: ")); err != nil {
		slog.Warn("failed to write SSE data prefix", slog.Any("err", err))
		return false
	}
	if err := json.NewEncoder(w).Encode(ev); err != nil {
		return false
	}
	if _, err := w.Write([]byte("\n")); err != nil {
		return false
	}
	flusher.Flush()
	return true
}
