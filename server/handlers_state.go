package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/onnwee/overlayd/poller"
	"github.com/onnwee/overlayd/state"
)

func (h *Handlers) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Store.Stats.Snapshot())
}

func (h *Handlers) handleStartStream(w http.ResponseWriter, r *http.Request) {
	if !requirePOST(w, r) {
		return
	}
	snap := h.deps.Store.Stats.StartSession(time.Now().UTC())
	if h.deps.EventLog != nil {
		h.deps.EventLog.Record("stream_start", "", nil)
	}
	writeOK(w, map[string]any{"stats": snap})
}

func (h *Handlers) handleTestAlert(w http.ResponseWriter, r *http.Request) {
	if !requirePOST(w, r) {
		return
	}
	body, err := decodeBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	alertType := asString(body, "type")
	if alertType == "" {
		alertType = "follow"
	}
	username := asString(body, "username")
	if username == "" {
		username = "TestUser"
	}
	alert := poller.BuildAlert(alertType, username, body["amount"])
	h.deps.Bus.Publish("alert", alert)
	writeOK(w, map[string]any{"alert": alert})
}

func (h *Handlers) handleTestChat(w http.ResponseWriter, r *http.Request) {
	if !requirePOST(w, r) {
		return
	}
	body, err := decodeBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	username := asString(body, "username")
	if username == "" {
		username = "testuser"
	}
	message := asString(body, "message")
	if message == "" {
		message = "This is a test message!"
	}
	color := asString(body, "color")
	if color == "" {
		color = "#9147ff"
	}
	h.deps.Store.Stats.AddMessage()
	h.deps.Store.ChatLog.Append(state.ChatMessage{
		Username:  username,
		Message:   message,
		Color:     color,
		Timestamp: time.Now().UTC(),
	})
	writeOK(w, nil)
}

func (h *Handlers) handleChatRecent(w http.ResponseWriter, r *http.Request) {
	n := parseIntQuery(r, "limit", 50)
	if n < 1 {
		n = 1
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"messages": h.deps.Store.ChatLog.Recent(n),
	})
}

func (h *Handlers) handleSubtitleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Store.Subtitles.State())
}

func (h *Handlers) handleSubtitleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.deps.Store.Subtitles.Settings())
	case http.MethodPost:
		body, err := decodeBody(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		settings := h.deps.Store.Subtitles.UpdateSettings(body)
		writeOK(w, map[string]any{"settings": settings})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handlers) handleSubtitlePush(w http.ResponseWriter, r *http.Request) {
	if !requirePOST(w, r) {
		return
	}
	body, err := decodeBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	text := strings.TrimSpace(asString(body, "text"))
	if text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	final := asBoolDefault(body, "final", true)
	st := h.deps.Store.Subtitles.SetText(text, final)
	if final && h.deps.EventLog != nil {
		h.deps.EventLog.Record("subtitle", "", map[string]any{"text": st.Text})
	}
	writeOK(w, map[string]any{"state": st})
}

func (h *Handlers) handleSubtitleClear(w http.ResponseWriter, r *http.Request) {
	if !requirePOST(w, r) {
		return
	}
	st := h.deps.Store.Subtitles.SetText("", true)
	writeOK(w, map[string]any{"state": st})
}

func (h *Handlers) handleKeyboardStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  h.deps.Store.Keyboard.Status(),
		"pressed": h.deps.Store.Keyboard.Pressed(),
	})
}

func (h *Handlers) handleKeyboardTest(w http.ResponseWriter, r *http.Request) {
	if !requirePOST(w, r) {
		return
	}
	body, err := decodeBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	key := asString(body, "key")
	if key == "" {
		key = "A"
	}
	action := asString(body, "action")
	if action == "" {
		action = "down"
	}
	var changed bool
	switch action {
	case "down":
		changed = h.deps.Store.Keyboard.Press(key)
	case "up":
		changed = h.deps.Store.Keyboard.Release(key)
	default:
		writeError(w, http.StatusBadRequest, "action must be down or up")
		return
	}
	writeOK(w, map[string]any{"key": key, "action": action, "changed": changed})
}
