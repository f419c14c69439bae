package server

import (
	"encoding/json"
	"io"
	"net/http"
)

func (h *Handlers) handleAvatarSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.deps.Store.Avatar.Snapshot())
	case http.MethodPost:
		body, err := decodeBody(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		settings := h.deps.Store.Avatar.Update(body)
		writeOK(w, map[string]any{"settings": settings})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handlers) handleAvatarExpression(w http.ResponseWriter, r *http.Request) {
	if !requirePOST(w, r) {
		return
	}
	body, err := decodeBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	expression := asString(body, "expression")
	if expression == "" {
		expression = "happy"
	}
	intensity := 1.0
	if v, ok := body["intensity"].(float64); ok {
		intensity = v
	}
	duration := 2000
	if v, ok := body["duration"].(float64); ok {
		duration = int(v)
	}
	payload := map[string]any{
		"expression": expression,
		"intensity":  intensity,
		"duration":   duration,
	}
	h.deps.Bus.Publish("avatar_expression", payload)
	writeOK(w, map[string]any{"expression": payload})
}

func (h *Handlers) handleAvatarMotion(w http.ResponseWriter, r *http.Request) {
	if !requirePOST(w, r) {
		return
	}
	body, err := decodeBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	motionType := asString(body, "type")
	if motionType == "" {
		motionType = "nod"
	}
	payload := map[string]any{"type": motionType}
	h.deps.Bus.Publish("avatar_motion", payload)
	writeOK(w, map[string]any{"motion": payload})
}

func (h *Handlers) handleAvatarTracking(w http.ResponseWriter, r *http.Request) {
	if !requirePOST(w, r) {
		return
	}
	body, err := decodeBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	enabled := asBoolDefault(body, "enabled", true)
	settings := h.deps.Store.Avatar.SetTracking(enabled)
	writeOK(w, map[string]any{"settings": settings})
}

// handleAvatarRig relays opaque rig data to every subscriber except the
// sender. The sender names its own SSE subscriber ID in X-Subscriber-ID so
// it does not receive its own frames back.
func (h *Handlers) handleAvatarRig(w http.ResponseWriter, r *http.Request) {
	if !requirePOST(w, r) {
		return
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if sender := r.Header.Get("X-Subscriber-ID"); sender != "" {
		h.deps.Bus.PublishExcept(sender, "avatar_rig_data", payload)
	} else {
		h.deps.Bus.Publish("avatar_rig_data", payload)
	}
	writeOK(w, nil)
}
