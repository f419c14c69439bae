package server

import (
	"net/http"
	"strings"
)

func (h *Handlers) handleScene(w http.ResponseWriter, r *http.Request) {
	if !requirePOST(w, r) {
		return
	}
	body, err := decodeBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	scene := strings.TrimSpace(asString(body, "scene"))
	if scene == "" {
		writeError(w, http.StatusBadRequest, "scene is required")
		return
	}
	if err := h.deps.Mixer.SetScene(r.Context(), scene); err != nil {
		writeError(w, http.StatusBadGateway, "could not switch scene")
		return
	}
	if h.deps.EventLog != nil {
		h.deps.EventLog.Record("scene_change", "", map[string]any{"scene": scene})
	}
	writeOK(w, map[string]any{"scene": scene})
}

func (h *Handlers) handleScenes(w http.ResponseWriter, r *http.Request) {
	scenes, err := h.deps.Mixer.Scenes(r.Context())
	status := h.deps.Mixer.Status()
	out := map[string]any{
		"scenes":         scenes,
		"obs_mode":       status.Mode,
		"obs_last_error": status.LastError,
	}
	if err != nil {
		out["scenes"] = []string{}
	}
	if current, err := h.deps.Mixer.CurrentScene(r.Context()); err == nil {
		out["current_scene"] = current
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) handleOBSStatus(w http.ResponseWriter, r *http.Request) {
	status := h.deps.Mixer.Status()
	writeJSON(w, http.StatusOK, map[string]any{
		"connected_direct":  status.ConnectedDirect,
		"obs_mode":          status.Mode,
		"obs_last_error":    status.LastError,
		"fallback_enabled":  h.deps.FallbackEnabled,
		"fallback_base_url": h.deps.FallbackBaseURL,
	})
}
