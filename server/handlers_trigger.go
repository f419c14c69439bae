package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/onnwee/overlayd/trigger"
)

func (h *Handlers) handleSoundboardSounds(w http.ResponseWriter, r *http.Request) {
	if h.deps.Soundboard == nil {
		writeError(w, http.StatusServiceUnavailable, "soundboard not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sounds": h.deps.Soundboard.Sounds()})
}

func (h *Handlers) handleSoundboardPlay(w http.ResponseWriter, r *http.Request) {
	if !requirePOST(w, r) {
		return
	}
	if h.deps.Soundboard == nil {
		writeError(w, http.StatusServiceUnavailable, "soundboard not configured")
		return
	}
	body, err := decodeBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	slug := strings.TrimSpace(asString(body, "slug"))
	if slug == "" {
		writeError(w, http.StatusBadRequest, "slug is required")
		return
	}
	triggeredBy := strings.TrimSpace(asString(body, "triggeredBy"))
	if triggeredBy == "" {
		triggeredBy = "Dashboard"
	}
	play, err := h.deps.Soundboard.Play(slug, triggeredBy)
	switch {
	case errors.Is(err, trigger.ErrNotFound):
		writeError(w, http.StatusNotFound, "sound not found")
	case errors.Is(err, trigger.ErrCoolingDown):
		writeError(w, http.StatusTooManyRequests, "sound on cooldown")
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeOK(w, map[string]any{"sound": play})
	}
}

func (h *Handlers) handleSoundboardReload(w http.ResponseWriter, r *http.Request) {
	if !requirePOST(w, r) {
		return
	}
	if h.deps.Soundboard == nil {
		writeError(w, http.StatusServiceUnavailable, "soundboard not configured")
		return
	}
	count := h.deps.Soundboard.Reload()
	writeOK(w, map[string]any{"count": count})
}

func (h *Handlers) handleChaosPresets(w http.ResponseWriter, r *http.Request) {
	if h.deps.Chaos == nil {
		writeError(w, http.StatusServiceUnavailable, "chaos effects not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"presets":      h.deps.Chaos.Presets(),
		"cooldown_sec": int(h.deps.Chaos.Cooldown().Seconds()),
	})
}

func (h *Handlers) handleChaosTrigger(w http.ResponseWriter, r *http.Request) {
	if !requirePOST(w, r) {
		return
	}
	if h.deps.Chaos == nil {
		writeError(w, http.StatusServiceUnavailable, "chaos effects not configured")
		return
	}
	body, err := decodeBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	slug := strings.TrimSpace(asString(body, "slug"))
	if slug == "" {
		writeError(w, http.StatusBadRequest, "slug is required")
		return
	}
	triggeredBy := strings.TrimSpace(asString(body, "triggeredBy"))
	if triggeredBy == "" {
		triggeredBy = "Dashboard"
	}
	fired, err := h.deps.Chaos.Trigger(slug, triggeredBy)
	switch {
	case errors.Is(err, trigger.ErrNotFound):
		writeError(w, http.StatusNotFound, "preset not found")
	case errors.Is(err, trigger.ErrCoolingDown):
		writeError(w, http.StatusTooManyRequests, "chaos on cooldown")
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeOK(w, map[string]any{"chaos": fired})
	}
}

func (h *Handlers) handleClip(w http.ResponseWriter, r *http.Request) {
	if !requirePOST(w, r) {
		return
	}
	if h.deps.Runner == nil {
		writeError(w, http.StatusServiceUnavailable, "clip creation not configured")
		return
	}
	ev, ok := h.deps.Runner.CreateManual(r.Context(), "Manual clip from dashboard")
	if !ok {
		writeError(w, http.StatusBadGateway, "clip creation failed")
		return
	}
	writeOK(w, map[string]any{"clip": ev})
}
