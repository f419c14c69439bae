package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/onnwee/overlayd/state"
)

func (h *Handlers) handleGoals(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Store.Goals.Snapshot())
}

func (h *Handlers) handleGoalsUpdate(w http.ResponseWriter, r *http.Request) {
	if !requirePOST(w, r) {
		return
	}
	body, err := decodeBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	id := strings.TrimSpace(asString(body, "id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	var upd state.GoalUpdate
	if v, ok := body["current"].(float64); ok {
		n := int(v)
		upd.Current = &n
	}
	if v, ok := body["target"].(float64); ok {
		n := int(v)
		upd.Target = &n
	}
	if v, ok := body["title"].(string); ok {
		upd.Title = &v
	}
	if v, ok := body["enabled"].(bool); ok {
		upd.Enabled = &v
	}
	snap, err := h.deps.Store.Goals.Update(id, upd)
	if err != nil {
		if errors.Is(err, state.ErrGoalNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("goal %q not found", id))
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeOK(w, map[string]any{"goals": snap})
}

func (h *Handlers) handleGoalsIncrement(w http.ResponseWriter, r *http.Request) {
	if !requirePOST(w, r) {
		return
	}
	body, err := decodeBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	id := strings.TrimSpace(asString(body, "id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	amount := 1
	if v, ok := body["amount"].(float64); ok {
		amount = int(v)
	}
	h.deps.Store.Goals.Increment(id, amount)
	writeOK(w, map[string]any{"goals": h.deps.Store.Goals.Snapshot()})
}

func (h *Handlers) handleGoalsReset(w http.ResponseWriter, r *http.Request) {
	if !requirePOST(w, r) {
		return
	}
	writeOK(w, map[string]any{"goals": h.deps.Store.Goals.Reset()})
}
