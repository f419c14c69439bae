package server

import (
	"net/http"
	"time"
)

// handleReport builds the post-stream report. The window defaults to the
// current session start, or the last 6 hours when no session is running.
// ?since= accepts an RFC3339 timestamp or a Go duration (e.g. 2h).
func (h *Handlers) handleReport(w http.ResponseWriter, r *http.Request) {
	if h.deps.EventLog == nil {
		writeError(w, http.StatusServiceUnavailable, "event log disabled")
		return
	}
	since := sinceParam(r, 6*time.Hour)
	if r.URL.Query().Get("since") == "" {
		if start := h.deps.Store.Stats.Snapshot().StreamStart; start != nil {
			since = *start
		}
	}
	report, err := h.deps.EventLog.BuildReport(r.Context(), since)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}
