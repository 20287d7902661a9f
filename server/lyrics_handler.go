package server

import (
	"net/http"
)

// LyricsHandler returns the lyrics view for the current track, including
// which line is active at the last observed playback position.
func (h *APIHandler) LyricsHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.synchronizer.Snapshot())
}

// LyricsRetryHandler re-fetches lyrics for the current track after an error
// or empty result.
func (h *APIHandler) LyricsRetryHandler(w http.ResponseWriter, r *http.Request) {
	h.synchronizer.Retry()
	respondJSON(w, http.StatusAccepted, h.synchronizer.Snapshot())
}
