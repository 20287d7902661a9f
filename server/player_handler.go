package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/DucAnhBoDoi/Music-App/core/player"
	"github.com/DucAnhBoDoi/Music-App/logger"
	"github.com/DucAnhBoDoi/Music-App/model"
)

// StateHandler returns the engine's current snapshot.
func (h *APIHandler) StateHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.engine.State())
}

// PlayHandler starts playback of a queue at the given index.
func (h *APIHandler) PlayHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Queue []model.Track `json:"queue"`
		Index int           `json:"index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Queue) == 0 {
		respondError(w, http.StatusBadRequest, "queue must not be empty")
		return
	}
	if req.Index < 0 || req.Index >= len(req.Queue) {
		respondError(w, http.StatusBadRequest, "index out of range")
		return
	}

	err := h.engine.Play(r.Context(), req.Queue[req.Index], req.Queue, req.Index)
	if err != nil {
		if errors.Is(err, player.ErrNoPlayableSource) {
			respondError(w, http.StatusUnprocessableEntity, "track has no playable source")
			return
		}
		logger.Error("play failed", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "playback failed")
		return
	}

	respondJSON(w, http.StatusOK, h.engine.State())
}

// ToggleHandler pauses or resumes the current track.
func (h *APIHandler) ToggleHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.TogglePlayPause(r.Context()); err != nil {
		logger.Warn("toggle failed", logger.ErrorField(err))
		respondError(w, http.StatusConflict, "nothing to toggle")
		return
	}
	respondJSON(w, http.StatusOK, h.engine.State())
}

// NextHandler skips forward.
func (h *APIHandler) NextHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.PlayNext(r.Context()); err != nil {
		logger.Warn("next failed", logger.ErrorField(err))
		respondError(w, http.StatusConflict, "cannot skip forward")
		return
	}
	respondJSON(w, http.StatusOK, h.engine.State())
}

// PreviousHandler skips backward.
func (h *APIHandler) PreviousHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.PlayPrevious(r.Context()); err != nil {
		logger.Warn("previous failed", logger.ErrorField(err))
		respondError(w, http.StatusConflict, "cannot skip backward")
		return
	}
	respondJSON(w, http.StatusOK, h.engine.State())
}

// SeekHandler seeks to a fraction of the current track's duration.
func (h *APIHandler) SeekHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Fraction float64 `json:"fraction"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Fraction < 0 || req.Fraction > 1 {
		respondError(w, http.StatusBadRequest, "fraction must be between 0 and 1")
		return
	}

	if err := h.engine.SeekTo(r.Context(), req.Fraction); err != nil {
		respondError(w, http.StatusConflict, "cannot seek now")
		return
	}
	respondJSON(w, http.StatusOK, h.engine.State())
}

// VolumeHandler sets the output volume.
func (h *APIHandler) VolumeHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Volume float64 `json:"volume"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Volume < 0 || req.Volume > 1 {
		respondError(w, http.StatusBadRequest, "volume must be between 0 and 1")
		return
	}

	if err := h.engine.SetVolume(r.Context(), req.Volume); err != nil {
		logger.Warn("volume change failed", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "volume change failed")
		return
	}
	respondJSON(w, http.StatusOK, h.engine.State())
}

// ModeHandler updates repeat mode and shuffle. Both fields are optional;
// omitted fields are left untouched.
func (h *APIHandler) ModeHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Repeat  *model.RepeatMode `json:"repeat"`
		Shuffle *bool             `json:"shuffle"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Repeat != nil {
		if !req.Repeat.Valid() {
			respondError(w, http.StatusBadRequest, "repeat must be none, all or one")
			return
		}
		h.engine.SetRepeat(*req.Repeat)
	}
	if req.Shuffle != nil {
		h.engine.SetShuffle(*req.Shuffle)
	}

	respondJSON(w, http.StatusOK, h.engine.State())
}

// StopHandler stops playback and clears the queue.
func (h *APIHandler) StopHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Stop(r.Context()); err != nil {
		logger.Warn("stop failed", logger.ErrorField(err))
	}
	respondJSON(w, http.StatusOK, h.engine.State())
}
