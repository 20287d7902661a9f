package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/DucAnhBoDoi/Music-App/model"
)

// FavoritesHandler lists favorites on GET and toggles one on POST.
func (h *APIHandler) FavoritesHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		respondJSON(w, http.StatusOK, map[string]interface{}{"tracks": h.store.Favorites()})
	case http.MethodPost:
		var track model.Track
		if err := json.NewDecoder(r.Body).Decode(&track); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if track.ID == "" {
			respondError(w, http.StatusBadRequest, "track id is required")
			return
		}
		isFavorite := h.store.ToggleFavorite(track)
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"id":       track.ID,
			"favorite": isFavorite,
		})
	default:
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// PlaylistsHandler lists playlist names on GET and creates one on POST.
func (h *APIHandler) PlaylistsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		respondJSON(w, http.StatusOK, map[string]interface{}{"playlists": h.store.PlaylistNames()})
	case http.MethodPost:
		var req struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if !h.store.CreatePlaylist(req.Name) {
			respondError(w, http.StatusConflict, "playlist name is empty or already exists")
			return
		}
		respondJSON(w, http.StatusCreated, map[string]string{"name": req.Name})
	default:
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// PlaylistHandler operates on one playlist: GET tracks, POST adds a track,
// PUT renames, DELETE removes the playlist.
func (h *APIHandler) PlaylistHandler(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	switch r.Method {
	case http.MethodGet:
		tracks := h.store.PlaylistTracks(name)
		if tracks == nil {
			respondError(w, http.StatusNotFound, "playlist not found")
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"name":   name,
			"tracks": tracks,
		})
	case http.MethodPost:
		var track model.Track
		if err := json.NewDecoder(r.Body).Decode(&track); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if track.ID == "" {
			respondError(w, http.StatusBadRequest, "track id is required")
			return
		}
		if !h.store.AddToPlaylist(name, track) {
			respondError(w, http.StatusConflict, "playlist missing or track already present")
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"name":   name,
			"tracks": h.store.PlaylistTracks(name),
		})
	case http.MethodPut:
		var req struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if !h.store.RenamePlaylist(name, req.Name) {
			respondError(w, http.StatusConflict, "cannot rename playlist")
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"name": req.Name})
	case http.MethodDelete:
		h.store.DeletePlaylist(name)
		respondJSON(w, http.StatusNoContent, nil)
	default:
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// PlaylistTrackHandler removes one track from a playlist.
func (h *APIHandler) PlaylistTrackHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	h.store.RemoveFromPlaylist(vars["name"], vars["id"])
	respondJSON(w, http.StatusNoContent, nil)
}

// HistoryHandler returns recently played tracks, most recent first.
func (h *APIHandler) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{"tracks": h.store.History()})
}

// ClearCollectionsHandler wipes favorites, playlists and history.
func (h *APIHandler) ClearCollectionsHandler(w http.ResponseWriter, r *http.Request) {
	h.store.ClearAll(r.Context())
	respondJSON(w, http.StatusNoContent, nil)
}
