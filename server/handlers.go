package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/DucAnhBoDoi/Music-App/cache"
	"github.com/DucAnhBoDoi/Music-App/config"
	"github.com/DucAnhBoDoi/Music-App/core/catalog"
	"github.com/DucAnhBoDoi/Music-App/core/collection"
	"github.com/DucAnhBoDoi/Music-App/core/lyrics"
	"github.com/DucAnhBoDoi/Music-App/core/player"
	"github.com/DucAnhBoDoi/Music-App/logger"
)

const defaultChartLimit = 25

// APIHandler holds the services every HTTP handler reaches for.
type APIHandler struct {
	cfg          *config.Config
	engine       *player.Engine
	store        *collection.Store
	catalog      *catalog.Client
	synchronizer *lyrics.Synchronizer
	artwork      *cache.ArtworkCache
}

// NewAPIHandler creates the handler set.
func NewAPIHandler(
	cfg *config.Config,
	engine *player.Engine,
	store *collection.Store,
	catalogClient *catalog.Client,
	synchronizer *lyrics.Synchronizer,
	artwork *cache.ArtworkCache,
) *APIHandler {
	return &APIHandler{
		cfg:          cfg,
		engine:       engine,
		store:        store,
		catalog:      catalogClient,
		synchronizer: synchronizer,
		artwork:      artwork,
	}
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("failed to encode response", logger.ErrorField(err))
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// ChartHandler returns the current top tracks.
func (h *APIHandler) ChartHandler(w http.ResponseWriter, r *http.Request) {
	limit := defaultChartLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	tracks, err := h.catalog.FetchChart(r.Context(), limit)
	if err != nil {
		logger.Error("chart fetch failed", logger.ErrorField(err))
		respondError(w, http.StatusBadGateway, "failed to fetch chart")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"tracks": tracks})
}

// SearchHandler searches the catalog by free-text query.
func (h *APIHandler) SearchHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		respondError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}

	limit := defaultChartLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	tracks, err := h.catalog.Search(r.Context(), query, limit)
	if err != nil {
		logger.Error("search failed", logger.String("query", query), logger.ErrorField(err))
		respondError(w, http.StatusBadGateway, "search failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"tracks": tracks})
}

// TrackHandler returns fresh catalog metadata for one track.
func (h *APIHandler) TrackHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	track, err := h.catalog.RefreshTrack(r.Context(), id)
	if err != nil {
		logger.Warn("track refresh failed", logger.String("id", id), logger.ErrorField(err))
		respondError(w, http.StatusNotFound, "track not found")
		return
	}

	respondJSON(w, http.StatusOK, track)
}

// ArtworkHandler serves cached cover art bytes.
func (h *APIHandler) ArtworkHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	data, err := h.artwork.GetArtwork(r.Context(), id)
	if err != nil {
		logger.Warn("artwork fetch failed", logger.String("id", id), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "artwork unavailable")
		return
	}
	if len(data) == 0 {
		respondError(w, http.StatusNotFound, "artwork not cached")
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Write(data)
}
