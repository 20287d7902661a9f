package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/DucAnhBoDoi/Music-App/cache"
	"github.com/DucAnhBoDoi/Music-App/config"
	"github.com/DucAnhBoDoi/Music-App/core/audio"
	"github.com/DucAnhBoDoi/Music-App/core/catalog"
	"github.com/DucAnhBoDoi/Music-App/core/collection"
	"github.com/DucAnhBoDoi/Music-App/core/lyrics"
	"github.com/DucAnhBoDoi/Music-App/core/player"
	"github.com/DucAnhBoDoi/Music-App/db"
	"github.com/DucAnhBoDoi/Music-App/logger"
	"github.com/DucAnhBoDoi/Music-App/repository"
	"github.com/DucAnhBoDoi/Music-App/storage"
)

// Start wires the playback engine and its services together and runs the
// HTTP control surface until interrupted.
func Start() {
	cfg := config.Load()

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	if err := storage.InitMinio(cfg); err != nil {
		logger.Fatal("failed to initialize MinIO", logger.ErrorField(err))
	}

	if err := db.ConnectDB(cfg); err != nil {
		logger.Fatal("failed to connect to database", logger.ErrorField(err))
	}
	defer db.CloseDB()

	if err := db.ConnectRedis(cfg); err != nil {
		logger.Fatal("failed to connect to Redis", logger.ErrorField(err))
	}
	defer db.CloseRedis()
	logger.Info("successfully connected to Redis")

	if err := db.InitDB(); err != nil {
		logger.Fatal("failed to initialize database", logger.ErrorField(err))
	}

	trackRepo := repository.NewMySQLTrackRepository(db.DB)
	catalogClient := catalog.NewClient(cfg.DeezerAPIURL,
		&http.Client{Timeout: cfg.CatalogTimeout}, trackRepo)

	store := collection.NewStore(db.NewRedisKV(db.RedisClient), cfg.HistoryLimit)
	if err := store.Load(context.Background()); err != nil {
		logger.Warn("collections load failed, starting empty", logger.ErrorField(err))
	}
	defer store.Flush()

	artwork := cache.NewArtworkCache(db.RedisClient)

	device := audio.NewBeepDevice()
	engine := player.NewEngine(device, player.Options{
		Catalog:          catalogClient,
		History:          store,
		Artwork:          artwork,
		PrefetchCapacity: cfg.PrefetchCapacity,
		PrefetchDelay:    cfg.PrefetchDelay,
	})
	defer engine.Close()

	chain := lyrics.NewChain(
		lyrics.NewLrclibProvider(cfg.LrclibAPIURL, &http.Client{Timeout: cfg.LyricsTimeout}),
		lyrics.NewLyricsOvhProvider(cfg.LyricsOvhURL, &http.Client{Timeout: cfg.LyricsTimeout}),
	)
	synchronizer := lyrics.NewSynchronizer(chain, cfg.LyricsTimeout)
	lyricsSubID, lyricsStates := engine.Subscribe()
	go synchronizer.Run(lyricsStates)
	defer engine.Unsubscribe(lyricsSubID)

	if cfg.EnvFile != "" {
		stop, err := config.Watch(cfg.EnvFile, config.ApplyLive)
		if err != nil {
			logger.Warn("config watcher disabled", logger.ErrorField(err))
		} else {
			defer stop()
		}
	}

	apiHandler := NewAPIHandler(cfg, engine, store, catalogClient, synchronizer, artwork)

	router := mux.NewRouter()
	router.Use(corsMiddleware)

	// Catalog
	router.HandleFunc("/api/chart", apiHandler.ChartHandler).Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/api/search", apiHandler.SearchHandler).Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/api/tracks/{id}", apiHandler.TrackHandler).Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/api/artwork/{id}", apiHandler.ArtworkHandler).Methods(http.MethodGet, http.MethodOptions)

	// Player control
	router.HandleFunc("/api/player/state", apiHandler.StateHandler).Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/api/player/play", apiHandler.AuthMiddleware(apiHandler.PlayHandler)).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/api/player/toggle", apiHandler.AuthMiddleware(apiHandler.ToggleHandler)).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/api/player/next", apiHandler.AuthMiddleware(apiHandler.NextHandler)).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/api/player/previous", apiHandler.AuthMiddleware(apiHandler.PreviousHandler)).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/api/player/seek", apiHandler.AuthMiddleware(apiHandler.SeekHandler)).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/api/player/volume", apiHandler.AuthMiddleware(apiHandler.VolumeHandler)).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/api/player/mode", apiHandler.AuthMiddleware(apiHandler.ModeHandler)).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/api/player/stop", apiHandler.AuthMiddleware(apiHandler.StopHandler)).Methods(http.MethodPost, http.MethodOptions)

	// Collections
	router.HandleFunc("/api/favorites", apiHandler.AuthMiddleware(apiHandler.FavoritesHandler)).Methods(http.MethodGet, http.MethodPost, http.MethodOptions)
	router.HandleFunc("/api/playlists", apiHandler.AuthMiddleware(apiHandler.PlaylistsHandler)).Methods(http.MethodGet, http.MethodPost, http.MethodOptions)
	router.HandleFunc("/api/playlists/{name}", apiHandler.AuthMiddleware(apiHandler.PlaylistHandler)).Methods(http.MethodGet, http.MethodPut, http.MethodPost, http.MethodDelete, http.MethodOptions)
	router.HandleFunc("/api/playlists/{name}/tracks/{id}", apiHandler.AuthMiddleware(apiHandler.PlaylistTrackHandler)).Methods(http.MethodDelete, http.MethodOptions)
	router.HandleFunc("/api/history", apiHandler.AuthMiddleware(apiHandler.HistoryHandler)).Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/api/collections", apiHandler.AuthMiddleware(apiHandler.ClearCollectionsHandler)).Methods(http.MethodDelete, http.MethodOptions)

	// Lyrics
	router.HandleFunc("/api/lyrics", apiHandler.LyricsHandler).Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/api/lyrics/retry", apiHandler.AuthMiddleware(apiHandler.LyricsRetryHandler)).Methods(http.MethodPost, http.MethodOptions)

	// Auth
	router.HandleFunc("/api/auth/login", apiHandler.LoginHandler).Methods(http.MethodPost, http.MethodOptions)

	// Live state stream
	router.HandleFunc("/ws/state", apiHandler.WebSocketStateHandler).Methods(http.MethodGet)

	server.Handler = router

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("server starting", logger.String("addr", cfg.ListenAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", logger.ErrorField(err))
		}
	}()

	<-stop
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", logger.ErrorField(err))
	}

	logger.Info("server stopped")
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, HEAD")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
