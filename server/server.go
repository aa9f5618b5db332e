package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"moodwave/cache"
	"moodwave/config"
	"moodwave/core/auth"
	"moodwave/db"
	"moodwave/logger"
	"moodwave/repository"
	"moodwave/storage"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

// Server holds the dependencies shared by all HTTP handlers.
type Server struct {
	cfg       *config.Config
	db        *gorm.DB
	users     repository.UserRepository
	tracks    repository.TrackRepository
	tokens    *auth.TokenService
	media     storage.MediaStore
	blacklist cache.Blacklist
}

// Deps are the collaborators a Server is built from.
type Deps struct {
	Config    *config.Config
	DB        *gorm.DB
	Users     repository.UserRepository
	Tracks    repository.TrackRepository
	Tokens    *auth.TokenService
	Media     storage.MediaStore
	Blacklist cache.Blacklist // nil keeps revoked tokens in DB
}

// New creates a Server from deps.
func New(deps Deps) *Server {
	bl := deps.Blacklist
	if bl == nil {
		bl = cache.NewGormBlacklist(deps.DB)
	}
	return &Server{
		cfg:       deps.Config,
		db:        deps.DB,
		users:     deps.Users,
		tracks:    deps.Tracks,
		tokens:    deps.Tokens,
		media:     deps.Media,
		blacklist: bl,
	}
}

// Handler builds the complete HTTP handler including middleware.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errNotFound.Body)
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{
			"detail": fmt.Sprintf("Method %q not allowed.", r.Method),
		})
	})

	router.HandleFunc("/health", handle(s.HealthHandler)).Methods(http.MethodGet)

	// Token endpoints ignore the Authorization header; everything else under
	// /api resolves it to a user first.
	authed := func(h HandlerFunc) http.Handler { return s.authenticate(handle(h)) }

	api := router.PathPrefix("/api").Subrouter()
	api.Handle("/auth/register/", authed(s.RegisterHandler)).Methods(http.MethodPost)
	api.Handle("/auth/me/", authed(s.MeHandler)).Methods(http.MethodGet)
	api.HandleFunc("/auth/token/", handle(s.TokenObtainHandler)).Methods(http.MethodPost)
	api.HandleFunc("/auth/token/refresh/", handle(s.TokenRefreshHandler)).Methods(http.MethodPost)
	api.HandleFunc("/auth/token/blacklist/", handle(s.TokenBlacklistHandler)).Methods(http.MethodPost)

	api.Handle("/tracks/", authed(s.ListTracksHandler)).Methods(http.MethodGet)
	api.Handle("/tracks/", authed(s.CreateTrackHandler)).Methods(http.MethodPost)
	api.Handle("/tracks/{id:[0-9]+}/", authed(s.GetTrackHandler)).Methods(http.MethodGet)
	api.Handle("/tracks/{id:[0-9]+}/", authed(s.UpdateTrackHandler)).Methods(http.MethodPut, http.MethodPatch)
	api.Handle("/tracks/{id:[0-9]+}/", authed(s.DeleteTrackHandler)).Methods(http.MethodDelete)

	// An absolute MEDIA_URL means media is served by someone else (e.g. a public bucket).
	if strings.HasPrefix(s.cfg.MediaURL, "/") {
		router.PathPrefix(s.cfg.MediaURL).Handler(handle(s.MediaHandler)).Methods(http.MethodGet, http.MethodHead)
	}

	var h http.Handler = router
	h = s.corsHandler()(h)
	h = s.allowedHosts(h)
	h = logRequests(h)
	h = recoverPanics(h)
	return h
}

func (s *Server) corsHandler() func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Origin", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           86400,
	}
	if len(s.cfg.CORSOrigins) == 0 {
		// An empty allow-list would otherwise mean "any origin".
		opts.AllowOriginFunc = func(*http.Request, string) bool { return false }
	}
	return cors.Handler(opts)
}

// HealthHandler reports whether the database is reachable.
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) error {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := db.Ping(ctx, s.db); err != nil {
		logger.Warn("health check failed", logger.ErrorField(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return nil
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	return nil
}

// Start wires every dependency from cfg, serves HTTP on cfg.Port and
// shuts down gracefully on SIGINT or SIGTERM.
func Start(cfg *config.Config) error {
	if cfg.SecretKey == "" {
		return errors.New("SECRET_KEY must not be empty")
	}

	gdb, err := db.Connect(cfg.DatabaseURL, cfg.Debug)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close(gdb)

	if err := db.Migrate(gdb); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	ctx := context.Background()
	store, err := NewMediaStore(ctx, cfg)
	if err != nil {
		return err
	}

	var blacklist cache.Blacklist = cache.NewGormBlacklist(gdb)
	if cfg.RedisURL != "" {
		client, err := db.ConnectRedis(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer client.Close()
		blacklist = cache.NewRedisBlacklist(client)
		logger.Info("refresh token blacklist stored in redis")
	} else {
		logger.Info("REDIS_URL not set, refresh token blacklist stored in database")
	}

	srv := New(Deps{
		Config:    cfg,
		DB:        gdb,
		Users:     repository.NewUserRepository(gdb),
		Tracks:    repository.NewTrackRepository(gdb),
		Tokens:    auth.NewTokenService(cfg.SecretKey, cfg.AccessTokenLifetime, cfg.RefreshTokenLifetime),
		Media:     store,
		Blacklist: blacklist,
	})

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       5 * time.Minute, // uploads
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			logger.String("addr", httpServer.Addr),
			logger.Bool("debug", cfg.Debug),
			logger.String("storage", cfg.StorageBackend))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-stop:
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// NewMediaStore returns the MediaStore selected by cfg.StorageBackend.
func NewMediaStore(ctx context.Context, cfg *config.Config) (storage.MediaStore, error) {
	switch cfg.StorageBackend {
	case "", "local":
		store, err := storage.NewLocalStore(cfg.MediaRoot)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize local media store: %w", err)
		}
		return store, nil
	case "minio":
		store, err := storage.NewMinioStore(ctx, MinioConfig(cfg))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize MinIO: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.StorageBackend)
	}
}

// MinioConfig extracts the MinIO settings from cfg.
func MinioConfig(cfg *config.Config) storage.MinioConfig {
	return storage.MinioConfig{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		Bucket:    cfg.MinioBucket,
		Region:    cfg.MinioRegion,
		UseSSL:    cfg.MinioUseSSL,
	}
}
