package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/codebro/backend/internal/admin"
	"github.com/codebro/backend/internal/assistant"
	"github.com/codebro/backend/internal/auth"
	"github.com/codebro/backend/internal/cache"
	"github.com/codebro/backend/internal/catalog"
	"github.com/codebro/backend/internal/config"
	"github.com/codebro/backend/internal/database"
	"github.com/codebro/backend/internal/gamification"
	"github.com/codebro/backend/internal/httputil"
	"github.com/codebro/backend/internal/logger"
	"github.com/codebro/backend/internal/middleware"
	"github.com/codebro/backend/internal/users"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := database.Connect(ctx, cfg.DSN())
	if err != nil {
		log.Fatal("failed to connect to database", "error", err)
	}
	defer db.Close()

	if cfg.AutoMigrate {
		version, err := database.Migrate(ctx, db)
		if err != nil {
			log.Fatal("failed to run migrations", "error", err)
		}
		log.Info("schema up to date", "version", version)
	}

	c := newCache(cfg, log)
	defer c.Close()

	// Services
	gamificationService := gamification.NewService(gamification.NewStore(db), c, log, gamification.Options{
		Fanout:       cfg.LeaderboardFanout,
		QueryTimeout: cfg.LeaderboardTimeout,
	})
	defs, err := gamification.LoadAchievements(cfg.SeedPath)
	if err != nil {
		log.Fatal("failed to load achievement definitions", "error", err)
	}
	if err := gamificationService.SeedAchievements(ctx, defs); err != nil {
		log.Fatal("failed to seed achievements", "error", err)
	}

	var responder assistant.Responder = assistant.NewEchoResponder()
	if cfg.AnthropicAPIKey != "" {
		responder = assistant.NewAnthropicResponder(cfg.AnthropicAPIKey, cfg.AnthropicModel, log)
		log.Info("assistant using Anthropic API", "model", cfg.AnthropicModel)
	} else {
		log.Info("assistant using placeholder responder")
	}

	authStore := auth.NewStore(db)
	authMW := middleware.NewAuth([]byte(cfg.JWTSecret), authStore, log)

	// Setup router
	r := mux.NewRouter()
	r.Use(middleware.RequestID, middleware.Logger(log), middleware.Recovery(log))
	r.HandleFunc("/health", healthHandler(db, log)).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()

	// Protected routes
	protected := api.PathPrefix("").Subrouter()
	protected.Use(authMW.Authenticate)

	auth.NewHandler(authStore, log).Register(protected)
	gamification.NewHandler(gamificationService, log).Register(protected)
	catalog.NewHandler(catalog.NewService(catalog.NewStore(db), c, log), log).Register(protected)
	users.NewHandler(users.NewService(users.NewStore(db), c, log), log).Register(protected)
	assistant.NewHandler(assistant.NewService(assistant.NewStore(db), responder, cfg.AIDailyLimit, log), log).Register(protected)

	adminRoutes := protected.PathPrefix("").Subrouter()
	adminRoutes.Use(middleware.RequireRole(auth.RoleAdmin, log))
	admin.NewHandler(admin.NewService(admin.NewStore(db), c, log), log).Register(adminRoutes)

	// CORS
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           corsHandler.Handler(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start daily streak worker
	go gamificationService.StartDailyStreakWorker(ctx)

	go func() {
		log.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

// newCache picks Redis when REDIS_ADDR is set and falls back to the
// in-process cache when it is unset or unreachable.
func newCache(cfg *config.Config, log *logger.Logger) cache.Cache {
	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err == nil {
			log.Info("using redis cache", "addr", cfg.RedisAddr)
			return rc
		}
		log.Warn("redis unavailable, using in-memory cache", "addr", cfg.RedisAddr, "error", err)
	}
	return cache.NewMemoryCache(time.Minute)
}

func healthHandler(db *sql.DB, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			log.Warn("health check failed", "error", err)
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
