package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"labourtrack/internal/db"
	"labourtrack/internal/domain/attendance"
	"labourtrack/internal/domain/audit"
	"labourtrack/internal/domain/auth"
	"labourtrack/internal/domain/notifications"
	"labourtrack/internal/domain/users"
	"labourtrack/internal/platform/config"
	"labourtrack/internal/platform/metrics"
	"labourtrack/internal/platform/progress"
	"labourtrack/internal/platform/storage"
	attendancehandler "labourtrack/internal/transport/http/handlers/attendance"
	audithandler "labourtrack/internal/transport/http/handlers/audit"
	authhandler "labourtrack/internal/transport/http/handlers/auth"
	notificationshandler "labourtrack/internal/transport/http/handlers/notifications"
	reportshandler "labourtrack/internal/transport/http/handlers/reports"
	usershandler "labourtrack/internal/transport/http/handlers/users"
	"labourtrack/internal/transport/http/middleware"
)

func Run() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer pool.Close()

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, "migrations"); err != nil {
			log.Fatalf("migrations failed: %v", err)
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			log.Fatalf("seed failed: %v", err)
		}
	}

	userStore := users.NewStore(pool)
	recordStore := attendance.NewStore(pool)
	notifyStore := notifications.NewStore(pool)
	auditSvc := audit.New(pool)
	perms := auth.NewChecker()
	files := storage.NewLocal(cfg.StorageDir)
	tracker := newProgressTracker(cfg)
	ingest := attendance.NewIngestor(userStore, recordStore, tracker, files)
	collector := metrics.New()

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Metrics(collector))
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	router.Get("/metricsz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(collector.Snapshot())
	})

	router.Route("/api/v1", func(r chi.Router) {
		authhandler.NewHandler(userStore, auditSvc, cfg.JWTSecret, cfg.TokenTTL).RegisterRoutes(r)
		attendancehandler.NewHandler(recordStore, userStore, ingest, tracker, files, notifyStore, auditSvc, collector, perms).RegisterRoutes(r)
		usershandler.NewHandler(userStore, auditSvc, perms).RegisterRoutes(r)
		reportshandler.NewHandler(recordStore, userStore, perms).RegisterRoutes(r)
		notificationshandler.NewHandler(notifyStore).RegisterRoutes(r)
		audithandler.NewHandler(auditSvc).RegisterRoutes(r)
	})

	log.Printf("labourtrack server listening on %s", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, router); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

// newProgressTracker prefers Redis when configured so progress
// survives restarts and is shared between replicas.
func newProgressTracker(cfg config.Config) progress.Tracker {
	if cfg.RedisURL == "" {
		return progress.NewMemoryTracker(cfg.ProgressTTL)
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Printf("invalid REDIS_URL, falling back to in-memory progress: %v", err)
		return progress.NewMemoryTracker(cfg.ProgressTTL)
	}
	return progress.NewRedisTracker(redis.NewClient(opts), cfg.ProgressTTL)
}
