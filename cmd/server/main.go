package main

import (
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	_ "modernc.org/sqlite"

	web "trainingplan/internal/adapters/http"
	"trainingplan/internal/adapters/http/perf"
	"trainingplan/internal/adapters/storage"
	scheduleStore "trainingplan/internal/adapters/storage/schedule"
	"trainingplan/internal/config"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("failed to load .env: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	if !cfg.IsProduction() {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	// Performance instrumentation: request timing, query timing, /api/perf
	collector := perf.NewCollector(perf.DefaultRingSize)

	store, closeStore := openStore(cfg, collector)
	defer closeStore()

	mux := web.NewMux(web.Options{
		StaticDir:    cfg.StaticDir,
		CSRFKey:      cfg.CSRFKey,
		Production:   cfg.IsProduction(),
		CORSOrigin:   cfg.CORSOrigin,
		BodyLimit:    cfg.BodyLimitBytes,
		EnforceRoles: cfg.EnforceRoles,
		SlowRequest:  cfg.SlowRequest,
	}, web.Deps{
		Store:      store,
		Credential: cfg.Credential(),
		Collector:  collector,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Printf("Training plan %s starting on %s (env=%s, store=%s)", version, cfg.Addr, cfg.Env, cfg.Store)

	if err := srv.ListenAndServe(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// openStore builds the configured schedule backend and its cleanup func.
func openStore(cfg config.Config, collector *perf.Collector) (scheduleStore.Store, func()) {
	switch cfg.Store {
	case config.StoreSQLite:
		db, err := storage.Open(cfg.SQLitePath)
		if err != nil {
			log.Fatalf("failed to open database: %v", err)
		}
		if err := storage.InitDB(db); err != nil {
			log.Fatalf("failed to initialize database: %v", err)
		}
		log.Printf("Schedule stored in SQLite at %s", cfg.SQLitePath)
		return scheduleStore.NewSQLiteStore(storage.NewTimedDB(db, collector)), func() { db.Close() }

	case config.StoreRedis:
		rs, err := scheduleStore.NewRedisStore(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		log.Printf("Schedule stored in Redis at %s", cfg.RedisURL)
		return rs, func() { rs.Close() }

	default:
		fs, err := scheduleStore.NewFileStore(cfg.DataDir)
		if err != nil {
			log.Fatalf("failed to prepare data directory: %v", err)
		}
		log.Printf("Schedule stored in %s", fs.Path())
		return fs, func() {}
	}
}
