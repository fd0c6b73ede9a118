package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	"tally/internal/amqp"
	"tally/internal/auth"
	"tally/internal/cache"
	"tally/internal/config"
	"tally/internal/core"
	apphttp "tally/internal/http"
	"tally/internal/log"
	"tally/internal/memstore"
	"tally/internal/mirror"
	"tally/internal/party"
	"tally/internal/services"
	"tally/internal/storage"
	"tally/internal/store"
)

func main() {
	// .env is for local development; absence is fine in containers.
	_ = godotenv.Load()

	logger := log.New(log.Config{
		Component: log.ComponentApp,
		Handler:   newLogHandler(),
	})
	log.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	var (
		recordStore store.RecordStore
		users       auth.UserStorage
	)
	switch cfg.RecordBackend {
	case "memory":
		recordStore = memstore.New()
		users = memstore.NewUsers()
		logger.Info("Initialized memory backend")
	default:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		defer repo.Close()
		recordStore = repo
		users = repo
		logger.Info("Initialized SQLite backend", "path", cfg.SQLiteDBPath)
	}

	partyStore, err := party.NewFileStore(filepath.Join(cfg.DataDir, "parties"))
	if err != nil {
		logger.Error("Failed to open party directory storage", "error", err, "dir", cfg.DataDir)
		os.Exit(1)
	}
	mirrorStore, err := mirror.NewFileStore(filepath.Join(cfg.DataDir, "mirror"))
	if err != nil {
		logger.Error("Failed to open day mirror storage", "error", err, "dir", cfg.DataDir)
		os.Exit(1)
	}

	lists := cache.NewLRUCache[[]core.Record](cfg.ListCacheSize, cfg.ListCacheTTL)
	caches := cache.NewManager()
	caches.Register(lists)
	caches.StartCleanup(cfg.ListCacheTTL)
	defer caches.Stop()

	// Record events feed the export worker. The server stays usable without
	// the broker; exports just wait for the periodic sweep.
	var events services.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, record events disabled", "error", err)
		} else {
			defer client.Close()
			events = client
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	records := services.NewRecordService(
		recordStore,
		mirror.New(mirrorStore, nil),
		party.NewDirectory(partyStore),
		lists,
		events,
		nil,
	)

	srv := apphttp.NewServer(
		":"+cfg.Port,
		records,
		auth.NewPasswordAuthenticator(users),
		auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL),
		cfg.RequestTimeout,
	)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting tally server", "port", cfg.Port, "backend", cfg.RecordBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}

// newLogHandler picks colorized output on a terminal and JSON otherwise.
func newLogHandler() slog.Handler {
	if info, err := os.Stdout.Stat(); err == nil && info.Mode()&os.ModeCharDevice != 0 {
		return tint.NewHandler(os.Stdout, &tint.Options{
			Level:      slog.LevelInfo,
			TimeFormat: time.Kitchen,
		})
	}
	return slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
}
