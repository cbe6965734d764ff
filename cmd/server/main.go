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

	_ "github.com/lib/pq"

	"healthbot/internal/cache"
	"healthbot/internal/config"
	"healthbot/internal/db"
	httpapi "healthbot/internal/http"
	"healthbot/internal/llm"
	"healthbot/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Get().Error("configuration error", "error", err)
		os.Exit(1)
	}
	log := logging.Init(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sqlDB, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Error("open database failed", "error", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err = sqlDB.PingContext(pingCtx)
	cancel()
	if err != nil {
		log.Error("database unreachable", "error", err)
		os.Exit(1)
	}
	if err := db.Migrate(ctx, sqlDB); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
	repo := db.NewRepository(sqlDB)

	var redis *cache.Cache
	if cfg.RedisURL != "" {
		redis, err = cache.New(cfg.RedisURL)
		if err != nil {
			log.Error("redis configuration error", "error", err)
			os.Exit(1)
		}
		defer redis.Close()
		if err := redis.Ping(ctx); err != nil {
			log.Warn("redis unreachable at startup, rate limiting fails open", "error", err)
		}
	}

	var model llm.Client
	switch cfg.Backend {
	case config.BackendOpenAI:
		model = llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	default:
		model = llm.NewOllamaClient(cfg.OllamaBaseURL, cfg.OllamaModel)
	}
	if !model.Available(ctx) {
		log.Warn("llm backend unavailable at startup, responses will use fallbacks",
			"backend", cfg.Backend, "model", model.ModelName())
	}

	server := httpapi.New(cfg, repo, redis, model)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.HTTPAddr, "backend", cfg.Backend, "model", model.ModelName())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown failed", "error", err)
			os.Exit(1)
		}
	}
	log.Info("stopped")
}
