package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"xirr-service/config"
	httpLayer "xirr-service/http"
	"xirr-service/repository"
	"xirr-service/service"
)

const historySize = 500

func main() {
	configPath := flag.String("config", "", "Path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	level, _ := cfg.Log.SlogLevel()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStart()

	store, err := repository.OpenCashflowStore(startCtx, cfg.Store, logger)
	if err != nil {
		logger.Error("failed to open cashflow store", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	cache, cacheCloser, err := repository.OpenCache(startCtx, cfg.Cache, logger)
	if err != nil {
		logger.Error("failed to open cache", "driver", cfg.Cache.Driver, "error", err)
		os.Exit(1)
	}
	defer cacheCloser.Close()

	calcLog := repository.NewCalculationRepositoryMemory(historySize)

	xirrService := service.NewXirrService(
		store,
		cache,
		calcLog,
		service.WithLogger(logger),
		service.WithWorkers(cfg.Batch.Workers),
	)

	xirrHandler := httpLayer.NewXirrHandler(xirrService, logger)
	historyHandler := httpLayer.NewHistoryHandler(calcLog, logger)

	rateLimiter := httpLayer.NewRateLimiter(cfg.RateLimit.Capacity, cfg.RateLimit.Refill)
	defer rateLimiter.Stop()

	limited := func(h http.HandlerFunc) http.Handler {
		return httpLayer.RateLimitMiddleware(rateLimiter, h)
	}

	mux := http.NewServeMux()
	mux.Handle("/members", limited(xirrHandler.Members))
	mux.Handle("/xirr/calculate", limited(xirrHandler.Calculate))
	mux.Handle("/xirr/calculate-all", limited(xirrHandler.CalculateAll))
	mux.Handle("/xirr/compute", limited(xirrHandler.Compute))
	mux.Handle("/xirr/history", limited(historyHandler.Recent))
	mux.HandleFunc("/healthz", xirrHandler.Health)

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("xirr api listening", "addr", cfg.Server.Addr, "store", cfg.Store.Driver, "cache", cfg.Cache.Driver)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		logger.Error("server failed", "error", err)
		return
	case <-quit:
		logger.Info("shutting down server")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("error during server shutdown", "error", err)
	}

	logger.Info("server exited")
}
