package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/krenshaw2018/cesium/internal/access"
	"github.com/krenshaw2018/cesium/internal/api"
	"github.com/krenshaw2018/cesium/internal/auth"
	"github.com/krenshaw2018/cesium/internal/cache"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	addr := os.Getenv("CESIUM_HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	authCfg, err := loadAuthConfig(logger)
	if err != nil {
		logger.Error("invalid auth configuration", "error", err)
		os.Exit(1)
	}

	accessCfg := loadAccessConfig(logger)
	predictor := access.NewPredictor(accessCfg, logger)

	cacheCfg := loadCacheConfig(logger)
	results := cache.NewResultCache(cacheCfg, logger)

	apiCfg := loadAPIConfig(logger)
	srv := api.NewServer(addr, logger, authCfg, apiCfg, predictor, results)

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start the cache janitor.
	go results.Start(ctx)

	go func() {
		logger.Info("starting server", "addr", addr, "auth_enabled", authCfg.Enabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server listen error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func loadAuthConfig(logger *slog.Logger) (auth.Config, error) {
	cfg := auth.Config{}

	enabledStr := os.Getenv("CESIUM_AUTH_ENABLED")
	if enabledStr != "" {
		enabled, err := strconv.ParseBool(enabledStr)
		if err != nil {
			return cfg, errors.New("CESIUM_AUTH_ENABLED must be a boolean value (true/false/1/0)")
		}
		cfg.Enabled = enabled
	}

	if cfg.Enabled {
		cfg.Token = os.Getenv("CESIUM_AUTH_TOKEN")
		if cfg.Token == "" {
			return cfg, errors.New("CESIUM_AUTH_TOKEN is required when auth is enabled")
		}
		logger.Info("auth enabled")
	}

	return cfg, nil
}

func loadAccessConfig(logger *slog.Logger) access.Config {
	cfg := access.Config{
		Workers:    runtime.NumCPU(),
		CoarseStep: 30 * time.Second,
		FineStep:   time.Second,
		MinWindow:  10 * time.Second,
	}

	if v := os.Getenv("CESIUM_ACCESS_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid CESIUM_ACCESS_WORKERS value, using default", "value", v, "default", cfg.Workers)
		} else {
			cfg.Workers = n
		}
	}

	if v := os.Getenv("CESIUM_ACCESS_COARSE_STEP"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid CESIUM_ACCESS_COARSE_STEP value, using default", "value", v, "default", 30)
		} else {
			cfg.CoarseStep = time.Duration(n) * time.Second
		}
	}

	if v := os.Getenv("CESIUM_ACCESS_MIN_WINDOW"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid CESIUM_ACCESS_MIN_WINDOW value, using default", "value", v, "default", 10)
		} else {
			cfg.MinWindow = time.Duration(n) * time.Second
		}
	}

	logger.Info("access config",
		"workers", cfg.Workers,
		"coarse_step_seconds", cfg.CoarseStep.Seconds(),
		"fine_step_seconds", cfg.FineStep.Seconds(),
		"min_window_seconds", cfg.MinWindow.Seconds(),
	)

	return cfg
}

func loadCacheConfig(logger *slog.Logger) cache.Config {
	cfg := cache.Config{
		TTL:           60 * time.Second,
		MaxEntries:    1024,
		SweepInterval: 30 * time.Second,
	}

	if v := os.Getenv("CESIUM_CACHE_TTL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid CESIUM_CACHE_TTL value, using default", "value", v, "default", 60)
		} else {
			cfg.TTL = time.Duration(n) * time.Second
		}
	}

	if v := os.Getenv("CESIUM_CACHE_MAX_ENTRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid CESIUM_CACHE_MAX_ENTRIES value, using default", "value", v, "default", 1024)
		} else {
			cfg.MaxEntries = n
		}
	}

	logger.Info("cache config",
		"ttl_seconds", cfg.TTL.Seconds(),
		"max_entries", cfg.MaxEntries,
	)

	return cfg
}

func loadAPIConfig(logger *slog.Logger) api.Config {
	cfg := api.Config{
		MaxSamples:         250000,
		MaxConcurrentPerIP: 10,
	}

	if v := os.Getenv("CESIUM_TRUST_PROXY"); v != "" {
		trust, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn("invalid CESIUM_TRUST_PROXY value, defaulting to false", "value", v)
		} else {
			cfg.TrustProxy = trust
		}
	}

	if v := os.Getenv("CESIUM_MAX_SAMPLES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid CESIUM_MAX_SAMPLES value, using default", "value", v, "default", cfg.MaxSamples)
		} else {
			cfg.MaxSamples = n
		}
	}

	if v := os.Getenv("CESIUM_MAX_CONCURRENT_PER_IP"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid CESIUM_MAX_CONCURRENT_PER_IP value, using default", "value", v, "default", 10)
		} else {
			cfg.MaxConcurrentPerIP = n
		}
	}

	logger.Info("api config",
		"trust_proxy", cfg.TrustProxy,
		"max_samples", cfg.MaxSamples,
		"max_concurrent_per_ip", cfg.MaxConcurrentPerIP,
	)

	return cfg
}
