package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"ytdash/internal/api"
	"ytdash/internal/cache"
	"ytdash/internal/config"
	"ytdash/internal/dash"
	"ytdash/internal/downloader"
	"ytdash/internal/logger"
	"ytdash/internal/metrics"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the manifest HTTP service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts)
		},
	}
}

// loadConfig reads .env, the config file and the environment, then applies flag overrides.
func loadConfig(opts *rootOptions) (*config.Config, error) {
	// A missing .env file is not an error.
	_ = config.LoadDotEnv()

	cfg, err := config.LoadConfig(opts.configFile)
	if err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// components are the wired services shared by serve and generate.
type components struct {
	creator *dash.Creator
	memory  *cache.ManifestCache
	redis   *cache.RedisStore
}

func (c *components) Close() error {
	if c.redis != nil {
		return c.redis.Close()
	}
	return nil
}

func buildComponents(ctx context.Context, cfg *config.Config, log *logger.ZerologLogger, m *metrics.Metrics) (*components, error) {
	memory, err := cache.New(log.WithComponent("cache"), cfg.Cache.Capacity)
	if err != nil {
		return nil, err
	}
	comps := &components{memory: memory}

	var store dash.Cache = memory
	if cfg.Cache.RedisEnabled() {
		redis, err := cache.NewRedisStore(ctx, cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
			TTL:      cfg.Cache.RedisTTL,
		}, log.WithComponent("redis"))
		if err != nil {
			return nil, err
		}
		comps.redis = redis
		store = cache.NewTiered(memory, redis)
	}

	client := downloader.NewClient(log.WithComponent("downloader"), downloader.Options{
		Timeout:   cfg.HTTP.Timeout,
		UserAgent: cfg.HTTP.UserAgent,
		RateLimit: rate.Limit(cfg.HTTP.ProbeRate),
		RateBurst: cfg.HTTP.ProbeBurst,
	})

	comps.creator = dash.NewCreator(client, store,
		dash.WithLogger(log.WithComponent("dash")),
		dash.WithRecorder(m),
	)
	return comps, nil
}

func runServe(ctx context.Context, opts *rootOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	log := logger.NewLogger(cfg.LogLevel)
	log.Infof("Starting ytdash manifest service...")
	log.Infof("Log level set to: %s", cfg.LogLevel)

	m := metrics.New()
	comps, err := buildComponents(ctx, cfg, log, m)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer comps.Close()

	var apiOpts []api.Option
	if comps.redis != nil {
		apiOpts = append(apiOpts, api.WithHealthCheck("redis", comps.redis.HealthCheck))
	}
	router := api.New(comps.creator, log.WithComponent("api"), m, comps.memory.Len, apiOpts...)
	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Server starting on %s", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("could not listen on %s: %w", cfg.ListenAddr, err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Infof("Server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	stats := comps.memory.Stats()
	log.Infof("Server stopped (cache hits %d, misses %d, evictions %d)", stats.Hits, stats.Misses, stats.Evictions)
	if comps.redis != nil {
		rs := comps.redis.Stats()
		log.Infof("Redis cache hits %d, misses %d, puts %d", rs.Hits, rs.Misses, rs.Puts)
	}
	return nil
}
