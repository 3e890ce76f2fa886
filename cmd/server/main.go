// Package main provides the refinery HTTP server entry point.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/finprompt/refinery/internal/config"
	"github.com/finprompt/refinery/internal/db/sqlite"
	"github.com/finprompt/refinery/internal/metrics"
	"github.com/finprompt/refinery/internal/packs"
	"github.com/finprompt/refinery/internal/provider"
	"github.com/finprompt/refinery/internal/ratelimit"
	"github.com/finprompt/refinery/internal/runner"
	"github.com/finprompt/refinery/internal/server"
	"github.com/finprompt/refinery/internal/workflow"
	"github.com/finprompt/refinery/pkg/models"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	port := flag.Int("port", 0, "Listen port (default: from settings)")
	dataDir := flag.String("data-dir", "", "Data directory (default: ~/.refinery)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true})

	// Provider keys commonly live in a local .env during development.
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("Loaded .env")
	}

	if err := config.EnsureAll(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure data directory")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load config, using defaults")
		cfg = config.Default()
	}
	if *port != 0 {
		cfg.Port = *port
	}

	dbPath := config.DBPath()
	packsDir := cfg.PacksPath()
	if *dataDir != "" {
		dbPath = *dataDir + "/refinery.db"
		packsDir = *dataDir + "/packs"
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := sqlite.NewStore(sqlite.StoreConfig{
		Path:     dbPath,
		MaxConns: cfg.MaxConns,
		WALMode:  true,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize SQLite store")
	}
	defer store.Close()

	registry := provider.NewRegistry(cfg)

	var limiter ratelimit.Limiter
	if cfg.RedisAddr != "" {
		redis := ratelimit.NewRedis(cfg.RedisAddr)
		defer redis.Close()
		limiter = redis
		log.Info().Str("addr", cfg.RedisAddr).Msg("Using Redis rate limiter")
	} else {
		limiter = ratelimit.NewMemory()
	}

	catalog := packs.NewCatalog()
	if err := catalog.Watch(ctx, packsDir); err != nil {
		log.Warn().Err(err).Str("dir", packsDir).Msg("Pack overlay watch failed")
	}

	rec := metrics.New()
	run := runner.New(registry, time.Duration(cfg.ProviderTimeoutSeconds)*time.Second)
	wf := workflow.New(
		registry[models.ProviderOpenAI],
		sqlite.NewPromptRecordStore(store),
		run,
		catalog,
		rec,
	)

	svc := server.NewService(server.Options{
		Version:  Version,
		Config:   cfg,
		Store:    store,
		Workflow: wf,
		Catalog:  catalog,
		Limiter:  limiter,
		Metrics:  rec,
		Salt:     config.Salt(),
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- svc.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
	case err := <-errCh:
		if err != nil {
			log.Fatal().Err(err).Msg("Server failed")
		}
		return
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := svc.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Shutdown did not complete cleanly")
	}
}
