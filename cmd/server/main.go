package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/sethnicholsaz/asset-manager-sub001/internal/api"
	"github.com/sethnicholsaz/asset-manager-sub001/internal/config"
	"github.com/sethnicholsaz/asset-manager-sub001/internal/database"
	"github.com/sethnicholsaz/asset-manager-sub001/internal/engine"
	"github.com/sethnicholsaz/asset-manager-sub001/internal/herd"
	"github.com/sethnicholsaz/asset-manager-sub001/internal/ledger"
	"github.com/sethnicholsaz/asset-manager-sub001/internal/reports"
	"github.com/sethnicholsaz/asset-manager-sub001/internal/scheduler"
	"github.com/sethnicholsaz/asset-manager-sub001/internal/settings"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("load config")
	}
	log := newLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("run migrations")
	}

	store := database.NewStore(pool)
	eng := engine.New(engine.NewPostgresStore(store), log)

	cowRepo := herd.NewPostgresRepository(pool)
	journalRepo := ledger.NewPostgresRepository(pool)
	settingsRepo := settings.NewPostgresRepository(pool)
	reportsSvc := reports.NewService(reports.NewPostgresRepository(pool), settingsRepo)

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.New(eng, cowRepo, settingsRepo, log)
		if err := sched.Start(); err != nil {
			log.Fatal().Err(err).Msg("start scheduler")
		}
	}

	server := api.NewServer(eng, reportsSvc, cowRepo, journalRepo, settingsRepo, log)
	httpServer := &http.Server{
		Addr: cfg.Server.Addr(),
		Handler: server.Router(api.Options{
			RateLimit:   cfg.Server.RateLimit,
			RateBurst:   cfg.Server.RateBurst,
			CORSOrigins: cfg.Server.CORSOrigins,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if sched != nil {
		sched.Stop()
	}
}

func newLogger(cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var log zerolog.Logger
	if cfg.Pretty {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		log = zerolog.New(os.Stderr)
	}
	return log.Level(level).With().Timestamp().Logger()
}
