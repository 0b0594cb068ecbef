package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/hackgods/careportal/internal/api"
	"github.com/hackgods/careportal/internal/backend"
	"github.com/hackgods/careportal/internal/clock"
	"github.com/hackgods/careportal/internal/config"
	"github.com/hackgods/careportal/internal/logger"
	"github.com/hackgods/careportal/internal/portal"
	redisclient "github.com/hackgods/careportal/internal/redis"
	"github.com/hackgods/careportal/internal/simulator"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("dev", "info")
		bootLog.Fatal().Err(err).Msg("failed to load config")
	}

	log := logger.New(cfg.Env, cfg.LogLevel)
	log.Info().Str("version", version).Str("backend", cfg.StoreBackend).Msg("portal starting")

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(rootCtx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("portal exited")
	}
	log.Info().Msg("portal shutdown complete")
}

func run(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	b, err := backend.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer b.Close()

	store, err := portal.Open(ctx, b.KV, portal.Options{
		Clock:  clock.Real(),
		Logger: &log,
		Policy: portal.Policy{MaxSlotsPerDay: cfg.MaxSlotsPerDay},
	})
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics := api.NewMetrics(reg)
	go httpMetrics.WatchMutations(ctx, store.Events())

	var checks []api.Check
	if p, ok := b.Pinger(); ok {
		checks = append(checks, api.Check{Name: "store", Pinger: p, Critical: true})
	}
	if b.Redis != nil {
		pub := redisclient.NewPublisher(b.Redis, cfg.EventsChannel, log)
		go pub.Run(ctx, store.Events())
	}

	sim, err := simulator.New(store, simulator.Options{
		Clock:    clock.Real(),
		Logger:   &log,
		Metrics:  simulator.NewMetrics(reg),
		Seed:     cfg.Sim.Seed,
		Families: cfg.Sim.Families,
	})
	if err != nil {
		return err
	}
	if cfg.Sim.Enabled {
		if err := sim.Start(ctx); err != nil {
			return err
		}
		defer sim.Stop()
	}

	srv := &http.Server{
		Addr: ":" + cfg.HTTPPort,
		Handler: api.NewRouter(api.RouterConfig{
			Checks:    checks,
			Simulator: sim,
			Registry:  reg,
			Metrics:   httpMetrics,
			Logger:    log,
			Env:       cfg.Env,
			Version:   version,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-serveErr:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown")
	}
	return nil
}
