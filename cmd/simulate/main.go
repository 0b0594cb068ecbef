package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/hackgods/careportal/internal/backend"
	"github.com/hackgods/careportal/internal/clock"
	"github.com/hackgods/careportal/internal/config"
	"github.com/hackgods/careportal/internal/logger"
	"github.com/hackgods/careportal/internal/portal"
	"github.com/hackgods/careportal/internal/simulator"
)

type runOptions struct {
	Duration time.Duration
	Families []string
	Seed     uint64
	Trigger  []string
	Quality  bool
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("dev", "info")
		bootLog.Fatal().Err(err).Msg("failed to load config")
	}

	opts := runOptions{}
	flags := pflag.NewFlagSet("simulate", pflag.ExitOnError)
	flags.DurationVar(&opts.Duration, "duration", cfg.Sim.Duration, "how long to run the simulator")
	flags.StringSliceVar(&opts.Families, "families", cfg.Sim.Families, "families to run (default all)")
	flags.Uint64Var(&opts.Seed, "seed", cfg.Sim.Seed, "random seed, 0 for a random one")
	flags.StringSliceVar(&opts.Trigger, "trigger", nil, "families to fire once, ungated, before the run")
	flags.BoolVar(&opts.Quality, "quality", true, "print doctor quality figures after the run")
	_ = flags.Parse(os.Args[1:])

	log := logger.New(cfg.Env, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, opts, log); err != nil {
		log.Fatal().Err(err).Msg("simulation failed")
	}
}

func run(ctx context.Context, cfg config.Config, opts runOptions, log zerolog.Logger) error {
	if opts.Duration <= 0 {
		return fmt.Errorf("--duration must be > 0")
	}

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

	sim, err := simulator.New(store, simulator.Options{
		Clock:    clock.Real(),
		Logger:   &log,
		Seed:     opts.Seed,
		Families: opts.Families,
	})
	if err != nil {
		return err
	}

	for _, name := range opts.Trigger {
		outcome, err := sim.Trigger(ctx, name)
		if err != nil {
			log.Warn().Err(err).Str("family", name).Str("outcome", string(outcome)).Msg("trigger failed")
			continue
		}
		log.Info().Str("family", name).Str("outcome", string(outcome)).Msg("triggered")
	}

	log.Info().
		Dur("duration", opts.Duration).
		Strs("families", sim.Families()).
		Msg("simulation starting")

	start := time.Now()
	runCtx, cancel := context.WithTimeout(ctx, opts.Duration)
	defer cancel()

	if err := sim.Start(runCtx); err != nil {
		return err
	}
	<-runCtx.Done()
	sim.Stop()

	simulator.PrintReport(os.Stdout, time.Since(start), sim.Report())
	if opts.Quality {
		printQuality(store)
	}
	return nil
}

func printQuality(store *portal.Store) {
	var doctors []portal.User
	for _, u := range store.Users() {
		if u.Role == portal.RoleDoctor {
			doctors = append(doctors, u)
		}
	}
	sort.Slice(doctors, func(i, j int) bool { return doctors[i].Name < doctors[j].Name })

	fmt.Println("DOCTOR QUALITY")
	fmt.Println("--------------")
	for _, d := range doctors {
		q := store.DoctorQuality(d.ID)
		fmt.Printf("%-24s appts=%-4d completed=%5.1f%% rating=%.2f satisfaction=%5.1f%%\n",
			d.Name, q.AppointmentCount, q.CompletionRate, q.AvgRating, q.PatientSatisfaction)
	}
	fmt.Println()
}
