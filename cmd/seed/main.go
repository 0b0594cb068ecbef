package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/hackgods/careportal/internal/backend"
	"github.com/hackgods/careportal/internal/config"
	"github.com/hackgods/careportal/internal/logger"
	"github.com/hackgods/careportal/internal/portal"
	redisclient "github.com/hackgods/careportal/internal/redis"
)

var specialties = []string{
	"Dermatology",
	"Cardiology",
	"General Practice",
	"Orthopedics",
	"Endocrinology",
	"Neurology",
	"Pediatrics",
	"Psychiatry",
	"Ophthalmology",
	"ENT",
}

type seedOptions struct {
	Doctors     int
	Patients    int
	Days        int
	SlotsPerDay int
	Seed        uint64
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("dev", "info")
		bootLog.Fatal().Err(err).Msg("failed to load config")
	}

	opts := seedOptions{}
	flags := pflag.NewFlagSet("seed", pflag.ExitOnError)
	flags.IntVar(&opts.Doctors, "doctors", 10, "doctors to register")
	flags.IntVar(&opts.Patients, "patients", 50, "patients to register")
	flags.IntVar(&opts.Days, "days", 7, "days of slots to open per doctor, starting tomorrow")
	flags.IntVar(&opts.SlotsPerDay, "slots-per-day", 3, "slots per doctor per day")
	flags.Uint64Var(&opts.Seed, "seed", 0, "random seed, 0 for a random one")
	_ = flags.Parse(os.Args[1:])

	log := logger.New(cfg.Env, cfg.LogLevel)
	log.Info().Msg("seed starting")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	b, err := backend.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("open backend")
	}
	defer b.Close()

	job := func(ctx context.Context) error {
		return seed(ctx, b, cfg, opts, log)
	}

	if b.Redis != nil {
		locker := redisclient.NewLocker(b.Redis, cfg.StoreKeyPrefix, cfg.LockTTL)
		err = locker.WithLock(ctx, "seed", job)
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			log.Warn().Msg("another seed is already running")
			return
		}
	} else {
		err = job(ctx)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("seed failed")
	}

	log.Info().Msg("seed complete")
}

func seed(ctx context.Context, b *backend.Backend, cfg config.Config, opts seedOptions, log zerolog.Logger) error {
	store, err := portal.Open(ctx, b.KV, portal.Options{
		Logger: &log,
		Policy: portal.Policy{MaxSlotsPerDay: cfg.MaxSlotsPerDay},
	})
	if err != nil {
		return err
	}

	faker := gofakeit.New(opts.Seed)

	doctors, err := seedUsers(ctx, store, faker, portal.RoleDoctor, opts.Doctors, log)
	if err != nil {
		return fmt.Errorf("seed doctors: %w", err)
	}
	if _, err := seedUsers(ctx, store, faker, portal.RolePatient, opts.Patients, log); err != nil {
		return fmt.Errorf("seed patients: %w", err)
	}
	if err := seedSlots(ctx, store, doctors, opts.Days, opts.SlotsPerDay, log); err != nil {
		return fmt.Errorf("seed slots: %w", err)
	}
	return nil
}

func seedUsers(ctx context.Context, store *portal.Store, faker *gofakeit.Faker, role portal.Role, count int, log zerolog.Logger) ([]portal.User, error) {
	log.Info().Int("count", count).Str("role", string(role)).Msg("seeding users")

	users := make([]portal.User, 0, count)
	for attempts := 0; len(users) < count && attempts < 2*count; attempts++ {
		in := portal.NewUser{
			Name:  faker.Name(),
			Email: faker.Email(),
			Role:  role,
		}
		if role == portal.RoleDoctor {
			in.Name = "Dr. " + faker.LastName()
			in.Specialty = specialties[faker.IntRange(0, len(specialties)-1)]
		}

		u, err := store.RegisterUser(ctx, in)
		if err != nil {
			var verr *portal.ValidationError
			if errors.As(err, &verr) {
				// Duplicate fake email; try another.
				continue
			}
			return nil, err
		}
		u, err = store.ApproveUser(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

func seedSlots(ctx context.Context, store *portal.Store, doctors []portal.User, days, perDay int, log zerolog.Logger) error {
	log.Info().Int("doctors", len(doctors)).Int("days", days).Int("per_day", perDay).Msg("seeding slots")

	tomorrow := time.Now().UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
	created, skipped := 0, 0
	for _, d := range doctors {
		for day := 0; day < days; day++ {
			base := tomorrow.AddDate(0, 0, day).Add(9 * time.Hour)
			for n := 0; n < perDay; n++ {
				start := base.Add(time.Duration(n) * time.Hour)
				_, err := store.AddSlot(ctx, d.ID, start, start.Add(30*time.Minute))
				switch {
				case err == nil:
					created++
				case errors.Is(err, portal.ErrSlotConflict), errors.Is(err, portal.ErrSlotLimitReached):
					skipped++
				default:
					return err
				}
			}
		}
	}

	log.Info().Int("created", created).Int("skipped", skipped).Msg("slots seeded")
	return nil
}
