package simulator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/hackgods/careportal/internal/clock"
	"github.com/hackgods/careportal/internal/portal"
)

// Store is the slice of the portal store the simulator drives. It goes
// through the same operations any other caller would use.
type Store interface {
	Users() []portal.User
	Slots() []portal.Slot
	Appointments() []portal.Appointment
	Payments() []portal.Payment
	Prescriptions() []portal.Prescription
	RefillRequests() []portal.RefillRequest
	RescheduleRequests() []portal.RescheduleRequest

	BookAppointment(ctx context.Context, slotID, patientID, notes string) (portal.Appointment, error)
	CompleteAppointment(ctx context.Context, appointmentID string) (portal.Appointment, error)
	MakePayment(ctx context.Context, appointmentID, patientID string, amount float64, method portal.PaymentMethod) (portal.Payment, error)
	AddPrescription(ctx context.Context, in portal.NewPrescription) (portal.Prescription, error)
	ReportBug(ctx context.Context, title, description string, severity portal.Severity) (portal.BugReport, error)
	AddLog(ctx context.Context, message string, level portal.LogLevel, source string) (portal.SystemLog, error)
	ApproveRefill(ctx context.Context, refillID, doctorNotes string) (portal.RefillRequest, error)
	ApproveReschedule(ctx context.Context, requestID string) (portal.RescheduleRequest, error)
	UploadMedicalRecord(ctx context.Context, patientID, title string, recordType portal.RecordType) (portal.MedicalRecord, error)
	DispatchDueReminders(ctx context.Context) (int, error)
}

var _ Store = (*portal.Store)(nil)

var (
	ErrRunning       = errors.New("simulator already running")
	ErrUnknownFamily = errors.New("unknown simulator family")
)

type Options struct {
	Clock   clock.Clock
	Logger  *zerolog.Logger
	Metrics *Metrics
	// Seed feeds the random source. Zero picks a random seed.
	Seed uint64
	// Families restricts the simulator to the named families. Empty
	// runs all of them.
	Families []string
}

// Simulator periodically mutates a Store to emulate live activity.
// Each family runs on its own ticker; Stop tears all of them down
// together.
type Simulator struct {
	store   Store
	clock   clock.Clock
	log     zerolog.Logger
	metrics *Metrics

	rngMu sync.Mutex
	rng   *gofakeit.Faker

	families []family

	mu      sync.Mutex
	cancel  context.CancelFunc
	group   *errgroup.Group
	runCtx  context.Context
	started time.Time
}

func New(store Store, opts Options) (*Simulator, error) {
	s := &Simulator{
		store:   store,
		clock:   opts.Clock,
		metrics: opts.Metrics,
		rng:     gofakeit.New(opts.Seed),
	}
	if s.clock == nil {
		s.clock = clock.Real()
	}
	if opts.Logger != nil {
		s.log = opts.Logger.With().Str("component", "simulator").Logger()
	} else {
		s.log = zerolog.Nop()
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(nil)
	}

	all := s.defaultFamilies()
	if len(opts.Families) == 0 {
		s.families = all
		return s, nil
	}
	for _, name := range opts.Families {
		f, ok := lookup(all, name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownFamily, name)
		}
		s.families = append(s.families, f)
	}
	return s, nil
}

// Families lists the names of the configured families.
func (s *Simulator) Families() []string {
	names := make([]string, len(s.families))
	for i, f := range s.families {
		names[i] = f.name
	}
	return names
}

// Start launches one goroutine per family. The simulator runs until
// Stop is called or ctx is cancelled.
func (s *Simulator) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.group != nil {
		if s.runCtx.Err() == nil {
			return ErrRunning
		}
		// the previous run ended with its parent context
		s.waitLocked()
	}

	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	for _, f := range s.families {
		f := f
		g.Go(func() error {
			return s.loop(gctx, f)
		})
	}

	s.cancel = cancel
	s.group = g
	s.runCtx = gctx
	s.started = s.clock.Now()
	s.log.Info().Strs("families", s.Families()).Msg("simulator started")
	return nil
}

// Stop cancels every family and waits for their goroutines to exit. No
// action runs after Stop returns. Stop on an idle simulator is a no-op.
func (s *Simulator) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.group == nil {
		return
	}
	s.waitLocked()
}

// waitLocked cancels the current run and waits for every family to
// exit. Callers hold s.mu.
func (s *Simulator) waitLocked() {
	s.cancel()
	if err := s.group.Wait(); err != nil {
		s.log.Error().Err(err).Msg("simulator family exited with error")
	}
	s.log.Info().Dur("ran_for", s.clock.Now().Sub(s.started)).Msg("simulator stopped")

	s.cancel = nil
	s.group = nil
	s.runCtx = nil
}

// Running reports whether families are live: Start has been called and
// neither Stop nor cancellation of Start's context has ended the run.
func (s *Simulator) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.group != nil && s.runCtx.Err() == nil
}

// Trigger runs one action of the named family immediately, skipping
// the probability gate.
func (s *Simulator) Trigger(ctx context.Context, name string) (Outcome, error) {
	f, ok := lookup(s.defaultFamilies(), name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownFamily, name)
	}
	return s.tick(ctx, f, false)
}

// Report summarises tick outcomes so far.
func (s *Simulator) Report() []FamilyReport {
	return s.metrics.Report()
}

func (s *Simulator) loop(ctx context.Context, f family) error {
	t := s.clock.NewTicker(f.period)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			// both cases may be ready; never act once cancelled
			if ctx.Err() != nil {
				return nil
			}
			_, _ = s.tick(ctx, f, true)
		}
	}
}

func (s *Simulator) tick(ctx context.Context, f family, gated bool) (Outcome, error) {
	if gated && f.threshold >= 0 && s.float64() <= f.threshold {
		s.metrics.Record(f.name, OutcomeGated, 0)
		return OutcomeGated, nil
	}

	start := time.Now()
	acted, err := f.action(ctx)
	latency := time.Since(start)

	outcome := OutcomeIdle
	switch {
	case err != nil:
		outcome = OutcomeError
		s.log.Warn().Err(err).Str("family", f.name).Msg("simulated action failed")
	case acted:
		outcome = OutcomeActed
		s.log.Debug().Str("family", f.name).Dur("took", latency).Msg("simulated action")
	}
	s.metrics.Record(f.name, outcome, latency)
	return outcome, err
}

func (s *Simulator) float64() float64 {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Float64()
}

// intn returns a value in [0, n). n must be positive.
func (s *Simulator) intn(n int) int {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.IntRange(0, n-1)
}

func pick[T any](s *Simulator, items []T) T {
	return items[s.intn(len(items))]
}
