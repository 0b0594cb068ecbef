package portal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/careportal/internal/clock"
	"github.com/hackgods/careportal/internal/kv"
)

// SchemaVersion is written into every collection snapshot. Snapshots
// carrying any other version are discarded in favour of seed data.
const SchemaVersion = 1

const (
	KeyUsers              = "hc_users"
	KeySlots              = "hc_slots"
	KeyAppointments       = "hc_appointments"
	KeyPrescriptions      = "hc_prescriptions"
	KeyPayments           = "hc_payments"
	KeyBugReports         = "hc_bug_reports"
	KeyRefillRequests     = "hc_refill_requests"
	KeyRescheduleRequests = "hc_reschedule_requests"
	KeyMedicalRecords     = "hc_medical_records"
	KeyLogs               = "hc_logs"
	KeyFeedback           = "hc_feedback"
	KeyHealthMetrics      = "hc_health_metrics"
	KeyReminders          = "hc_reminders"
)

// Keys lists every collection key in load order.
var Keys = []string{
	KeyUsers, KeySlots, KeyAppointments, KeyPrescriptions, KeyPayments,
	KeyBugReports, KeyRefillRequests, KeyRescheduleRequests, KeyMedicalRecords,
	KeyLogs, KeyFeedback, KeyHealthMetrics, KeyReminders,
}

// AutoReporterID is recorded as reportedBy on every bug filed through
// ReportBug.
const AutoReporterID = "system"

var errSchemaVersion = errors.New("unsupported snapshot schema version")

// Policy holds the booking rules the store enforces.
type Policy struct {
	// MaxSlotsPerDay caps the slots a doctor may open per UTC day.
	// Zero selects the default of 3; a negative value disables the cap.
	MaxSlotsPerDay int
}

func (p Policy) slotCap() int {
	switch {
	case p.MaxSlotsPerDay == 0:
		return 3
	case p.MaxSlotsPerDay < 0:
		return 0
	default:
		return p.MaxSlotsPerDay
	}
}

type Options struct {
	Clock  clock.Clock
	Logger *zerolog.Logger
	Bus    *Bus
	Policy Policy
	// Faker drives simulated values such as medical record file sizes.
	Faker *gofakeit.Faker
	NewID func() string
	Seed  func(now time.Time) SeedData
}

// Store owns every portal collection. All operations are serialised;
// reads return copies.
type Store struct {
	mu       sync.Mutex
	kv       kv.Store
	clock    clock.Clock
	log      zerolog.Logger
	bus      *Bus
	policy   Policy
	faker    *gofakeit.Faker
	newID    func() string
	validate *validator.Validate

	users              []User
	slots              []Slot
	appointments       []Appointment
	prescriptions      []Prescription
	payments           []Payment
	bugReports         []BugReport
	refillRequests     []RefillRequest
	rescheduleRequests []RescheduleRequest
	medicalRecords     []MedicalRecord
	logs               []SystemLog
	feedback           []Feedback
	healthMetrics      []HealthMetric
	reminders          []Reminder
}

// Open loads every collection from backend, falling back to seed data
// for keys that are missing or hold an undecodable snapshot, and writes
// seeded collections back. A failed read aborts Open with a
// *PersistenceError before anything is written. Seed write failures are
// logged, not returned.
func Open(ctx context.Context, backend kv.Store, opts Options) (*Store, error) {
	if backend == nil {
		return nil, errors.New("portal: nil kv store")
	}

	s := &Store{
		kv:       backend,
		clock:    opts.Clock,
		bus:      opts.Bus,
		policy:   opts.Policy,
		faker:    opts.Faker,
		newID:    opts.NewID,
		validate: newValidator(),
	}
	if s.clock == nil {
		s.clock = clock.Real()
	}
	if opts.Logger != nil {
		s.log = opts.Logger.With().Str("component", "store").Logger()
	} else {
		s.log = zerolog.Nop()
	}
	if s.bus == nil {
		s.bus = NewBus()
	}
	if s.faker == nil {
		s.faker = gofakeit.New(0)
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	seedFn := opts.Seed
	if seedFn == nil {
		seedFn = DefaultSeed
	}
	seed := seedFn(s.now())

	l := &loader{ctx: ctx, s: s}
	s.users = load(l, KeyUsers, seed.Users)
	s.slots = load(l, KeySlots, seed.Slots)
	s.appointments = load(l, KeyAppointments, seed.Appointments)
	s.prescriptions = load(l, KeyPrescriptions, seed.Prescriptions)
	s.payments = load(l, KeyPayments, seed.Payments)
	s.bugReports = load(l, KeyBugReports, seed.BugReports)
	s.refillRequests = load(l, KeyRefillRequests, seed.RefillRequests)
	s.rescheduleRequests = load(l, KeyRescheduleRequests, seed.RescheduleRequests)
	s.medicalRecords = load(l, KeyMedicalRecords, seed.MedicalRecords)
	s.logs = load(l, KeyLogs, seed.Logs)
	s.feedback = load(l, KeyFeedback, seed.Feedback)
	s.healthMetrics = load(l, KeyHealthMetrics, seed.HealthMetrics)
	s.reminders = load(l, KeyReminders, seed.Reminders)
	if l.err != nil {
		// nothing has been written; a retry sees the backend untouched
		return nil, l.err
	}
	seeded := l.seeded

	if len(seeded) > 0 {
		if err := s.persist(ctx, seeded...); err != nil {
			s.log.Warn().Err(err).Strs("keys", seeded).Msg("failed to write seed collections")
		}
	}

	s.log.Info().Int("seeded", len(seeded)).Int("collections", len(Keys)).Msg("store opened")
	return s, nil
}

// Events returns the bus mutation events are published on.
func (s *Store) Events() *Bus {
	return s.bus
}

type snapshot[T any] struct {
	Version int `json:"version"`
	Items   []T `json:"items"`
}

func encodeSnapshot[T any](items []T) ([]byte, error) {
	if items == nil {
		items = []T{}
	}
	return json.Marshal(snapshot[T]{Version: SchemaVersion, Items: items})
}

func decodeSnapshot[T any](data []byte) ([]T, error) {
	var snap snapshot[T]
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	if snap.Version != SchemaVersion {
		return nil, fmt.Errorf("%w: %d", errSchemaVersion, snap.Version)
	}
	if snap.Items == nil {
		snap.Items = []T{}
	}
	return snap.Items, nil
}

// loader carries state across the per-collection loads of Open. After
// the first read error every further load is skipped.
type loader struct {
	ctx    context.Context
	s      *Store
	seeded []string
	err    error
}

func load[T any](l *loader, key string, seed []T) []T {
	if l.err != nil {
		return nil
	}

	data, err := l.s.kv.Get(l.ctx, key)
	switch {
	case errors.Is(err, kv.ErrNotFound):
		l.s.log.Debug().Str("key", key).Msg("no snapshot, using seed data")
	case err != nil:
		l.err = &PersistenceError{Op: "get", Key: key, Err: err}
		l.s.log.Error().Err(l.err).Msg("snapshot read failed")
		return nil
	default:
		items, err := decodeSnapshot[T](data)
		if err == nil {
			return items
		}
		l.s.log.Warn().Err(err).Str("key", key).Msg("unreadable snapshot, using seed data")
	}

	l.seeded = append(l.seeded, key)
	out := make([]T, len(seed))
	copy(out, seed)
	return out
}

func (s *Store) encode(key string) ([]byte, error) {
	switch key {
	case KeyUsers:
		return encodeSnapshot(s.users)
	case KeySlots:
		return encodeSnapshot(s.slots)
	case KeyAppointments:
		return encodeSnapshot(s.appointments)
	case KeyPrescriptions:
		return encodeSnapshot(s.prescriptions)
	case KeyPayments:
		return encodeSnapshot(s.payments)
	case KeyBugReports:
		return encodeSnapshot(s.bugReports)
	case KeyRefillRequests:
		return encodeSnapshot(s.refillRequests)
	case KeyRescheduleRequests:
		return encodeSnapshot(s.rescheduleRequests)
	case KeyMedicalRecords:
		return encodeSnapshot(s.medicalRecords)
	case KeyLogs:
		return encodeSnapshot(s.logs)
	case KeyFeedback:
		return encodeSnapshot(s.feedback)
	case KeyHealthMetrics:
		return encodeSnapshot(s.healthMetrics)
	case KeyReminders:
		return encodeSnapshot(s.reminders)
	default:
		return nil, fmt.Errorf("unknown collection key %q", key)
	}
}

// persist writes whole-collection snapshots for keys. Every key is
// attempted; the first failure is returned. Callers hold s.mu.
func (s *Store) persist(ctx context.Context, keys ...string) error {
	var first error
	for _, key := range keys {
		data, err := s.encode(key)
		if err == nil {
			err = s.kv.Set(ctx, key, data)
		}
		if err != nil {
			perr := &PersistenceError{Op: "set", Key: key, Err: err}
			s.log.Error().Err(perr).Msg("snapshot write failed")
			if first == nil {
				first = perr
			}
		}
	}
	return first
}

func (s *Store) now() time.Time {
	return s.clock.Now().UTC().Round(0)
}

// logLocked prepends a system log entry and persists the log
// collection. Callers hold s.mu.
func (s *Store) logLocked(ctx context.Context, level LogLevel, source, format string, args ...any) error {
	entry := SystemLog{
		ID:        s.newID(),
		Level:     level,
		Message:   fmt.Sprintf(format, args...),
		Timestamp: s.now(),
		Source:    source,
	}
	s.logs = append([]SystemLog{entry}, s.logs...)
	return s.persist(ctx, KeyLogs)
}

func (s *Store) emit(op, entityID string, err error) {
	ev := MutationEvent{Op: op, EntityID: entityID, Outcome: OutcomeOK, At: s.now()}

	var perr *PersistenceError
	switch {
	case errors.As(err, &perr):
		ev.Outcome = OutcomePersistFailed
		ev.Err = err.Error()
	case err != nil:
		ev.Outcome = OutcomeError
		ev.Err = err.Error()
	}

	s.log.Debug().Str("op", op).Str("id", entityID).Str("outcome", string(ev.Outcome)).Msg("mutation")
	s.bus.Publish(ev)
}

// fail emits an error event and returns err unchanged.
func (s *Store) fail(op, entityID string, err error) error {
	s.emit(op, entityID, err)
	return err
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
