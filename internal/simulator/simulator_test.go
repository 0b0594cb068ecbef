package simulator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/careportal/internal/clock"
	"github.com/hackgods/careportal/internal/kv"
	"github.com/hackgods/careportal/internal/portal"
)

var t0 = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

type brokenKV struct{}

func (brokenKV) Get(ctx context.Context, key string) ([]byte, error) { return nil, kv.ErrNotFound }
func (brokenKV) Set(ctx context.Context, key string, value []byte) error {
	return errors.New("write refused")
}

func newFixture(t *testing.T, backend kv.Store, families ...string) (*Simulator, *portal.Store, *clock.FakeClock) {
	t.Helper()
	c := clock.Fake(t0)
	if backend == nil {
		backend = kv.NewMemory()
	}
	store, err := portal.Open(context.Background(), backend, portal.Options{Clock: c})
	require.NoError(t, err)

	sim, err := New(store, Options{Clock: c, Seed: 7, Families: families})
	require.NoError(t, err)
	return sim, store, c
}

type snapshot struct {
	Users         []portal.User
	Slots         []portal.Slot
	Appointments  []portal.Appointment
	Payments      []portal.Payment
	Prescriptions []portal.Prescription
	Bugs          []portal.BugReport
	Records       []portal.MedicalRecord
	Logs          []portal.SystemLog
}

func take(s *portal.Store) snapshot {
	return snapshot{
		Users:         s.Users(),
		Slots:         s.Slots(),
		Appointments:  s.Appointments(),
		Payments:      s.Payments(),
		Prescriptions: s.Prescriptions(),
		Bugs:          s.BugReports(),
		Records:       s.MedicalRecords(),
		Logs:          s.Logs(),
	}
}

func TestLogNoiseFiresOnTick(t *testing.T) {
	sim, store, c := newFixture(t, nil, FamilyLogNoise)
	before := len(store.Logs())

	require.NoError(t, sim.Start(context.Background()))
	defer sim.Stop()
	c.WaitForTickers(1)

	c.Advance(9 * time.Second)
	assert.Eventually(t, func() bool {
		return len(store.Logs()) == before+1
	}, time.Second, 5*time.Millisecond)
	assert.Contains(t, cannedLogLines, store.Logs()[0].Message)
}

func TestNoMutationAfterStop(t *testing.T) {
	sim, store, c := newFixture(t, nil)

	require.NoError(t, sim.Start(context.Background()))
	c.WaitForTickers(len(sim.Families()))
	for i := 0; i < 12; i++ {
		c.Advance(10 * time.Second)
	}

	sim.Stop()
	assert.False(t, sim.Running())
	assert.Zero(t, c.ActiveTickers())

	frozen := take(store)
	c.Advance(time.Hour)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, frozen, take(store))
}

func TestStopOnContextCancel(t *testing.T) {
	sim, _, c := newFixture(t, nil, FamilyLogNoise, FamilyBugReporting)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, sim.Start(ctx))
	c.WaitForTickers(2)
	cancel()

	assert.Eventually(t, func() bool { return c.ActiveTickers() == 0 }, time.Second, 5*time.Millisecond)
	assert.False(t, sim.Running())

	// a run ended by its context does not block the next Start
	require.NoError(t, sim.Start(context.Background()))
	assert.True(t, sim.Running())
	sim.Stop()
	assert.False(t, sim.Running())
}

func TestStartTwice(t *testing.T) {
	sim, _, _ := newFixture(t, nil, FamilyLogNoise)

	require.NoError(t, sim.Start(context.Background()))
	assert.ErrorIs(t, sim.Start(context.Background()), ErrRunning)
	sim.Stop()
	sim.Stop()

	require.NoError(t, sim.Start(context.Background()))
	sim.Stop()
}

func TestProbabilityGate(t *testing.T) {
	ctx := context.Background()
	sim, store, _ := newFixture(t, nil)
	all := sim.defaultFamilies()

	bugs, ok := lookup(all, FamilyBugReporting)
	require.True(t, ok)

	counts := map[Outcome]int{}
	for i := 0; i < 200; i++ {
		before := take(store)
		outcome, err := sim.tick(ctx, bugs, true)
		require.NoError(t, err)
		counts[outcome]++
		if outcome == OutcomeGated {
			assert.Equal(t, before, take(store), "gated tick %d changed the store", i)
		}
	}
	assert.Positive(t, counts[OutcomeGated])
	assert.Positive(t, counts[OutcomeActed])
	assert.Equal(t, 200, counts[OutcomeGated]+counts[OutcomeActed])
	// threshold 0.75: roughly three in four ticks lose the roll
	assert.InDelta(t, 150, counts[OutcomeGated], 40)
	assert.Len(t, store.BugReports(), 1+counts[OutcomeActed])

	noise, ok := lookup(all, FamilyLogNoise)
	require.True(t, ok)
	for i := 0; i < 50; i++ {
		outcome, err := sim.tick(ctx, noise, true)
		require.NoError(t, err)
		assert.Equal(t, OutcomeActed, outcome)
	}

	report := map[string]FamilyReport{}
	for _, r := range sim.Report() {
		report[r.Family] = r
	}
	assert.EqualValues(t, counts[OutcomeGated], report[FamilyBugReporting].Gated)
	assert.Zero(t, report[FamilyLogNoise].Gated)
}

func TestUnknownFamily(t *testing.T) {
	_, store, c := newFixture(t, nil)

	_, err := New(store, Options{Clock: c, Families: []string{"cat-videos"}})
	assert.ErrorIs(t, err, ErrUnknownFamily)

	sim, err := New(store, Options{Clock: c})
	require.NoError(t, err)
	assert.Len(t, sim.Families(), 10)

	_, err = sim.Trigger(context.Background(), "cat-videos")
	assert.ErrorIs(t, err, ErrUnknownFamily)
}

func TestTriggerAppointmentBooking(t *testing.T) {
	ctx := context.Background()
	sim, store, _ := newFixture(t, nil)

	outcome, err := sim.Trigger(ctx, FamilyAppointmentBooking)
	require.NoError(t, err)
	require.Equal(t, OutcomeActed, outcome)

	appts := store.Appointments()
	require.Len(t, appts, 2)
	booked := appts[1]
	assert.Equal(t, "u1", booked.PatientID)
	assert.Equal(t, "Auto-scheduled checkup", booked.Notes)

	slot, err := store.Slot(booked.SlotID)
	require.NoError(t, err)
	assert.Equal(t, portal.SlotBooked, slot.Status)
	assert.Equal(t, "New appointment auto-scheduled for John Doe", store.Logs()[0].Message)
}

func TestTriggerPaymentPosting(t *testing.T) {
	ctx := context.Background()
	sim, store, _ := newFixture(t, nil)

	// the seeded appointment is already paid
	outcome, err := sim.Trigger(ctx, FamilyPaymentPosting)
	require.NoError(t, err)
	assert.Equal(t, OutcomeIdle, outcome)

	appt, err := store.BookAppointment(ctx, "s1", "u1", "")
	require.NoError(t, err)

	outcome, err = sim.Trigger(ctx, FamilyPaymentPosting)
	require.NoError(t, err)
	assert.Equal(t, OutcomeActed, outcome)

	payments := store.Payments()
	require.Len(t, payments, 2)
	assert.Equal(t, appt.ID, payments[1].AppointmentID)
	assert.GreaterOrEqual(t, payments[1].Amount, 150.0)
	assert.LessOrEqual(t, payments[1].Amount, 349.0)
	assert.Contains(t, paymentMethods, payments[1].Method)
}

func TestTriggerCompletionFeedsPrescriptions(t *testing.T) {
	ctx := context.Background()
	sim, store, _ := newFixture(t, nil)

	outcome, err := sim.Trigger(ctx, FamilyPrescriptionGeneration)
	require.NoError(t, err)
	assert.Equal(t, OutcomeIdle, outcome)

	outcome, err = sim.Trigger(ctx, FamilyAppointmentCompletion)
	require.NoError(t, err)
	assert.Equal(t, OutcomeActed, outcome)

	outcome, err = sim.Trigger(ctx, FamilyAppointmentCompletion)
	require.NoError(t, err)
	assert.Equal(t, OutcomeIdle, outcome)

	// a1 already carries p1 from the seed data
	outcome, err = sim.Trigger(ctx, FamilyPrescriptionGeneration)
	require.NoError(t, err)
	assert.Equal(t, OutcomeIdle, outcome)

	appt, err := store.BookAppointment(ctx, "s3", "u1", "")
	require.NoError(t, err)
	_, err = store.CompleteAppointment(ctx, appt.ID)
	require.NoError(t, err)

	outcome, err = sim.Trigger(ctx, FamilyPrescriptionGeneration)
	require.NoError(t, err)
	assert.Equal(t, OutcomeActed, outcome)

	rx := store.Prescriptions()
	require.Len(t, rx, 2)
	assert.Equal(t, appt.ID, rx[1].AppointmentID)
	assert.Equal(t, "u6", rx[1].DoctorID)
	assert.Contains(t, cannedMedications, rx[1].Medications[0])
}

func TestTriggerRequestApprovals(t *testing.T) {
	ctx := context.Background()
	sim, store, _ := newFixture(t, nil)

	for _, name := range []string{FamilyRefillApproval, FamilyRescheduleApproval} {
		outcome, err := sim.Trigger(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, OutcomeIdle, outcome, name)
	}

	_, err := store.RequestRefill(ctx, portal.NewRefillRequest{
		PrescriptionID: "p1", PatientID: "u1", DoctorID: "u2", MedicationName: "Sertraline", Reason: "Running low",
	})
	require.NoError(t, err)
	_, err = store.RequestReschedule(ctx, portal.NewRescheduleRequest{
		AppointmentID: "a1", PatientID: "u1", DoctorID: "u2", RequestedDate: t0.AddDate(0, 0, 4), Reason: "Conflict at work",
	})
	require.NoError(t, err)

	outcome, err := sim.Trigger(ctx, FamilyRefillApproval)
	require.NoError(t, err)
	assert.Equal(t, OutcomeActed, outcome)
	refill := store.RefillRequests()[0]
	assert.Equal(t, portal.RequestApproved, refill.Status)
	assert.Equal(t, "Approved - Continuing treatment", refill.DoctorNotes)
	assert.Equal(t, "Refill approved: Sertraline", store.Logs()[0].Message)

	outcome, err = sim.Trigger(ctx, FamilyRescheduleApproval)
	require.NoError(t, err)
	assert.Equal(t, OutcomeActed, outcome)
	assert.Equal(t, portal.RequestApproved, store.RescheduleRequests()[0].Status)
}

func TestTriggerBugAndRecord(t *testing.T) {
	ctx := context.Background()
	sim, store, _ := newFixture(t, nil)

	outcome, err := sim.Trigger(ctx, FamilyBugReporting)
	require.NoError(t, err)
	assert.Equal(t, OutcomeActed, outcome)
	bugs := store.BugReports()
	bug := bugs[len(bugs)-1]
	assert.Contains(t, cannedBugTitles, bug.Title)
	assert.Contains(t, bugSeverities, bug.Severity)
	assert.Equal(t, portal.AutoReporterID, bug.ReportedBy)

	outcome, err = sim.Trigger(ctx, FamilyRecordUpload)
	require.NoError(t, err)
	assert.Equal(t, OutcomeActed, outcome)
	rec := store.MedicalRecords()[0]
	assert.Equal(t, "u1", rec.PatientID)
	assert.Equal(t, cannedRecordTitles[rec.Type], rec.Title)
}

func TestTriggerReminderDispatch(t *testing.T) {
	ctx := context.Background()
	sim, store, c := newFixture(t, nil)

	outcome, err := sim.Trigger(ctx, FamilyReminderDispatch)
	require.NoError(t, err)
	assert.Equal(t, OutcomeIdle, outcome)

	_, err = store.CreateReminder(ctx, portal.NewReminder{
		PatientID: "u1", Channel: portal.ChannelEmail, Subject: "Visit", Message: "See you soon", ScheduledAt: t0.Add(time.Minute),
	})
	require.NoError(t, err)
	c.Advance(time.Minute)

	outcome, err = sim.Trigger(ctx, FamilyReminderDispatch)
	require.NoError(t, err)
	assert.Equal(t, OutcomeActed, outcome)
	assert.Equal(t, portal.ReminderSent, store.Reminders()[0].Status)
}

func TestTriggerPersistFailureCountsAsError(t *testing.T) {
	sim, store, _ := newFixture(t, brokenKV{})
	before := len(store.Logs())

	outcome, err := sim.Trigger(context.Background(), FamilyLogNoise)

	var perr *portal.PersistenceError
	assert.ErrorAs(t, err, &perr)
	assert.Equal(t, OutcomeError, outcome)
	assert.Len(t, store.Logs(), before+1)

	report := sim.Report()
	require.Len(t, report, 1)
	assert.EqualValues(t, 1, report[0].Errors)
}
