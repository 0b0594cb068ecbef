package portal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/careportal/internal/clock"
	"github.com/hackgods/careportal/internal/kv"
)

func TestOpenSeedsEmptyBackend(t *testing.T) {
	s, mem, _ := openTestStore(t)

	assert.ElementsMatch(t, Keys, mem.Keys())
	assert.Len(t, s.Users(), 6)
	assert.Len(t, s.Slots(), 3)
	assert.Empty(t, s.RefillRequests())
	assert.Equal(t, "l1", s.Logs()[0].ID)

	raw, err := mem.Get(context.Background(), KeyRefillRequests)
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":1,"items":[]}`, string(raw))
}

func TestOpenNilBackend(t *testing.T) {
	_, err := Open(context.Background(), nil, Options{})
	assert.Error(t, err)
}

func TestReopenRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, mem, c := openTestStore(t)

	_, err := s.BookAppointment(ctx, "s1", "u1", "checkup")
	require.NoError(t, err)
	_, err = s.AddLog(ctx, "Nightly backup finished", LevelInfo, "Backup")
	require.NoError(t, err)
	_, err = s.ReportBug(ctx, "Chart does not render", "blank canvas", SeverityLow)
	require.NoError(t, err)

	reopened, err := Open(ctx, mem, testOptions(c))
	require.NoError(t, err)

	assert.Equal(t, s.Appointments(), reopened.Appointments())
	assert.Equal(t, s.Slots(), reopened.Slots())
	assert.Equal(t, s.BugReports(), reopened.BugReports())
	assert.Equal(t, s.Prescriptions(), reopened.Prescriptions())
	assert.Equal(t, s.Logs(), reopened.Logs())
	assert.Equal(t, "Bug reported: Chart does not render", reopened.Logs()[0].Message)
}

func TestOpenFallsBackToSeed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "future schema version", raw: `{"version":2,"items":[]}`},
		{name: "unversioned", raw: `[{"id":"x"}]`},
		{name: "corrupt", raw: `{"version":1,"items":[`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			mem := kv.NewMemory()
			require.NoError(t, mem.Set(ctx, KeyUsers, []byte(tt.raw)))

			s, err := Open(ctx, mem, testOptions(clock.Fake(t0)))
			require.NoError(t, err)
			assert.Len(t, s.Users(), 6)

			raw, err := mem.Get(ctx, KeyUsers)
			require.NoError(t, err)
			assert.Contains(t, string(raw), `"version":1`)
		})
	}
}

func TestOpenReadFailureReturnsPersistenceError(t *testing.T) {
	backend := &mockKV{
		GetFunc: func(ctx context.Context, key string) ([]byte, error) {
			return nil, errors.New("connection refused")
		},
	}

	s, err := Open(context.Background(), backend, testOptions(clock.Fake(t0)))
	assert.Nil(t, s)

	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "get", perr.Op)
	assert.Equal(t, KeyUsers, perr.Key)
	assert.EqualValues(t, 0, backend.SetCallCount)
}

func TestOpenReadFailureKeepsPersistedData(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()

	s, err := Open(ctx, mem, testOptions(clock.Fake(t0)))
	require.NoError(t, err)
	_, err = s.BookAppointment(ctx, "s1", "u1", "checkup")
	require.NoError(t, err)

	// appointments fail to read once, everything else is served
	flaky := &mockKV{
		GetFunc: func(ctx context.Context, key string) ([]byte, error) {
			if key == KeyAppointments {
				return nil, errors.New("i/o timeout")
			}
			return mem.Get(ctx, key)
		},
		SetFunc: mem.Set,
	}
	_, err = Open(ctx, flaky, testOptions(clock.Fake(t0)))
	require.Error(t, err)
	assert.EqualValues(t, 0, flaky.SetCallCount)

	reopened, err := Open(ctx, mem, testOptions(clock.Fake(t0)))
	require.NoError(t, err)
	assert.Len(t, reopened.Appointments(), 2)
}

func TestPersistFailureKeepsMutation(t *testing.T) {
	backend := &mockKV{
		SetFunc: func(ctx context.Context, key string, value []byte) error {
			return errors.New("disk full")
		},
	}
	s, err := Open(context.Background(), backend, testOptions(clock.Fake(t0)))
	require.NoError(t, err)

	events, cancel := s.Events().Subscribe(4)
	defer cancel()

	appt, err := s.BookAppointment(context.Background(), "s1", "u1", "checkup")

	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "set", perr.Op)
	assert.Equal(t, KeySlots, perr.Key)
	assert.NotEmpty(t, appt.ID)

	assert.Len(t, s.Appointments(), 2)
	assert.Equal(t, SlotBooked, findSlot(t, s, "s1").Status)
	assert.Contains(t, s.Logs()[0].Message, "booked")

	ev := <-events
	assert.Equal(t, OpBookAppointment, ev.Op)
	assert.Equal(t, OutcomePersistFailed, ev.Outcome)
	assert.Equal(t, appt.ID, ev.EntityID)
}

func TestReadsReturnCopies(t *testing.T) {
	s, _, _ := openTestStore(t)

	appts := s.Appointments()
	appts[0].History[0] = "tampered"
	appts[0].Notes = "tampered"

	fresh := s.Appointments()
	assert.Equal(t, "Patient reported difficulty sleeping.", fresh[0].History[0])
	assert.NotEqual(t, "tampered", fresh[0].Notes)

	rx := s.Prescriptions()
	rx[0].Medications[0].Name = "tampered"
	assert.Equal(t, "Sertraline", s.Prescriptions()[0].Medications[0].Name)
}

func TestReadsReturnCopiesOfTimestamps(t *testing.T) {
	ctx := context.Background()
	s, _, _ := openTestStore(t)

	refill, err := s.RequestRefill(ctx, newRefill())
	require.NoError(t, err)
	approved, err := s.ApproveRefill(ctx, refill.ID, "ok")
	require.NoError(t, err)
	want := *approved.ResponseDate

	*approved.ResponseDate = time.Time{}
	*s.RefillRequests()[0].ResponseDate = time.Time{}
	assert.Equal(t, want, *s.RefillRequests()[0].ResponseDate)

	rs, err := s.RequestReschedule(ctx, newReschedule())
	require.NoError(t, err)
	origin := *rs.OriginalDate
	*rs.OriginalDate = time.Time{}
	_, err = s.ApproveReschedule(ctx, rs.ID)
	require.NoError(t, err)

	got := s.RescheduleRequests()
	*got[0].OriginalDate = time.Time{}
	*got[0].ResponseDate = time.Time{}
	fresh := s.RescheduleRequests()[0]
	assert.Equal(t, origin, *fresh.OriginalDate)
	assert.Equal(t, t0, *fresh.ResponseDate)

	_, err = s.CreateReminder(ctx, NewReminder{
		PatientID:   "u1",
		Channel:     ChannelEmail,
		Subject:     "Lab results",
		Message:     "Your lab results are ready to view.",
		ScheduledAt: t0,
	})
	require.NoError(t, err)
	_, err = s.DispatchDueReminders(ctx)
	require.NoError(t, err)

	reminders := s.Reminders()
	*reminders[0].SentAt = time.Time{}
	assert.Equal(t, t0, *s.Reminders()[0].SentAt)
}

func TestLogin(t *testing.T) {
	s, _, _ := openTestStore(t)

	u, err := s.Login("Doctor@Health.care", RoleDoctor)
	require.NoError(t, err)
	assert.Equal(t, "u2", u.ID)

	_, err = s.Login("doctor@health.care", RolePatient)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLookupNotFound(t *testing.T) {
	s, _, _ := openTestStore(t)

	_, err := s.User("nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Slot("nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Appointment("nope")

	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "appointment", nf.Kind)
	assert.Equal(t, "nope", nf.ID)
}
