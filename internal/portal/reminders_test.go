package portal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/careportal/internal/clock"
	"github.com/hackgods/careportal/internal/kv"
)

func TestDispatchDueReminders(t *testing.T) {
	ctx := context.Background()
	s, _, c := openTestStore(t)

	r, err := s.CreateReminder(ctx, NewReminder{
		PatientID:   "u1",
		Channel:     ChannelSMS,
		Subject:     "Appointment tomorrow",
		Message:     "You are booked with Dr. Smith at 10:00.",
		ScheduledAt: t0.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, ReminderPending, r.Status)

	n, err := s.DispatchDueReminders(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	c.Advance(90 * time.Minute)
	logs := len(s.Logs())

	n, err = s.DispatchDueReminders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, s.Logs(), logs+1)

	got := s.Reminders()[0]
	assert.Equal(t, ReminderSent, got.Status)
	require.NotNil(t, got.SentAt)
	assert.Equal(t, t0.Add(90*time.Minute), *got.SentAt)

	n, err = s.DispatchDueReminders(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDispatchReminderForUnknownPatient(t *testing.T) {
	ctx := context.Background()
	opts := testOptions(clock.Fake(t0))
	opts.Seed = func(now time.Time) SeedData {
		seed := DefaultSeed(now)
		seed.Reminders = []Reminder{
			{ID: "r1", PatientID: "gone", Channel: ChannelEmail, Subject: "s", Message: "m", ScheduledAt: now, Status: ReminderPending, CreatedAt: now},
		}
		return seed
	}
	s, err := Open(ctx, kv.NewMemory(), opts)
	require.NoError(t, err)

	n, err := s.DispatchDueReminders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got := s.Reminders()[0]
	assert.Equal(t, ReminderFailed, got.Status)
	assert.Nil(t, got.SentAt)
	assert.Equal(t, LevelWarning, s.Logs()[0].Level)
}

func TestCreateReminderValidation(t *testing.T) {
	ctx := context.Background()
	s, _, _ := openTestStore(t)

	_, err := s.CreateReminder(ctx, NewReminder{PatientID: "u1", Channel: ReminderChannel("fax"), Subject: "s", Message: "m", ScheduledAt: t0})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = s.CreateReminder(ctx, NewReminder{PatientID: "ghost", Channel: ChannelEmail, Subject: "s", Message: "m", ScheduledAt: t0})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, s.Reminders())
}
