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

func tomorrowAt(hour, minute int) time.Time {
	return at(t0.AddDate(0, 0, 1), hour, minute)
}

func TestAddSlot(t *testing.T) {
	ctx := context.Background()
	s, _, _ := openTestStore(t)

	slot, err := s.AddSlot(ctx, "u6", tomorrowAt(11, 0), tomorrowAt(11, 30))
	require.NoError(t, err)

	assert.Equal(t, SlotAvailable, slot.Status)
	assert.Equal(t, "u6", slot.DoctorID)
	assert.Len(t, s.Slots(), 4)
	assert.Equal(t, "New slot created for doctor u6", s.Logs()[0].Message)
	assert.Equal(t, "Admin", s.Logs()[0].Source)
}

func TestAddSlotRejections(t *testing.T) {
	s, _, _ := openTestStore(t)

	tests := []struct {
		name     string
		doctorID string
		start    time.Time
		end      time.Time
		want     error
	}{
		{name: "overlaps s1", doctorID: "u2", start: tomorrowAt(9, 15), end: tomorrowAt(9, 45), want: ErrSlotConflict},
		{name: "contains s2", doctorID: "u2", start: tomorrowAt(9, 45), end: tomorrowAt(11, 0), want: ErrSlotConflict},
		{name: "patient", doctorID: "u1", start: tomorrowAt(15, 0), end: tomorrowAt(15, 30), want: ErrNotADoctor},
		{name: "unknown doctor", doctorID: "u99", start: tomorrowAt(15, 0), end: tomorrowAt(15, 30), want: ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.AddSlot(context.Background(), tt.doctorID, tt.start, tt.end)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Len(t, s.Slots(), 3)
}

func TestAddSlotEndBeforeStart(t *testing.T) {
	s, _, _ := openTestStore(t)

	_, err := s.AddSlot(context.Background(), "u2", tomorrowAt(15, 0), tomorrowAt(15, 0))

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "end")
}

func TestAddSlotAdjacentIsAllowed(t *testing.T) {
	s, _, _ := openTestStore(t)

	_, err := s.AddSlot(context.Background(), "u2", tomorrowAt(9, 30), tomorrowAt(10, 0))
	assert.NoError(t, err)
}

func TestAddSlotDailyLimit(t *testing.T) {
	ctx := context.Background()
	s, _, _ := openTestStore(t)

	// u2 already has s1 and s2 tomorrow
	_, err := s.AddSlot(ctx, "u2", tomorrowAt(12, 0), tomorrowAt(12, 30))
	require.NoError(t, err)

	_, err = s.AddSlot(ctx, "u2", tomorrowAt(13, 0), tomorrowAt(13, 30))
	assert.ErrorIs(t, err, ErrSlotLimitReached)

	// the cap is per day
	_, err = s.AddSlot(ctx, "u2", tomorrowAt(13, 0).AddDate(0, 0, 1), tomorrowAt(13, 30).AddDate(0, 0, 1))
	assert.NoError(t, err)
}

func TestAddSlotUncapped(t *testing.T) {
	ctx := context.Background()
	opts := testOptions(clock.Fake(t0))
	opts.Policy = Policy{MaxSlotsPerDay: -1}

	s, err := Open(ctx, kv.NewMemory(), opts)
	require.NoError(t, err)

	for h := 12; h < 18; h++ {
		_, err := s.AddSlot(ctx, "u2", tomorrowAt(h, 0), tomorrowAt(h, 30))
		require.NoError(t, err)
	}
}

func TestDeleteSlot(t *testing.T) {
	ctx := context.Background()
	s, _, _ := openTestStore(t)

	require.NoError(t, s.DeleteSlot(ctx, "s3"))
	_, err := s.Slot("s3")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "Slot s3 deleted", s.Logs()[0].Message)

	assert.ErrorIs(t, s.DeleteSlot(ctx, "s3"), ErrNotFound)
}
