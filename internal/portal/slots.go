package portal

import (
	"context"
	"fmt"
	"time"
)

// AddSlot opens an available slot for a doctor. The slot must not
// overlap another live slot of the same doctor and the doctor's daily
// cap must not be exceeded.
func (s *Store) AddSlot(ctx context.Context, doctorID string, start, end time.Time) (Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start, end = start.UTC().Round(0), end.UTC().Round(0)
	if !end.After(start) {
		return Slot{}, s.fail(OpAddSlot, "", invalid("end", "end must be after start"))
	}

	di := s.userIndex(doctorID)
	if di < 0 {
		return Slot{}, s.fail(OpAddSlot, "", notFound("user", doctorID))
	}
	if s.users[di].Role != RoleDoctor {
		return Slot{}, s.fail(OpAddSlot, "", fmt.Errorf("%w: %s", ErrNotADoctor, doctorID))
	}

	sameDay := 0
	y, m, d := start.Date()
	for _, other := range s.slots {
		if other.DoctorID != doctorID || other.Status == SlotCancelled {
			continue
		}
		if start.Before(other.End) && other.Start.Before(end) {
			return Slot{}, s.fail(OpAddSlot, "", fmt.Errorf("%w: %s", ErrSlotConflict, other.ID))
		}
		if oy, om, od := other.Start.Date(); oy == y && om == m && od == d {
			sameDay++
		}
	}
	if limit := s.policy.slotCap(); limit > 0 && sameDay >= limit {
		return Slot{}, s.fail(OpAddSlot, "", fmt.Errorf("%w: %d per day", ErrSlotLimitReached, limit))
	}

	slot := Slot{
		ID:       s.newID(),
		DoctorID: doctorID,
		Start:    start,
		End:      end,
		Status:   SlotAvailable,
	}
	s.slots = append(s.slots, slot)

	err := s.persist(ctx, KeySlots)
	err = firstErr(err, s.logLocked(ctx, LevelInfo, "Admin", "New slot created for doctor %s", doctorID))
	s.emit(OpAddSlot, slot.ID, err)
	return slot, err
}

// DeleteSlot removes a slot outright. Appointments that reference it
// are left untouched.
func (s *Store) DeleteSlot(ctx context.Context, slotID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.slotIndex(slotID)
	if i < 0 {
		return s.fail(OpDeleteSlot, slotID, notFound("slot", slotID))
	}
	s.slots = append(s.slots[:i], s.slots[i+1:]...)

	err := s.persist(ctx, KeySlots)
	err = firstErr(err, s.logLocked(ctx, LevelInfo, "Admin", "Slot %s deleted", slotID))
	s.emit(OpDeleteSlot, slotID, err)
	return err
}
