package portal

import "context"

// CreateReminder queues a pending reminder for a known patient.
func (s *Store) CreateReminder(ctx context.Context, in NewReminder) (Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.validateStruct(in); err != nil {
		return Reminder{}, s.fail(OpCreateReminder, "", err)
	}
	if s.userIndex(in.PatientID) < 0 {
		return Reminder{}, s.fail(OpCreateReminder, "", notFound("user", in.PatientID))
	}

	r := Reminder{
		ID:          s.newID(),
		PatientID:   in.PatientID,
		Channel:     in.Channel,
		Subject:     in.Subject,
		Message:     in.Message,
		ScheduledAt: in.ScheduledAt.UTC().Round(0),
		Status:      ReminderPending,
		CreatedAt:   s.now(),
	}
	s.reminders = append(s.reminders, r)

	err := s.persist(ctx, KeyReminders)
	err = firstErr(err, s.logLocked(ctx, LevelInfo, "Notifications", "Reminder scheduled for patient %s via %s", r.PatientID, r.Channel))
	s.emit(OpCreateReminder, r.ID, err)
	return r, err
}

// DispatchDueReminders marks every pending reminder whose time has come
// as sent, or failed when its patient no longer exists. It returns the
// number of reminders handled. Nothing is written when none are due.
func (s *Store) DispatchDueReminders(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var sent, failed int
	for i := range s.reminders {
		r := &s.reminders[i]
		if r.Status != ReminderPending || r.ScheduledAt.After(now) {
			continue
		}
		if s.userIndex(r.PatientID) < 0 {
			r.Status = ReminderFailed
			failed++
			continue
		}
		r.Status = ReminderSent
		at := now
		r.SentAt = &at
		sent++
	}
	if sent+failed == 0 {
		return 0, nil
	}

	level := LevelInfo
	if failed > 0 {
		level = LevelWarning
	}
	err := s.persist(ctx, KeyReminders)
	err = firstErr(err, s.logLocked(ctx, level, "Notifications", "Dispatched %d reminders, %d failed", sent, failed))
	s.emit(OpDispatchReminders, "", err)
	return sent + failed, err
}
