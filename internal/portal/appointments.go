package portal

import (
	"context"
	"fmt"
	"time"
)

// BookAppointment books an available slot for a patient. The slot
// becomes booked and the new appointment inherits the slot's doctor.
func (s *Store) BookAppointment(ctx context.Context, slotID, patientID, notes string) (Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	si := s.slotIndex(slotID)
	if si < 0 {
		return Appointment{}, s.fail(OpBookAppointment, "", notFound("slot", slotID))
	}
	slot := s.slots[si]
	if slot.Status != SlotAvailable {
		return Appointment{}, s.fail(OpBookAppointment, "", fmt.Errorf("%w: %s is %s", ErrSlotNotAvailable, slotID, slot.Status))
	}
	if s.userIndex(patientID) < 0 {
		return Appointment{}, s.fail(OpBookAppointment, "", notFound("user", patientID))
	}

	s.slots[si].Status = SlotBooked

	appt := Appointment{
		ID:        s.newID(),
		SlotID:    slotID,
		PatientID: patientID,
		DoctorID:  slot.DoctorID,
		Status:    StatusScheduled,
		Type:      TypeConsultation,
		Notes:     notes,
		History:   []string{},
	}
	s.appointments = append(s.appointments, appt)

	err := s.persist(ctx, KeySlots, KeyAppointments)
	err = firstErr(err, s.logLocked(ctx, LevelInfo, "System", "Appointment booked by patient %s", patientID))
	s.emit(OpBookAppointment, appt.ID, err)
	return appt.clone(), err
}

// UpdateAppointmentNotes replaces the notes and records the edit in
// the appointment history.
func (s *Store) UpdateAppointmentNotes(ctx context.Context, appointmentID, notes string) (Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.appointmentIndex(appointmentID)
	if i < 0 {
		return Appointment{}, s.fail(OpUpdateAppointmentNotes, appointmentID, notFound("appointment", appointmentID))
	}

	a := &s.appointments[i]
	a.Notes = notes
	a.History = append(a.History, "Note updated: "+s.now().Format(time.RFC3339))

	err := s.persist(ctx, KeyAppointments)
	s.emit(OpUpdateAppointmentNotes, appointmentID, err)
	return a.clone(), err
}

// CompleteAppointment moves a scheduled appointment to completed.
func (s *Store) CompleteAppointment(ctx context.Context, appointmentID string) (Appointment, error) {
	return s.transitionAppointment(ctx, OpCompleteAppointment, appointmentID, StatusCompleted)
}

// CancelAppointment moves a scheduled appointment to cancelled and
// makes its slot available again.
func (s *Store) CancelAppointment(ctx context.Context, appointmentID string) (Appointment, error) {
	return s.transitionAppointment(ctx, OpCancelAppointment, appointmentID, StatusCancelled)
}

func (s *Store) transitionAppointment(ctx context.Context, op, appointmentID string, to AppointmentStatus) (Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.appointmentIndex(appointmentID)
	if i < 0 {
		return Appointment{}, s.fail(op, appointmentID, notFound("appointment", appointmentID))
	}

	a := &s.appointments[i]
	if a.Status != StatusScheduled {
		return Appointment{}, s.fail(op, appointmentID,
			fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, a.Status, to))
	}

	a.Status = to
	a.History = append(a.History, fmt.Sprintf("Status changed to %s: %s", to, s.now().Format(time.RFC3339)))

	keys := []string{KeyAppointments}
	if to == StatusCancelled {
		if si := s.slotIndex(a.SlotID); si >= 0 && s.slots[si].Status == SlotBooked {
			s.slots[si].Status = SlotAvailable
			keys = append(keys, KeySlots)
		}
	}

	err := s.persist(ctx, keys...)
	err = firstErr(err, s.logLocked(ctx, LevelInfo, "System", "Appointment %s %s", appointmentID, to))
	s.emit(op, appointmentID, err)
	return a.clone(), err
}
