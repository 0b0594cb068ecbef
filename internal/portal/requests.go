package portal

import (
	"context"
	"fmt"
)

// RequestRefill opens a pending refill request against an existing
// prescription.
func (s *Store) RequestRefill(ctx context.Context, in NewRefillRequest) (RefillRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.validateStruct(in); err != nil {
		return RefillRequest{}, s.fail(OpRequestRefill, "", err)
	}
	if s.prescriptionIndex(in.PrescriptionID) < 0 {
		return RefillRequest{}, s.fail(OpRequestRefill, "", notFound("prescription", in.PrescriptionID))
	}

	r := RefillRequest{
		ID:             s.newID(),
		PrescriptionID: in.PrescriptionID,
		PatientID:      in.PatientID,
		DoctorID:       in.DoctorID,
		MedicationName: in.MedicationName,
		Reason:         in.Reason,
		Status:         RequestPending,
		RequestDate:    s.now(),
	}
	s.refillRequests = append(s.refillRequests, r)

	err := s.persist(ctx, KeyRefillRequests)
	err = firstErr(err, s.logLocked(ctx, LevelInfo, "Pharmacy", "Refill requested for %s by patient %s", r.MedicationName, r.PatientID))
	s.emit(OpRequestRefill, r.ID, err)
	return r, err
}

func (s *Store) ApproveRefill(ctx context.Context, refillID, doctorNotes string) (RefillRequest, error) {
	return s.resolveRefill(ctx, OpApproveRefill, refillID, doctorNotes, RequestApproved)
}

func (s *Store) RejectRefill(ctx context.Context, refillID, doctorNotes string) (RefillRequest, error) {
	return s.resolveRefill(ctx, OpRejectRefill, refillID, doctorNotes, RequestRejected)
}

func (s *Store) resolveRefill(ctx context.Context, op, refillID, notes string, to RequestStatus) (RefillRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOf(s.refillRequests, func(r RefillRequest) bool { return r.ID == refillID })
	if i < 0 {
		return RefillRequest{}, s.fail(op, refillID, notFound("refill request", refillID))
	}
	r := &s.refillRequests[i]
	if r.Status != RequestPending {
		return RefillRequest{}, s.fail(op, refillID, fmt.Errorf("%w: refill %s is %s", ErrRequestNotPending, refillID, r.Status))
	}

	now := s.now()
	r.Status = to
	r.DoctorNotes = notes
	r.ResponseDate = &now
	out := r.clone()

	err := s.persist(ctx, KeyRefillRequests)
	err = firstErr(err, s.logLocked(ctx, LevelInfo, "Pharmacy", "Refill %s %s", refillID, to))
	s.emit(op, refillID, err)
	return out, err
}

// RequestReschedule opens a pending reschedule request. OriginalDate is
// taken from the appointment's slot and left nil when the slot is gone.
func (s *Store) RequestReschedule(ctx context.Context, in NewRescheduleRequest) (RescheduleRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.validateStruct(in); err != nil {
		return RescheduleRequest{}, s.fail(OpRequestReschedule, "", err)
	}
	ai := s.appointmentIndex(in.AppointmentID)
	if ai < 0 {
		return RescheduleRequest{}, s.fail(OpRequestReschedule, "", notFound("appointment", in.AppointmentID))
	}

	r := RescheduleRequest{
		ID:            s.newID(),
		AppointmentID: in.AppointmentID,
		PatientID:     in.PatientID,
		DoctorID:      in.DoctorID,
		RequestedDate: in.RequestedDate.UTC().Round(0),
		Reason:        in.Reason,
		Status:        RequestPending,
		RequestDate:   s.now(),
	}
	if si := s.slotIndex(s.appointments[ai].SlotID); si >= 0 {
		start := s.slots[si].Start
		r.OriginalDate = &start
	}
	s.rescheduleRequests = append(s.rescheduleRequests, r)

	err := s.persist(ctx, KeyRescheduleRequests)
	err = firstErr(err, s.logLocked(ctx, LevelInfo, "System", "Reschedule requested for appointment %s", r.AppointmentID))
	s.emit(OpRequestReschedule, r.ID, err)
	return r.clone(), err
}

func (s *Store) ApproveReschedule(ctx context.Context, requestID string) (RescheduleRequest, error) {
	return s.resolveReschedule(ctx, OpApproveReschedule, requestID, RequestApproved)
}

func (s *Store) RejectReschedule(ctx context.Context, requestID string) (RescheduleRequest, error) {
	return s.resolveReschedule(ctx, OpRejectReschedule, requestID, RequestRejected)
}

func (s *Store) resolveReschedule(ctx context.Context, op, requestID string, to RequestStatus) (RescheduleRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOf(s.rescheduleRequests, func(r RescheduleRequest) bool { return r.ID == requestID })
	if i < 0 {
		return RescheduleRequest{}, s.fail(op, requestID, notFound("reschedule request", requestID))
	}
	r := &s.rescheduleRequests[i]
	if r.Status != RequestPending {
		return RescheduleRequest{}, s.fail(op, requestID, fmt.Errorf("%w: reschedule %s is %s", ErrRequestNotPending, requestID, r.Status))
	}

	now := s.now()
	r.Status = to
	r.ResponseDate = &now
	out := r.clone()

	err := s.persist(ctx, KeyRescheduleRequests)
	err = firstErr(err, s.logLocked(ctx, LevelInfo, "System", "Reschedule %s %s", requestID, to))
	s.emit(op, requestID, err)
	return out, err
}
