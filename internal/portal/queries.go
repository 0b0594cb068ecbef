package portal

import (
	"strings"
	"time"
)

func clone[T any](in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	return out
}

func (a Appointment) clone() Appointment {
	a.History = clone(a.History)
	return a
}

func (p Prescription) clone() Prescription {
	p.Medications = clone(p.Medications)
	return p
}

func (r RefillRequest) clone() RefillRequest {
	r.ResponseDate = cloneTime(r.ResponseDate)
	return r
}

func (r RescheduleRequest) clone() RescheduleRequest {
	r.OriginalDate = cloneTime(r.OriginalDate)
	r.ResponseDate = cloneTime(r.ResponseDate)
	return r
}

func (r Reminder) clone() Reminder {
	r.SentAt = cloneTime(r.SentAt)
	return r
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// deepClone copies entities that hold slices or pointers.
func deepClone[T interface{ clone() T }](in []T) []T {
	out := make([]T, len(in))
	for i, v := range in {
		out[i] = v.clone()
	}
	return out
}

func (s *Store) Users() []User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.users)
}

func (s *Store) Slots() []Slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.slots)
}

func (s *Store) Appointments() []Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deepClone(s.appointments)
}

func (s *Store) Prescriptions() []Prescription {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deepClone(s.prescriptions)
}

func (s *Store) Payments() []Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.payments)
}

func (s *Store) BugReports() []BugReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.bugReports)
}

func (s *Store) RefillRequests() []RefillRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deepClone(s.refillRequests)
}

func (s *Store) RescheduleRequests() []RescheduleRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deepClone(s.rescheduleRequests)
}

func (s *Store) MedicalRecords() []MedicalRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.medicalRecords)
}

// Logs returns system logs newest first.
func (s *Store) Logs() []SystemLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.logs)
}

func (s *Store) Feedback() []Feedback {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.feedback)
}

func (s *Store) HealthMetrics() []HealthMetric {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.healthMetrics)
}

func (s *Store) Reminders() []Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deepClone(s.reminders)
}

func (s *Store) User(id string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.userIndex(id)
	if i < 0 {
		return User{}, notFound("user", id)
	}
	return s.users[i], nil
}

func (s *Store) Slot(id string) (Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.slotIndex(id)
	if i < 0 {
		return Slot{}, notFound("slot", id)
	}
	return s.slots[i], nil
}

func (s *Store) Appointment(id string) (Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.appointmentIndex(id)
	if i < 0 {
		return Appointment{}, notFound("appointment", id)
	}
	return s.appointments[i].clone(), nil
}

// Login matches a user by email and role. It is the demo's mock
// sign-in and performs no credential check beyond that.
func (s *Store) Login(email string, role Role) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) && u.Role == role {
			return u, nil
		}
	}
	return User{}, ErrInvalidCredentials
}

func indexOf[T any](items []T, match func(T) bool) int {
	for i, item := range items {
		if match(item) {
			return i
		}
	}
	return -1
}

func (s *Store) userIndex(id string) int {
	return indexOf(s.users, func(u User) bool { return u.ID == id })
}

func (s *Store) slotIndex(id string) int {
	return indexOf(s.slots, func(sl Slot) bool { return sl.ID == id })
}

func (s *Store) appointmentIndex(id string) int {
	return indexOf(s.appointments, func(a Appointment) bool { return a.ID == id })
}

func (s *Store) prescriptionIndex(id string) int {
	return indexOf(s.prescriptions, func(p Prescription) bool { return p.ID == id })
}
