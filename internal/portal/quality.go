package portal

// DoctorQuality aggregates appointment and feedback figures for a
// doctor. Feedback is attributed through the patient: any feedback left
// by a patient who has seen this doctor counts toward the rating, even
// if the same patient also saw other doctors.
func (s *Store) DoctorQuality(doctorID string) DoctorQuality {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := DoctorQuality{DoctorID: doctorID}

	patients := make(map[string]struct{})
	completed := 0
	for _, a := range s.appointments {
		if a.DoctorID != doctorID {
			continue
		}
		q.AppointmentCount++
		patients[a.PatientID] = struct{}{}
		if a.Status == StatusCompleted {
			completed++
		}
	}
	if q.AppointmentCount == 0 {
		return q
	}
	q.CompletionRate = 100 * float64(completed) / float64(q.AppointmentCount)

	sum, n := 0, 0
	for _, f := range s.feedback {
		if _, ok := patients[f.PatientID]; ok {
			sum += f.Rating
			n++
		}
	}
	if n > 0 {
		q.AvgRating = float64(sum) / float64(n)
		q.PatientSatisfaction = 100 * q.AvgRating / 5
	}
	return q
}
