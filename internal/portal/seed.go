package portal

import "time"

// SeedData is the fixed dataset a collection falls back to when its
// snapshot is missing or unreadable. Times are relative to now.
type SeedData struct {
	Users              []User
	Slots              []Slot
	Appointments       []Appointment
	Prescriptions      []Prescription
	Payments           []Payment
	BugReports         []BugReport
	RefillRequests     []RefillRequest
	RescheduleRequests []RescheduleRequest
	MedicalRecords     []MedicalRecord
	Logs               []SystemLog
	Feedback           []Feedback
	HealthMetrics      []HealthMetric
	Reminders          []Reminder
}

func at(day time.Time, hour, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, time.UTC)
}

// DefaultSeed returns the demo dataset anchored at now.
func DefaultSeed(now time.Time) SeedData {
	now = now.UTC()
	tomorrow := now.AddDate(0, 0, 1)
	dayAfter := now.AddDate(0, 0, 2)

	return SeedData{
		Users: []User{
			{ID: "u1", Name: "John Doe", Email: "patient@health.care", Role: RolePatient, Status: UserActive, JoinedDate: "2024-01-15"},
			{ID: "u2", Name: "Dr. Sarah Smith", Email: "doctor@health.care", Role: RoleDoctor, Status: UserActive, Specialty: "Psychiatrist", Rating: 4.8, JoinedDate: "2023-05-20"},
			{ID: "u3", Name: "Admin User", Email: "admin@health.care", Role: RoleAdmin, Status: UserActive, JoinedDate: "2023-01-01"},
			{ID: "u4", Name: "Health Manager", Email: "manager@health.care", Role: RoleManager, Status: UserActive, JoinedDate: "2023-03-10"},
			{ID: "u5", Name: "IT Support", Email: "it@health.care", Role: RoleIT, Status: UserActive, JoinedDate: "2023-02-15"},
			{ID: "u6", Name: "Dr. James Wilson", Email: "james@health.care", Role: RoleDoctor, Status: UserActive, Specialty: "Clinical Psychologist", Rating: 4.6, JoinedDate: "2023-08-12"},
		},
		Slots: []Slot{
			{ID: "s1", DoctorID: "u2", Start: at(tomorrow, 9, 0), End: at(tomorrow, 9, 30), Status: SlotAvailable},
			{ID: "s2", DoctorID: "u2", Start: at(tomorrow, 10, 0), End: at(tomorrow, 10, 30), Status: SlotBooked},
			{ID: "s3", DoctorID: "u6", Start: at(dayAfter, 14, 0), End: at(dayAfter, 14, 30), Status: SlotAvailable},
		},
		Appointments: []Appointment{
			{
				ID:        "a1",
				SlotID:    "s2",
				PatientID: "u1",
				DoctorID:  "u2",
				Status:    StatusScheduled,
				Type:      TypeConsultation,
				Notes:     "Initial consultation for anxiety symptoms.",
				History:   []string{"Patient reported difficulty sleeping."},
			},
		},
		Prescriptions: []Prescription{
			{
				ID:            "p1",
				AppointmentID: "a1",
				DoctorID:      "u2",
				PatientID:     "u1",
				Medications: []Medication{
					{Name: "Sertraline", Dosage: "50mg", Frequency: "Once daily", Duration: "30 days"},
					{Name: "Melatonin", Dosage: "5mg", Frequency: "At bedtime", Duration: "30 days"},
				},
				Instructions: "Take with food. Avoid alcohol. Report any side effects immediately.",
				CreatedDate:  now,
				ExpiryDate:   now.AddDate(0, 0, 90),
			},
		},
		Payments: []Payment{
			{ID: "py1", AppointmentID: "a1", PatientID: "u1", Amount: 150, Status: PaymentCompleted, Method: MethodCard, Date: now},
		},
		BugReports: []BugReport{
			{
				ID:          "b1",
				ReportedBy:  "u4",
				Title:       "Login page slow on mobile",
				Description: "Login takes 5+ seconds on mobile devices",
				Severity:    SeverityMedium,
				Status:      BugInProgress,
				Date:        now.AddDate(0, 0, -1),
			},
		},
		RefillRequests:     []RefillRequest{},
		RescheduleRequests: []RescheduleRequest{},
		MedicalRecords:     []MedicalRecord{},
		Logs: []SystemLog{
			{ID: "l1", Level: LevelInfo, Message: "System startup successful", Timestamp: now, Source: "System"},
			{ID: "l2", Level: LevelWarning, Message: "High memory usage detected", Timestamp: now.AddDate(0, 0, -1), Source: "Server"},
		},
		Feedback: []Feedback{
			{ID: "f1", PatientID: "u1", Rating: 5, Comment: "Dr. Smith was very understanding and helpful.", Date: now.AddDate(0, 0, -2)},
		},
		HealthMetrics: []HealthMetric{
			{ID: "h1", Metric: "CPU Usage", Value: "42%", Timestamp: now, Status: HealthHealthy},
			{ID: "h2", Metric: "Memory Usage", Value: "68%", Timestamp: now, Status: HealthWarning},
			{ID: "h3", Metric: "Database Response", Value: "120ms", Timestamp: now, Status: HealthHealthy},
			{ID: "h4", Metric: "API Availability", Value: "99.97%", Timestamp: now, Status: HealthHealthy},
		},
		Reminders: []Reminder{},
	}
}
