package simulator

import (
	"context"
	"fmt"
	"time"

	"github.com/hackgods/careportal/internal/portal"
)

const (
	FamilyAppointmentBooking     = "appointment-booking"
	FamilyPaymentPosting         = "payment-posting"
	FamilyPrescriptionGeneration = "prescription-generation"
	FamilyBugReporting           = "bug-reporting"
	FamilyLogNoise               = "log-noise"
	FamilyRefillApproval         = "refill-approval"
	FamilyRescheduleApproval     = "reschedule-approval"
	FamilyRecordUpload           = "record-upload"
	FamilyAppointmentCompletion  = "appointment-completion"
	FamilyReminderDispatch       = "reminder-dispatch"
)

// always disables the probability gate.
const always = -1

type family struct {
	name   string
	period time.Duration
	// threshold gates each tick: the action runs only when a uniform
	// roll in [0,1) exceeds it.
	threshold float64
	action    func(ctx context.Context) (bool, error)
}

func lookup(families []family, name string) (family, bool) {
	for _, f := range families {
		if f.name == name {
			return f, true
		}
	}
	return family{}, false
}

func (s *Simulator) defaultFamilies() []family {
	return []family{
		{FamilyAppointmentBooking, 18 * time.Second, 0.6, s.bookAppointment},
		{FamilyPaymentPosting, 22 * time.Second, 0.65, s.postPayment},
		{FamilyPrescriptionGeneration, 28 * time.Second, 0.7, s.generatePrescription},
		{FamilyBugReporting, 32 * time.Second, 0.75, s.reportBug},
		{FamilyLogNoise, 9 * time.Second, always, s.logNoise},
		{FamilyRefillApproval, 40 * time.Second, 0.7, s.approveRefill},
		{FamilyRescheduleApproval, 45 * time.Second, 0.6, s.approveReschedule},
		{FamilyRecordUpload, 50 * time.Second, 0.75, s.uploadRecord},
		{FamilyAppointmentCompletion, 35 * time.Second, 0.6, s.completeAppointment},
		{FamilyReminderDispatch, 30 * time.Second, always, s.dispatchReminders},
	}
}

var (
	cannedMedications = []portal.Medication{
		{Name: "Amoxicillin", Dosage: "500mg", Frequency: "3x daily", Duration: "7 days"},
		{Name: "Ibuprofen", Dosage: "200mg", Frequency: "As needed", Duration: "10 days"},
		{Name: "Vitamin B12", Dosage: "1000mcg", Frequency: "Daily", Duration: "30 days"},
	}

	cannedBugTitles = []string{
		"API timeout on appointment booking",
		"Payment processing delay",
		"Login intermittent failure",
		"Slow dashboard load",
		"Notification delivery issue",
	}

	cannedLogLines = []string{
		"Database connection verified",
		"Cache synchronized",
		"SSL certificate valid",
		"Backup routine completed",
		"API health check: OK",
		"User session refreshed",
		"Memory cleanup executed",
	}

	cannedRecordTitles = map[portal.RecordType]string{
		portal.RecordLabReport:    "Blood Test Report",
		portal.RecordTestResult:   "COVID-19 Test Result",
		portal.RecordScan:         "CT Scan Results",
		portal.RecordDocument:     "Medical Certificate",
		portal.RecordPrescription: "Prescription Copy",
	}

	recordTypes    = []portal.RecordType{portal.RecordLabReport, portal.RecordTestResult, portal.RecordScan, portal.RecordDocument, portal.RecordPrescription}
	bugSeverities  = []portal.Severity{portal.SeverityLow, portal.SeverityMedium, portal.SeverityHigh}
	paymentMethods = []portal.PaymentMethod{portal.MethodCard, portal.MethodBank, portal.MethodWallet}
)

func usersWithRole(users []portal.User, role portal.Role) []portal.User {
	var out []portal.User
	for _, u := range users {
		if u.Role == role {
			out = append(out, u)
		}
	}
	return out
}

func (s *Simulator) bookAppointment(ctx context.Context) (bool, error) {
	users := s.store.Users()
	doctors := usersWithRole(users, portal.RoleDoctor)
	patients := usersWithRole(users, portal.RolePatient)
	if len(doctors) == 0 || len(patients) == 0 {
		return false, nil
	}
	doctor := pick(s, doctors)
	patient := pick(s, patients)

	for _, slot := range s.store.Slots() {
		if slot.Status != portal.SlotAvailable || slot.DoctorID != doctor.ID {
			continue
		}
		if _, err := s.store.BookAppointment(ctx, slot.ID, patient.ID, "Auto-scheduled checkup"); err != nil {
			return true, err
		}
		_, err := s.store.AddLog(ctx, fmt.Sprintf("New appointment auto-scheduled for %s", patient.Name), portal.LevelInfo, "System")
		return true, err
	}
	return false, nil
}

func (s *Simulator) postPayment(ctx context.Context) (bool, error) {
	paid := make(map[string]struct{})
	for _, p := range s.store.Payments() {
		paid[p.AppointmentID] = struct{}{}
	}

	var unpaid []portal.Appointment
	for _, a := range s.store.Appointments() {
		if _, ok := paid[a.ID]; !ok {
			unpaid = append(unpaid, a)
		}
	}
	if len(unpaid) == 0 {
		return false, nil
	}

	appt := pick(s, unpaid)
	amount := float64(150 + s.intn(200))
	if _, err := s.store.MakePayment(ctx, appt.ID, appt.PatientID, amount, pick(s, paymentMethods)); err != nil {
		return true, err
	}
	_, err := s.store.AddLog(ctx, fmt.Sprintf("Payment processed: $%.0f", amount), portal.LevelInfo, "Payment")
	return true, err
}

func (s *Simulator) generatePrescription(ctx context.Context) (bool, error) {
	prescribed := make(map[string]struct{})
	for _, p := range s.store.Prescriptions() {
		prescribed[p.AppointmentID] = struct{}{}
	}

	var eligible []portal.Appointment
	for _, a := range s.store.Appointments() {
		if _, ok := prescribed[a.ID]; !ok && a.Status == portal.StatusCompleted {
			eligible = append(eligible, a)
		}
	}
	if len(eligible) == 0 {
		return false, nil
	}

	appt := pick(s, eligible)
	_, err := s.store.AddPrescription(ctx, portal.NewPrescription{
		AppointmentID: appt.ID,
		DoctorID:      appt.DoctorID,
		PatientID:     appt.PatientID,
		Medications:   []portal.Medication{pick(s, cannedMedications)},
		Instructions:  "Take with meals.",
	})
	if err != nil {
		return true, err
	}
	_, err = s.store.AddLog(ctx, "New prescription generated", portal.LevelInfo, "Prescription")
	return true, err
}

func (s *Simulator) reportBug(ctx context.Context) (bool, error) {
	title := pick(s, cannedBugTitles)
	_, err := s.store.ReportBug(ctx, title, "Auto-detected issue", pick(s, bugSeverities))
	return true, err
}

func (s *Simulator) logNoise(ctx context.Context) (bool, error) {
	_, err := s.store.AddLog(ctx, pick(s, cannedLogLines), portal.LevelInfo, "System")
	return true, err
}

func (s *Simulator) approveRefill(ctx context.Context) (bool, error) {
	var pending []portal.RefillRequest
	for _, r := range s.store.RefillRequests() {
		if r.Status == portal.RequestPending {
			pending = append(pending, r)
		}
	}
	if len(pending) == 0 {
		return false, nil
	}

	r := pick(s, pending)
	if _, err := s.store.ApproveRefill(ctx, r.ID, "Approved - Continuing treatment"); err != nil {
		return true, err
	}
	_, err := s.store.AddLog(ctx, fmt.Sprintf("Refill approved: %s", r.MedicationName), portal.LevelInfo, "System")
	return true, err
}

func (s *Simulator) approveReschedule(ctx context.Context) (bool, error) {
	var pending []portal.RescheduleRequest
	for _, r := range s.store.RescheduleRequests() {
		if r.Status == portal.RequestPending {
			pending = append(pending, r)
		}
	}
	if len(pending) == 0 {
		return false, nil
	}

	if _, err := s.store.ApproveReschedule(ctx, pick(s, pending).ID); err != nil {
		return true, err
	}
	_, err := s.store.AddLog(ctx, "Appointment rescheduled successfully", portal.LevelInfo, "System")
	return true, err
}

func (s *Simulator) uploadRecord(ctx context.Context) (bool, error) {
	patients := usersWithRole(s.store.Users(), portal.RolePatient)
	if len(patients) == 0 {
		return false, nil
	}

	patient := pick(s, patients)
	kind := pick(s, recordTypes)
	if _, err := s.store.UploadMedicalRecord(ctx, patient.ID, cannedRecordTitles[kind], kind); err != nil {
		return true, err
	}
	_, err := s.store.AddLog(ctx, "Medical record uploaded", portal.LevelInfo, "System")
	return true, err
}

func (s *Simulator) completeAppointment(ctx context.Context) (bool, error) {
	var scheduled []portal.Appointment
	for _, a := range s.store.Appointments() {
		if a.Status == portal.StatusScheduled {
			scheduled = append(scheduled, a)
		}
	}
	if len(scheduled) == 0 {
		return false, nil
	}

	_, err := s.store.CompleteAppointment(ctx, pick(s, scheduled).ID)
	return true, err
}

func (s *Simulator) dispatchReminders(ctx context.Context) (bool, error) {
	n, err := s.store.DispatchDueReminders(ctx)
	return n > 0, err
}
