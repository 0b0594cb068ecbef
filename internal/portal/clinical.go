package portal

import (
	"context"
	"fmt"
)

const prescriptionValidity = 90 // days

// AddPrescription records a prescription after checking every
// medication against the whitelist and format rules.
func (s *Store) AddPrescription(ctx context.Context, in NewPrescription) (Prescription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.validateStruct(in); err != nil {
		return Prescription{}, s.fail(OpAddPrescription, "", err)
	}
	if s.appointmentIndex(in.AppointmentID) < 0 {
		return Prescription{}, s.fail(OpAddPrescription, "", notFound("appointment", in.AppointmentID))
	}

	now := s.now()
	p := Prescription{
		ID:            s.newID(),
		AppointmentID: in.AppointmentID,
		DoctorID:      in.DoctorID,
		PatientID:     in.PatientID,
		Medications:   clone(in.Medications),
		Instructions:  in.Instructions,
		CreatedDate:   in.CreatedDate.UTC().Round(0),
		ExpiryDate:    in.ExpiryDate.UTC().Round(0),
	}
	if in.CreatedDate.IsZero() {
		p.CreatedDate = now
	}
	if in.ExpiryDate.IsZero() {
		p.ExpiryDate = p.CreatedDate.AddDate(0, 0, prescriptionValidity)
	}
	s.prescriptions = append(s.prescriptions, p)

	err := s.persist(ctx, KeyPrescriptions)
	err = firstErr(err, s.logLocked(ctx, LevelInfo, "Prescription", "Prescription issued for patient %s", p.PatientID))
	s.emit(OpAddPrescription, p.ID, err)
	return p.clone(), err
}

// MakePayment records a completed payment. No gateway is involved.
func (s *Store) MakePayment(ctx context.Context, appointmentID, patientID string, amount float64, method PaymentMethod) (Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.validateVar("amount", amount, "gt=0"); err != nil {
		return Payment{}, s.fail(OpMakePayment, "", err)
	}
	if err := s.validateVar("method", string(method), "oneof=card bank wallet"); err != nil {
		return Payment{}, s.fail(OpMakePayment, "", err)
	}
	if s.appointmentIndex(appointmentID) < 0 {
		return Payment{}, s.fail(OpMakePayment, "", notFound("appointment", appointmentID))
	}

	p := Payment{
		ID:            s.newID(),
		AppointmentID: appointmentID,
		PatientID:     patientID,
		Amount:        amount,
		Status:        PaymentCompleted,
		Method:        method,
		Date:          s.now(),
	}
	s.payments = append(s.payments, p)

	err := s.persist(ctx, KeyPayments)
	err = firstErr(err, s.logLocked(ctx, LevelInfo, "Payment", "Payment of $%.2f recorded for appointment %s", amount, appointmentID))
	s.emit(OpMakePayment, p.ID, err)
	return p, err
}

// UploadMedicalRecord stores record metadata for a patient. The file
// itself is not kept; its size is simulated.
func (s *Store) UploadMedicalRecord(ctx context.Context, patientID, title string, recordType RecordType) (MedicalRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.validateVar("title", title, "required"); err != nil {
		return MedicalRecord{}, s.fail(OpUploadMedicalRecord, "", err)
	}
	if err := s.validateVar("type", string(recordType), "oneof=lab-report test-result scan document prescription"); err != nil {
		return MedicalRecord{}, s.fail(OpUploadMedicalRecord, "", err)
	}
	if s.userIndex(patientID) < 0 {
		return MedicalRecord{}, s.fail(OpUploadMedicalRecord, "", notFound("user", patientID))
	}

	r := MedicalRecord{
		ID:         s.newID(),
		PatientID:  patientID,
		Title:      title,
		Type:       recordType,
		UploadDate: s.now(),
		FileSize:   int64(s.faker.IntRange(100, 5000)) * 1024,
		Status:     RecordUploaded,
	}
	s.medicalRecords = append(s.medicalRecords, r)

	err := s.persist(ctx, KeyMedicalRecords)
	err = firstErr(err, s.logLocked(ctx, LevelInfo, "Records", "Medical record %q uploaded for patient %s", title, patientID))
	s.emit(OpUploadMedicalRecord, r.ID, err)
	return r, err
}

// ReportBug files an open bug under AutoReporterID.
func (s *Store) ReportBug(ctx context.Context, title, description string, severity Severity) (BugReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.validateVar("title", title, "required"); err != nil {
		return BugReport{}, s.fail(OpReportBug, "", err)
	}
	if err := s.validateVar("severity", string(severity), "oneof=low medium high critical"); err != nil {
		return BugReport{}, s.fail(OpReportBug, "", err)
	}

	b := BugReport{
		ID:          s.newID(),
		ReportedBy:  AutoReporterID,
		Title:       title,
		Description: description,
		Severity:    severity,
		Status:      BugOpen,
		Date:        s.now(),
	}
	s.bugReports = append(s.bugReports, b)

	err := s.persist(ctx, KeyBugReports)
	err = firstErr(err, s.logLocked(ctx, LevelWarning, "System", "Bug reported: %s", title))
	s.emit(OpReportBug, b.ID, err)
	return b, err
}

var bugOrder = map[BugStatus]int{BugOpen: 0, BugInProgress: 1, BugResolved: 2}

// UpdateBugStatus moves a bug forward through open, in-progress and
// resolved.
func (s *Store) UpdateBugStatus(ctx context.Context, bugID string, status BugStatus) (BugReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOf(s.bugReports, func(b BugReport) bool { return b.ID == bugID })
	if i < 0 {
		return BugReport{}, s.fail(OpUpdateBugStatus, bugID, notFound("bug report", bugID))
	}
	to, ok := bugOrder[status]
	if !ok || to <= bugOrder[s.bugReports[i].Status] {
		return BugReport{}, s.fail(OpUpdateBugStatus, bugID,
			fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, s.bugReports[i].Status, status))
	}

	s.bugReports[i].Status = status

	err := s.persist(ctx, KeyBugReports)
	err = firstErr(err, s.logLocked(ctx, LevelInfo, "IT", "Bug %s marked %s", bugID, status))
	s.emit(OpUpdateBugStatus, bugID, err)
	return s.bugReports[i], err
}
