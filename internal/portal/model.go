package portal

import (
	"time"
)

type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleIT      Role = "it"
)

type UserStatus string

const (
	UserActive   UserStatus = "active"
	UserInactive UserStatus = "inactive"
)

type SlotStatus string

const (
	SlotAvailable SlotStatus = "available"
	SlotBooked    SlotStatus = "booked"
	SlotCancelled SlotStatus = "cancelled"
)

type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "scheduled"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
)

type AppointmentType string

const (
	TypeConsultation AppointmentType = "consultation"
	TypeFollowUp     AppointmentType = "follow-up"
	TypeTherapy      AppointmentType = "therapy"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

type PaymentMethod string

const (
	MethodCard   PaymentMethod = "card"
	MethodBank   PaymentMethod = "bank"
	MethodWallet PaymentMethod = "wallet"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

type BugStatus string

const (
	BugOpen       BugStatus = "open"
	BugInProgress BugStatus = "in-progress"
	BugResolved   BugStatus = "resolved"
)

// RequestStatus is shared by refill and reschedule requests. Pending
// is the only non-terminal state.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

type RecordType string

const (
	RecordLabReport    RecordType = "lab-report"
	RecordTestResult   RecordType = "test-result"
	RecordScan         RecordType = "scan"
	RecordDocument     RecordType = "document"
	RecordPrescription RecordType = "prescription"
)

const RecordUploaded = "uploaded"

type LogLevel string

const (
	LevelInfo    LogLevel = "info"
	LevelWarning LogLevel = "warning"
	LevelError   LogLevel = "error"
)

type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthWarning  HealthStatus = "warning"
	HealthCritical HealthStatus = "critical"
)

type ReminderChannel string

const (
	ChannelEmail ReminderChannel = "email"
	ChannelSMS   ReminderChannel = "sms"
	ChannelBoth  ReminderChannel = "both"
)

type ReminderStatus string

const (
	ReminderPending ReminderStatus = "pending"
	ReminderSent    ReminderStatus = "sent"
	ReminderFailed  ReminderStatus = "failed"
)

type User struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Role       Role       `json:"role"`
	Status     UserStatus `json:"status"`
	Specialty  string     `json:"specialty,omitempty"`
	Rating     float64    `json:"rating,omitempty"`
	JoinedDate string     `json:"joinedDate"`
}

type Slot struct {
	ID       string     `json:"id"`
	DoctorID string     `json:"doctorId"`
	Start    time.Time  `json:"start"`
	End      time.Time  `json:"end"`
	Status   SlotStatus `json:"status"`
}

type Appointment struct {
	ID        string            `json:"id"`
	SlotID    string            `json:"slotId"`
	PatientID string            `json:"patientId"`
	DoctorID  string            `json:"doctorId"`
	Status    AppointmentStatus `json:"status"`
	Type      AppointmentType   `json:"type"`
	Notes     string            `json:"notes"`
	History   []string          `json:"history"`
}

type Medication struct {
	Name      string `json:"name" validate:"required,medication"`
	Dosage    string `json:"dosage" validate:"required,dosage"`
	Frequency string `json:"frequency" validate:"required"`
	Duration  string `json:"duration" validate:"required,duration"`
}

type Prescription struct {
	ID            string       `json:"id"`
	AppointmentID string       `json:"appointmentId"`
	DoctorID      string       `json:"doctorId"`
	PatientID     string       `json:"patientId"`
	Medications   []Medication `json:"medications"`
	Instructions  string       `json:"instructions"`
	CreatedDate   time.Time    `json:"createdDate"`
	ExpiryDate    time.Time    `json:"expiryDate"`
}

type Payment struct {
	ID            string        `json:"id"`
	AppointmentID string        `json:"appointmentId"`
	PatientID     string        `json:"patientId"`
	Amount        float64       `json:"amount"`
	Status        PaymentStatus `json:"status"`
	Method        PaymentMethod `json:"method"`
	Date          time.Time     `json:"date"`
}

type BugReport struct {
	ID          string    `json:"id"`
	ReportedBy  string    `json:"reportedBy"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Severity    Severity  `json:"severity"`
	Status      BugStatus `json:"status"`
	Date        time.Time `json:"date"`
}

type RefillRequest struct {
	ID             string        `json:"id"`
	PrescriptionID string        `json:"prescriptionId"`
	PatientID      string        `json:"patientId"`
	DoctorID       string        `json:"doctorId"`
	MedicationName string        `json:"medicationName"`
	Reason         string        `json:"reason"`
	Status         RequestStatus `json:"status"`
	RequestDate    time.Time     `json:"requestDate"`
	ResponseDate   *time.Time    `json:"responseDate,omitempty"`
	DoctorNotes    string        `json:"doctorNotes,omitempty"`
}

type RescheduleRequest struct {
	ID            string        `json:"id"`
	AppointmentID string        `json:"appointmentId"`
	PatientID     string        `json:"patientId"`
	DoctorID      string        `json:"doctorId"`
	OriginalDate  *time.Time    `json:"originalDate,omitempty"`
	RequestedDate time.Time     `json:"requestedDate"`
	Reason        string        `json:"reason"`
	Status        RequestStatus `json:"status"`
	RequestDate   time.Time     `json:"requestDate"`
	ResponseDate  *time.Time    `json:"responseDate,omitempty"`
}

type MedicalRecord struct {
	ID         string     `json:"id"`
	PatientID  string     `json:"patientId"`
	Title      string     `json:"title"`
	Type       RecordType `json:"type"`
	UploadDate time.Time  `json:"uploadDate"`
	FileSize   int64      `json:"fileSize"`
	Status     string     `json:"status"`
}

type SystemLog struct {
	ID        string    `json:"id"`
	Level     LogLevel  `json:"level"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
}

type Feedback struct {
	ID        string    `json:"id"`
	PatientID string    `json:"patientId"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	Date      time.Time `json:"date"`
}

type HealthMetric struct {
	ID        string       `json:"id"`
	Metric    string       `json:"metric"`
	Value     string       `json:"value"`
	Timestamp time.Time    `json:"timestamp"`
	Status    HealthStatus `json:"status"`
}

type Reminder struct {
	ID          string          `json:"id"`
	PatientID   string          `json:"patientId"`
	Channel     ReminderChannel `json:"channel"`
	Subject     string          `json:"subject"`
	Message     string          `json:"message"`
	ScheduledAt time.Time       `json:"scheduledAt"`
	Status      ReminderStatus  `json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
	SentAt      *time.Time      `json:"sentAt,omitempty"`
}

// DoctorQuality is the aggregate shown on the manager dashboard.
type DoctorQuality struct {
	DoctorID            string  `json:"doctorId"`
	AppointmentCount    int     `json:"appointmentCount"`
	AvgRating           float64 `json:"avgRating"`
	CompletionRate      float64 `json:"completionRate"`
	PatientSatisfaction float64 `json:"patientSatisfaction"`
}

// Inputs for the mutations that take more than a handful of fields.

type NewUser struct {
	Name      string `validate:"required"`
	Email     string `validate:"required,email"`
	Role      Role   `validate:"required,oneof=patient doctor admin manager it"`
	Specialty string
}

type NewPrescription struct {
	AppointmentID string       `validate:"required"`
	DoctorID      string       `validate:"required"`
	PatientID     string       `validate:"required"`
	Medications   []Medication `validate:"required,min=1,dive"`
	Instructions  string       `validate:"required,min=10"`
	CreatedDate   time.Time
	ExpiryDate    time.Time
}

type NewRefillRequest struct {
	PrescriptionID string `validate:"required"`
	PatientID      string `validate:"required"`
	DoctorID       string `validate:"required"`
	MedicationName string `validate:"required"`
	Reason         string `validate:"required"`
}

type NewRescheduleRequest struct {
	AppointmentID string    `validate:"required"`
	PatientID     string    `validate:"required"`
	DoctorID      string    `validate:"required"`
	RequestedDate time.Time `validate:"required"`
	Reason        string    `validate:"required"`
}

type NewReminder struct {
	PatientID   string          `validate:"required"`
	Channel     ReminderChannel `validate:"required,oneof=email sms both"`
	Subject     string          `validate:"required"`
	Message     string          `validate:"required"`
	ScheduledAt time.Time       `validate:"required"`
}
