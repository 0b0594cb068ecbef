package portal

import (
	"sync"
	"time"
)

const (
	OpAddSlot                = "add_slot"
	OpDeleteSlot             = "delete_slot"
	OpBookAppointment        = "book_appointment"
	OpUpdateAppointmentNotes = "update_appointment_notes"
	OpCompleteAppointment    = "complete_appointment"
	OpCancelAppointment      = "cancel_appointment"
	OpAddLog                 = "add_log"
	OpRegisterUser           = "register_user"
	OpApproveUser            = "approve_user"
	OpAddPrescription        = "add_prescription"
	OpMakePayment            = "make_payment"
	OpReportBug              = "report_bug"
	OpUpdateBugStatus        = "update_bug_status"
	OpRequestRefill          = "request_refill"
	OpApproveRefill          = "approve_refill"
	OpRejectRefill           = "reject_refill"
	OpRequestReschedule      = "request_reschedule"
	OpApproveReschedule      = "approve_reschedule"
	OpRejectReschedule       = "reject_reschedule"
	OpUploadMedicalRecord    = "upload_medical_record"
	OpCreateReminder         = "create_reminder"
	OpDispatchReminders      = "dispatch_reminders"
)

type Outcome string

const (
	OutcomeOK            Outcome = "ok"
	OutcomeError         Outcome = "error"
	OutcomePersistFailed Outcome = "persist_failed"
)

// MutationEvent is emitted after every mutating operation so that a
// presentation layer can show notifications without the store knowing
// about them.
type MutationEvent struct {
	Op       string    `json:"op"`
	EntityID string    `json:"entityId,omitempty"`
	Outcome  Outcome   `json:"outcome"`
	Err      string    `json:"error,omitempty"`
	At       time.Time `json:"at"`
}

// Bus fans mutation events out to subscribers. Publishing never blocks;
// a subscriber whose buffer is full misses the event.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan MutationEvent
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan MutationEvent)}
}

// Subscribe registers a subscriber with the given buffer size. The
// returned cancel func unregisters it and closes the channel.
func (b *Bus) Subscribe(buffer int) (<-chan MutationEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan MutationEvent, buffer)
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(ch)
		})
	}
}

func (b *Bus) Publish(ev MutationEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
