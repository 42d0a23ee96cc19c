package scheduling

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/vaishnavimodi30/healthsphere-portal/internal/upstream"
	"github.com/vaishnavimodi30/healthsphere-portal/pkg/logging"
)

// State is the workflow's position in the booking flow.
type State string

const (
	StateSelectingDoctor State = "SELECTING_DOCTOR"
	StateSelectingDate   State = "SELECTING_DATE"
	StateSelectingSlot   State = "SELECTING_SLOT"
	StateComposing       State = "COMPOSING"
	StateSubmitting      State = "SUBMITTING"
	StateSucceeded       State = "SUCCEEDED"
	StateFailed          State = "FAILED"
)

// SlotStatus describes the current slot set. Empty is a distinct state
// ("no openings"), never an error.
type SlotStatus string

const (
	SlotsIdle        SlotStatus = "IDLE"
	SlotsLoading     SlotStatus = "LOADING"
	SlotsReady       SlotStatus = "READY"
	SlotsEmpty       SlotStatus = "EMPTY"
	SlotsUnavailable SlotStatus = "UNAVAILABLE"
	SlotsFailed      SlotStatus = "FAILED"
)

// Transition guards.
var (
	ErrNoDoctor        = errors.New("scheduling: select a doctor first")
	ErrDateOutOfWindow = errors.New("scheduling: date outside the allowed booking window")
	ErrSlotsNotReady   = errors.New("scheduling: slot list is still loading")
	ErrSlotNotOffered  = errors.New("scheduling: slot is not in the offered set")
	ErrEmptyReason     = errors.New("scheduling: reason text is required")
	ErrBusy            = errors.New("scheduling: a submission is already in flight")
)

// SlotClient is the slice of the backend client the workflow uses.
type SlotClient interface {
	AvailableSlots(ctx context.Context, bearer string, doctorID upstream.ID, date string) ([]string, error)
	BookAppointment(ctx context.Context, bearer string, req upstream.BookingRequest) (*upstream.Appointment, error)
}

// Snapshot is a read-only view of the workflow for rendering.
type Snapshot struct {
	State      State                 `json:"state"`
	Draft      Draft                 `json:"draft"`
	SlotStatus SlotStatus            `json:"slotStatus"`
	Slots      []string              `json:"slots"`
	SlotError  string                `json:"slotError,omitempty"`
	LastError  string                `json:"lastError,omitempty"`
	Confirmed  *upstream.Appointment `json:"confirmed,omitempty"`
}

// Workflow drives one client's booking flow. Selections arrive one at a
// time from a single client instance; the mutex keeps overlapping HTTP
// requests from interleaving, and the generation counter discards slot
// responses that resolve after their selection has been superseded.
type Workflow struct {
	mu sync.Mutex

	client    SlotClient
	window    DateWindow
	logger    *logging.Logger
	bearer    string
	patientID string

	state      State
	draft      Draft
	generation uint64
	slotStatus SlotStatus
	slots      []string
	slotError  string
	lastError  string
	confirmed  *upstream.Appointment
	submitting bool

	// staleHook is invoked whenever a superseded slot response is
	// discarded, so callers can count them.
	staleHook func()
}

// NewWorkflow starts a booking flow for the given patient session.
func NewWorkflow(client SlotClient, window DateWindow, bearer, patientID string, logger *logging.Logger) *Workflow {
	if logger == nil {
		logger = logging.Default()
	}
	return &Workflow{
		client:     client,
		window:     window,
		logger:     logger.Component("scheduling"),
		bearer:     bearer,
		patientID:  patientID,
		state:      StateSelectingDoctor,
		slotStatus: SlotsIdle,
	}
}

// Snapshot returns the current view of the workflow.
func (w *Workflow) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	slots := make([]string, len(w.slots))
	copy(slots, w.slots)
	return Snapshot{
		State:      w.state,
		Draft:      w.draft,
		SlotStatus: w.slotStatus,
		Slots:      slots,
		SlotError:  w.slotError,
		LastError:  w.lastError,
		Confirmed:  w.confirmed,
	}
}

// SelectDoctor records the doctor choice. Downstream choices (slot set and
// chosen slot) are invalidated; a previously chosen date is kept and the
// slot fetch re-runs against the new doctor.
func (w *Workflow) SelectDoctor(ctx context.Context, doctorID upstream.ID) error {
	w.mu.Lock()
	if doctorID == 0 {
		w.mu.Unlock()
		return ErrNoDoctor
	}
	w.draft.DoctorID = doctorID
	w.invalidateSlotsLocked()
	w.state = StateSelectingDate

	date := w.draft.Date
	w.mu.Unlock()

	if date != "" {
		return w.fetchSlots(ctx)
	}
	return nil
}

// SelectDate records the date choice and triggers the slot fetch. A doctor
// must already be chosen, and the date must fall inside the allowed
// booking window.
func (w *Workflow) SelectDate(ctx context.Context, date string) error {
	w.mu.Lock()
	if w.draft.DoctorID == 0 {
		w.state = StateSelectingDoctor
		w.mu.Unlock()
		return ErrNoDoctor
	}
	if !w.window.Contains(date) {
		w.mu.Unlock()
		return ErrDateOutOfWindow
	}
	w.draft.Date = date
	w.invalidateSlotsLocked()
	w.mu.Unlock()

	return w.fetchSlots(ctx)
}

// RefreshSlots re-runs the slot fetch for the current doctor and date.
// Retries are always user-initiated.
func (w *Workflow) RefreshSlots(ctx context.Context) error {
	w.mu.Lock()
	if w.draft.DoctorID == 0 || w.draft.Date == "" {
		w.mu.Unlock()
		return ErrNoDoctor
	}
	w.invalidateSlotsLocked()
	w.mu.Unlock()

	return w.fetchSlots(ctx)
}

// invalidateSlotsLocked clears everything downstream of a changed
// selection and advances the generation so an in-flight fetch for the old
// selection cannot apply its result.
func (w *Workflow) invalidateSlotsLocked() {
	w.generation++
	w.slots = nil
	w.slotStatus = SlotsIdle
	w.slotError = ""
	w.draft.Slot = ""
	w.lastError = ""
	w.confirmed = nil
	if w.state == StateComposing || w.state == StateFailed || w.state == StateSucceeded {
		w.state = StateSelectingDate
	}
}

// fetchSlots performs the slot query for the selection current at call
// time. The issuing generation travels with the request; if a newer
// selection arrives before this one resolves, the result is discarded.
func (w *Workflow) fetchSlots(ctx context.Context) error {
	w.mu.Lock()
	gen := w.generation
	doctorID := w.draft.DoctorID
	date := w.draft.Date
	w.state = StateSelectingSlot
	w.slotStatus = SlotsLoading
	w.mu.Unlock()

	slots, err := w.client.AvailableSlots(ctx, w.bearer, doctorID, date)

	w.mu.Lock()
	defer w.mu.Unlock()
	if gen != w.generation {
		w.logger.Debug("discarding stale slot response",
			"doctor_id", doctorID, "date", date,
			"issued_generation", gen, "current_generation", w.generation,
		)
		if w.staleHook != nil {
			w.staleHook()
		}
		return nil
	}

	switch {
	case errors.Is(err, upstream.ErrUnrecognizedEnvelope):
		w.slotStatus = SlotsUnavailable
		w.slots = []string{}
	case errors.Is(err, upstream.ErrAuthExpired):
		w.slotStatus = SlotsFailed
		w.slotError = "session expired"
		return err
	case err != nil:
		w.slotStatus = SlotsFailed
		w.slotError = err.Error()
		w.logger.Warn("slot fetch failed", "doctor_id", doctorID, "date", date, "error", err)
	case len(slots) == 0:
		w.slotStatus = SlotsEmpty
		w.slots = []string{}
	default:
		w.slotStatus = SlotsReady
		w.slots = slots
	}
	return nil
}

// SelectSlot records the slot choice. It is valid only once the fetch for
// the current selection has resolved with openings.
func (w *Workflow) SelectSlot(slot string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.slotStatus {
	case SlotsReady:
	case SlotsLoading:
		return ErrSlotsNotReady
	default:
		return ErrSlotNotOffered
	}
	for _, s := range w.slots {
		if s == slot {
			w.draft.Slot = slot
			w.state = StateComposing
			return nil
		}
	}
	return ErrSlotNotOffered
}

// SetReason records the visit reason. Composing requires non-empty text.
func (w *Workflow) SetReason(reason string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if strings.TrimSpace(reason) == "" {
		return ErrEmptyReason
	}
	w.draft.Reason = reason
	if w.state == StateSelectingSlot && w.draft.Slot != "" {
		w.state = StateComposing
	}
	return nil
}

// Submit validates the draft and books the appointment. Missing fields
// raise a ValidationError before any network call. On success the draft is
// reset and the flow re-enters doctor selection; on a remote failure the
// draft is preserved so the user can retry without re-entering data.
func (w *Workflow) Submit(ctx context.Context) (*upstream.Appointment, error) {
	w.mu.Lock()
	if w.submitting {
		w.mu.Unlock()
		return nil, ErrBusy
	}
	payload, err := w.draft.payload(w.patientID)
	if err != nil {
		w.mu.Unlock()
		return nil, err
	}
	// The input surface cannot produce out-of-window dates, but the bound
	// is cheap to re-check.
	if !w.window.Contains(w.draft.Date) {
		w.mu.Unlock()
		return nil, ErrDateOutOfWindow
	}
	w.submitting = true
	w.state = StateSubmitting
	w.lastError = ""
	w.mu.Unlock()

	appt, err := w.client.BookAppointment(ctx, w.bearer, payload)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.submitting = false
	if err != nil {
		w.state = StateFailed
		w.lastError = err.Error()
		w.logger.Warn("booking submission failed", "doctor_id", payload.DoctorID, "error", err)
		return nil, err
	}

	w.logger.Info("appointment booked",
		"doctor_id", payload.DoctorID,
		"patient_id", payload.PatientID,
		"datetime", payload.AppointmentDateTime,
	)
	w.confirmed = appt
	w.draft = Draft{}
	w.slots = nil
	w.slotStatus = SlotsIdle
	w.slotError = ""
	w.generation++
	w.state = StateSelectingDoctor
	return appt, nil
}

// Reset abandons the current draft and restarts the flow.
func (w *Workflow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.draft = Draft{}
	w.generation++
	w.slots = nil
	w.slotStatus = SlotsIdle
	w.slotError = ""
	w.lastError = ""
	w.confirmed = nil
	w.submitting = false
	w.state = StateSelectingDoctor
}
