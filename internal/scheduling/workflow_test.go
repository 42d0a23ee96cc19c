package scheduling

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/vaishnavimodi30/healthsphere-portal/internal/session"
	"github.com/vaishnavimodi30/healthsphere-portal/internal/upstream"
)

// fakeClient scripts slot and booking responses per (doctor, date) pair.
type fakeClient struct {
	mu        sync.Mutex
	slots     map[string][]string
	slotErr   map[string]error
	gate      map[string]chan struct{} // optional: fetch blocks until closed
	slotCalls []string
	bookErr   error
	booked    []upstream.BookingRequest
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		slots:   make(map[string][]string),
		slotErr: make(map[string]error),
		gate:    make(map[string]chan struct{}),
	}
}

func key(doctorID upstream.ID, date string) string {
	return fmt.Sprintf("%d|%s", doctorID, date)
}

func (f *fakeClient) AvailableSlots(ctx context.Context, _ string, doctorID upstream.ID, date string) ([]string, error) {
	k := key(doctorID, date)
	f.mu.Lock()
	gate := f.gate[k]
	f.slotCalls = append(f.slotCalls, k)
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.slotErr[k]; err != nil {
		return nil, err
	}
	return f.slots[k], nil
}

func (f *fakeClient) BookAppointment(_ context.Context, _ string, req upstream.BookingRequest) (*upstream.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.bookErr != nil {
		return nil, f.bookErr
	}
	f.booked = append(f.booked, req)
	return &upstream.Appointment{
		ID:                  101,
		DoctorID:            req.DoctorID,
		PatientID:           req.PatientID,
		AppointmentDateTime: req.AppointmentDateTime,
		Type:                req.Type,
		Reason:              req.Reason,
		Status:              req.Status,
	}, nil
}

func fixedWindow(t *testing.T) DateWindow {
	t.Helper()
	w := NewDateWindow(31)
	w.now = func() time.Time { return time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC) }
	return w
}

func newTestWorkflow(t *testing.T, client SlotClient) *Workflow {
	t.Helper()
	return NewWorkflow(client, fixedWindow(t), "bearer-tok", "12", nil)
}

func TestInitialState(t *testing.T) {
	w := newTestWorkflow(t, newFakeClient())
	snap := w.Snapshot()
	if snap.State != StateSelectingDoctor {
		t.Fatalf("expected initial state %s, got %s", StateSelectingDoctor, snap.State)
	}
	if snap.SlotStatus != SlotsIdle {
		t.Fatalf("expected idle slots, got %s", snap.SlotStatus)
	}
}

func TestSelectDateRequiresDoctor(t *testing.T) {
	w := newTestWorkflow(t, newFakeClient())
	err := w.SelectDate(context.Background(), "2024-06-01")
	if !errors.Is(err, ErrNoDoctor) {
		t.Fatalf("expected ErrNoDoctor, got %v", err)
	}
	if snap := w.Snapshot(); snap.State != StateSelectingDoctor {
		t.Fatalf("expected to remain in %s, got %s", StateSelectingDoctor, snap.State)
	}
}

func TestSelectDateWindow(t *testing.T) {
	client := newFakeClient()
	client.slots[key(7, "2024-06-01")] = []string{"09:00"}
	w := newTestWorkflow(t, client)
	if err := w.SelectDoctor(context.Background(), 7); err != nil {
		t.Fatalf("select doctor: %v", err)
	}

	tests := []struct {
		date string
		ok   bool
	}{
		{"2024-05-20", true},  // today
		{"2024-06-20", true},  // inside window
		{"2024-05-19", false}, // yesterday
		{"2024-07-20", false}, // past the window
		{"garbage", false},
	}
	for _, tt := range tests {
		err := w.SelectDate(context.Background(), tt.date)
		if tt.ok && err != nil {
			t.Errorf("date %s: unexpected error %v", tt.date, err)
		}
		if !tt.ok && !errors.Is(err, ErrDateOutOfWindow) {
			t.Errorf("date %s: expected ErrDateOutOfWindow, got %v", tt.date, err)
		}
	}
}

func TestSlotFetchStates(t *testing.T) {
	client := newFakeClient()
	client.slots[key(7, "2024-06-01")] = []string{"09:00", "09:30"}
	w := newTestWorkflow(t, client)

	if err := w.SelectDoctor(context.Background(), 7); err != nil {
		t.Fatalf("select doctor: %v", err)
	}
	if err := w.SelectDate(context.Background(), "2024-06-01"); err != nil {
		t.Fatalf("select date: %v", err)
	}

	snap := w.Snapshot()
	if snap.State != StateSelectingSlot || snap.SlotStatus != SlotsReady {
		t.Fatalf("expected ready slot selection, got %+v", snap)
	}
	if len(snap.Slots) != 2 || snap.Slots[0] != "09:00" {
		t.Fatalf("unexpected slots %v", snap.Slots)
	}
}

func TestZeroSlotsIsDistinctFromError(t *testing.T) {
	client := newFakeClient()
	client.slots[key(7, "2024-06-01")] = []string{}
	w := newTestWorkflow(t, client)

	_ = w.SelectDoctor(context.Background(), 7)
	if err := w.SelectDate(context.Background(), "2024-06-01"); err != nil {
		t.Fatalf("select date: %v", err)
	}

	snap := w.Snapshot()
	if snap.SlotStatus != SlotsEmpty {
		t.Fatalf("expected SlotsEmpty, got %s", snap.SlotStatus)
	}
	if snap.SlotError != "" {
		t.Fatalf("no openings must not carry an error, got %q", snap.SlotError)
	}
}

func TestSlotFetchRemoteFailure(t *testing.T) {
	client := newFakeClient()
	client.slotErr[key(7, "2024-06-01")] = &upstream.RemoteError{Op: "GET slots", Status: 502, Message: "backend down"}
	w := newTestWorkflow(t, client)

	_ = w.SelectDoctor(context.Background(), 7)
	if err := w.SelectDate(context.Background(), "2024-06-01"); err != nil {
		t.Fatalf("select date itself must not fail: %v", err)
	}

	snap := w.Snapshot()
	if snap.SlotStatus != SlotsFailed || snap.SlotError == "" {
		t.Fatalf("expected failed slot fetch, got %+v", snap)
	}

	// User-initiated retry succeeds once the backend recovers.
	client.mu.Lock()
	delete(client.slotErr, key(7, "2024-06-01"))
	client.slots[key(7, "2024-06-01")] = []string{"10:00"}
	client.mu.Unlock()

	if err := w.RefreshSlots(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if snap := w.Snapshot(); snap.SlotStatus != SlotsReady {
		t.Fatalf("expected ready after retry, got %+v", snap)
	}
}

func TestUnrecognizedEnvelopeIsUnavailableNotice(t *testing.T) {
	client := newFakeClient()
	client.slotErr[key(7, "2024-06-01")] = fmt.Errorf("GET slots: %w", upstream.ErrUnrecognizedEnvelope)
	w := newTestWorkflow(t, client)

	_ = w.SelectDoctor(context.Background(), 7)
	if err := w.SelectDate(context.Background(), "2024-06-01"); err != nil {
		t.Fatalf("select date: %v", err)
	}
	if snap := w.Snapshot(); snap.SlotStatus != SlotsUnavailable {
		t.Fatalf("expected SlotsUnavailable, got %+v", snap)
	}
}

func TestSelectSlotValidation(t *testing.T) {
	client := newFakeClient()
	client.slots[key(7, "2024-06-01")] = []string{"09:00"}
	w := newTestWorkflow(t, client)

	if err := w.SelectSlot("09:00"); !errors.Is(err, ErrSlotNotOffered) {
		t.Fatalf("expected ErrSlotNotOffered before any fetch, got %v", err)
	}

	_ = w.SelectDoctor(context.Background(), 7)
	_ = w.SelectDate(context.Background(), "2024-06-01")

	if err := w.SelectSlot("23:00"); !errors.Is(err, ErrSlotNotOffered) {
		t.Fatalf("expected ErrSlotNotOffered for unknown slot, got %v", err)
	}
	if err := w.SelectSlot("09:00"); err != nil {
		t.Fatalf("select offered slot: %v", err)
	}
	if snap := w.Snapshot(); snap.State != StateComposing {
		t.Fatalf("expected composing, got %s", snap.State)
	}
}

func TestSlotSelectionBlockedWhileLoading(t *testing.T) {
	client := newFakeClient()
	k := key(7, "2024-06-01")
	client.slots[k] = []string{"09:00"}
	client.gate[k] = make(chan struct{})
	w := newTestWorkflow(t, client)

	_ = w.SelectDoctor(context.Background(), 7)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.SelectDate(context.Background(), "2024-06-01")
	}()

	// Wait for the fetch to be in flight.
	waitFor(t, func() bool { return w.Snapshot().SlotStatus == SlotsLoading })

	if err := w.SelectSlot("09:00"); !errors.Is(err, ErrSlotsNotReady) {
		t.Fatalf("expected ErrSlotsNotReady while loading, got %v", err)
	}

	close(client.gate[k])
	<-done
	if err := w.SelectSlot("09:00"); err != nil {
		t.Fatalf("select after load: %v", err)
	}
}

// A slot response that resolves after a newer selection was made must be
// discarded, never applied over the fresher result.
func TestStaleSlotResponseDiscarded(t *testing.T) {
	client := newFakeClient()
	slow := key(7, "2024-06-01")
	fast := key(8, "2024-06-02")
	client.slots[slow] = []string{"09:00"} // request A, resolves late
	client.slots[fast] = []string{"14:00"} // request B, current selection
	client.gate[slow] = make(chan struct{})
	w := newTestWorkflow(t, client)

	_ = w.SelectDoctor(context.Background(), 7)

	aDone := make(chan struct{})
	go func() {
		defer close(aDone)
		_ = w.SelectDate(context.Background(), "2024-06-01")
	}()
	waitFor(t, func() bool { return w.Snapshot().SlotStatus == SlotsLoading })

	// Supersede request A with a new doctor and date.
	if err := w.SelectDoctor(context.Background(), 8); err != nil {
		t.Fatalf("select doctor: %v", err)
	}
	if err := w.SelectDate(context.Background(), "2024-06-02"); err != nil {
		t.Fatalf("select date: %v", err)
	}
	snap := w.Snapshot()
	if snap.SlotStatus != SlotsReady || len(snap.Slots) != 1 || snap.Slots[0] != "14:00" {
		t.Fatalf("expected request B's slots, got %+v", snap)
	}

	// Now let request A resolve; its result must be ignored.
	close(client.gate[slow])
	<-aDone

	snap = w.Snapshot()
	if len(snap.Slots) != 1 || snap.Slots[0] != "14:00" {
		t.Fatalf("stale response overwrote fresh slots: %+v", snap)
	}
	if snap.Draft.DoctorID != 8 || snap.Draft.Date != "2024-06-02" {
		t.Fatalf("draft corrupted by stale response: %+v", snap.Draft)
	}
}

func TestDoctorChangeInvalidatesDownstreamChoices(t *testing.T) {
	client := newFakeClient()
	client.slots[key(7, "2024-06-01")] = []string{"09:00"}
	client.slots[key(8, "2024-06-01")] = []string{"11:00"}
	w := newTestWorkflow(t, client)

	_ = w.SelectDoctor(context.Background(), 7)
	_ = w.SelectDate(context.Background(), "2024-06-01")
	_ = w.SelectSlot("09:00")

	if err := w.SelectDoctor(context.Background(), 8); err != nil {
		t.Fatalf("change doctor: %v", err)
	}
	snap := w.Snapshot()
	if snap.Draft.Slot != "" {
		t.Fatalf("expected chosen slot cleared, got %q", snap.Draft.Slot)
	}
	if snap.Draft.Date != "2024-06-01" {
		t.Fatalf("date should survive a doctor change, got %q", snap.Draft.Date)
	}
	if snap.SlotStatus != SlotsReady || snap.Slots[0] != "11:00" {
		t.Fatalf("expected refetched slots for new doctor, got %+v", snap)
	}
}

func TestSubmitValidatesBeforeNetwork(t *testing.T) {
	client := newFakeClient()
	w := newTestWorkflow(t, client)

	_, err := w.Submit(context.Background())
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(ve.Missing) != 4 {
		t.Fatalf("expected 4 missing fields, got %v", ve.Missing)
	}
	if len(client.booked) != 0 {
		t.Fatal("validation failure must not reach the network")
	}

	// Partial drafts also fail locally, listing what is absent.
	client.slots[key(7, "2024-06-01")] = []string{"09:00"}
	_ = w.SelectDoctor(context.Background(), 7)
	_ = w.SelectDate(context.Background(), "2024-06-01")
	_, err = w.Submit(context.Background())
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	for _, f := range ve.Missing {
		if f == "doctorId" || f == "date" {
			t.Fatalf("field %s is present, must not be reported missing", f)
		}
	}
	if len(client.booked) != 0 {
		t.Fatal("partial draft must not reach the network")
	}
}

func TestSetReasonRequiresText(t *testing.T) {
	w := newTestWorkflow(t, newFakeClient())
	if err := w.SetReason("   "); !errors.Is(err, ErrEmptyReason) {
		t.Fatalf("expected ErrEmptyReason, got %v", err)
	}
	if err := w.SetReason("checkup"); err != nil {
		t.Fatalf("set reason: %v", err)
	}
}

// End-to-end booking scenario: doctor 7, 2024-06-01, 09:00, "checkup".
func TestSubmitBuildsPayloadAndResets(t *testing.T) {
	client := newFakeClient()
	client.slots[key(7, "2024-06-01")] = []string{"09:00", "09:30"}
	w := newTestWorkflow(t, client)
	ctx := context.Background()

	if err := w.SelectDoctor(ctx, 7); err != nil {
		t.Fatalf("select doctor: %v", err)
	}
	if err := w.SelectDate(ctx, "2024-06-01"); err != nil {
		t.Fatalf("select date: %v", err)
	}
	if err := w.SelectSlot("09:00"); err != nil {
		t.Fatalf("select slot: %v", err)
	}
	if err := w.SetReason("checkup"); err != nil {
		t.Fatalf("set reason: %v", err)
	}

	appt, err := w.Submit(ctx)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if appt == nil || appt.Status != "SCHEDULED" {
		t.Fatalf("unexpected confirmation: %+v", appt)
	}

	want := upstream.BookingRequest{
		DoctorID:            7,
		PatientID:           "12",
		AppointmentDateTime: "2024-06-01T09:00:00",
		Type:                "CONSULTATION",
		Reason:              "checkup",
		Status:              "SCHEDULED",
	}
	if len(client.booked) != 1 || client.booked[0] != want {
		t.Fatalf("payload mismatch: got %+v want %+v", client.booked, want)
	}

	snap := w.Snapshot()
	if snap.State != StateSelectingDoctor {
		t.Fatalf("expected flow reset to %s, got %s", StateSelectingDoctor, snap.State)
	}
	if snap.Draft != (Draft{}) {
		t.Fatalf("expected empty draft after success, got %+v", snap.Draft)
	}
}

func TestSubmitFailurePreservesDraft(t *testing.T) {
	client := newFakeClient()
	client.slots[key(7, "2024-06-01")] = []string{"09:00"}
	client.bookErr = &upstream.RemoteError{Op: "POST /appointments", Status: 500, Message: "boom"}
	w := newTestWorkflow(t, client)
	ctx := context.Background()

	_ = w.SelectDoctor(ctx, 7)
	_ = w.SelectDate(ctx, "2024-06-01")
	_ = w.SelectSlot("09:00")
	_ = w.SetReason("checkup")

	_, err := w.Submit(ctx)
	if !upstream.IsRemote(err) {
		t.Fatalf("expected RemoteError, got %v", err)
	}

	snap := w.Snapshot()
	if snap.State != StateFailed {
		t.Fatalf("expected failed state, got %s", snap.State)
	}
	if snap.Draft.DoctorID != 7 || snap.Draft.Slot != "09:00" || snap.Draft.Reason != "checkup" {
		t.Fatalf("draft must survive a remote failure: %+v", snap.Draft)
	}

	// Retry without re-entering data.
	client.mu.Lock()
	client.bookErr = nil
	client.mu.Unlock()
	if _, err := w.Submit(ctx); err != nil {
		t.Fatalf("retry submit: %v", err)
	}
	if snap := w.Snapshot(); snap.State != StateSelectingDoctor {
		t.Fatalf("expected reset after successful retry, got %s", snap.State)
	}
}

func TestManagerSingleWorkflowPerClient(t *testing.T) {
	m := NewManager(newFakeClient(), fixedWindow(t), nil)
	sess := &session.Session{SubjectID: "12", Role: session.RolePatient, Token: "tok"}

	w1 := m.ForSession("client-1", sess)
	w2 := m.ForSession("client-1", sess)
	if w1 != w2 {
		t.Fatal("expected the same workflow for the same client")
	}

	other := m.ForSession("client-2", sess)
	if other == w1 {
		t.Fatal("expected distinct workflows per client")
	}

	m.Drop("client-1")
	if m.ForSession("client-1", sess) == w1 {
		t.Fatal("expected a fresh workflow after drop")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
