package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vaishnavimodi30/healthsphere-portal/internal/http/middleware"
	"github.com/vaishnavimodi30/healthsphere-portal/internal/observability/metrics"
	"github.com/vaishnavimodi30/healthsphere-portal/internal/scheduling"
	"github.com/vaishnavimodi30/healthsphere-portal/internal/upstream"
	"github.com/vaishnavimodi30/healthsphere-portal/pkg/logging"
)

// BookingHandler drives the appointment booking workflow. Every request is
// routed to the caller's own workflow instance, keyed by client id.
type BookingHandler struct {
	workflows    *scheduling.Manager
	metrics      *metrics.PortalMetrics
	clearSession func(ctx context.Context, clientID string)
	logger       *logging.Logger
}

// NewBookingHandler creates a booking handler.
func NewBookingHandler(workflows *scheduling.Manager, pm *metrics.PortalMetrics, clearSession func(ctx context.Context, clientID string), logger *logging.Logger) *BookingHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &BookingHandler{
		workflows:    workflows,
		metrics:      pm,
		clearSession: clearSession,
		logger:       logger.Component("booking_handler"),
	}
}

func (h *BookingHandler) workflow(r *http.Request) (*scheduling.Workflow, *middleware.ClientSession, bool) {
	cs, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		return nil, nil, false
	}
	return h.workflows.ForSession(cs.ClientID, cs.Session), cs, true
}

// State handles GET /portal/booking.
func (h *BookingHandler) State(w http.ResponseWriter, r *http.Request) {
	wf, _, ok := h.workflow(r)
	if !ok {
		jsonError(w, "session required", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, wf.Snapshot())
}

// SelectDoctor handles POST /portal/booking/doctor.
func (h *BookingHandler) SelectDoctor(w http.ResponseWriter, r *http.Request) {
	wf, cs, ok := h.workflow(r)
	if !ok {
		jsonError(w, "session required", http.StatusUnauthorized)
		return
	}
	var body struct {
		DoctorID upstream.ID `json:"doctorId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if body.DoctorID == 0 {
		jsonError(w, "doctorId is required", http.StatusBadRequest)
		return
	}
	h.step(w, r, cs, wf, wf.SelectDoctor(r.Context(), body.DoctorID))
}

// SelectDate handles POST /portal/booking/date.
func (h *BookingHandler) SelectDate(w http.ResponseWriter, r *http.Request) {
	wf, cs, ok := h.workflow(r)
	if !ok {
		jsonError(w, "session required", http.StatusUnauthorized)
		return
	}
	var body struct {
		Date string `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if body.Date == "" {
		jsonError(w, "date is required", http.StatusBadRequest)
		return
	}
	h.step(w, r, cs, wf, wf.SelectDate(r.Context(), body.Date))
}

// RefreshSlots handles POST /portal/booking/slots/refresh.
func (h *BookingHandler) RefreshSlots(w http.ResponseWriter, r *http.Request) {
	wf, cs, ok := h.workflow(r)
	if !ok {
		jsonError(w, "session required", http.StatusUnauthorized)
		return
	}
	h.step(w, r, cs, wf, wf.RefreshSlots(r.Context()))
}

// SelectSlot handles POST /portal/booking/slot.
func (h *BookingHandler) SelectSlot(w http.ResponseWriter, r *http.Request) {
	wf, cs, ok := h.workflow(r)
	if !ok {
		jsonError(w, "session required", http.StatusUnauthorized)
		return
	}
	var body struct {
		Slot string `json:"slot"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	h.step(w, r, cs, wf, wf.SelectSlot(body.Slot))
}

// SetReason handles POST /portal/booking/reason.
func (h *BookingHandler) SetReason(w http.ResponseWriter, r *http.Request) {
	wf, cs, ok := h.workflow(r)
	if !ok {
		jsonError(w, "session required", http.StatusUnauthorized)
		return
	}
	var body struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	h.step(w, r, cs, wf, wf.SetReason(body.Reason))
}

// Submit handles POST /portal/booking/submit.
func (h *BookingHandler) Submit(w http.ResponseWriter, r *http.Request) {
	wf, cs, ok := h.workflow(r)
	if !ok {
		jsonError(w, "session required", http.StatusUnauthorized)
		return
	}

	appt, err := wf.Submit(r.Context())
	if err != nil {
		var vErr *scheduling.ValidationError
		if errors.As(err, &vErr) {
			h.metrics.ObserveBooking("invalid")
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":         "booking draft is incomplete",
				"missingFields": vErr.Missing,
				"snapshot":      wf.Snapshot(),
			})
			return
		}
		if status := guardStatus(err); status != 0 {
			h.metrics.ObserveBooking("invalid")
			writeJSON(w, status, map[string]any{
				"error":    err.Error(),
				"snapshot": wf.Snapshot(),
			})
			return
		}
		h.metrics.ObserveBooking("failure")
		h.logger.Warn("booking submission failed", "client_id", cs.ClientID, "error", err)
		upstreamError(w, err, func() {
			h.clearSession(r.Context(), cs.ClientID)
		})
		return
	}

	h.metrics.ObserveBooking("success")
	writeJSON(w, http.StatusCreated, map[string]any{
		"appointment": appt,
		"snapshot":    wf.Snapshot(),
	})
}

// Reset handles POST /portal/booking/reset.
func (h *BookingHandler) Reset(w http.ResponseWriter, r *http.Request) {
	wf, _, ok := h.workflow(r)
	if !ok {
		jsonError(w, "session required", http.StatusUnauthorized)
		return
	}
	wf.Reset()
	writeJSON(w, http.StatusOK, wf.Snapshot())
}

// step writes the workflow snapshot after a mutation, mapping guard errors
// to client-fault statuses and upstream errors through the shared mapper.
func (h *BookingHandler) step(w http.ResponseWriter, r *http.Request, cs *middleware.ClientSession, wf *scheduling.Workflow, err error) {
	if err != nil {
		if status := guardStatus(err); status != 0 {
			writeJSON(w, status, map[string]any{
				"error":    err.Error(),
				"snapshot": wf.Snapshot(),
			})
			return
		}
		upstreamError(w, err, func() {
			h.clearSession(r.Context(), cs.ClientID)
		})
		return
	}
	writeJSON(w, http.StatusOK, wf.Snapshot())
}

// guardStatus maps the workflow's guard errors onto HTTP statuses.
// It returns 0 for errors that are not workflow guards.
func guardStatus(err error) int {
	switch {
	case errors.Is(err, scheduling.ErrNoDoctor),
		errors.Is(err, scheduling.ErrDateOutOfWindow),
		errors.Is(err, scheduling.ErrSlotNotOffered),
		errors.Is(err, scheduling.ErrEmptyReason):
		return http.StatusUnprocessableEntity
	case errors.Is(err, scheduling.ErrSlotsNotReady),
		errors.Is(err, scheduling.ErrBusy):
		return http.StatusConflict
	default:
		return 0
	}
}
