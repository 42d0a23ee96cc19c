package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/vaishnavimodi30/healthsphere-portal/internal/http/middleware"
	"github.com/vaishnavimodi30/healthsphere-portal/internal/session"
	"github.com/vaishnavimodi30/healthsphere-portal/internal/upstream"
	"github.com/vaishnavimodi30/healthsphere-portal/pkg/logging"
)

// AppointmentLister fetches appointment schedules from the backend.
type AppointmentLister interface {
	PatientAppointments(ctx context.Context, bearer, patientID string) ([]upstream.Appointment, error)
	DoctorAppointments(ctx context.Context, bearer, doctorID string) ([]upstream.Appointment, error)
}

// AppointmentsHandler serves the caller's appointment list. Patients see
// their own bookings, doctors see their schedule.
type AppointmentsHandler struct {
	appointments AppointmentLister
	clearSession func(ctx context.Context, clientID string)
	logger       *logging.Logger
}

// NewAppointmentsHandler creates an appointments handler.
func NewAppointmentsHandler(appointments AppointmentLister, clearSession func(ctx context.Context, clientID string), logger *logging.Logger) *AppointmentsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AppointmentsHandler{
		appointments: appointments,
		clearSession: clearSession,
		logger:       logger.Component("appointments_handler"),
	}
}

type appointmentsResponse struct {
	Appointments []upstream.Appointment `json:"appointments"`
	Notice       string                 `json:"notice,omitempty"`
}

// List handles GET /portal/appointments.
func (h *AppointmentsHandler) List(w http.ResponseWriter, r *http.Request) {
	cs, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		jsonError(w, "session required", http.StatusUnauthorized)
		return
	}

	var (
		appts []upstream.Appointment
		err   error
	)
	switch cs.Session.Role {
	case session.RolePatient:
		appts, err = h.appointments.PatientAppointments(r.Context(), cs.Session.Token, cs.Session.SubjectID)
	case session.RoleDoctor:
		appts, err = h.appointments.DoctorAppointments(r.Context(), cs.Session.Token, cs.Session.SubjectID)
	default:
		jsonError(w, "appointments are not available for this role", http.StatusForbidden)
		return
	}
	if err != nil {
		if errors.Is(err, upstream.ErrUnrecognizedEnvelope) {
			h.logger.Warn("appointment response unrecognized", "role", cs.Session.Role)
			writeJSON(w, http.StatusOK, appointmentsResponse{
				Appointments: []upstream.Appointment{},
				Notice:       "appointments are temporarily unavailable",
			})
			return
		}
		upstreamError(w, err, func() {
			h.clearSession(r.Context(), cs.ClientID)
		})
		return
	}

	if appts == nil {
		appts = []upstream.Appointment{}
	}
	writeJSON(w, http.StatusOK, appointmentsResponse{Appointments: appts})
}
