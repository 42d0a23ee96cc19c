package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/vaishnavimodi30/healthsphere-portal/internal/http/middleware"
	"github.com/vaishnavimodi30/healthsphere-portal/internal/upstream"
	"github.com/vaishnavimodi30/healthsphere-portal/pkg/logging"
)

// DoctorLister fetches the published doctor directory.
type DoctorLister interface {
	ListDoctors(ctx context.Context, bearer string) ([]upstream.DoctorSummary, error)
}

// DirectoryHandler serves the doctor directory used by the booking flow.
type DirectoryHandler struct {
	doctors      DoctorLister
	clearSession func(ctx context.Context, clientID string)
	logger       *logging.Logger
}

// NewDirectoryHandler creates a directory handler. clearSession is invoked
// when the upstream reports the caller's credentials are no longer valid.
func NewDirectoryHandler(doctors DoctorLister, clearSession func(ctx context.Context, clientID string), logger *logging.Logger) *DirectoryHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &DirectoryHandler{
		doctors:      doctors,
		clearSession: clearSession,
		logger:       logger.Component("directory_handler"),
	}
}

type doctorsResponse struct {
	Doctors []upstream.DoctorSummary `json:"doctors"`
	Notice  string                   `json:"notice,omitempty"`
}

// List handles GET /portal/doctors.
func (h *DirectoryHandler) List(w http.ResponseWriter, r *http.Request) {
	cs, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		jsonError(w, "session required", http.StatusUnauthorized)
		return
	}

	doctors, err := h.doctors.ListDoctors(r.Context(), cs.Session.Token)
	if err != nil {
		if errors.Is(err, upstream.ErrUnrecognizedEnvelope) {
			// The directory service answered in a shape we do not
			// understand. That is a degraded directory, not a failure
			// of the caller's request.
			h.logger.Warn("doctor directory response unrecognized")
			writeJSON(w, http.StatusOK, doctorsResponse{
				Doctors: []upstream.DoctorSummary{},
				Notice:  "doctor directory is temporarily unavailable",
			})
			return
		}
		upstreamError(w, err, func() {
			h.clearSession(r.Context(), cs.ClientID)
		})
		return
	}

	if doctors == nil {
		doctors = []upstream.DoctorSummary{}
	}
	writeJSON(w, http.StatusOK, doctorsResponse{Doctors: doctors})
}
