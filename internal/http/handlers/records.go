package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/vaishnavimodi30/healthsphere-portal/internal/http/middleware"
	"github.com/vaishnavimodi30/healthsphere-portal/internal/upstream"
	"github.com/vaishnavimodi30/healthsphere-portal/pkg/logging"
)

// RecordLister fetches a patient's medical record history.
type RecordLister interface {
	PatientMedicalRecords(ctx context.Context, bearer, patientID string) ([]upstream.MedicalRecord, error)
}

// RecordsHandler serves the patient's medical record view.
type RecordsHandler struct {
	records      RecordLister
	clearSession func(ctx context.Context, clientID string)
	logger       *logging.Logger
}

// NewRecordsHandler creates a records handler.
func NewRecordsHandler(records RecordLister, clearSession func(ctx context.Context, clientID string), logger *logging.Logger) *RecordsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &RecordsHandler{
		records:      records,
		clearSession: clearSession,
		logger:       logger.Component("records_handler"),
	}
}

type recordsResponse struct {
	Records []upstream.MedicalRecord `json:"records"`
	Notice  string                   `json:"notice,omitempty"`
}

// List handles GET /portal/records.
func (h *RecordsHandler) List(w http.ResponseWriter, r *http.Request) {
	cs, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		jsonError(w, "session required", http.StatusUnauthorized)
		return
	}

	records, err := h.records.PatientMedicalRecords(r.Context(), cs.Session.Token, cs.Session.SubjectID)
	if err != nil {
		if errors.Is(err, upstream.ErrUnrecognizedEnvelope) {
			h.logger.Warn("medical record response unrecognized")
			writeJSON(w, http.StatusOK, recordsResponse{
				Records: []upstream.MedicalRecord{},
				Notice:  "medical records are temporarily unavailable",
			})
			return
		}
		upstreamError(w, err, func() {
			h.clearSession(r.Context(), cs.ClientID)
		})
		return
	}

	if records == nil {
		records = []upstream.MedicalRecord{}
	}
	writeJSON(w, http.StatusOK, recordsResponse{Records: records})
}
