// Package upstream is the typed client for the healthcare backend's REST
// contract under /api. The backend owns persistence and verification; this
// client owns transport, bearer auth, and response normalization.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vaishnavimodi30/healthsphere-portal/pkg/logging"
)

// Observer receives one measurement per backend call: a stable operation
// label, an outcome ("success", "auth_expired", "error"), and the elapsed
// seconds.
type Observer interface {
	ObserveUpstream(operation, outcome string, seconds float64)
}

// Client is an HTTP client for the healthcare backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
	observer   Observer
}

// ClientOption is a functional option for configuring the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *logging.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithObserver sets the per-call measurement sink.
func WithObserver(observer Observer) ClientOption {
	return func(c *Client) {
		c.observer = observer
	}
}

// NewClient creates a backend client. baseURL includes the /api prefix,
// e.g. "http://localhost:8080/api".
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logging.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// do performs one backend call and returns the raw response body. Bearer
// auth is attached when a token is present; a 401 maps to ErrAuthExpired
// regardless of endpoint. operation is the stable label reported to the
// observer; op carries the concrete method and path for error messages.
func (c *Client) do(ctx context.Context, operation, method, path, bearer string, payload any) ([]byte, error) {
	op := method + " " + path
	start := time.Now()
	observe := func(outcome string) {
		if c.observer != nil {
			c.observer.ObserveUpstream(operation, outcome, time.Since(start).Seconds())
		}
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("upstream: marshal %s request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("upstream: create %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		observe("error")
		return nil, &RemoteError{Op: op, Message: err.Error()}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		observe("error")
		return nil, &RemoteError{Op: op, Status: resp.StatusCode, Message: err.Error()}
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.logger.Warn("backend rejected credentials", "op", op)
		observe("auth_expired")
		return nil, ErrAuthExpired
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		observe("error")
		return nil, &RemoteError{Op: op, Status: resp.StatusCode, Message: remoteMessage(data)}
	}

	observe("success")
	return data, nil
}

// remoteMessage digs a human-readable message out of an error body.
func remoteMessage(data []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	msg := strings.TrimSpace(string(data))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}

// Login exchanges credentials with POST /auth/login and decodes the
// resulting token and user. An unknown role in the response is a decode
// failure, never a default.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	data, err := c.do(ctx, "login", http.MethodPost, "/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}

	var body struct {
		Token string `json:"token"`
		User  struct {
			ID        json.Number `json:"id"`
			Name      string      `json:"name"`
			FirstName string      `json:"firstName"`
			LastName  string      `json:"lastName"`
			Role      string      `json:"role"`
		} `json:"user"`
	}
	if err := json.Unmarshal(objectEnvelope(data), &body); err != nil {
		return nil, &RemoteError{Op: "POST /auth/login", Message: fmt.Sprintf("malformed login payload: %v", err)}
	}
	if body.Token == "" || body.User.ID.String() == "" {
		return nil, &RemoteError{Op: "POST /auth/login", Message: "login response missing token or user"}
	}

	name := body.User.Name
	if name == "" {
		name = strings.TrimSpace(body.User.FirstName + " " + body.User.LastName)
	}

	return &LoginResult{
		Token:       body.Token,
		SubjectID:   body.User.ID.String(),
		DisplayName: name,
		Role:        body.User.Role,
	}, nil
}

// ListDoctors fetches the doctor directory via GET /doctors. The result is
// normalized from any of the known envelopes; ErrUnrecognizedEnvelope means
// "directory unavailable", not a remote failure.
func (c *Client) ListDoctors(ctx context.Context, bearer string) ([]DoctorSummary, error) {
	data, err := c.do(ctx, "list_doctors", http.MethodGet, "/doctors", bearer, nil)
	if err != nil {
		return nil, err
	}
	doctors, err := decodeList[DoctorSummary]("GET /doctors", data, "doctors")
	if err != nil {
		return nil, err
	}
	c.logger.Debug("doctor directory fetched", "count", len(doctors))
	return doctors, nil
}

// AvailableSlots fetches bookable times for a doctor and date via
// GET /appointments/available-slots. An empty list is a valid result
// ("no openings"), distinct from any error.
func (c *Client) AvailableSlots(ctx context.Context, bearer string, doctorID ID, date string) ([]string, error) {
	q := url.Values{}
	q.Set("doctorId", fmt.Sprintf("%d", doctorID))
	q.Set("date", date)

	data, err := c.do(ctx, "available_slots", http.MethodGet, "/appointments/available-slots?"+q.Encode(), bearer, nil)
	if err != nil {
		return nil, err
	}
	slots, err := decodeList[string]("GET /appointments/available-slots", data, "availableSlots", "slots")
	if err != nil {
		return nil, err
	}
	c.logger.Debug("available slots fetched", "doctor_id", doctorID, "date", date, "count", len(slots))
	return slots, nil
}

// BookAppointment submits a completed booking via POST /appointments.
func (c *Client) BookAppointment(ctx context.Context, bearer string, req BookingRequest) (*Appointment, error) {
	data, err := c.do(ctx, "book_appointment", http.MethodPost, "/appointments", bearer, req)
	if err != nil {
		return nil, err
	}
	var appt Appointment
	if err := json.Unmarshal(objectEnvelope(data), &appt); err != nil {
		// The booking succeeded even if the confirmation body is odd.
		c.logger.Warn("booking confirmation did not decode", "error", err)
		return &Appointment{
			DoctorID:            req.DoctorID,
			PatientID:           req.PatientID,
			AppointmentDateTime: req.AppointmentDateTime,
			Type:                req.Type,
			Reason:              req.Reason,
			Status:              req.Status,
		}, nil
	}
	return &appt, nil
}

// PatientAppointments lists a patient's appointments.
func (c *Client) PatientAppointments(ctx context.Context, bearer, patientID string) ([]Appointment, error) {
	data, err := c.do(ctx, "patient_appointments", http.MethodGet, "/appointments/patient/"+url.PathEscape(patientID), bearer, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[Appointment]("GET /appointments/patient", data, "appointments")
}

// DoctorAppointments lists a doctor's appointments.
func (c *Client) DoctorAppointments(ctx context.Context, bearer, doctorID string) ([]Appointment, error) {
	data, err := c.do(ctx, "doctor_appointments", http.MethodGet, "/appointments/doctor/"+url.PathEscape(doctorID), bearer, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[Appointment]("GET /appointments/doctor", data, "appointments")
}

// PatientMedicalRecords lists a patient's medical records for the read-only
// record viewer.
func (c *Client) PatientMedicalRecords(ctx context.Context, bearer, patientID string) ([]MedicalRecord, error) {
	data, err := c.do(ctx, "patient_records", http.MethodGet, "/medical-records/patient/"+url.PathEscape(patientID), bearer, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[MedicalRecord]("GET /medical-records/patient", data, "records", "medicalRecords")
}
