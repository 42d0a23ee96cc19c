package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/vaishnavimodi30/healthsphere-portal/internal/auth"
	"github.com/vaishnavimodi30/healthsphere-portal/internal/http/middleware"
	"github.com/vaishnavimodi30/healthsphere-portal/internal/observability/metrics"
	"github.com/vaishnavimodi30/healthsphere-portal/internal/scheduling"
	"github.com/vaishnavimodi30/healthsphere-portal/pkg/logging"
)

// AuthHandler serves login, logout, and the current-session view.
type AuthHandler struct {
	gateway   *auth.Gateway
	workflows *scheduling.Manager
	metrics   *metrics.PortalMetrics
	logger    *logging.Logger
}

// NewAuthHandler creates an auth handler.
func NewAuthHandler(gateway *auth.Gateway, workflows *scheduling.Manager, m *metrics.PortalMetrics, logger *logging.Logger) *AuthHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AuthHandler{
		gateway:   gateway,
		workflows: workflows,
		metrics:   m,
		logger:    logger.Component("auth_handler"),
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionView struct {
	SubjectID   string `json:"subjectId"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
}

type loginResponse struct {
	ClientID string      `json:"clientId"`
	Token    string      `json:"token"`
	User     sessionView `json:"user"`
	Redirect string      `json:"redirect"`
}

// Login handles POST /portal/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "malformed login request", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		jsonError(w, "email and password are required", http.StatusBadRequest)
		return
	}

	clientID, sess, err := h.gateway.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.metrics.ObserveLogin("unknown", "failed")
		jsonError(w, "authentication failed", http.StatusUnauthorized)
		return
	}
	h.metrics.ObserveLogin(string(sess.Role), "success")

	writeJSON(w, http.StatusOK, loginResponse{
		ClientID: clientID,
		Token:    sess.Token,
		User: sessionView{
			SubjectID:   sess.SubjectID,
			DisplayName: sess.DisplayName,
			Role:        string(sess.Role),
		},
		Redirect: sess.Role.Dashboard(),
	})
}

// Logout handles POST /portal/auth/logout: clears the session and drops
// the client's booking workflow.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cs, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		jsonError(w, "not logged in", http.StatusUnauthorized)
		return
	}
	if err := h.gateway.Logout(r.Context(), cs.ClientID); err != nil {
		h.logger.Error("logout failed", "client_id", cs.ClientID, "error", err)
		jsonError(w, "logout failed", http.StatusInternalServerError)
		return
	}
	if h.workflows != nil {
		h.workflows.Drop(cs.ClientID)
	}
	writeJSON(w, http.StatusOK, map[string]string{"redirect": "/login"})
}

// Me handles GET /portal/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	cs, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		jsonError(w, "not logged in", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, sessionView{
		SubjectID:   cs.Session.SubjectID,
		DisplayName: cs.Session.DisplayName,
		Role:        string(cs.Session.Role),
	})
}
