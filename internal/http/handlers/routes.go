package handlers

import (
	"net/http"

	"github.com/vaishnavimodi30/healthsphere-portal/internal/authz"
	"github.com/vaishnavimodi30/healthsphere-portal/internal/http/middleware"
	"github.com/vaishnavimodi30/healthsphere-portal/internal/session"
)

// RoutesHandler resolves navigation requests for the UI shell.
type RoutesHandler struct{}

// NewRoutesHandler creates a routes handler.
func NewRoutesHandler() *RoutesHandler {
	return &RoutesHandler{}
}

type resolveResponse struct {
	Allowed  bool   `json:"allowed"`
	Redirect string `json:"redirect,omitempty"`
}

// Resolve handles GET /portal/routes/resolve?path=. The decision is
// computed fresh on every call against whatever session the caller
// currently holds.
func (h *RoutesHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")

	var sess *session.Session
	if cs, ok := middleware.SessionFromContext(r.Context()); ok {
		sess = cs.Session
	}

	decision := authz.Resolve(sess, path)
	writeJSON(w, http.StatusOK, resolveResponse{
		Allowed:  decision.Allowed,
		Redirect: decision.Redirect,
	})
}
