// Package auth performs the credential exchange and populates the session
// store. The stub authenticator reproduces the portal's placeholder policy;
// the remote one is the production swap against the backend's login
// endpoint. Both sit behind the same interface so nothing else changes
// when the policy does.
package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/vaishnavimodi30/healthsphere-portal/internal/session"
	"github.com/vaishnavimodi30/healthsphere-portal/pkg/logging"
)

// Authenticator exchanges credentials for a populated session.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*session.Session, error)
}

// AuthError is a failed credential exchange.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("auth: %s", e.Reason)
}

func (e *AuthError) Unwrap() error { return e.Err }

// Gateway runs the exchange and owns the session store side effect: a
// successful login writes exactly one session under a freshly minted
// client ID, a logout clears it.
type Gateway struct {
	authenticator Authenticator
	store         session.Store
	logger        *logging.Logger
}

// NewGateway creates an auth gateway.
func NewGateway(authenticator Authenticator, store session.Store, logger *logging.Logger) *Gateway {
	if logger == nil {
		logger = logging.Default()
	}
	return &Gateway{
		authenticator: authenticator,
		store:         store,
		logger:        logger.Component("auth"),
	}
}

// Login authenticates and persists the resulting session. The returned
// client ID identifies this client instance in the session store.
func (g *Gateway) Login(ctx context.Context, email, password string) (string, *session.Session, error) {
	sess, err := g.authenticator.Authenticate(ctx, email, password)
	if err != nil {
		g.logger.Warn("authentication failed", "email", email, "error", err)
		return "", nil, err
	}

	clientID := uuid.NewString()
	if err := g.store.Set(ctx, clientID, sess); err != nil {
		return "", nil, &AuthError{Reason: "failed to persist session", Err: err}
	}

	g.logger.Info("session established", "subject_id", sess.SubjectID, "role", sess.Role)
	return clientID, sess, nil
}

// Logout clears the active session for the client.
func (g *Gateway) Logout(ctx context.Context, clientID string) error {
	if err := g.store.Clear(ctx, clientID); err != nil {
		return &AuthError{Reason: "failed to clear session", Err: err}
	}
	g.logger.Info("session cleared", "client_id", clientID)
	return nil
}
