package auth

import (
	"context"
	"errors"
	"time"

	"github.com/vaishnavimodi30/healthsphere-portal/internal/session"
	"github.com/vaishnavimodi30/healthsphere-portal/internal/upstream"
)

// LoginClient is the slice of the backend client the remote authenticator
// needs.
type LoginClient interface {
	Login(ctx context.Context, email, password string) (*upstream.LoginResult, error)
}

// RemoteAuthenticator exchanges credentials with the backend's login
// endpoint. This is the verified replacement for the stub policy; a role
// the portal does not recognize fails the exchange instead of defaulting.
type RemoteAuthenticator struct {
	client LoginClient
	now    func() time.Time
}

// NewRemoteAuthenticator creates a backend-verified authenticator.
func NewRemoteAuthenticator(client LoginClient) *RemoteAuthenticator {
	return &RemoteAuthenticator{client: client, now: time.Now}
}

// Authenticate performs the credential exchange.
func (a *RemoteAuthenticator) Authenticate(ctx context.Context, email, password string) (*session.Session, error) {
	res, err := a.client.Login(ctx, email, password)
	if err != nil {
		if errors.Is(err, upstream.ErrAuthExpired) {
			return nil, &AuthError{Reason: "invalid credentials"}
		}
		return nil, &AuthError{Reason: "credential exchange failed", Err: err}
	}

	role, err := session.ParseRole(res.Role)
	if err != nil {
		return nil, &AuthError{Reason: "backend returned an unrecognized role", Err: err}
	}

	name := res.DisplayName
	if name == "" {
		name = displayName(email)
	}

	return &session.Session{
		SubjectID:   res.SubjectID,
		DisplayName: name,
		Role:        role,
		Token:       res.Token,
		IssuedAt:    a.now(),
	}, nil
}
