package auth

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vaishnavimodi30/healthsphere-portal/internal/session"
)

// StubAuthenticator reproduces the portal's placeholder login policy: it
// never rejects, classifies the role by inspecting the email string, and
// resolves after a fixed simulated delay. It stands in for a verified
// exchange until the backend's login endpoint is wired in; only the
// Authenticator wiring changes when that happens.
type StubAuthenticator struct {
	secret   []byte
	delay    time.Duration
	tokenTTL time.Duration
	now      func() time.Time
}

// NewStubAuthenticator creates the placeholder authenticator. The secret
// signs the minted bearer token.
func NewStubAuthenticator(secret string, delay, tokenTTL time.Duration) *StubAuthenticator {
	return &StubAuthenticator{
		secret:   []byte(secret),
		delay:    delay,
		tokenTTL: tokenTTL,
		now:      time.Now,
	}
}

// classifyRole applies the placeholder policy: a case-sensitive substring
// match for "doctor" then "admin"; neither means Patient.
func classifyRole(email string) session.Role {
	if strings.Contains(email, "doctor") {
		return session.RoleDoctor
	}
	if strings.Contains(email, "admin") {
		return session.RoleAdmin
	}
	return session.RolePatient
}

// displayName derives a readable name from the email's local part.
func displayName(email string) string {
	local := email
	if at := strings.Index(email, "@"); at > 0 {
		local = email[:at]
	}
	local = strings.NewReplacer(".", " ", "_", " ", "-", " ").Replace(local)
	parts := strings.Fields(local)
	if len(parts) == 0 {
		return "Portal User"
	}
	for i, p := range parts {
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}

// Authenticate always succeeds after the configured delay.
func (a *StubAuthenticator) Authenticate(ctx context.Context, email, _ string) (*session.Session, error) {
	if a.delay > 0 {
		timer := time.NewTimer(a.delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, &AuthError{Reason: "login cancelled", Err: ctx.Err()}
		}
	}

	role := classifyRole(email)
	issuedAt := a.now()
	subjectID := strings.ToLower(strings.TrimSpace(email))
	if subjectID == "" {
		subjectID = "anonymous"
	}

	claims := jwt.MapClaims{
		"sub":  subjectID,
		"name": displayName(email),
		"role": string(role),
		"iat":  issuedAt.Unix(),
		"exp":  issuedAt.Add(a.tokenTTL).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return nil, &AuthError{Reason: "failed to sign token", Err: err}
	}

	return &session.Session{
		SubjectID:   subjectID,
		DisplayName: displayName(email),
		Role:        role,
		Token:       token,
		IssuedAt:    issuedAt,
	}, nil
}
