// Package session holds the authenticated identity for a portal client and
// the stores that persist it across reloads.
package session

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Role is the closed set of portal roles. An unrecognized role never
// decodes; it fails closed instead of defaulting.
type Role string

const (
	RolePatient Role = "PATIENT"
	RoleDoctor  Role = "DOCTOR"
	RoleAdmin   Role = "ADMIN"
)

// ParseRole maps a raw role string onto the closed enumeration.
func ParseRole(raw string) (Role, error) {
	switch Role(strings.ToUpper(strings.TrimSpace(raw))) {
	case RolePatient:
		return RolePatient, nil
	case RoleDoctor:
		return RoleDoctor, nil
	case RoleAdmin:
		return RoleAdmin, nil
	}
	return "", fmt.Errorf("session: unrecognized role %q", raw)
}

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleDoctor, RoleAdmin:
		return true
	}
	return false
}

// Dashboard returns the role's home surface, e.g. "/patient/dashboard".
func (r Role) Dashboard() string {
	return "/" + strings.ToLower(string(r)) + "/dashboard"
}

// UnmarshalJSON enforces the closed enumeration on decode.
func (r *Role) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseRole(raw)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Session is the authenticated identity and bearer credential for one
// portal client. Exactly one session is active per client at a time.
type Session struct {
	SubjectID   string    `json:"subjectId"`
	DisplayName string    `json:"displayName"`
	Role        Role      `json:"role"`
	Token       string    `json:"token"`
	IssuedAt    time.Time `json:"issuedAt"`
}

// Validate checks the invariants a stored session must hold.
func (s *Session) Validate() error {
	if s == nil {
		return fmt.Errorf("session: nil session")
	}
	if strings.TrimSpace(s.SubjectID) == "" {
		return fmt.Errorf("session: missing subject id")
	}
	if !s.Role.Valid() {
		return fmt.Errorf("session: unrecognized role %q", s.Role)
	}
	if strings.TrimSpace(s.Token) == "" {
		return fmt.Errorf("session: missing credential token")
	}
	return nil
}
