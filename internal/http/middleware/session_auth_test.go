package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vaishnavimodi30/healthsphere-portal/internal/session"
)

func seededStore(t *testing.T) session.Store {
	t.Helper()
	store := session.NewMemoryStore()
	err := store.Set(context.Background(), "client-1", &session.Session{
		SubjectID:   "12",
		DisplayName: "Pat",
		Role:        session.RolePatient,
		Token:       "tok-1",
	})
	if err != nil {
		t.Fatalf("seed store: %v", err)
	}
	return store
}

func authedRequest(path string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("X-Client-Id", "client-1")
	req.Header.Set("Authorization", "Bearer tok-1")
	return req
}

func decodeRedirect(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode redirect body: %v", err)
	}
	return body["redirect"]
}

func TestSessionAuthAttachesSession(t *testing.T) {
	var got *ClientSession
	handler := SessionAuth(seededStore(t), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = SessionFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest("/portal/doctors"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got == nil || got.ClientID != "client-1" || got.Session.SubjectID != "12" {
		t.Fatalf("unexpected context session: %+v", got)
	}
}

func TestSessionAuthRejectsMissingOrMismatchedCredentials(t *testing.T) {
	store := seededStore(t)
	handler := SessionAuth(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run without a session")
	}))

	tests := []struct {
		name  string
		setup func(*http.Request)
	}{
		{"no headers", func(r *http.Request) {
			r.Header.Del("X-Client-Id")
			r.Header.Del("Authorization")
		}},
		{"unknown client", func(r *http.Request) { r.Header.Set("X-Client-Id", "nope") }},
		{"wrong bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer other") }},
		{"malformed authorization", func(r *http.Request) { r.Header.Set("Authorization", "tok-1") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := authedRequest("/portal/doctors")
			tt.setup(req)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
			if target := decodeRedirect(t, rec); target != "/login" {
				t.Fatalf("expected /login redirect, got %q", target)
			}
		})
	}
}

func TestRequireRolesRedirectsExcludedRole(t *testing.T) {
	store := seededStore(t)
	handler := SessionAuth(store, nil)(
		RequireRoles(session.RoleDoctor)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("patient must not reach a doctor route")
		})),
	)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest("/portal/appointments"))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if target := decodeRedirect(t, rec); target != "/patient/dashboard" {
		t.Fatalf("expected role home redirect, got %q", target)
	}
}

func TestRequireRolesAllowsMatchingRole(t *testing.T) {
	store := seededStore(t)
	ran := false
	handler := SessionAuth(store, nil)(
		RequireRoles(session.RolePatient)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ran = true
		})),
	)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest("/portal/booking"))

	if rec.Code != http.StatusOK || !ran {
		t.Fatalf("expected handler to run, status %d ran %v", rec.Code, ran)
	}
}

func TestOptionalSessionNeverRejects(t *testing.T) {
	store := seededStore(t)
	var hadSession bool
	handler := OptionalSession(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hadSession = SessionFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/portal/routes/resolve", nil))
	if rec.Code != http.StatusOK || hadSession {
		t.Fatalf("expected anonymous pass-through, status %d hadSession %v", rec.Code, hadSession)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest("/portal/routes/resolve"))
	if rec.Code != http.StatusOK || !hadSession {
		t.Fatalf("expected session attached, status %d hadSession %v", rec.Code, hadSession)
	}
}
