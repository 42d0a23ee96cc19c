package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/vaishnavimodi30/healthsphere-portal/internal/authz"
	"github.com/vaishnavimodi30/healthsphere-portal/internal/session"
	"github.com/vaishnavimodi30/healthsphere-portal/pkg/logging"
)

type contextKey string

const sessionContextKey contextKey = "portalSession"

// ClientSession is the authenticated caller attached to the request
// context.
type ClientSession struct {
	ClientID string
	Session  *session.Session
}

// SessionFromContext returns the authenticated session, if any.
func SessionFromContext(ctx context.Context) (*ClientSession, bool) {
	cs, ok := ctx.Value(sessionContextKey).(*ClientSession)
	return cs, ok
}

// WithSession attaches an authenticated session to a context.
func WithSession(ctx context.Context, cs *ClientSession) context.Context {
	return context.WithValue(ctx, sessionContextKey, cs)
}

// loadSession resolves the caller's session from the X-Client-Id header
// and the bearer token. A stored session whose token does not match the
// presented bearer reads as absent.
func loadSession(r *http.Request, store session.Store) *ClientSession {
	clientID := strings.TrimSpace(r.Header.Get("X-Client-Id"))
	auth := r.Header.Get("Authorization")
	if clientID == "" || !strings.HasPrefix(auth, "Bearer ") {
		return nil
	}
	bearer := strings.TrimPrefix(auth, "Bearer ")

	sess, err := store.Get(r.Context(), clientID)
	if err != nil || sess == nil {
		return nil
	}
	if sess.Token != bearer {
		return nil
	}
	return &ClientSession{ClientID: clientID, Session: sess}
}

// SessionAuth requires an authenticated session and attaches it to the
// request context. Unauthenticated callers get 401 with the login surface
// as redirect target.
func SessionAuth(store session.Store, logger *logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cs := loadSession(r, store)
			if cs == nil {
				writeRedirect(w, http.StatusUnauthorized, "/login")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), cs)))
		})
	}
}

// OptionalSession attaches the session when present but never rejects.
// The route resolver uses it: navigation decisions exist for logged-out
// callers too.
func OptionalSession(store session.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cs := loadSession(r, store); cs != nil {
				r = r.WithContext(WithSession(r.Context(), cs))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRoles gates a route group on the authorizer's rules. A session
// whose role is excluded is sent to its own dashboard, mirroring the
// portal's navigation behavior.
func RequireRoles(roles ...session.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cs, ok := SessionFromContext(r.Context())
			if !ok {
				writeRedirect(w, http.StatusUnauthorized, "/login")
				return
			}
			decision := authz.Authorize(cs.Session, authz.RouteRequest{
				Path:          r.URL.Path,
				RequiredRoles: roles,
			})
			if !decision.Allowed {
				status := http.StatusForbidden
				if decision.Redirect == "/login" {
					status = http.StatusUnauthorized
				}
				writeRedirect(w, status, decision.Redirect)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeRedirect(w http.ResponseWriter, status int, target string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"redirect": target})
}
