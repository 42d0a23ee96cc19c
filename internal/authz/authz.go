// Package authz decides, for a session and a requested surface, whether
// navigation is allowed or where it must redirect instead. Decisions are
// computed fresh on every navigation; nothing here is cached.
package authz

import (
	"strings"

	"github.com/vaishnavimodi30/healthsphere-portal/internal/session"
)

// RouteRequest is one navigation attempt: the requested path and the roles
// allowed to see it. An empty RequiredRoles set means any authenticated
// role may enter.
type RouteRequest struct {
	Path          string
	RequiredRoles []session.Role
}

// Decision is the outcome of authorizing a navigation.
type Decision struct {
	Allowed  bool
	Redirect string
}

// Allow is the decision that lets the navigation proceed.
var Allow = Decision{Allowed: true}

// RedirectTo builds a redirect decision.
func RedirectTo(target string) Decision {
	return Decision{Redirect: target}
}

const loginPath = "/login"

// Authorize applies the gating rules in order:
//  1. no session            -> redirect to /login
//  2. session on /login     -> redirect to the role's dashboard
//  3. role not in required  -> redirect to the role's dashboard
//  4. otherwise             -> allow
//
// A session with an invalid role is treated as no session (fail closed).
func Authorize(sess *session.Session, req RouteRequest) Decision {
	if sess == nil || !sess.Role.Valid() {
		return RedirectTo(loginPath)
	}
	if req.Path == loginPath {
		return RedirectTo(sess.Role.Dashboard())
	}
	if len(req.RequiredRoles) > 0 && !roleIn(sess.Role, req.RequiredRoles) {
		return RedirectTo(sess.Role.Dashboard())
	}
	return Allow
}

func roleIn(role session.Role, roles []session.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// route is one entry in the portal's navigation table.
type route struct {
	prefix string
	roles  []session.Role
}

// routes mirrors the portal's screen map: each role's surfaces require that
// role; /login and / are handled by the ordered rules above.
var routes = []route{
	{prefix: "/patient/", roles: []session.Role{session.RolePatient}},
	{prefix: "/doctor/", roles: []session.Role{session.RoleDoctor}},
	{prefix: "/admin/", roles: []session.Role{session.RoleAdmin}},
}

// Resolve maps a raw path onto the route table and authorizes it. Paths
// with no corresponding screen fall through to "/", which rule 1/2 turns
// into a concrete destination: /login without a session, the role's
// dashboard with one.
func Resolve(sess *session.Session, path string) Decision {
	path = strings.TrimSpace(path)
	if path == "" {
		path = "/"
	}

	if path == loginPath {
		return Authorize(sess, RouteRequest{Path: loginPath})
	}

	for _, r := range routes {
		if strings.HasPrefix(path, r.prefix) || path == strings.TrimSuffix(r.prefix, "/") {
			return Authorize(sess, RouteRequest{Path: path, RequiredRoles: r.roles})
		}
	}

	// Unmatched surface, including "/" itself.
	if sess == nil || !sess.Role.Valid() {
		return RedirectTo(loginPath)
	}
	return RedirectTo(sess.Role.Dashboard())
}
