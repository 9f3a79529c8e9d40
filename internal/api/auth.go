// Package api implements the HTTP surface of the plan scoring service.
package api

import (
	"net/http"
	"strings"

	"planscore/internal/auth"
)

// Roles, from most to least privileged.
const (
	RoleAdmin   = "admin"
	RolePlanner = "planner"
	RoleViewer  = "viewer"
)

type Principal struct {
	Tenant  string
	Role    string // admin, planner, viewer
	Subject string
}

// getPrincipal extracts tenant and role from a bearer token or, failing
// that, from the X-Tenant-Id and X-Role headers. A token that is present but
// does not verify is an error.
func (s *Server) getPrincipal(r *http.Request) (Principal, error) {
	authz := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(authz), "bearer ") && s.Auth != nil {
		tok := strings.TrimSpace(authz[len("Bearer "):])
		pr, err := s.Auth.Verify(tok)
		if err != nil {
			return Principal{}, err
		}
		return Principal{Tenant: pr.Tenant, Role: pr.Role, Subject: pr.Subject}, nil
	}
	if s.Auth != nil && s.Auth.Mode != "dev" {
		return Principal{}, auth.ErrUnauthorized
	}
	tenant := r.Header.Get("X-Tenant-Id")
	role := r.Header.Get("X-Role")
	if tenant == "" {
		tenant = "t_demo"
	}
	if role == "" {
		role = RoleAdmin
	}
	return Principal{Tenant: tenant, Role: role}, nil
}

// IsAdmin reports whether the principal has the admin role.
func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// CanPlan reports whether the principal may start reschedule runs.
func (p Principal) CanPlan() bool { return p.Role == RoleAdmin || p.Role == RolePlanner }

// principal resolves the caller or writes a 401 and returns false.
func (s *Server) principal(w http.ResponseWriter, r *http.Request) (Principal, bool) {
	pr, err := s.getPrincipal(r)
	if err != nil {
		writeError(w, r, err)
		return Principal{}, false
	}
	return pr, true
}
