// Package guard decides whether a route may render for the current session.
package guard

import (
	"strings"

	"loan-console/internal/core/domain"
)

// Routes
const (
	RouteLogin             = "/login"
	RouteSignup            = "/signup"
	RouteAdminDashboard    = "/admin-dashboard"
	RouteVerifierDashboard = "/verifier-dashboard"
	RouteUserDashboard     = "/user-dashboard"
	RouteUserForm          = "/user-form"
)

// Outcome is what the caller should do with a route
type Outcome int

const (
	Render Outcome = iota
	Redirect
	Placeholder
)

func (o Outcome) String() string {
	switch o {
	case Render:
		return "render"
	case Redirect:
		return "redirect"
	default:
		return "placeholder"
	}
}

// Decision is the guard's verdict for one navigation
type Decision struct {
	Outcome Outcome
	Target  string
}

// protected lists the roles allowed on each guarded route
var protected = map[string][]domain.Role{
	RouteAdminDashboard:    {domain.RoleAdmin},
	RouteVerifierDashboard: {domain.RoleVerifier, domain.RoleAdmin},
	RouteUserDashboard:     {domain.RoleUser},
	RouteUserForm:          {domain.RoleUser},
}

// HomeFor returns the landing route of a role
func HomeFor(role domain.Role) string {
	switch role {
	case domain.RoleAdmin:
		return RouteAdminDashboard
	case domain.RoleVerifier:
		return RouteVerifierDashboard
	default:
		return RouteUserDashboard
	}
}

// IsAuthForm reports whether route is the login or signup form
func IsAuthForm(route string) bool {
	route = normalize(route)
	return route == RouteLogin || route == RouteSignup
}

// IsProtected reports whether route requires a session
func IsProtected(route string) bool {
	_, ok := protected[normalize(route)]
	return ok
}

// Allowed reports whether role may open route
func Allowed(route string, role domain.Role) bool {
	for _, r := range protected[normalize(route)] {
		if r == role {
			return true
		}
	}
	return false
}

// Evaluate applies the routing rules to route for state
func Evaluate(route string, state domain.SessionState) Decision {
	if state.Phase == domain.PhaseLoading {
		return Decision{Outcome: Placeholder}
	}
	route = normalize(route)
	authed := state.IsAuthenticated()

	switch {
	case IsAuthForm(route):
		if authed {
			return Decision{Outcome: Redirect, Target: HomeFor(state.User.Role)}
		}
		return Decision{Outcome: Render}
	case IsProtected(route):
		if !authed {
			return Decision{Outcome: Redirect, Target: RouteLogin}
		}
		if !Allowed(route, state.User.Role) {
			return Decision{Outcome: Redirect, Target: HomeFor(state.User.Role)}
		}
		return Decision{Outcome: Render}
	default:
		if authed {
			return Decision{Outcome: Redirect, Target: HomeFor(state.User.Role)}
		}
		return Decision{Outcome: Redirect, Target: RouteLogin}
	}
}

// normalize reduces a path to its first segment, so sub-routes share the
// rules of their dashboard
func normalize(route string) string {
	if i := strings.IndexAny(route, "?#"); i >= 0 {
		route = route[:i]
	}
	route = strings.Trim(route, "/")
	if i := strings.IndexByte(route, '/'); i >= 0 {
		route = route[:i]
	}
	return "/" + strings.ToLower(route)
}
