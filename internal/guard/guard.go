// Package guard decides page admission from the current session and a route
// requirement. Decide is pure: it performs no I/O and does not verify token
// cryptography, which belongs to the auth middleware.
package guard

import (
	"net/url"
	"time"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// Requirement classifies routes by who may enter.
type Requirement string

const (
	Public               Requirement = "public"
	Authenticated        Requirement = "authenticated"
	AuthenticatedCitizen Requirement = "authenticated-citizen"
	AuthenticatedAdmin   Requirement = "authenticated-admin"
)

// Redirect targets for denied admissions.
const (
	LoginPath   = "/login"
	CitizenHome = "/dashboard"
	AdminHome   = "/admin"
)

// Decision is the outcome of an admission check.
type Decision struct {
	Allow      bool
	RedirectTo string
}

func allow() Decision {
	return Decision{Allow: true}
}

func redirect(path string) Decision {
	return Decision{RedirectTo: path}
}

// LoginRedirect builds the login path preserving the intended destination.
func LoginRedirect(intended string) string {
	if intended == "" {
		return LoginPath
	}
	return LoginPath + "?next=" + url.QueryEscape(intended)
}

// Decide maps (session, requirement) to an admission decision. Rules are
// evaluated in order: unauthenticated access to a non-public route redirects
// to login with the intended destination preserved; role mismatches redirect
// to the home page of the caller's actual role; everything else is allowed.
func Decide(session *domain.Session, requirement Requirement, intended string) Decision {
	valid := session != nil && !session.Expired(time.Now())

	if !valid {
		if requirement == Public {
			return allow()
		}
		return redirect(LoginRedirect(intended))
	}

	if requirement == AuthenticatedAdmin && session.Role != domain.RoleAdmin {
		return redirect(CitizenHome)
	}
	if requirement == AuthenticatedCitizen && session.Role == domain.RoleAdmin {
		return redirect(AdminHome)
	}
	return allow()
}
