package guard

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-service/internal/domain"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

const sessionKey = "guard_session"

// StoreSession places the authenticated session into the request context.
// Only the auth middleware calls this.
func StoreSession(c *fiber.Ctx, session *domain.Session) {
	c.Locals(sessionKey, session)
}

// SessionFromContext retrieves the session placed by the auth middleware.
func SessionFromContext(c *fiber.Ctx) *domain.Session {
	val := c.Locals(sessionKey)
	if val == nil {
		return nil
	}
	session, ok := val.(*domain.Session)
	if !ok {
		return nil
	}
	return session
}

// Require enforces the route requirement, translating a redirect decision
// into the matching API error so the client can navigate.
func Require(requirement Requirement) fiber.Handler {
	return func(c *fiber.Ctx) error {
		decision := Decide(SessionFromContext(c), requirement, c.Path())
		if decision.Allow {
			return c.Next()
		}
		if decision.RedirectTo == CitizenHome || decision.RedirectTo == AdminHome {
			return apperrors.NewForbiddenRedirect("role not permitted for this route", decision.RedirectTo)
		}
		return apperrors.NewUnauthenticatedRedirect("authentication required", decision.RedirectTo)
	}
}
