package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/guard"
	"github.com/spec-kit/complaint-service/internal/repository"
	"github.com/spec-kit/complaint-service/internal/session"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	Session *domain.Session
	User    *domain.User
}

// Middleware validates bearer tokens against the session store and loads
// the principal. A rejected or revoked token clears the session and answers
// with a login redirect, preserving the attempted destination.
type Middleware struct {
	tokens   *TokenManager
	sessions session.Store
	users    repository.UserRepository
}

// NewMiddleware constructs middleware.
func NewMiddleware(tokens *TokenManager, sessions session.Store, users repository.UserRepository) *Middleware {
	return &Middleware{tokens: tokens, sessions: sessions, users: users}
}

// Handle enforces authentication for protected routes.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return m.reject(c, "", "missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return m.reject(c, "", "invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return m.reject(c, "", "invalid token")
	}

	sess, err := m.sessions.Get(c.UserContext(), claims.SessionID)
	if err == session.ErrNotFound {
		return m.reject(c, "", "session expired")
	}
	if err != nil {
		return apperrors.MapError(err)
	}
	if sess.UserID != claims.UserID {
		return m.reject(c, sess.Token, "token does not match session")
	}

	user, err := m.users.GetByID(c.UserContext(), sess.UserID)
	if err == pgx.ErrNoRows {
		return m.reject(c, sess.Token, "user not found")
	}
	if err != nil {
		return apperrors.MapError(err)
	}
	if user.Status != domain.UserStatusActive {
		return m.reject(c, sess.Token, "account suspended")
	}

	principal := &Principal{Session: sess, User: user}
	c.Locals(principalKey, principal)
	guard.StoreSession(c, sess)
	return c.Next()
}

// reject clears any known session and answers the forced-logout way: the
// caller is sent back to login with the attempted destination preserved.
func (m *Middleware) reject(c *fiber.Ctx, token, message string) error {
	if token != "" {
		_ = m.sessions.Clear(c.UserContext(), token)
	}
	return apperrors.NewUnauthenticatedRedirect(message, guard.LoginRedirect(c.Path()))
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
