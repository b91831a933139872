// Package session holds the live authenticated context for clients. The
// store is written only by login, logout, and the authentication-failure
// path; every other component reads. A session record always carries both
// the token and the identity it was issued to.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// ErrNotFound signals an unknown, expired, or revoked token.
var ErrNotFound = errors.New("session not found")

// Store persists sessions keyed by their opaque token.
type Store interface {
	// Save writes the session as a unit; the record expires at
	// session.ExpiresAt.
	Save(ctx context.Context, session *domain.Session) error
	// Get returns the session for token, or ErrNotFound.
	Get(ctx context.Context, token string) (*domain.Session, error)
	// Clear removes the session. Clearing an unknown token is not an error.
	Clear(ctx context.Context, token string) error
}

func validate(session *domain.Session) error {
	if session == nil || session.Token == "" || session.UserID == "" || session.Role == "" {
		return errors.New("session requires token and identity")
	}
	if session.Expired(time.Now()) {
		return errors.New("session already expired")
	}
	return nil
}
