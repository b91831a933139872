package domain

import "time"

// Session is the live authenticated context for a client: an opaque token
// plus the identity it was issued to. The two are always stored and cleared
// together.
type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	Role      Role      `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session has passed its expiry.
func (s *Session) Expired(now time.Time) bool {
	return s == nil || !now.Before(s.ExpiresAt)
}
