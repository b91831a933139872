package dto

import (
	"time"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// RegisterRequest payload for new accounts.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PasswordResetRequest asks for a reset token by email.
type PasswordResetRequest struct {
	Email string `json:"email"`
}

// PasswordResetConfirm carries a reset token and new password.
type PasswordResetConfirm struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Email     string            `json:"email"`
	Role      domain.Role       `json:"role"`
	Status    domain.UserStatus `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
}

// UpdateUserStatusRequest flips an account's status.
type UpdateUserStatusRequest struct {
	Status domain.UserStatus `json:"status"`
}

// ProfileRequest payload for profile create/update.
type ProfileRequest struct {
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
}

// ProfileResponse view of a stored profile.
type ProfileResponse struct {
	UserID     string    `json:"user_id"`
	Phone      string    `json:"phone"`
	Address    string    `json:"address"`
	City       string    `json:"city"`
	PostalCode string    `json:"postal_code"`
	UpdatedAt  time.Time `json:"updated_at"`
}
