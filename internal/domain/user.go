package domain

import "time"

// Role separates citizens from administrators.
type Role string

const (
	RoleCitizen Role = "CITIZEN"
	RoleAdmin   Role = "ADMIN"
)

// UserStatus represents lifecycle states for an account.
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
)

// User is the domain model for registered accounts.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Status       UserStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAdmin reports whether the user holds the administrator role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
