package service

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/repository"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

// UserService manages profiles and admin user administration.
type UserService struct {
	users    repository.UserRepository
	profiles repository.ProfileRepository
}

// NewUserService constructs the service.
func NewUserService(users repository.UserRepository, profiles repository.ProfileRepository) *UserService {
	return &UserService{users: users, profiles: profiles}
}

// ProfileInput carries the contact fields a user may set.
type ProfileInput struct {
	Phone      string
	Address    string
	City       string
	PostalCode string
}

// GetProfile returns the user's profile, or a typed not-found.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	profile, err := s.profiles.GetByUserID(ctx, userID)
	if err == pgx.ErrNoRows {
		return nil, apperrors.NewNotFound("profile", nil)
	}
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return profile, nil
}

// SaveProfile creates or updates the profile behind a single existence
// check, not a try-update-then-create fallback.
func (s *UserService) SaveProfile(ctx context.Context, userID string, input ProfileInput) (*domain.Profile, error) {
	profile := &domain.Profile{
		UserID:     userID,
		Phone:      strings.TrimSpace(input.Phone),
		Address:    strings.TrimSpace(input.Address),
		City:       strings.TrimSpace(input.City),
		PostalCode: strings.TrimSpace(input.PostalCode),
	}

	_, err := s.profiles.GetByUserID(ctx, userID)
	switch err {
	case nil:
		if err := s.profiles.Update(ctx, profile); err != nil {
			return nil, apperrors.MapError(err)
		}
	case pgx.ErrNoRows:
		if err := s.profiles.Create(ctx, profile); err != nil {
			return nil, apperrors.MapError(err)
		}
	default:
		return nil, apperrors.MapError(err)
	}
	return profile, nil
}

// ListUsers returns user records for administrators.
func (s *UserService) ListUsers(ctx context.Context, limit, offset int) ([]domain.User, error) {
	users, err := s.users.List(ctx, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return users, nil
}

// SetUserStatus activates or suspends an account. A suspended account is
// refused at login and at the auth middleware.
func (s *UserService) SetUserStatus(ctx context.Context, userID string, status domain.UserStatus) (*domain.User, error) {
	if status != domain.UserStatusActive && status != domain.UserStatusSuspended {
		return nil, apperrors.NewValidationError("unknown user status", map[string]any{"status": string(status)})
	}
	user, err := s.users.GetByID(ctx, userID)
	if err == pgx.ErrNoRows {
		return nil, apperrors.NewNotFound("user", nil)
	}
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if user.Status == status {
		return user, nil
	}
	user.Status = status
	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}
