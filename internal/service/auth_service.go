package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/complaint-service/internal/auth"
	"github.com/spec-kit/complaint-service/internal/config"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/repository"
	"github.com/spec-kit/complaint-service/internal/session"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

// AuthService coordinates registration, login, logout, and password resets.
// It is the only writer of the session store.
type AuthService struct {
	users      repository.UserRepository
	resets     repository.PasswordResetRepository
	sessions   session.Store
	tokenMgr   *auth.TokenManager
	bcryptCost int
	resetTTL   time.Duration
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	UserRepo          repository.UserRepository
	PasswordResetRepo repository.PasswordResetRepository
	Sessions          session.Store
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		resets:     deps.PasswordResetRepo,
		sessions:   deps.Sessions,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
		resetTTL:   time.Duration(cfg.Auth.PasswordResetTTLMinutes) * time.Minute,
	}
}

// TokenManager exposes the token manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// Register creates a citizen account and opens its first session.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*domain.User, string, time.Time, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" || password == "" {
		return nil, "", time.Time{}, apperrors.NewValidationError("name, email, password required", nil)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, "", time.Time{}, apperrors.NewValidationError("email already registered", nil)
	} else if err != pgx.ErrNoRows {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleCitizen,
		Status:       domain.UserStatusActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}

	return s.openSession(ctx, user)
}

// Login authenticates a user and opens a session.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, time.Time, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.users.GetByEmail(ctx, email)
	if err == pgx.ErrNoRows {
		return nil, "", time.Time{}, apperrors.NewUnauthenticated("invalid credentials")
	}
	if err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	if user.Status != domain.UserStatusActive {
		return nil, "", time.Time{}, apperrors.NewForbidden("account suspended")
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthenticated("invalid credentials")
	}

	return s.openSession(ctx, user)
}

// openSession issues a token bound to a fresh session record. Token and
// identity are written as one record, never separately.
func (s *AuthService) openSession(ctx context.Context, user *domain.User) (*domain.User, string, time.Time, error) {
	sessionID := uuid.NewString()
	token, exp, err := s.tokenMgr.GenerateToken(user.ID, user.Role, sessionID)
	if err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	sess := &domain.Session{
		Token:     sessionID,
		UserID:    user.ID,
		Role:      user.Role,
		ExpiresAt: exp,
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	return user, token, exp, nil
}

// Logout revokes the session, invalidating its token immediately.
func (s *AuthService) Logout(ctx context.Context, sessionToken string) error {
	if err := s.sessions.Clear(ctx, sessionToken); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// Verify resolves a bearer token to its session and user, for client-side
// session restoration after a reload.
func (s *AuthService) Verify(ctx context.Context, tokenStr string) (*domain.Session, *domain.User, error) {
	claims, err := s.tokenMgr.ParseToken(tokenStr)
	if err != nil {
		return nil, nil, apperrors.NewUnauthenticated("invalid token")
	}
	sess, err := s.sessions.Get(ctx, claims.SessionID)
	if err == session.ErrNotFound {
		return nil, nil, apperrors.NewUnauthenticated("session expired")
	}
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	user, err := s.users.GetByID(ctx, sess.UserID)
	if err == pgx.ErrNoRows {
		return nil, nil, apperrors.NewUnauthenticated("user not found")
	}
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	return sess, user, nil
}

// RequestPasswordReset persists a single-use reset token for the email. An
// unknown email is reported as not found.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (*repository.PasswordResetToken, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.users.GetByEmail(ctx, email)
	if err == pgx.ErrNoRows {
		return nil, apperrors.NewNotFound("user", nil)
	}
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	token := &repository.PasswordResetToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(s.resetTTL),
	}
	if err := s.resets.Create(ctx, token); err != nil {
		return nil, apperrors.MapError(err)
	}
	return token, nil
}

// ConfirmPasswordReset validates the reset token and updates the password.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, tokenStr, newPassword string) error {
	if newPassword == "" {
		return apperrors.NewValidationError("new password required", nil)
	}
	token, err := s.resets.GetByToken(ctx, tokenStr)
	if err == pgx.ErrNoRows {
		return apperrors.NewNotFound("reset token", nil)
	}
	if err != nil {
		return apperrors.MapError(err)
	}
	if token.UsedAt != nil || time.Now().After(token.ExpiresAt) {
		return apperrors.NewValidationError("reset token expired or already used", nil)
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.MapError(err)
	}

	user, err := s.users.GetByID(ctx, token.UserID)
	if err != nil {
		return apperrors.MapError(err)
	}
	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return apperrors.MapError(err)
	}
	return apperrors.MapError(s.resets.MarkUsed(ctx, token.ID))
}
