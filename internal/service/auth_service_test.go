package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/complaint-service/internal/config"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/repository"
	"github.com/spec-kit/complaint-service/internal/session"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

type fakeResetRepo struct {
	mu     sync.Mutex
	tokens map[string]*repository.PasswordResetToken
	nextID int
}

func newFakeResetRepo() *fakeResetRepo {
	return &fakeResetRepo{tokens: make(map[string]*repository.PasswordResetToken)}
}

func (f *fakeResetRepo) Create(_ context.Context, token *repository.PasswordResetToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	token.ID = time.Now().Format("150405.000") + "-" + token.Token[:8]
	token.CreatedAt = time.Now()
	copied := *token
	f.tokens[token.Token] = &copied
	return nil
}

func (f *fakeResetRepo) GetByToken(_ context.Context, tokenStr string) (*repository.PasswordResetToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.tokens[tokenStr]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *stored
	return &copied, nil
}

func (f *fakeResetRepo) MarkUsed(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, stored := range f.tokens {
		if stored.ID == id {
			now := time.Now()
			stored.UsedAt = &now
			return nil
		}
	}
	return pgx.ErrNoRows
}

func newTestAuthService(users repository.UserRepository, resets repository.PasswordResetRepository, sessions session.Store) *AuthService {
	cfg := config.Config{}
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Auth.AccessTokenTTLMinutes = 60
	cfg.Auth.PasswordResetTTLMinutes = 30
	cfg.Auth.BcryptCost = bcrypt.MinCost
	return NewAuthService(cfg, AuthDependencies{
		UserRepo:          users,
		PasswordResetRepo: resets,
		Sessions:          sessions,
	})
}

func TestRegisterOpensSession(t *testing.T) {
	users := newFakeUserRepo()
	sessions := session.NewMemoryStore()
	svc := newTestAuthService(users, newFakeResetRepo(), sessions)
	ctx := context.Background()

	user, token, exp, err := svc.Register(ctx, "Jordan", "Jordan@Example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, "jordan@example.com", user.Email)
	assert.Equal(t, domain.RoleCitizen, user.Role)
	assert.Equal(t, domain.UserStatusActive, user.Status)
	assert.NotEmpty(t, token)
	assert.True(t, exp.After(time.Now()))

	sess, resolved, err := svc.Verify(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, sess.UserID)
	assert.Equal(t, user.ID, resolved.ID)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	users := newFakeUserRepo()
	svc := newTestAuthService(users, newFakeResetRepo(), session.NewMemoryStore())
	ctx := context.Background()

	_, _, _, err := svc.Register(ctx, "Jordan", "jordan@example.com", "password123")
	require.NoError(t, err)

	_, _, _, err = svc.Register(ctx, "Other", "jordan@example.com", "password456")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
}

func TestLogin(t *testing.T) {
	users := newFakeUserRepo()
	svc := newTestAuthService(users, newFakeResetRepo(), session.NewMemoryStore())
	ctx := context.Background()

	registered, _, _, err := svc.Register(ctx, "Jordan", "jordan@example.com", "password123")
	require.NoError(t, err)

	t.Run("valid credentials", func(t *testing.T) {
		user, token, _, err := svc.Login(ctx, "jordan@example.com", "password123")
		require.NoError(t, err)
		assert.Equal(t, registered.ID, user.ID)
		assert.NotEmpty(t, token)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, _, _, err := svc.Login(ctx, "jordan@example.com", "wrong")
		assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthenticated))
	})

	t.Run("unknown email", func(t *testing.T) {
		_, _, _, err := svc.Login(ctx, "nobody@example.com", "password123")
		assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthenticated))
	})

	t.Run("suspended account", func(t *testing.T) {
		stored, err := users.GetByID(ctx, registered.ID)
		require.NoError(t, err)
		stored.Status = domain.UserStatusSuspended
		require.NoError(t, users.Update(ctx, stored))

		_, _, _, err = svc.Login(ctx, "jordan@example.com", "password123")
		assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
	})
}

func TestLogoutRevokesToken(t *testing.T) {
	users := newFakeUserRepo()
	sessions := session.NewMemoryStore()
	svc := newTestAuthService(users, newFakeResetRepo(), sessions)
	ctx := context.Background()

	_, token, _, err := svc.Register(ctx, "Jordan", "jordan@example.com", "password123")
	require.NoError(t, err)

	sess, _, err := svc.Verify(ctx, token)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, sess.Token))

	// token is still cryptographically valid but the session is gone
	_, _, err = svc.Verify(ctx, token)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthenticated))
}

func TestVerifyRejectsGarbageToken(t *testing.T) {
	svc := newTestAuthService(newFakeUserRepo(), newFakeResetRepo(), session.NewMemoryStore())

	_, _, err := svc.Verify(context.Background(), "not.a.token")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthenticated))
}

func TestPasswordReset(t *testing.T) {
	users := newFakeUserRepo()
	resets := newFakeResetRepo()
	svc := newTestAuthService(users, resets, session.NewMemoryStore())
	ctx := context.Background()

	_, _, _, err := svc.Register(ctx, "Jordan", "jordan@example.com", "password123")
	require.NoError(t, err)

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.RequestPasswordReset(ctx, "nobody@example.com")
		assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
	})

	token, err := svc.RequestPasswordReset(ctx, "jordan@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, token.Token)

	t.Run("confirm updates password", func(t *testing.T) {
		require.NoError(t, svc.ConfirmPasswordReset(ctx, token.Token, "newpassword"))

		_, _, _, err := svc.Login(ctx, "jordan@example.com", "newpassword")
		require.NoError(t, err)

		_, _, _, err = svc.Login(ctx, "jordan@example.com", "password123")
		assert.Error(t, err)
	})

	t.Run("token is single use", func(t *testing.T) {
		err := svc.ConfirmPasswordReset(ctx, token.Token, "anotherpassword")
		assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
	})

	t.Run("unknown token", func(t *testing.T) {
		err := svc.ConfirmPasswordReset(ctx, "missing-token", "anotherpassword")
		assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
	})
}
