package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/complaint-service/internal/domain"
)

func newSession(token string, ttl time.Duration) *domain.Session {
	return &domain.Session{
		Token:     token,
		UserID:    "user-1",
		Role:      domain.RoleCitizen,
		ExpiresAt: time.Now().Add(ttl),
	}
}

func TestMemoryStoreSaveAndGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	sess := newSession("tok-1", time.Hour)
	require.NoError(t, store.Save(ctx, sess))

	got, err := store.Get(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, sess.UserID, got.UserID)
	assert.Equal(t, sess.Role, got.Role)

	// the returned session is a copy, mutating it must not affect the store
	got.UserID = "someone-else"
	again, err := store.Get(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", again.UserID)
}

func TestMemoryStoreGetUnknownToken(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreExpiredSessionDropped(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	sess := newSession("tok-exp", 10*time.Millisecond)
	require.NoError(t, store.Save(ctx, sess))

	time.Sleep(20 * time.Millisecond)

	_, err := store.Get(ctx, "tok-exp")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreClear(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, newSession("tok-2", time.Hour)))
	require.NoError(t, store.Clear(ctx, "tok-2"))

	_, err := store.Get(ctx, "tok-2")
	assert.ErrorIs(t, err, ErrNotFound)

	// clearing again is not an error
	assert.NoError(t, store.Clear(ctx, "tok-2"))
}

func TestMemoryStoreSaveRejectsPartialRecords(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	assert.Error(t, store.Save(ctx, nil))
	assert.Error(t, store.Save(ctx, &domain.Session{Token: "bare-token", ExpiresAt: time.Now().Add(time.Hour)}))
	assert.Error(t, store.Save(ctx, &domain.Session{UserID: "user-1", Role: domain.RoleCitizen, ExpiresAt: time.Now().Add(time.Hour)}))

	expired := newSession("tok-3", -time.Minute)
	assert.Error(t, store.Save(ctx, expired))
}
