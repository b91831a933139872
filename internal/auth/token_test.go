package auth

import (
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/complaint-service/internal/domain"
)

func TestTokenManager_GenerateToken(t *testing.T) {
	tm := NewTokenManager("secret", 60)

	tokenStr, expiresAt, err := tm.GenerateToken("user-1", domain.RoleCitizen, "sess-1")

	assert.NoError(t, err)
	assert.NotEmpty(t, tokenStr)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := tm.ParseToken(tokenStr)
	assert.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, domain.RoleCitizen, claims.Role)
	assert.Equal(t, "sess-1", claims.SessionID)
}

func TestTokenManager_ParseToken_InvalidToken(t *testing.T) {
	tm := NewTokenManager("secret", 60)

	_, err := tm.ParseToken("invalid.token.string")
	assert.Error(t, err)
}

func TestTokenManager_ParseToken_WrongSecret(t *testing.T) {
	tm1 := NewTokenManager("secret-one", 60)
	tm2 := NewTokenManager("secret-two", 60)

	tokenStr, _, _ := tm1.GenerateToken("user-1", domain.RoleAdmin, "sess-1")

	_, err := tm2.ParseToken(tokenStr)
	assert.Error(t, err)
}

func TestTokenManager_ParseToken_ExpiredToken(t *testing.T) {
	tm := NewTokenManager("secret", 60)
	claims := &Claims{
		UserID:    "user-1",
		Role:      domain.RoleCitizen,
		SessionID: "sess-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenStr, _ := token.SignedString([]byte("secret"))

	_, err := tm.ParseToken(tokenStr)
	assert.Error(t, err)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestTokenManager_ParseToken_RejectsOtherSigningMethods(t *testing.T) {
	tm := NewTokenManager("secret", 60)
	claims := &Claims{
		UserID: "user-1",
		Role:   domain.RoleCitizen,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS384, claims)
	tokenStr, _ := token.SignedString([]byte("secret"))

	_, err := tm.ParseToken(tokenStr)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected signing method")
}

func TestNewTokenManager_DefaultTTL(t *testing.T) {
	tm := NewTokenManager("secret", 0)
	assert.Equal(t, time.Hour, tm.TTL())
}
