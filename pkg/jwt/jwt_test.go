package jwt

import (
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	tm := NewTokenManager("test-secret", 168)

	token, err := tm.GenerateToken("user-1", "U1234", "Alice", "https://cdn/avatar.png", "")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "U1234", claims.LineUserID)
	assert.Equal(t, "Alice", claims.DisplayName)
	assert.Equal(t, Audience, claims.Role)
	assert.Equal(t, "line", claims.Provider)
}

func TestGenerateToken_ExpiryIsSevenDays(t *testing.T) {
	tm := NewTokenManager("test-secret", 168)

	before := time.Now()
	token, err := tm.GenerateToken("user-1", "U1234", "", "", "")
	require.NoError(t, err)
	after := time.Now()

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)

	// exp 序列化为整秒（向下截断），下界也要按秒截断
	want := 7 * 24 * time.Hour
	lo := before.Truncate(time.Second).Add(want)
	hi := after.Add(want).Add(time.Second)
	exp := claims.ExpiresAt.Time
	assert.False(t, exp.Before(lo), "expiry %v before %v", exp, lo)
	assert.False(t, exp.After(hi), "expiry %v after %v", exp, hi)
}

func TestParseToken_WrongSecret(t *testing.T) {
	tm := NewTokenManager("test-secret", 168)
	other := NewTokenManager("other-secret", 168)

	token, err := tm.GenerateToken("user-1", "U1234", "", "", "")
	require.NoError(t, err)

	_, err = other.ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseToken_Expired(t *testing.T) {
	tm := NewTokenManager("test-secret", 168)

	// Hand-craft an already expired token with the same secret.
	claims := Claims{
		Role: Audience,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Audience:  jwt.ClaimStrings{Audience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = tm.ParseToken(raw)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestParseToken_WrongAudience(t *testing.T) {
	tm := NewTokenManager("test-secret", 168)

	claims := Claims{
		Role: Audience,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Audience:  jwt.ClaimStrings{"something-else"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = tm.ParseToken(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseToken_Garbage(t *testing.T) {
	tm := NewTokenManager("test-secret", 168)

	_, err := tm.ParseToken("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
