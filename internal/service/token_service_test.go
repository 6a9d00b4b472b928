package service

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go-tasklist/internal/model"
)

func TestTokenServiceRoundTrip(t *testing.T) {
	t.Parallel()

	tokens := NewTokenService("test-secret")

	t.Run("access claims survive sign and parse", func(t *testing.T) {
		expiry := time.Now().Add(time.Hour).Truncate(time.Second)
		claims := Claims{
			Subject:   "johndoe@gmail.com",
			UserID:    42,
			Roles:     []model.Role{model.RoleUser, model.RoleAdmin},
			ExpiresAt: expiry,
		}

		token, err := tokens.Sign(claims)
		require.NoError(t, err)

		parsed, err := tokens.Parse(token)
		require.NoError(t, err)
		require.Equal(t, claims.Subject, parsed.Subject)
		require.Equal(t, claims.UserID, parsed.UserID)
		require.Equal(t, claims.Roles, parsed.Roles)
		require.True(t, parsed.ExpiresAt.Equal(expiry))
		require.False(t, parsed.Expired(time.Now()))
	})

	t.Run("refresh claims carry no roles", func(t *testing.T) {
		token, err := tokens.Sign(Claims{
			Subject:   "johndoe@gmail.com",
			UserID:    42,
			ExpiresAt: time.Now().Add(720 * time.Hour),
		})
		require.NoError(t, err)

		parsed, err := tokens.Parse(token)
		require.NoError(t, err)
		require.Empty(t, parsed.Roles)
	})
}

func TestTokenServiceTamper(t *testing.T) {
	t.Parallel()

	tokens := NewTokenService("test-secret")
	token, err := tokens.Sign(Claims{
		Subject:   "johndoe@gmail.com",
		UserID:    42,
		Roles:     []model.Role{model.RoleUser},
		ExpiresAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)

	t.Run("modified payload is rejected", func(t *testing.T) {
		tampered := strings.Join([]string{parts[0], flipFirstChar(parts[1]), parts[2]}, ".")

		_, err := tokens.Parse(tampered)
		require.Error(t, err)
		require.True(t,
			errors.Is(err, model.ErrTokenSignature) || errors.Is(err, model.ErrTokenMalformed),
			"got %v", err)
	})

	t.Run("modified signature is rejected", func(t *testing.T) {
		tampered := strings.Join([]string{parts[0], parts[1], flipFirstChar(parts[2])}, ".")

		_, err := tokens.Parse(tampered)
		require.Error(t, err)
		require.True(t,
			errors.Is(err, model.ErrTokenSignature) || errors.Is(err, model.ErrTokenMalformed),
			"got %v", err)
	})

	t.Run("token signed with a different key is rejected", func(t *testing.T) {
		other := NewTokenService("other-secret")

		_, err := other.Parse(token)
		require.ErrorIs(t, err, model.ErrTokenSignature)
	})

	t.Run("garbage is malformed", func(t *testing.T) {
		_, err := tokens.Parse("not-a-token")
		require.ErrorIs(t, err, model.ErrTokenMalformed)
	})

	t.Run("empty string is malformed", func(t *testing.T) {
		_, err := tokens.Parse("")
		require.ErrorIs(t, err, model.ErrTokenMalformed)
	})

	t.Run("claims without subject are malformed", func(t *testing.T) {
		token, err := tokens.Sign(Claims{UserID: 42, ExpiresAt: time.Now().Add(time.Hour)})
		require.NoError(t, err)

		_, err = tokens.Parse(token)
		require.ErrorIs(t, err, model.ErrTokenMalformed)
	})
}

func TestClaimsExpired(t *testing.T) {
	t.Parallel()

	now := time.Now()
	horizon := time.Hour
	claims := Claims{Subject: "a", UserID: 1, ExpiresAt: now.Add(horizon)}

	require.False(t, claims.Expired(now))
	require.False(t, claims.Expired(now.Add(horizon-time.Second)))
	require.True(t, claims.Expired(now.Add(horizon)), "a token is expired at its own expiry instant")
	require.True(t, claims.Expired(now.Add(horizon+time.Second)))
}

// flipFirstChar swaps the first character for a different base64 character,
// guaranteeing at least one bit changed.
func flipFirstChar(s string) string {
	if s == "" {
		return "A"
	}
	replacement := byte('A')
	if s[0] == 'A' {
		replacement = 'B'
	}
	return string(replacement) + s[1:]
}
