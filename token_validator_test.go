package multilogin_test

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	multilogin "github.com/multilogin/go-multilogin"
)

func TestTokenValidatorFunc(t *testing.T) {
	t.Run("adapts a function", func(t *testing.T) {
		expected := &multilogin.JWTClaims{UserRole: "normal"}
		validator := multilogin.TokenValidatorFunc(func(tokenString string) (multilogin.AuthClaims, error) {
			return expected, nil
		})

		claims, err := validator.Validate("token")
		require.NoError(t, err)
		assert.Equal(t, expected, claims)
	})

	t.Run("nil func rejects as malformed", func(t *testing.T) {
		var validator multilogin.TokenValidatorFunc

		_, err := validator.Validate("token")
		assert.True(t, multilogin.IsMalformedError(err))
	})
}

func TestErrorClassifiers(t *testing.T) {
	assert.True(t, multilogin.IsTokenExpiredError(multilogin.ErrTokenExpired))
	assert.False(t, multilogin.IsTokenExpiredError(multilogin.ErrTokenMalformed))
	assert.False(t, multilogin.IsTokenExpiredError(nil))

	assert.True(t, multilogin.IsMalformedError(multilogin.ErrTokenMalformed))
	assert.False(t, multilogin.IsMalformedError(multilogin.ErrTokenExpired))
	assert.False(t, multilogin.IsMalformedError(errors.New("boom")))
}

func TestMultiTokenValidator(t *testing.T) {
	primary := multilogin.NewTokenService([]byte("primary-key"), time.Hour, "test-issuer", jwt.ClaimStrings{"test-audience"})
	secondary := multilogin.NewTokenService([]byte("secondary-key"), time.Hour, "test-issuer", jwt.ClaimStrings{"test-audience"})

	t.Run("first validator wins", func(t *testing.T) {
		tokenString, err := primary.Generate(testIdentity())
		require.NoError(t, err)

		validator := multilogin.NewMultiTokenValidator(primary, secondary)
		claims, err := validator.Validate(tokenString)
		require.NoError(t, err)
		assert.Equal(t, "user@example.com", claims.Email())
	})

	t.Run("falls through malformed results", func(t *testing.T) {
		tokenString, err := secondary.Generate(testIdentity())
		require.NoError(t, err)

		validator := multilogin.NewMultiTokenValidator(primary, secondary)
		claims, err := validator.Validate(tokenString)
		require.NoError(t, err)
		assert.Equal(t, "user@example.com", claims.Email())
	})

	t.Run("expired token stops the chain", func(t *testing.T) {
		past := time.Now().Add(-time.Hour)
		tokenString, err := primary.SignClaims(&multilogin.JWTClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "user-123",
				IssuedAt:  jwt.NewNumericDate(past.Add(-time.Hour)),
				ExpiresAt: jwt.NewNumericDate(past),
			},
		})
		require.NoError(t, err)

		validator := multilogin.NewMultiTokenValidator(primary, secondary)
		_, err = validator.Validate(tokenString)
		require.Error(t, err)
		assert.True(t, multilogin.IsTokenExpiredError(err))
	})

	t.Run("all malformed returns the last error", func(t *testing.T) {
		validator := multilogin.NewMultiTokenValidator(primary, secondary)

		_, err := validator.Validate("not-a-token")
		require.Error(t, err)
		assert.True(t, multilogin.IsMalformedError(err))
	})

	t.Run("empty validator set rejects", func(t *testing.T) {
		validator := multilogin.NewMultiTokenValidator(nil)

		_, err := validator.Validate("anything")
		assert.True(t, multilogin.IsMalformedError(err))
	})
}
