package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "retailcore/pkg/domain-errors"
)

func TestJWTService(t *testing.T) {
	service := NewJWTService("test-signing-key", "retailcore", "retailcore-api")

	t.Run("round trip", func(t *testing.T) {
		token, err := service.GenerateAccessToken(42, "admin", time.Hour)
		require.NoError(t, err)

		claims, err := service.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, int64(42), claims.UserID)
		assert.Equal(t, "admin", claims.Role)
	})

	t.Run("expired token is unauthorized", func(t *testing.T) {
		token, err := service.GenerateAccessToken(42, "admin", -time.Minute)
		require.NoError(t, err)

		_, err = service.ValidateToken(token)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("wrong signing key is rejected", func(t *testing.T) {
		other := NewJWTService("different-key", "retailcore", "retailcore-api")
		token, err := other.GenerateAccessToken(42, "admin", time.Hour)
		require.NoError(t, err)

		_, err = service.ValidateToken(token)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("garbage is rejected", func(t *testing.T) {
		_, err := service.ValidateToken("not.a.token")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}
