package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/quizdeck-api/internal/domain/entity"
	apperrors "github.com/yourusername/quizdeck-api/internal/pkg/errors"
)

func TestJWTService_GenerateAndParse(t *testing.T) {
	svc, err := NewJWTService("test-secret", 1)
	require.NoError(t, err)

	user := &entity.User{ID: 42, Email: "player@example.com", Role: entity.RoleAdmin}

	token, err := svc.GenerateToken(user)
	require.NoError(t, err, "Генерация токена должна быть успешной")

	claims, err := svc.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "player@example.com", claims.Email)
	assert.Equal(t, entity.RoleAdmin, claims.Role)
}

func TestJWTService_ParseToken_WrongSecret(t *testing.T) {
	issuer, err := NewJWTService("secret-one", 1)
	require.NoError(t, err)
	verifier, err := NewJWTService("secret-two", 1)
	require.NoError(t, err)

	token, err := issuer.GenerateToken(&entity.User{ID: 1, Email: "x@example.com"})
	require.NoError(t, err)

	_, err = verifier.ParseToken(token)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized, "Токен с чужой подписью должен отклоняться")
}

func TestJWTService_ParseToken_Garbage(t *testing.T) {
	svc, err := NewJWTService("test-secret", 1)
	require.NoError(t, err)

	_, err = svc.ParseToken("not-a-jwt")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestJWTService_GenerateToken_InvalidUser(t *testing.T) {
	svc, err := NewJWTService("test-secret", 1)
	require.NoError(t, err)

	_, err = svc.GenerateToken(nil)
	assert.Error(t, err)

	_, err = svc.GenerateToken(&entity.User{})
	assert.Error(t, err, "Пользователь без ID не должен получать токен")
}

func TestNewJWTService_EmptySecret(t *testing.T) {
	_, err := NewJWTService("   ", 1)
	assert.Error(t, err, "Пустой секрет должен отклоняться")
}
