package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/quizdeck-api/internal/domain/entity"
	apperrors "github.com/yourusername/quizdeck-api/internal/pkg/errors"
	"github.com/yourusername/quizdeck-api/pkg/auth"
)

// MockRefreshTokenRepository реализует repository.RefreshTokenRepository
type MockRefreshTokenRepository struct {
	mock.Mock
}

func (m *MockRefreshTokenRepository) Create(token *entity.RefreshToken) error {
	args := m.Called(token)
	return args.Error(0)
}

func (m *MockRefreshTokenRepository) GetByToken(token string) (*entity.RefreshToken, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.RefreshToken), args.Error(1)
}

func (m *MockRefreshTokenRepository) Revoke(token string) error {
	args := m.Called(token)
	return args.Error(0)
}

func (m *MockRefreshTokenRepository) RevokeAllForUser(userID uint) error {
	args := m.Called(userID)
	return args.Error(0)
}

func (m *MockRefreshTokenRepository) DeleteExpired() (int64, error) {
	args := m.Called()
	return args.Get(0).(int64), args.Error(1)
}

func newTestAuthService(t *testing.T, userRepo *MockUserRepository, tokenRepo *MockRefreshTokenRepository) *AuthService {
	t.Helper()
	jwtService, err := auth.NewJWTService("test-secret-key", 1)
	require.NoError(t, err)

	svc, err := NewAuthService(userRepo, tokenRepo, jwtService, 24*time.Hour)
	require.NoError(t, err)
	return svc
}

func hashedUser(t *testing.T, password string) *entity.User {
	t.Helper()
	user := &entity.User{
		ID:                  1,
		Username:            "player",
		Email:               "player@example.com",
		Password:            password,
		PasswordAuthEnabled: true,
		Role:                entity.RoleUser,
	}
	require.NoError(t, user.BeforeSave(nil))
	return user
}

func TestAuthService_RegisterUser_Success(t *testing.T) {
	// Arrange
	mockUserRepo := new(MockUserRepository)
	mockTokenRepo := new(MockRefreshTokenRepository)

	mockUserRepo.On("GetByEmail", "new@example.com").Return(nil, apperrors.ErrNotFound)
	mockUserRepo.On("GetByUsername", "newbie").Return(nil, apperrors.ErrNotFound)
	mockUserRepo.On("Create", mock.AnythingOfType("*entity.User")).Return(nil)

	svc := newTestAuthService(t, mockUserRepo, mockTokenRepo)

	// Act
	user, err := svc.RegisterUser(RegisterInput{
		Username: "newbie",
		Email:    "  New@Example.COM ",
		Password: "password123",
	})

	// Assert
	require.NoError(t, err, "Регистрация должна быть успешной")
	assert.Equal(t, "new@example.com", user.Email, "Email должен быть нормализован")
	assert.Equal(t, entity.RoleUser, user.Role)
	mockUserRepo.AssertExpectations(t)
}

func TestAuthService_RegisterUser_ShortPassword(t *testing.T) {
	// Arrange
	mockUserRepo := new(MockUserRepository)
	svc := newTestAuthService(t, mockUserRepo, new(MockRefreshTokenRepository))

	// Act
	_, err := svc.RegisterUser(RegisterInput{Username: "x", Email: "x@example.com", Password: "short"})

	// Assert
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	mockUserRepo.AssertNotCalled(t, "Create")
}

func TestAuthService_RegisterUser_EmailTaken(t *testing.T) {
	// Arrange
	mockUserRepo := new(MockUserRepository)
	mockUserRepo.On("GetByEmail", "taken@example.com").Return(&entity.User{ID: 2}, nil)

	svc := newTestAuthService(t, mockUserRepo, new(MockRefreshTokenRepository))

	// Act
	_, err := svc.RegisterUser(RegisterInput{Username: "x", Email: "taken@example.com", Password: "password123"})

	// Assert
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	mockUserRepo.AssertNotCalled(t, "Create")
}

func TestAuthService_LoginUser_Success(t *testing.T) {
	// Arrange
	mockUserRepo := new(MockUserRepository)
	mockTokenRepo := new(MockRefreshTokenRepository)

	user := hashedUser(t, "password123")
	mockUserRepo.On("GetByEmail", "player@example.com").Return(user, nil)
	mockTokenRepo.On("Create", mock.AnythingOfType("*entity.RefreshToken")).Return(nil)

	svc := newTestAuthService(t, mockUserRepo, mockTokenRepo)

	// Act
	resp, err := svc.LoginUser("player@example.com", "password123", "device-1")

	// Assert
	require.NoError(t, err, "Вход с верным паролем должен быть успешным")
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	mockTokenRepo.AssertExpectations(t)
}

func TestAuthService_LoginUser_WrongPassword(t *testing.T) {
	// Arrange
	mockUserRepo := new(MockUserRepository)
	mockTokenRepo := new(MockRefreshTokenRepository)

	user := hashedUser(t, "password123")
	mockUserRepo.On("GetByEmail", "player@example.com").Return(user, nil)

	svc := newTestAuthService(t, mockUserRepo, mockTokenRepo)

	// Act
	resp, err := svc.LoginUser("player@example.com", "wrong-password", "")

	// Assert
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	assert.Nil(t, resp)
	mockTokenRepo.AssertNotCalled(t, "Create")
}

func TestAuthService_LoginUser_UnknownEmail(t *testing.T) {
	// Arrange: ответ не должен отличаться от случая неверного пароля
	mockUserRepo := new(MockUserRepository)
	mockUserRepo.On("GetByEmail", "ghost@example.com").Return(nil, apperrors.ErrNotFound)

	svc := newTestAuthService(t, mockUserRepo, new(MockRefreshTokenRepository))

	// Act
	_, err := svc.LoginUser("ghost@example.com", "password123", "")

	// Assert
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestAuthService_LoginUser_PasswordAuthDisabled(t *testing.T) {
	// Arrange: пользователь создан через федеративный вход, парольный вход выключен
	mockUserRepo := new(MockUserRepository)

	user := hashedUser(t, "password123")
	user.PasswordAuthEnabled = false
	mockUserRepo.On("GetByEmail", "player@example.com").Return(user, nil)

	svc := newTestAuthService(t, mockUserRepo, new(MockRefreshTokenRepository))

	// Act
	_, err := svc.LoginUser("player@example.com", "password123", "")

	// Assert
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestAuthService_RefreshTokens_RotatesOldToken(t *testing.T) {
	// Arrange
	mockUserRepo := new(MockUserRepository)
	mockTokenRepo := new(MockRefreshTokenRepository)

	stored := &entity.RefreshToken{
		UserID:    1,
		Token:     "old-token",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	mockTokenRepo.On("GetByToken", "old-token").Return(stored, nil)
	mockUserRepo.On("GetByID", uint(1)).Return(regularUser(1), nil)
	mockTokenRepo.On("Revoke", "old-token").Return(nil)
	mockTokenRepo.On("Create", mock.AnythingOfType("*entity.RefreshToken")).Return(nil)

	svc := newTestAuthService(t, mockUserRepo, mockTokenRepo)

	// Act
	resp, err := svc.RefreshTokens("old-token", "device-1")

	// Assert
	require.NoError(t, err)
	assert.NotEqual(t, "old-token", resp.RefreshToken, "Новый refresh токен должен отличаться от старого")
	mockTokenRepo.AssertCalled(t, "Revoke", "old-token")
}

func TestAuthService_RefreshTokens_ExpiredToken(t *testing.T) {
	// Arrange
	mockUserRepo := new(MockUserRepository)
	mockTokenRepo := new(MockRefreshTokenRepository)

	stored := &entity.RefreshToken{
		UserID:    1,
		Token:     "expired-token",
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	mockTokenRepo.On("GetByToken", "expired-token").Return(stored, nil)

	svc := newTestAuthService(t, mockUserRepo, mockTokenRepo)

	// Act
	_, err := svc.RefreshTokens("expired-token", "")

	// Assert
	assert.ErrorIs(t, err, apperrors.ErrExpiredToken)
	mockTokenRepo.AssertNotCalled(t, "Create")
}

func TestAuthService_RefreshTokens_RevokedToken(t *testing.T) {
	// Arrange
	mockUserRepo := new(MockUserRepository)
	mockTokenRepo := new(MockRefreshTokenRepository)

	revokedAt := time.Now().Add(-time.Minute)
	stored := &entity.RefreshToken{
		UserID:    1,
		Token:     "revoked-token",
		ExpiresAt: time.Now().Add(time.Hour),
		RevokedAt: &revokedAt,
	}
	mockTokenRepo.On("GetByToken", "revoked-token").Return(stored, nil)

	svc := newTestAuthService(t, mockUserRepo, mockTokenRepo)

	// Act
	_, err := svc.RefreshTokens("revoked-token", "")

	// Assert
	assert.ErrorIs(t, err, apperrors.ErrExpiredToken, "Отозванный токен не должен обмениваться")
}
