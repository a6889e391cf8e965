package service

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/yourusername/quizdeck-api/internal/domain/entity"
	"github.com/yourusername/quizdeck-api/internal/domain/repository"
	apperrors "github.com/yourusername/quizdeck-api/internal/pkg/errors"
	"github.com/yourusername/quizdeck-api/pkg/auth"
)

// AuthService предоставляет методы для работы с аутентификацией и пользователями
type AuthService struct {
	userRepo         repository.UserRepository
	refreshTokenRepo repository.RefreshTokenRepository
	jwtService       *auth.JWTService
	refreshTTL       time.Duration
}

// NewAuthService создает новый сервис аутентификации и возвращает ошибку при проблемах
func NewAuthService(
	userRepo repository.UserRepository,
	refreshTokenRepo repository.RefreshTokenRepository,
	jwtService *auth.JWTService,
	refreshTTL time.Duration,
) (*AuthService, error) {
	if userRepo == nil {
		return nil, fmt.Errorf("UserRepository is required for AuthService")
	}
	if refreshTokenRepo == nil {
		return nil, fmt.Errorf("RefreshTokenRepository is required for AuthService")
	}
	if jwtService == nil {
		return nil, fmt.Errorf("JWTService is required for AuthService")
	}
	if refreshTTL <= 0 {
		refreshTTL = 30 * 24 * time.Hour
	}
	return &AuthService{
		userRepo:         userRepo,
		refreshTokenRepo: refreshTokenRepo,
		jwtService:       jwtService,
		refreshTTL:       refreshTTL,
	}, nil
}

// RegisterInput содержит данные для регистрации
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// AuthResponse содержит данные для ответа на запрос авторизации
type AuthResponse struct {
	User         *entity.User `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
}

// RegisterUser регистрирует нового пользователя
func (s *AuthService) RegisterUser(input RegisterInput) (*entity.User, error) {
	input.Email = normalizeEmail(input.Email)
	input.Username = strings.TrimSpace(input.Username)

	if input.Username == "" || input.Email == "" {
		return nil, fmt.Errorf("%w: username и email обязательны", apperrors.ErrValidation)
	}
	if len(input.Password) < 8 {
		return nil, fmt.Errorf("%w: пароль должен содержать не менее 8 символов", apperrors.ErrValidation)
	}

	// Проверяем, существует ли пользователь с таким email
	_, err := s.userRepo.GetByEmail(input.Email)
	if err == nil {
		return nil, fmt.Errorf("%w: пользователь с таким email уже существует", apperrors.ErrConflict)
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("failed to check email existence: %w", err)
	}

	// Проверяем, существует ли пользователь с таким username
	_, err = s.userRepo.GetByUsername(input.Username)
	if err == nil {
		return nil, fmt.Errorf("%w: пользователь с таким именем уже существует", apperrors.ErrConflict)
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("failed to check username existence: %w", err)
	}

	user := &entity.User{
		Username:            input.Username,
		Email:               input.Email,
		Password:            input.Password, // Хешируется в BeforeSave
		PasswordAuthEnabled: true,
		Role:                entity.RoleUser,
	}

	if err := s.userRepo.Create(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Printf("[AuthService] Зарегистрирован пользователь ID=%d (%s)", user.ID, user.Email)
	return user, nil
}

// LoginUser аутентифицирует пользователя и возвращает пару токенов
func (s *AuthService) LoginUser(email, password, deviceID string) (*AuthResponse, error) {
	user, err := s.userRepo.GetByEmail(normalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: неверный email или пароль", apperrors.ErrUnauthorized)
		}
		return nil, err
	}

	if !user.PasswordAuthEnabled || !user.CheckPassword(password) {
		log.Printf("[AuthService] Неудачная попытка входа для email=%s", user.Email)
		return nil, fmt.Errorf("%w: неверный email или пароль", apperrors.ErrUnauthorized)
	}

	resp, err := s.issueTokens(user, deviceID)
	if err != nil {
		return nil, err
	}

	log.Printf("[AuthService] Пользователь ID=%d (%s) успешно вошел в систему", user.ID, user.Email)
	return resp, nil
}

// RefreshTokens обновляет пару токенов, используя refresh токен.
// Старый refresh токен отзывается (ротация).
func (s *AuthService) RefreshTokens(refreshToken, deviceID string) (*AuthResponse, error) {
	stored, err := s.refreshTokenRepo.GetByToken(refreshToken)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: недействительный refresh токен", apperrors.ErrUnauthorized)
		}
		return nil, err
	}

	if !stored.IsValid(time.Now()) {
		return nil, fmt.Errorf("%w: refresh токен истек или отозван", apperrors.ErrExpiredToken)
	}

	user, err := s.userRepo.GetByID(stored.UserID)
	if err != nil {
		return nil, err
	}

	if err := s.refreshTokenRepo.Revoke(refreshToken); err != nil {
		log.Printf("[AuthService] Ошибка отзыва refresh токена пользователя ID=%d: %v", user.ID, err)
	}

	return s.issueTokens(user, deviceID)
}

// Logout отзывает refresh токен текущего устройства
func (s *AuthService) Logout(refreshToken string) error {
	return s.refreshTokenRepo.Revoke(refreshToken)
}

// LogoutAll отзывает все refresh токены пользователя (выход со всех устройств)
func (s *AuthService) LogoutAll(userID uint) error {
	if err := s.refreshTokenRepo.RevokeAllForUser(userID); err != nil {
		return err
	}
	log.Printf("[AuthService] Пользователь ID=%d вышел со всех устройств", userID)
	return nil
}

// GetUserByID возвращает пользователя по ID
func (s *AuthService) GetUserByID(userID uint) (*entity.User, error) {
	return s.userRepo.GetByID(userID)
}

// issueTokens генерирует access токен и сохраняет новый refresh токен
func (s *AuthService) issueTokens(user *entity.User, deviceID string) (*AuthResponse, error) {
	accessToken, err := s.jwtService.GenerateToken(user)
	if err != nil {
		log.Printf("[AuthService] Ошибка генерации access токена для пользователя ID=%d: %v", user.ID, err)
		return nil, fmt.Errorf("ошибка генерации токенов")
	}

	refreshToken, err := generateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("ошибка генерации токенов: %w", err)
	}

	record := &entity.RefreshToken{
		UserID:    user.ID,
		Token:     refreshToken,
		DeviceID:  deviceID,
		ExpiresAt: time.Now().Add(s.refreshTTL),
	}
	if err := s.refreshTokenRepo.Create(record); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &AuthResponse{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// generateRefreshToken создает криптографически стойкий случайный токен
func generateRefreshToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// normalizeEmail приводит email к нижнему регистру и убирает пробелы
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
