package service

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/yourusername/quizdeck-api/internal/domain/entity"
	"github.com/yourusername/quizdeck-api/internal/domain/repository"
	apperrors "github.com/yourusername/quizdeck-api/internal/pkg/errors"
)

// Ключ и TTL кеша лидерборда
const (
	leaderboardCacheKey = "leaderboard:top"
	leaderboardCacheTTL = 1 * time.Minute
)

// UserService предоставляет методы для работы с профилями и лидербордом
type UserService struct {
	userRepo  repository.UserRepository
	cacheRepo repository.CacheRepository
}

// NewUserService создает новый сервис пользователей
func NewUserService(userRepo repository.UserRepository, cacheRepo repository.CacheRepository) *UserService {
	return &UserService{
		userRepo:  userRepo,
		cacheRepo: cacheRepo,
	}
}

// GetUser возвращает пользователя по ID
func (s *UserService) GetUser(userID uint) (*entity.User, error) {
	return s.userRepo.GetByID(userID)
}

// UpdateProfileInput содержит обновляемые поля профиля
type UpdateProfileInput struct {
	Username       string
	ProfilePicture string
}

// UpdateProfile обновляет профиль пользователя
func (s *UserService) UpdateProfile(userID uint, input UpdateProfileInput) (*entity.User, error) {
	updates := make(map[string]interface{})

	if username := strings.TrimSpace(input.Username); username != "" {
		if len(username) > 50 {
			return nil, fmt.Errorf("%w: имя пользователя не должно превышать 50 символов", apperrors.ErrValidation)
		}
		existing, err := s.userRepo.GetByUsername(username)
		if err == nil && existing.ID != userID {
			return nil, fmt.Errorf("%w: имя пользователя уже занято", apperrors.ErrConflict)
		}
		updates["username"] = username
	}

	if input.ProfilePicture != "" {
		updates["profile_picture"] = strings.TrimSpace(input.ProfilePicture)
	}

	if len(updates) == 0 {
		return s.userRepo.GetByID(userID)
	}

	if err := s.userRepo.UpdateProfile(userID, updates); err != nil {
		return nil, err
	}

	return s.userRepo.GetByID(userID)
}

// LeaderboardEntry представляет строку лидерборда
type LeaderboardEntry struct {
	Rank           int    `json:"rank"`
	UserID         uint   `json:"user_id"`
	Username       string `json:"username"`
	ProfilePicture string `json:"profile_picture,omitempty"`
	QuizzesTaken   int64  `json:"quizzes_taken"`
	TotalCorrect   int64  `json:"total_correct"`
}

// GetLeaderboard возвращает топ пользователей по сумме правильных ответов.
// Результат кешируется в Redis на короткий TTL: лидерборд меняется при каждом
// Submit, но точность до минуты достаточна.
func (s *UserService) GetLeaderboard(limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	cacheKey := fmt.Sprintf("%s:%d", leaderboardCacheKey, limit)
	if s.cacheRepo != nil {
		var cached []LeaderboardEntry
		if err := s.cacheRepo.GetJSON(cacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	users, err := s.userRepo.GetLeaderboard(limit)
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, 0, len(users))
	for i, u := range users {
		entries = append(entries, LeaderboardEntry{
			Rank:           i + 1,
			UserID:         u.ID,
			Username:       u.Username,
			ProfilePicture: u.ProfilePicture,
			QuizzesTaken:   u.QuizzesTaken,
			TotalCorrect:   u.TotalCorrect,
		})
	}

	if s.cacheRepo != nil {
		if err := s.cacheRepo.SetJSON(cacheKey, entries, leaderboardCacheTTL); err != nil {
			log.Printf("[UserService] Ошибка кеширования лидерборда: %v", err)
		}
	}

	return entries, nil
}
