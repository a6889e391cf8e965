package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/quizdeck-api/internal/domain/entity"
)

// UserRepository определяет методы для работы с пользователями
type UserRepository interface {
	Create(user *entity.User) error
	GetByID(id uint) (*entity.User, error)
	GetByEmail(email string) (*entity.User, error)
	GetByUsername(username string) (*entity.User, error)
	UpdateProfile(userID uint, updates map[string]interface{}) error
	// IncrementStats атомарно увеличивает счетчики лидерборда внутри транзакции tx
	IncrementStats(tx *gorm.DB, userID uint, quizzesTakenDelta int, correctDelta int) error
	// SetPremiumUntil устанавливает срок действия премиума внутри транзакции tx
	SetPremiumUntil(tx *gorm.DB, userID uint, until time.Time) error
	// GetLeaderboard возвращает топ пользователей по total_correct
	GetLeaderboard(limit int) ([]entity.User, error)
}

// UserIdentityRepository определяет методы для федеративных identity
type UserIdentityRepository interface {
	Create(identity *entity.UserIdentity) error
	GetByProviderSub(provider, sub string) (*entity.UserIdentity, error)
	GetByUserAndProvider(userID uint, provider string) (*entity.UserIdentity, error)
}
