package postgres

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/quizdeck-api/internal/domain/entity"
	apperrors "github.com/yourusername/quizdeck-api/internal/pkg/errors"
)

// UserRepo реализует repository.UserRepository
type UserRepo struct {
	db *gorm.DB
}

// NewUserRepo создает новый репозиторий пользователей
func NewUserRepo(db *gorm.DB) *UserRepo {
	return &UserRepo{db: db}
}

// Create создает нового пользователя
func (r *UserRepo) Create(user *entity.User) error {
	if err := r.db.Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: email или username уже заняты", apperrors.ErrConflict)
		}
		return err
	}
	return nil
}

// GetByID возвращает пользователя по ID
func (r *UserRepo) GetByID(id uint) (*entity.User, error) {
	var user entity.User
	err := r.db.First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetByEmail возвращает пользователя по email
func (r *UserRepo) GetByEmail(email string) (*entity.User, error) {
	var user entity.User
	err := r.db.Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetByUsername возвращает пользователя по имени
func (r *UserRepo) GetByUsername(username string) (*entity.User, error) {
	var user entity.User
	err := r.db.Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// UpdateProfile точечно обновляет поля профиля
func (r *UserRepo) UpdateProfile(userID uint, updates map[string]interface{}) error {
	result := r.db.Model(&entity.User{}).
		Where("id = ?", userID).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// IncrementStats атомарно увеличивает счетчики лидерборда через gorm.Expr.
// Выполняется в транзакции tx вместе с терминальным переходом попытки.
func (r *UserRepo) IncrementStats(tx *gorm.DB, userID uint, quizzesTakenDelta int, correctDelta int) error {
	return tx.Model(&entity.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"quizzes_taken": gorm.Expr("quizzes_taken + ?", quizzesTakenDelta),
			"total_correct": gorm.Expr("total_correct + ?", correctDelta),
		}).Error
}

// SetPremiumUntil устанавливает срок действия премиума
func (r *UserRepo) SetPremiumUntil(tx *gorm.DB, userID uint, until time.Time) error {
	return tx.Model(&entity.User{}).
		Where("id = ?", userID).
		Update("premium_until", until).Error
}

// GetLeaderboard возвращает топ пользователей по сумме правильных ответов
func (r *UserRepo) GetLeaderboard(limit int) ([]entity.User, error) {
	var users []entity.User
	err := r.db.Where("quizzes_taken > 0").
		Order("total_correct DESC, quizzes_taken ASC, id ASC").
		Limit(limit).
		Find(&users).Error
	return users, err
}

// UserIdentityRepo реализует repository.UserIdentityRepository
type UserIdentityRepo struct {
	db *gorm.DB
}

// NewUserIdentityRepo создает новый репозиторий федеративных identity
func NewUserIdentityRepo(db *gorm.DB) *UserIdentityRepo {
	return &UserIdentityRepo{db: db}
}

// Create создает связь пользователя с внешним провайдером
func (r *UserIdentityRepo) Create(identity *entity.UserIdentity) error {
	if err := r.db.Create(identity).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: identity уже привязана", apperrors.ErrConflict)
		}
		return err
	}
	return nil
}

// GetByProviderSub возвращает identity по паре (provider, sub)
func (r *UserIdentityRepo) GetByProviderSub(provider, sub string) (*entity.UserIdentity, error) {
	var identity entity.UserIdentity
	err := r.db.Where("provider = ? AND provider_sub = ?", provider, sub).First(&identity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &identity, nil
}

// GetByUserAndProvider возвращает identity пользователя у конкретного провайдера
func (r *UserIdentityRepo) GetByUserAndProvider(userID uint, provider string) (*entity.UserIdentity, error) {
	var identity entity.UserIdentity
	err := r.db.Where("user_id = ? AND provider = ?", userID, provider).First(&identity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &identity, nil
}
