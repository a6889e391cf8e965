package postgres

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/quizdeck-api/internal/domain/entity"
	apperrors "github.com/yourusername/quizdeck-api/internal/pkg/errors"
)

// SubscriptionRepo реализует repository.SubscriptionRepository
type SubscriptionRepo struct {
	db *gorm.DB
}

// NewSubscriptionRepo создает новый репозиторий подписок
func NewSubscriptionRepo(db *gorm.DB) *SubscriptionRepo {
	return &SubscriptionRepo{db: db}
}

// Create создает подписку в статусе pending
func (r *SubscriptionRepo) Create(sub *entity.Subscription) error {
	if err := r.db.Create(sub).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: external_id уже существует", apperrors.ErrConflict)
		}
		return err
	}
	return nil
}

// GetByExternalID возвращает подписку по идентификатору платежного провайдера
func (r *SubscriptionRepo) GetByExternalID(externalID string) (*entity.Subscription, error) {
	var sub entity.Subscription
	err := r.db.Where("external_id = ?", externalID).First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// GetActiveByUser возвращает активную подписку пользователя, если есть
func (r *SubscriptionRepo) GetActiveByUser(userID uint) (*entity.Subscription, error) {
	var sub entity.Subscription
	err := r.db.Where("user_id = ? AND status = ? AND current_period_end > NOW()",
		userID, entity.SubscriptionStatusActive).
		Order("current_period_end DESC").
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// Activate атомарно переводит pending → active условным UPDATE.
// RowsAffected == 0 означает, что подписка уже активирована — повторная
// доставка вебхука провайдера становится no-op.
func (r *SubscriptionRepo) Activate(tx *gorm.DB, subscriptionID uint, periodEnd time.Time) (bool, error) {
	result := tx.Model(&entity.Subscription{}).
		Where("id = ? AND status = ?", subscriptionID, entity.SubscriptionStatusPending).
		Updates(map[string]interface{}{
			"status":             entity.SubscriptionStatusActive,
			"current_period_end": periodEnd,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListByUser возвращает все подписки пользователя, новые первыми
func (r *SubscriptionRepo) ListByUser(userID uint) ([]entity.Subscription, error) {
	var subs []entity.Subscription
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&subs).Error
	return subs, err
}
