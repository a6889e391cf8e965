package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/quizdeck-api/internal/domain/entity"
)

// SubscriptionRepository определяет методы для работы с подписками
type SubscriptionRepository interface {
	Create(sub *entity.Subscription) error
	GetByExternalID(externalID string) (*entity.Subscription, error)
	GetActiveByUser(userID uint) (*entity.Subscription, error)
	// Activate атомарно переводит pending → active внутри транзакции tx:
	// условный UPDATE по статусу. Возвращает false при RowsAffected == 0,
	// что защищает от повторной доставки вебхука провайдера.
	Activate(tx *gorm.DB, subscriptionID uint, periodEnd time.Time) (bool, error)
	ListByUser(userID uint) ([]entity.Subscription, error)
}
