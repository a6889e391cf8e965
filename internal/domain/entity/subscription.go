package entity

import (
	"time"
)

// Статусы подписки
const (
	SubscriptionStatusPending  = "pending"
	SubscriptionStatusActive   = "active"
	SubscriptionStatusCanceled = "canceled"
	SubscriptionStatusExpired  = "expired"
)

// Планы подписки
const (
	SubscriptionPlanMonthly = "monthly"
	SubscriptionPlanYearly  = "yearly"
)

// Subscription представляет премиум-подписку пользователя.
// Платежная интеграция redirect-based: подписка создается в статусе pending,
// активируется вебхуком провайдера.
type Subscription struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	UserID           uint       `gorm:"not null;index" json:"user_id"`
	Plan             string     `gorm:"size:20;not null" json:"plan"`
	Provider         string     `gorm:"size:30;not null" json:"provider"`
	ExternalID       string     `gorm:"size:100;not null;uniqueIndex" json:"external_id"` // ID заказа у провайдера
	Status           string     `gorm:"size:20;not null;default:'pending';index" json:"status"`
	CurrentPeriodEnd *time.Time `gorm:"type:timestamp" json:"current_period_end,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Subscription) TableName() string {
	return "subscriptions"
}

// IsActive проверяет, активна ли подписка на момент now
func (s *Subscription) IsActive(now time.Time) bool {
	return s.Status == SubscriptionStatusActive &&
		s.CurrentPeriodEnd != nil && s.CurrentPeriodEnd.After(now)
}

// PeriodDuration возвращает длительность оплаченного периода для плана
func (s *Subscription) PeriodDuration() time.Duration {
	if s.Plan == SubscriptionPlanYearly {
		return 365 * 24 * time.Hour
	}
	return 30 * 24 * time.Hour
}
