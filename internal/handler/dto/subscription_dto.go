package dto

import (
	"time"

	"github.com/yourusername/quizdeck-api/internal/domain/entity"
)

// SubscriptionResponse представляет подписку в формате для ответа клиенту.
// ExternalID провайдера наружу не отдается.
type SubscriptionResponse struct {
	ID               uint       `json:"id"`
	Plan             string     `json:"plan"`
	Provider         string     `json:"provider"`
	Status           string     `json:"status"`
	CurrentPeriodEnd *time.Time `json:"current_period_end,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// NewSubscriptionResponse создает DTO подписки
func NewSubscriptionResponse(sub *entity.Subscription) *SubscriptionResponse {
	if sub == nil {
		return nil
	}
	return &SubscriptionResponse{
		ID:               sub.ID,
		Plan:             sub.Plan,
		Provider:         sub.Provider,
		Status:           sub.Status,
		CurrentPeriodEnd: sub.CurrentPeriodEnd,
		CreatedAt:        sub.CreatedAt,
	}
}

// NewListSubscriptionResponse создает слайс DTO для списка подписок
func NewListSubscriptionResponse(subs []entity.Subscription) []*SubscriptionResponse {
	list := make([]*SubscriptionResponse, len(subs))
	for i := range subs {
		list[i] = NewSubscriptionResponse(&subs[i])
	}
	return list
}
