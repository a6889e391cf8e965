package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yourusername/quizdeck-api/internal/domain/entity"
	"github.com/yourusername/quizdeck-api/internal/domain/repository"
	apperrors "github.com/yourusername/quizdeck-api/internal/pkg/errors"
)

// SubscriptionService управляет премиум-подписками: создание pending-заказа,
// идемпотентная активация вебхуком провайдера, статус для клиента.
type SubscriptionService struct {
	subscriptionRepo repository.SubscriptionRepository
	userRepo         repository.UserRepository
	emailService     EmailService
	notifier         Notifier
	db               *gorm.DB
	provider         string
	checkoutBaseURL  string
}

// NewSubscriptionService создает новый сервис подписок
func NewSubscriptionService(
	subscriptionRepo repository.SubscriptionRepository,
	userRepo repository.UserRepository,
	emailService EmailService,
	notifier Notifier,
	db *gorm.DB,
	provider string,
	checkoutBaseURL string,
) *SubscriptionService {
	if provider == "" {
		provider = "mockpay"
	}
	return &SubscriptionService{
		subscriptionRepo: subscriptionRepo,
		userRepo:         userRepo,
		emailService:     emailService,
		notifier:         notifier,
		db:               db,
		provider:         provider,
		checkoutBaseURL:  checkoutBaseURL,
	}
}

// CheckoutResponse содержит данные для редиректа на оплату
type CheckoutResponse struct {
	SubscriptionID uint   `json:"subscription_id"`
	ExternalID     string `json:"external_id"`
	CheckoutURL    string `json:"checkout_url"`
}

// CreateCheckout создает pending-подписку и возвращает URL оплаты.
// Повторный checkout при уже активной подписке отклоняется.
func (s *SubscriptionService) CreateCheckout(userID uint, plan string) (*CheckoutResponse, error) {
	if plan != entity.SubscriptionPlanMonthly && plan != entity.SubscriptionPlanYearly {
		return nil, fmt.Errorf("%w: неизвестный план подписки %q", apperrors.ErrValidation, plan)
	}

	if _, err := s.userRepo.GetByID(userID); err != nil {
		return nil, err
	}

	_, err := s.subscriptionRepo.GetActiveByUser(userID)
	if err == nil {
		return nil, fmt.Errorf("%w: подписка уже активна", apperrors.ErrConflict)
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	sub := &entity.Subscription{
		UserID:     userID,
		Plan:       plan,
		Provider:   s.provider,
		ExternalID: uuid.NewString(),
		Status:     entity.SubscriptionStatusPending,
	}
	if err := s.subscriptionRepo.Create(sub); err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}

	log.Printf("[SubscriptionService] Создан pending-заказ %s (план %s) для пользователя %d",
		sub.ExternalID, plan, userID)

	return &CheckoutResponse{
		SubscriptionID: sub.ID,
		ExternalID:     sub.ExternalID,
		CheckoutURL:    fmt.Sprintf("%s/checkout/%s", s.checkoutBaseURL, sub.ExternalID),
	}, nil
}

// WebhookInput содержит данные вебхука платежного провайдера
type WebhookInput struct {
	ExternalID string
	Event      string
}

// HandleWebhook обрабатывает вебхук провайдера. Активация идемпотентна:
// повторная доставка события payment.succeeded становится no-op
// (условный UPDATE pending → active на уровне хранилища).
func (s *SubscriptionService) HandleWebhook(ctx context.Context, input WebhookInput) error {
	sub, err := s.subscriptionRepo.GetByExternalID(input.ExternalID)
	if err != nil {
		return err
	}

	switch input.Event {
	case "payment.succeeded":
		return s.activate(ctx, sub)
	case "payment.failed", "payment.canceled":
		log.Printf("[SubscriptionService] Платеж по заказу %s не состоялся (%s)", input.ExternalID, input.Event)
		return nil
	default:
		return fmt.Errorf("%w: неизвестное событие %q", apperrors.ErrValidation, input.Event)
	}
}

// activate переводит подписку в active и продлевает премиум пользователя
// в одной транзакции, затем best-effort уведомляет и отправляет чек.
func (s *SubscriptionService) activate(ctx context.Context, sub *entity.Subscription) error {
	periodEnd := time.Now().Add(sub.PeriodDuration())

	activated := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		ok, err := s.subscriptionRepo.Activate(tx, sub.ID, periodEnd)
		if err != nil {
			return err
		}
		if !ok {
			// Уже активирована более ранней доставкой вебхука
			return nil
		}
		activated = true
		return s.userRepo.SetPremiumUntil(tx, sub.UserID, periodEnd)
	})
	if err != nil {
		return err
	}
	if !activated {
		log.Printf("[SubscriptionService] Повторный вебхук по заказу %s проигнорирован", sub.ExternalID)
		return nil
	}

	log.Printf("[SubscriptionService] Подписка %d активирована для пользователя %d до %s",
		sub.ID, sub.UserID, periodEnd.Format(time.RFC3339))

	if s.notifier != nil {
		s.notifier.Notify(sub.UserID, entity.NotificationPremiumActivated, entity.JSONMap{
			"plan":       sub.Plan,
			"period_end": periodEnd.Format(time.RFC3339),
		})
	}

	if s.emailService != nil {
		user, err := s.userRepo.GetByID(sub.UserID)
		if err == nil {
			if err := s.emailService.SendPremiumReceipt(ctx, user.Email, sub.Plan, periodEnd, sub.ExternalID); err != nil {
				log.Printf("[SubscriptionService] Ошибка отправки чека пользователю %d: %v", sub.UserID, err)
			}
		}
	}

	return nil
}

// GetStatus возвращает активную подписку пользователя или ErrNotFound
func (s *SubscriptionService) GetStatus(userID uint) (*entity.Subscription, error) {
	return s.subscriptionRepo.GetActiveByUser(userID)
}

// ListSubscriptions возвращает историю подписок пользователя
func (s *SubscriptionService) ListSubscriptions(userID uint) ([]entity.Subscription, error) {
	return s.subscriptionRepo.ListByUser(userID)
}
