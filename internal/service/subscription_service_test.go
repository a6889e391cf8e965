package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yourusername/quizdeck-api/internal/domain/entity"
	apperrors "github.com/yourusername/quizdeck-api/internal/pkg/errors"
)

// MockSubscriptionRepository реализует repository.SubscriptionRepository
type MockSubscriptionRepository struct {
	mock.Mock
}

func (m *MockSubscriptionRepository) Create(sub *entity.Subscription) error {
	args := m.Called(sub)
	return args.Error(0)
}

func (m *MockSubscriptionRepository) GetByExternalID(externalID string) (*entity.Subscription, error) {
	args := m.Called(externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) GetActiveByUser(userID uint) (*entity.Subscription, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) Activate(tx *gorm.DB, subscriptionID uint, periodEnd time.Time) (bool, error) {
	args := m.Called(tx, subscriptionID, periodEnd)
	return args.Bool(0), args.Error(1)
}

func (m *MockSubscriptionRepository) ListByUser(userID uint) ([]entity.Subscription, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Subscription), args.Error(1)
}

func newTestSubscriptionService(subRepo *MockSubscriptionRepository, userRepo *MockUserRepository) *SubscriptionService {
	return NewSubscriptionService(subRepo, userRepo, &NoopEmailService{}, nil, nil, "mockpay", "https://pay.example")
}

func TestSubscriptionService_CreateCheckout_Success(t *testing.T) {
	// Arrange
	mockSubRepo := new(MockSubscriptionRepository)
	mockUserRepo := new(MockUserRepository)

	mockUserRepo.On("GetByID", uint(1)).Return(regularUser(1), nil)
	mockSubRepo.On("GetActiveByUser", uint(1)).Return(nil, apperrors.ErrNotFound)
	mockSubRepo.On("Create", mock.AnythingOfType("*entity.Subscription")).Return(nil)

	svc := newTestSubscriptionService(mockSubRepo, mockUserRepo)

	// Act
	checkout, err := svc.CreateCheckout(1, entity.SubscriptionPlanMonthly)

	// Assert
	require.NoError(t, err, "Создание заказа должно быть успешным")
	assert.NotEmpty(t, checkout.ExternalID, "ExternalID должен быть сгенерирован")
	assert.Contains(t, checkout.CheckoutURL, checkout.ExternalID, "URL оплаты должен содержать ID заказа")
	mockSubRepo.AssertExpectations(t)
}

func TestSubscriptionService_CreateCheckout_UnknownPlan(t *testing.T) {
	// Arrange
	mockSubRepo := new(MockSubscriptionRepository)
	mockUserRepo := new(MockUserRepository)

	svc := newTestSubscriptionService(mockSubRepo, mockUserRepo)

	// Act
	checkout, err := svc.CreateCheckout(1, "lifetime")

	// Assert
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Nil(t, checkout)
	mockSubRepo.AssertNotCalled(t, "Create")
}

func TestSubscriptionService_CreateCheckout_AlreadyActive(t *testing.T) {
	// Arrange
	mockSubRepo := new(MockSubscriptionRepository)
	mockUserRepo := new(MockUserRepository)

	active := &entity.Subscription{ID: 3, UserID: 1, Status: entity.SubscriptionStatusActive}

	mockUserRepo.On("GetByID", uint(1)).Return(regularUser(1), nil)
	mockSubRepo.On("GetActiveByUser", uint(1)).Return(active, nil)

	svc := newTestSubscriptionService(mockSubRepo, mockUserRepo)

	// Act
	_, err := svc.CreateCheckout(1, entity.SubscriptionPlanMonthly)

	// Assert
	assert.ErrorIs(t, err, apperrors.ErrConflict, "Повторный checkout при активной подписке должен отклоняться")
	mockSubRepo.AssertNotCalled(t, "Create")
}

func TestSubscriptionService_HandleWebhook_UnknownEvent(t *testing.T) {
	// Arrange
	mockSubRepo := new(MockSubscriptionRepository)
	mockUserRepo := new(MockUserRepository)

	sub := &entity.Subscription{ID: 3, ExternalID: "ext-1", Status: entity.SubscriptionStatusPending}
	mockSubRepo.On("GetByExternalID", "ext-1").Return(sub, nil)

	svc := newTestSubscriptionService(mockSubRepo, mockUserRepo)

	// Act
	err := svc.HandleWebhook(context.Background(), WebhookInput{ExternalID: "ext-1", Event: "refund.created"})

	// Assert
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestSubscriptionService_HandleWebhook_PaymentFailedIsNoOp(t *testing.T) {
	// Arrange
	mockSubRepo := new(MockSubscriptionRepository)
	mockUserRepo := new(MockUserRepository)

	sub := &entity.Subscription{ID: 3, ExternalID: "ext-1", Status: entity.SubscriptionStatusPending}
	mockSubRepo.On("GetByExternalID", "ext-1").Return(sub, nil)

	svc := newTestSubscriptionService(mockSubRepo, mockUserRepo)

	// Act
	err := svc.HandleWebhook(context.Background(), WebhookInput{ExternalID: "ext-1", Event: "payment.failed"})

	// Assert
	require.NoError(t, err, "Неуспешный платеж не должен быть ошибкой обработки")
	mockSubRepo.AssertNotCalled(t, "Activate")
}

func TestSubscriptionService_HandleWebhook_UnknownOrder(t *testing.T) {
	// Arrange
	mockSubRepo := new(MockSubscriptionRepository)
	mockUserRepo := new(MockUserRepository)

	mockSubRepo.On("GetByExternalID", "ghost").Return(nil, apperrors.ErrNotFound)

	svc := newTestSubscriptionService(mockSubRepo, mockUserRepo)

	// Act
	err := svc.HandleWebhook(context.Background(), WebhookInput{ExternalID: "ghost", Event: "payment.succeeded"})

	// Assert
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
