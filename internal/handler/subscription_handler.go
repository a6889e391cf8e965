package handler

import (
	"crypto/subtle"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/quizdeck-api/internal/handler/dto"
	"github.com/yourusername/quizdeck-api/internal/middleware"
	apperrors "github.com/yourusername/quizdeck-api/internal/pkg/errors"
	"github.com/yourusername/quizdeck-api/internal/service"
)

// SubscriptionHandler обрабатывает запросы, связанные с премиум-подписками
type SubscriptionHandler struct {
	subscriptionService *service.SubscriptionService
	webhookSecret       string
}

// NewSubscriptionHandler создает новый обработчик подписок
func NewSubscriptionHandler(subscriptionService *service.SubscriptionService, webhookSecret string) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptionService: subscriptionService,
		webhookSecret:       webhookSecret,
	}
}

// CheckoutRequest представляет запрос на оформление подписки
type CheckoutRequest struct {
	Plan string `json:"plan" binding:"required"`
}

// WebhookRequest представляет тело вебхука платежного провайдера
type WebhookRequest struct {
	ExternalID string `json:"external_id" binding:"required"`
	Event      string `json:"event" binding:"required"`
}

// CreateCheckout создает pending-подписку и возвращает ссылку на оплату
func (h *SubscriptionHandler) CreateCheckout(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	checkout, err := h.subscriptionService.CreateCheckout(middleware.CurrentUserID(c), req.Plan)
	if err != nil {
		h.handleSubscriptionError(c, err)
		return
	}

	c.JSON(http.StatusCreated, checkout)
}

// Webhook принимает события платежного провайдера. Эндпоинт не требует
// JWT: вместо этого провайдер подписывает запрос общим секретом в заголовке
// X-Webhook-Secret.
func (h *SubscriptionHandler) Webhook(c *gin.Context) {
	secret := c.GetHeader("X-Webhook-Secret")
	if subtle.ConstantTimeCompare([]byte(secret), []byte(h.webhookSecret)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "неверная подпись вебхука"})
		return
	}

	var req WebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.subscriptionService.HandleWebhook(c.Request.Context(), service.WebhookInput{
		ExternalID: req.ExternalID,
		Event:      req.Event,
	})
	if err != nil {
		// Провайдеры ретраят не-2xx ответы, поэтому неизвестная подписка
		// отвечает 200: ретраи тут не помогут.
		if errors.Is(err, apperrors.ErrNotFound) {
			log.Printf("[SubscriptionHandler] Вебхук для неизвестной подписки external_id=%s", req.ExternalID)
			c.JSON(http.StatusOK, gin.H{"status": "ignored"})
			return
		}
		h.handleSubscriptionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetStatus возвращает активную подписку текущего пользователя
func (h *SubscriptionHandler) GetStatus(c *gin.Context) {
	sub, err := h.subscriptionService.GetStatus(middleware.CurrentUserID(c))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusOK, gin.H{"active": false})
			return
		}
		h.handleSubscriptionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"active":       true,
		"subscription": dto.NewSubscriptionResponse(sub),
	})
}

// ListSubscriptions возвращает историю подписок текущего пользователя
func (h *SubscriptionHandler) ListSubscriptions(c *gin.Context) {
	subs, err := h.subscriptionService.ListSubscriptions(middleware.CurrentUserID(c))
	if err != nil {
		h.handleSubscriptionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"subscriptions": dto.NewListSubscriptionResponse(subs),
		"total":         len(subs),
	})
}

// handleSubscriptionError обрабатывает ошибки от сервиса подписок и отправляет соответствующий HTTP ответ
func (h *SubscriptionHandler) handleSubscriptionError(c *gin.Context, err error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrConflict) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrValidation) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	} else {
		log.Printf("ERROR: Internal server error in SubscriptionHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
