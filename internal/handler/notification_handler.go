package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/quizdeck-api/internal/middleware"
	apperrors "github.com/yourusername/quizdeck-api/internal/pkg/errors"
	"github.com/yourusername/quizdeck-api/internal/service"
)

// NotificationHandler обрабатывает запросы к ленте уведомлений
type NotificationHandler struct {
	notificationService *service.NotificationService
}

// NewNotificationHandler создает новый обработчик уведомлений
func NewNotificationHandler(notificationService *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// List возвращает уведомления текущего пользователя (новые первыми)
func (h *NotificationHandler) List(c *gin.Context) {
	page, perPage := parsePagination(c)

	notifications, total, err := h.notificationService.List(middleware.CurrentUserID(c), perPage, (page-1)*perPage)
	if err != nil {
		h.handleNotificationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": notifications,
		"total":         total,
		"page":          page,
		"per_page":      perPage,
	})
}

// UnreadCount возвращает количество непрочитанных уведомлений
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	count, err := h.notificationService.UnreadCount(middleware.CurrentUserID(c))
	if err != nil {
		h.handleNotificationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"unread_count": count})
}

// MarkRead помечает уведомление прочитанным
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	notificationID := c.MustGet("notificationID").(uint)

	if err := h.notificationService.MarkRead(middleware.CurrentUserID(c), notificationID); err != nil {
		h.handleNotificationError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// MarkAllRead помечает все уведомления пользователя прочитанными
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	marked, err := h.notificationService.MarkAllRead(middleware.CurrentUserID(c))
	if err != nil {
		h.handleNotificationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"marked": marked})
}

// handleNotificationError обрабатывает ошибки от сервиса уведомлений и отправляет соответствующий HTTP ответ
func (h *NotificationHandler) handleNotificationError(c *gin.Context, err error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	} else {
		log.Printf("ERROR: Internal server error in NotificationHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
