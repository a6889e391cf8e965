package repository

import (
	"github.com/yourusername/quizdeck-api/internal/domain/entity"
)

// NotificationRepository определяет методы для работы с инбоксом уведомлений
type NotificationRepository interface {
	Create(notification *entity.Notification) error
	ListByUser(userID uint, limit, offset int) ([]entity.Notification, int64, error)
	UnreadCount(userID uint) (int64, error)
	// MarkRead помечает уведомление прочитанным; false, если запись не принадлежит пользователю
	MarkRead(userID uint, notificationID uint) (bool, error)
	MarkAllRead(userID uint) (int64, error)
}
