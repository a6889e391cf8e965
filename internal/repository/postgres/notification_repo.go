package postgres

import (
	"gorm.io/gorm"

	"github.com/yourusername/quizdeck-api/internal/domain/entity"
)

// NotificationRepo реализует repository.NotificationRepository
type NotificationRepo struct {
	db *gorm.DB
}

// NewNotificationRepo создает новый репозиторий уведомлений
func NewNotificationRepo(db *gorm.DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

// Create создает уведомление
func (r *NotificationRepo) Create(notification *entity.Notification) error {
	return r.db.Create(notification).Error
}

// ListByUser возвращает уведомления пользователя, новые первыми, с total count
func (r *NotificationRepo) ListByUser(userID uint, limit, offset int) ([]entity.Notification, int64, error) {
	var notifications []entity.Notification
	var total int64

	query := r.db.Model(&entity.Notification{}).Where("user_id = ?", userID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&notifications).Error
	if err != nil {
		return nil, 0, err
	}

	return notifications, total, nil
}

// UnreadCount возвращает количество непрочитанных уведомлений
func (r *NotificationRepo) UnreadCount(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&entity.Notification{}).
		Where("user_id = ? AND is_read = false", userID).
		Count(&count).Error
	return count, err
}

// MarkRead помечает уведомление прочитанным. Условие по user_id не дает
// пометить чужое уведомление; false означает чужую или несуществующую запись.
func (r *NotificationRepo) MarkRead(userID uint, notificationID uint) (bool, error) {
	result := r.db.Model(&entity.Notification{}).
		Where("id = ? AND user_id = ? AND is_read = false", notificationID, userID).
		Update("is_read", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkAllRead помечает все уведомления пользователя прочитанными
func (r *NotificationRepo) MarkAllRead(userID uint) (int64, error) {
	result := r.db.Model(&entity.Notification{}).
		Where("user_id = ? AND is_read = false", userID).
		Update("is_read", true)
	return result.RowsAffected, result.Error
}
