package service

import (
	"log"

	"github.com/yourusername/quizdeck-api/internal/domain/entity"
	"github.com/yourusername/quizdeck-api/internal/domain/repository"
	apperrors "github.com/yourusername/quizdeck-api/internal/pkg/errors"
)

// Pusher доставляет событие подключенным клиентам пользователя по WebSocket
type Pusher interface {
	SendToUser(userID uint, eventType string, payload interface{}) error
}

// NotificationService управляет инбоксом уведомлений и realtime-доставкой.
// Запись в инбоксе — источник истины; WebSocket push — best-effort
// и переживается отключением клиента.
type NotificationService struct {
	notificationRepo repository.NotificationRepository
	pusher           Pusher
}

// NewNotificationService создает новый сервис уведомлений
func NewNotificationService(notificationRepo repository.NotificationRepository, pusher Pusher) *NotificationService {
	return &NotificationService{
		notificationRepo: notificationRepo,
		pusher:           pusher,
	}
}

// Notify создает запись в инбоксе и отправляет push подключенным клиентам.
// Реализует интерфейс Notifier. Ошибки не возвращаются: уведомления
// не должны откатывать породившую их бизнес-операцию.
func (s *NotificationService) Notify(userID uint, notificationType string, payload entity.JSONMap) {
	notification := &entity.Notification{
		UserID:  userID,
		Type:    notificationType,
		Payload: payload,
	}
	if err := s.notificationRepo.Create(notification); err != nil {
		log.Printf("[NotificationService] Ошибка записи уведомления %s для пользователя %d: %v",
			notificationType, userID, err)
		return
	}

	if s.pusher != nil {
		if err := s.pusher.SendToUser(userID, notificationType, notification); err != nil {
			log.Printf("[NotificationService] Push пользователю %d не доставлен: %v", userID, err)
		}
	}
}

// List возвращает уведомления пользователя с пагинацией и total count
func (s *NotificationService) List(userID uint, limit, offset int) ([]entity.Notification, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.notificationRepo.ListByUser(userID, limit, offset)
}

// UnreadCount возвращает количество непрочитанных уведомлений
func (s *NotificationService) UnreadCount(userID uint) (int64, error) {
	return s.notificationRepo.UnreadCount(userID)
}

// MarkRead помечает уведомление прочитанным
func (s *NotificationService) MarkRead(userID, notificationID uint) error {
	ok, err := s.notificationRepo.MarkRead(userID, notificationID)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.ErrNotFound
	}
	return nil
}

// MarkAllRead помечает все уведомления пользователя прочитанными
func (s *NotificationService) MarkAllRead(userID uint) (int64, error) {
	return s.notificationRepo.MarkAllRead(userID)
}
