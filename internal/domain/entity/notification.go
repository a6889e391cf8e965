package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Типы уведомлений
const (
	NotificationAttemptCompleted = "attempt:completed"
	NotificationPremiumActivated = "premium:activated"
	NotificationQuizPublished    = "quiz:published"
)

// JSONMap - пользовательский тип для произвольного JSONB-payload уведомления
type JSONMap map[string]interface{}

// Scan реализует интерфейс sql.Scanner для JSONMap
func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = JSONMap{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to unmarshal JSONB value: expected []byte")
	}

	if len(bytes) == 0 {
		*m = JSONMap{}
		return nil
	}

	return json.Unmarshal(bytes, m)
}

// Value реализует интерфейс driver.Valuer для JSONMap
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil || len(m) == 0 {
		return []byte("{}"), nil // Пустой JSON объект вместо null
	}
	return json.Marshal(m)
}

// Notification представляет запись в инбоксе пользователя.
// Доставка по WebSocket — fire-and-forget; запись в инбоксе является
// источником истины и переживает отключение клиента.
type Notification struct {
	ID      uint    `gorm:"primaryKey" json:"id"`
	UserID  uint    `gorm:"not null;index:idx_notifications_user_unread" json:"user_id"`
	Type    string  `gorm:"size:50;not null" json:"type"`
	Payload JSONMap `gorm:"type:jsonb;not null" json:"payload"`
	IsRead  bool    `gorm:"not null;default:false;index:idx_notifications_user_unread" json:"is_read"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (Notification) TableName() string {
	return "notifications"
}
