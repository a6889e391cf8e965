package entity

import (
	"time"
)

// RefreshToken представляет refresh-токен сессии пользователя
type RefreshToken struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Token     string    `gorm:"size:100;not null;uniqueIndex" json:"-"`
	DeviceID  string    `gorm:"size:100;not null;default:''" json:"device_id"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	RevokedAt *time.Time `gorm:"type:timestamp" json:"revoked_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

// IsValid проверяет, действителен ли токен на момент now
func (t *RefreshToken) IsValid(now time.Time) bool {
	return t.RevokedAt == nil && t.ExpiresAt.After(now)
}
