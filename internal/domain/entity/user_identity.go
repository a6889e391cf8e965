package entity

import (
	"time"
)

// UserIdentity связывает пользователя с внешним identity-провайдером (федеративный вход)
type UserIdentity struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	UserID        uint   `gorm:"not null;index" json:"user_id"`
	Provider      string `gorm:"size:30;not null;uniqueIndex:idx_identity_provider_sub" json:"provider"`
	ProviderSub   string `gorm:"size:100;not null;uniqueIndex:idx_identity_provider_sub" json:"provider_sub"`
	ProviderEmail string `gorm:"size:100;not null;default:''" json:"provider_email"`
	EmailVerified bool   `gorm:"not null;default:false" json:"email_verified"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (UserIdentity) TableName() string {
	return "user_identities"
}
