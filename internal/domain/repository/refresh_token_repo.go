package repository

import (
	"github.com/yourusername/quizdeck-api/internal/domain/entity"
)

// RefreshTokenRepository определяет методы для работы с refresh-токенами
type RefreshTokenRepository interface {
	Create(token *entity.RefreshToken) error
	GetByToken(token string) (*entity.RefreshToken, error)
	Revoke(token string) error
	RevokeAllForUser(userID uint) error
	// DeleteExpired удаляет истекшие и отозванные токены, возвращает количество удаленных
	DeleteExpired() (int64, error)
}
