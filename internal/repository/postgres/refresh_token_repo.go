package postgres

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/quizdeck-api/internal/domain/entity"
	apperrors "github.com/yourusername/quizdeck-api/internal/pkg/errors"
)

// RefreshTokenRepo реализует repository.RefreshTokenRepository
type RefreshTokenRepo struct {
	db *gorm.DB
}

// NewRefreshTokenRepo создает новый репозиторий refresh-токенов
func NewRefreshTokenRepo(db *gorm.DB) *RefreshTokenRepo {
	return &RefreshTokenRepo{db: db}
}

// Create сохраняет новый refresh-токен
func (r *RefreshTokenRepo) Create(token *entity.RefreshToken) error {
	return r.db.Create(token).Error
}

// GetByToken возвращает запись по значению токена
func (r *RefreshTokenRepo) GetByToken(token string) (*entity.RefreshToken, error) {
	var rt entity.RefreshToken
	err := r.db.Where("token = ?", token).First(&rt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &rt, nil
}

// Revoke отзывает токен (идемпотентно)
func (r *RefreshTokenRepo) Revoke(token string) error {
	return r.db.Model(&entity.RefreshToken{}).
		Where("token = ? AND revoked_at IS NULL", token).
		Update("revoked_at", time.Now()).Error
}

// RevokeAllForUser отзывает все активные токены пользователя (logout everywhere)
func (r *RefreshTokenRepo) RevokeAllForUser(userID uint) error {
	return r.db.Model(&entity.RefreshToken{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", time.Now()).Error
}

// DeleteExpired удаляет истекшие и отозванные токены, возвращает количество удаленных
func (r *RefreshTokenRepo) DeleteExpired() (int64, error) {
	result := r.db.Where("expires_at < NOW() OR revoked_at IS NOT NULL").
		Delete(&entity.RefreshToken{})
	return result.RowsAffected, result.Error
}
