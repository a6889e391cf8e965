package dto

import (
	"time"

	"github.com/yourusername/quizdeck-api/internal/domain/entity"
)

// UserResponse представляет пользователя в формате для ответа клиенту
type UserResponse struct {
	ID             uint       `json:"id"`
	Username       string     `json:"username"`
	Email          string     `json:"email"`
	ProfilePicture string     `json:"profile_picture,omitempty"`
	PremiumUntil   *time.Time `json:"premium_until,omitempty"`
	QuizzesTaken   int64      `json:"quizzes_taken"`
	TotalCorrect   int64      `json:"total_correct"`
	CreatedAt      time.Time  `json:"created_at"`
}

// NewUserResponse создает DTO для пользователя
func NewUserResponse(user *entity.User) *UserResponse {
	if user == nil {
		return nil
	}
	return &UserResponse{
		ID:             user.ID,
		Username:       user.Username,
		Email:          user.Email,
		ProfilePicture: user.ProfilePicture,
		PremiumUntil:   user.PremiumUntil,
		QuizzesTaken:   user.QuizzesTaken,
		TotalCorrect:   user.TotalCorrect,
		CreatedAt:      user.CreatedAt,
	}
}

// AuthResponseDTO представляет ответ на запрос авторизации
type AuthResponseDTO struct {
	User         *UserResponse `json:"user"`
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
}
