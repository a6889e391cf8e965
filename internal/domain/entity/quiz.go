package entity

import (
	"time"
)

// Quiz представляет викторину-тест в каталоге
type Quiz struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Title        string `gorm:"size:100;not null" json:"title"`
	Description  string `gorm:"size:500;not null;default:''" json:"description"`
	CreatorID    uint   `gorm:"not null;index" json:"creator_id"`
	TimeLimitMin int    `gorm:"not null;default:0" json:"time_limit_min"` // 0 = без ограничения времени
	IsPremium    bool   `gorm:"not null;default:false;index" json:"is_premium"`
	IsHidden     bool   `gorm:"not null;default:false;index" json:"is_hidden"`

	// Денормализованные счетчики. question_count поддерживается при авторинге,
	// attempt_count увеличивается движком попыток ровно один раз на завершенную
	// (не брошенную) попытку. Только атомарные инкременты, никакого read-modify-write.
	QuestionCount int `gorm:"not null;default:0" json:"question_count"`
	AttemptCount  int `gorm:"not null;default:0" json:"attempt_count"`

	Questions []Question `gorm:"foreignKey:QuizID" json:"questions,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Quiz) TableName() string {
	return "quizzes"
}

// IsTimed проверяет, ограничена ли викторина по времени
func (q *Quiz) IsTimed() bool {
	return q.TimeLimitMin > 0
}

// TimeLimit возвращает лимит времени как Duration (0 для викторин без лимита)
func (q *Quiz) TimeLimit() time.Duration {
	return time.Duration(q.TimeLimitMin) * time.Minute
}

// Deadline возвращает абсолютный дедлайн попытки, начатой в startedAt.
// Второе значение false, если викторина не ограничена по времени.
func (q *Quiz) Deadline(startedAt time.Time) (time.Time, bool) {
	if !q.IsTimed() {
		return time.Time{}, false
	}
	return startedAt.Add(q.TimeLimit()), true
}

// VisibleTo проверяет, видна ли викторина пользователю.
// Скрытые викторины видны только создателю и администраторам.
func (q *Quiz) VisibleTo(userID uint, isAdmin bool) bool {
	if !q.IsHidden {
		return true
	}
	return isAdmin || q.CreatorID == userID
}
