package entity

import (
	"time"
)

// Question представляет вопрос викторины
type Question struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	QuizID   uint   `gorm:"not null;index" json:"quiz_id"`
	Text     string `gorm:"size:500;not null" json:"text"`
	ImageURL string `gorm:"size:255;not null;default:''" json:"image_url,omitempty"`
	Position int    `gorm:"not null;default:0" json:"position"`

	Options []AnswerOption `gorm:"foreignKey:QuestionID" json:"options,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Question) TableName() string {
	return "questions"
}

// CorrectOptionID возвращает ID правильного варианта (0, если варианты не загружены)
func (q *Question) CorrectOptionID() uint {
	for _, opt := range q.Options {
		if opt.IsCorrect {
			return opt.ID
		}
	}
	return 0
}

// HasOption проверяет, принадлежит ли вариант с данным ID этому вопросу
func (q *Question) HasOption(optionID uint) bool {
	for _, opt := range q.Options {
		if opt.ID == optionID {
			return true
		}
	}
	return false
}

// AnswerOption представляет вариант ответа на вопрос.
// Флаг правильности никогда не сериализуется клиенту — грейдинг строго серверный.
type AnswerOption struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	QuestionID uint   `gorm:"not null;index" json:"question_id"`
	Text       string `gorm:"size:255;not null" json:"text"`
	IsCorrect  bool   `gorm:"not null;default:false" json:"-"` // Скрыто от клиента
	Position   int    `gorm:"not null;default:0" json:"position"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (AnswerOption) TableName() string {
	return "answer_options"
}
