package repository

import (
	"github.com/yourusername/quizdeck-api/internal/domain/entity"
)

// QuestionRepository определяет методы для работы с вопросами и вариантами ответов
type QuestionRepository interface {
	// CreateBatch создает вопросы вместе с вариантами ответов
	CreateBatch(questions []entity.Question) error
	// GetByQuizID возвращает вопросы викторины с вариантами, упорядоченные по position
	GetByQuizID(quizID uint) ([]entity.Question, error)
	// GetByQuizIDWithCorrectness — то же, что GetByQuizID; отдельное имя подчеркивает,
	// что результат содержит флаги правильности и используется только для грейдинга
	GetByQuizIDWithCorrectness(quizID uint) ([]entity.Question, error)
	Update(question *entity.Question) error
	Delete(id uint) error
	// CountByQuizID возвращает количество вопросов викторины
	CountByQuizID(quizID uint) (int64, error)
}
