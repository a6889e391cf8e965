package repository

import (
	"gorm.io/gorm"

	"github.com/yourusername/quizdeck-api/internal/domain/entity"
)

// QuizFilters определяет фильтры для поиска викторин в каталоге
type QuizFilters struct {
	Search        string // Поиск по названию/описанию
	Premium       *bool  // Фильтр по премиум-флагу
	IncludeHidden bool   // Включать скрытые (только для админа/владельца)
	CreatorID     uint   // Фильтр по автору (0 = все)
}

// QuizRepository определяет методы для работы с викторинами
type QuizRepository interface {
	Create(quiz *entity.Quiz) error
	GetByID(id uint) (*entity.Quiz, error)
	GetWithQuestions(id uint) (*entity.Quiz, error)
	Update(quiz *entity.Quiz) error
	// UpdateInfo точечно обновляет поля викторины без полного Save
	UpdateInfo(quizID uint, updates map[string]interface{}) error
	// IncrementQuestionCount атомарно увеличивает question_count на delta через gorm.Expr
	IncrementQuestionCount(quizID uint, delta int) error
	// IncrementAttemptCount атомарно увеличивает attempt_count внутри транзакции tx.
	// Вызывается движком попыток ровно один раз на завершенную (не брошенную) попытку.
	IncrementAttemptCount(tx *gorm.DB, quizID uint) error
	List(filters QuizFilters, limit, offset int) ([]entity.Quiz, int64, error)
	Delete(id uint) error
}
