package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/yourusername/quizdeck-api/internal/domain/entity"
	"github.com/yourusername/quizdeck-api/internal/domain/repository"
	apperrors "github.com/yourusername/quizdeck-api/internal/pkg/errors"
)

// QuizRepo реализует repository.QuizRepository
type QuizRepo struct {
	db *gorm.DB
}

// NewQuizRepo создает новый репозиторий викторин
func NewQuizRepo(db *gorm.DB) *QuizRepo {
	return &QuizRepo{db: db}
}

// Create создает новую викторину
func (r *QuizRepo) Create(quiz *entity.Quiz) error {
	return r.db.Create(quiz).Error
}

// GetByID возвращает викторину по ID
func (r *QuizRepo) GetByID(id uint) (*entity.Quiz, error) {
	var quiz entity.Quiz
	err := r.db.First(&quiz, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &quiz, nil
}

// GetWithQuestions возвращает викторину вместе с вопросами и вариантами ответов
func (r *QuizRepo) GetWithQuestions(id uint) (*entity.Quiz, error) {
	var quiz entity.Quiz
	err := r.db.
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("questions.position ASC")
		}).
		Preload("Questions.Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("answer_options.position ASC")
		}).
		First(&quiz, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &quiz, nil
}

// Update обновляет информацию о викторине
func (r *QuizRepo) Update(quiz *entity.Quiz) error {
	return r.db.Save(quiz).Error
}

// UpdateInfo точечно обновляет поля викторины без полного Save
func (r *QuizRepo) UpdateInfo(quizID uint, updates map[string]interface{}) error {
	return r.db.Model(&entity.Quiz{}).
		Where("id = ?", quizID).
		Updates(updates).Error
}

// IncrementQuestionCount атомарно увеличивает question_count на delta через gorm.Expr
func (r *QuizRepo) IncrementQuestionCount(quizID uint, delta int) error {
	return r.db.Model(&entity.Quiz{}).
		Where("id = ?", quizID).
		Update("question_count", gorm.Expr("question_count + ?", delta)).
		Error
}

// IncrementAttemptCount атомарно увеличивает attempt_count внутри транзакции tx
func (r *QuizRepo) IncrementAttemptCount(tx *gorm.DB, quizID uint) error {
	return tx.Model(&entity.Quiz{}).
		Where("id = ?", quizID).
		Update("attempt_count", gorm.Expr("attempt_count + ?", 1)).
		Error
}

// List возвращает список викторин с фильтрами, пагинацией и total count
func (r *QuizRepo) List(filters repository.QuizFilters, limit, offset int) ([]entity.Quiz, int64, error) {
	var quizzes []entity.Quiz
	var total int64

	query := r.db.Model(&entity.Quiz{})

	if !filters.IncludeHidden {
		query = query.Where("is_hidden = false")
	}

	if filters.Premium != nil {
		query = query.Where("is_premium = ?", *filters.Premium)
	}

	if filters.CreatorID != 0 {
		query = query.Where("creator_id = ?", filters.CreatorID)
	}

	if filters.Search != "" {
		search := "%" + filters.Search + "%"
		query = query.Where("title ILIKE ? OR description ILIKE ?", search, search)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// Каталог сортируется по популярности (завершенные попытки), затем по свежести
	err := query.Limit(limit).Offset(offset).
		Order("attempt_count DESC, id DESC").
		Find(&quizzes).Error
	if err != nil {
		return nil, 0, err
	}

	return quizzes, total, nil
}

// Delete удаляет викторину
func (r *QuizRepo) Delete(id uint) error {
	return r.db.Delete(&entity.Quiz{}, id).Error
}
