package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/yourusername/quizdeck-api/internal/domain/entity"
	apperrors "github.com/yourusername/quizdeck-api/internal/pkg/errors"
)

// QuestionRepo реализует repository.QuestionRepository
type QuestionRepo struct {
	db *gorm.DB
}

// NewQuestionRepo создает новый репозиторий вопросов
func NewQuestionRepo(db *gorm.DB) *QuestionRepo {
	return &QuestionRepo{db: db}
}

// CreateBatch создает вопросы вместе с вариантами ответов одной транзакцией
func (r *QuestionRepo) CreateBatch(questions []entity.Question) error {
	if len(questions) == 0 {
		return nil
	}
	return r.db.Create(&questions).Error
}

// GetByQuizID возвращает вопросы викторины с вариантами, упорядоченные по position
func (r *QuestionRepo) GetByQuizID(quizID uint) ([]entity.Question, error) {
	var questions []entity.Question
	err := r.db.
		Preload("Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("answer_options.position ASC")
		}).
		Where("quiz_id = ?", quizID).
		Order("position ASC").
		Find(&questions).Error
	return questions, err
}

// GetByQuizIDWithCorrectness возвращает вопросы с флагами правильности для грейдинга.
// Флаги IsCorrect никогда не сериализуются наружу (json:"-"), поэтому выборка
// совпадает с GetByQuizID; отдельный метод фиксирует назначение в сигнатуре.
func (r *QuestionRepo) GetByQuizIDWithCorrectness(quizID uint) ([]entity.Question, error) {
	return r.GetByQuizID(quizID)
}

// Update обновляет вопрос
func (r *QuestionRepo) Update(question *entity.Question) error {
	result := r.db.Save(question)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// Delete удаляет вопрос вместе с вариантами ответов
func (r *QuestionRepo) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("question_id = ?", id).Delete(&entity.AnswerOption{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&entity.Question{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperrors.ErrNotFound
		}
		return nil
	})
}

// CountByQuizID возвращает количество вопросов викторины
func (r *QuestionRepo) CountByQuizID(quizID uint) (int64, error) {
	var count int64
	err := r.db.Model(&entity.Question{}).
		Where("quiz_id = ?", quizID).
		Count(&count).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}
	return count, nil
}
