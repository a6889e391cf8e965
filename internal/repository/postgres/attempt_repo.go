package postgres

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/yourusername/quizdeck-api/internal/domain/entity"
	"github.com/yourusername/quizdeck-api/internal/domain/repository"
	apperrors "github.com/yourusername/quizdeck-api/internal/pkg/errors"
)

// AttemptRepo реализует repository.AttemptRepository
type AttemptRepo struct {
	db *gorm.DB
}

// NewAttemptRepo создает новый репозиторий попыток
func NewAttemptRepo(db *gorm.DB) *AttemptRepo {
	return &AttemptRepo{db: db}
}

// Create создает новую попытку.
// Partial unique index idx_attempt_single_in_progress гарантирует max 1 in_progress
// на пару (user, quiz):
// - 23505 (unique violation) → ErrAttemptInProgress (проигранная гонка StartAttempt)
// - Другая DB ошибка → возвращается как есть
func (r *AttemptRepo) Create(attempt *entity.TestAttempt) error {
	if err := r.db.Create(attempt).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: user=%d quiz=%d", repository.ErrAttemptInProgress, attempt.UserID, attempt.QuizID)
		}
		return err
	}
	return nil
}

// GetByID возвращает попытку по ID без связанных коллекций
func (r *AttemptRepo) GetByID(id string) (*entity.TestAttempt, error) {
	var attempt entity.TestAttempt
	err := r.db.First(&attempt, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &attempt, nil
}

// GetWithDrafts возвращает попытку вместе с черновыми ответами
func (r *AttemptRepo) GetWithDrafts(id string) (*entity.TestAttempt, error) {
	var attempt entity.TestAttempt
	err := r.db.Preload("DraftAnswers").First(&attempt, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &attempt, nil
}

// GetInProgress возвращает in_progress попытку пары (user, quiz)
func (r *AttemptRepo) GetInProgress(userID, quizID uint) (*entity.TestAttempt, error) {
	var attempt entity.TestAttempt
	err := r.db.Preload("DraftAnswers").
		Where("user_id = ? AND quiz_id = ? AND status = ?", userID, quizID, entity.AttemptStatusInProgress).
		First(&attempt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &attempt, nil
}

// ListInProgressByUser возвращает все in_progress попытки пользователя с черновиками
func (r *AttemptRepo) ListInProgressByUser(userID uint) ([]entity.TestAttempt, error) {
	var attempts []entity.TestAttempt
	err := r.db.Preload("DraftAnswers").
		Where("user_id = ? AND status = ?", userID, entity.AttemptStatusInProgress).
		Order("started_at DESC").
		Find(&attempts).Error
	return attempts, err
}

// ListByQuiz возвращает терминальные попытки викторины с пагинацией и total count
func (r *AttemptRepo) ListByQuiz(quizID uint, limit, offset int) ([]entity.TestAttempt, int64, error) {
	var attempts []entity.TestAttempt
	var total int64

	query := r.db.Model(&entity.TestAttempt{}).
		Where("quiz_id = ? AND status IN ?", quizID,
			[]string{entity.AttemptStatusCompleted, entity.AttemptStatusLate})

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("correct_answers DESC, completed_at ASC").
		Limit(limit).
		Offset(offset).
		Find(&attempts).Error
	if err != nil {
		return nil, 0, err
	}

	return attempts, total, nil
}

// ListCompletedByUser возвращает терминальные попытки пользователя (история)
func (r *AttemptRepo) ListCompletedByUser(userID uint, limit, offset int) ([]entity.TestAttempt, error) {
	var attempts []entity.TestAttempt
	err := r.db.Where("user_id = ? AND status <> ?", userID, entity.AttemptStatusInProgress).
		Order("completed_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&attempts).Error
	return attempts, err
}

// UpsertDraft сохраняет черновой ответ (last write wins по вопросу).
// INSERT ... SELECT с проверкой статуса попытки в том же запросе: автосейв,
// пришедший после терминального перехода, не вставит и не обновит ничего —
// завершенную попытку нельзя воскресить даже в гонке.
// Возвращает false, если попытка уже не in_progress.
func (r *AttemptRepo) UpsertDraft(attemptID string, questionID, selectedOptionID uint) (bool, error) {
	sql := `
	INSERT INTO draft_answers (attempt_id, question_id, selected_option_id, updated_at)
	SELECT a.id, ?, ?, NOW()
	FROM test_attempts a
	WHERE a.id = ? AND a.status = ?
	ON CONFLICT (attempt_id, question_id)
	DO UPDATE SET selected_option_id = EXCLUDED.selected_option_id, updated_at = NOW();`

	result := r.db.Exec(sql, questionID, selectedOptionID, attemptID, entity.AttemptStatusInProgress)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// FinishAttempt атомарно переводит in_progress → терминальный статус.
// Условный UPDATE по статусу: из двух конкурирующих терминальных переходов
// (Submit из двух вкладок, Submit против Abandon) побеждает ровно один,
// проигравший получает ErrAlreadyFinished.
func (r *AttemptRepo) FinishAttempt(tx *gorm.DB, attemptID string, status string, correctAnswers int, completedAt time.Time) error {
	result := tx.Model(&entity.TestAttempt{}).
		Where("id = ? AND status = ?", attemptID, entity.AttemptStatusInProgress).
		Updates(map[string]interface{}{
			"status":          status,
			"correct_answers": correctAnswers,
			"completed_at":    completedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("finish attempt %s failed: %w", attemptID, result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: attempt %s", repository.ErrAlreadyFinished, attemptID)
	}

	return nil
}

// SaveAnswers сохраняет финальные оцененные ответы батчем в транзакции
func (r *AttemptRepo) SaveAnswers(tx *gorm.DB, answers []entity.AttemptAnswer) error {
	if len(answers) == 0 {
		return nil
	}
	return tx.Create(&answers).Error
}

// GetAnswers возвращает финальные ответы попытки
func (r *AttemptRepo) GetAnswers(attemptID string) ([]entity.AttemptAnswer, error) {
	var answers []entity.AttemptAnswer
	err := r.db.Where("attempt_id = ?", attemptID).
		Order("question_id").
		Find(&answers).Error
	return answers, err
}

// isUniqueViolation проверяет Postgres unique violation (23505) для pgconn и lib/pq драйверов
func isUniqueViolation(err error) bool {
	// pgx/v5 driver (pgconn.PgError)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	// lib/pq driver
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return true
	}
	return false
}
