package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/quizdeck-api/internal/domain/entity"
)

// AttemptRepository определяет методы для работы с попытками прохождения тестов.
// Терминальные переходы и инкременты счетчиков должны выполняться атомарно
// на уровне хранилища (условный UPDATE + gorm.Expr), а не в приложении.
type AttemptRepository interface {
	// Create создает новую попытку. Partial unique index
	// idx_attempt_single_in_progress гарантирует max 1 in_progress
	// на пару (user, quiz); при нарушении возвращает ErrAttemptInProgress.
	Create(attempt *entity.TestAttempt) error

	// GetByID возвращает попытку без связанных коллекций
	GetByID(id string) (*entity.TestAttempt, error)

	// GetWithDrafts возвращает попытку с черновыми ответами
	GetWithDrafts(id string) (*entity.TestAttempt, error)

	// GetInProgress возвращает in_progress попытку пары (user, quiz), если есть
	GetInProgress(userID, quizID uint) (*entity.TestAttempt, error)

	// ListInProgressByUser возвращает все in_progress попытки пользователя
	// с черновиками (для вычисления прогресса)
	ListInProgressByUser(userID uint) ([]entity.TestAttempt, error)

	// ListByQuiz возвращает завершенные попытки викторины с пагинацией
	ListByQuiz(quizID uint, limit, offset int) ([]entity.TestAttempt, int64, error)

	// ListCompletedByUser возвращает терминальные попытки пользователя с пагинацией
	ListCompletedByUser(userID uint, limit, offset int) ([]entity.TestAttempt, error)

	// UpsertDraft сохраняет черновой ответ, перезаписывая прежний выбор по тому же
	// вопросу (last write wins). Запись выполняется только пока попытка in_progress:
	// завершенную попытку автосейв не воскрешает. Возвращает false, если попытка
	// уже не in_progress (вызов должен тихо завершиться no-op).
	UpsertDraft(attemptID string, questionID, selectedOptionID uint) (bool, error)

	// FinishAttempt атомарно переводит in_progress → терминальный статус внутри
	// транзакции tx: условный UPDATE по статусу. Возвращает ErrAlreadyFinished,
	// если попытка уже терминальна (двойной Submit, гонка Submit/Abandon).
	FinishAttempt(tx *gorm.DB, attemptID string, status string, correctAnswers int, completedAt time.Time) error

	// SaveAnswers сохраняет финальные оцененные ответы внутри транзакции tx
	SaveAnswers(tx *gorm.DB, answers []entity.AttemptAnswer) error

	// GetAnswers возвращает финальные ответы попытки
	GetAnswers(attemptID string) ([]entity.AttemptAnswer, error)
}
