package repository

import "errors"

// Ошибки уровня репозитория попыток. Сервис оборачивает их
// в apperrors.ErrConflict для единообразной обработки в хендлерах.
var (
	// ErrAttemptInProgress — для пары (user, quiz) уже существует in_progress попытка
	// (нарушение partial unique index при Create)
	ErrAttemptInProgress = errors.New("attempt already in progress for this quiz")

	// ErrAlreadyFinished — попытка уже в терминальном статусе,
	// терминальный переход невозможен
	ErrAlreadyFinished = errors.New("attempt already finished")
)
