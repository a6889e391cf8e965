package errors

import "errors"

// Общие ошибки приложения
var (
	// ErrNotFound используется, когда запись или ресурс не найдены
	// (в том числе когда скрытая викторина не видна вызывающему).
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized используется для ошибок аутентификации (неверный токен, нет сессии).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden используется, когда у пользователя недостаточно прав для действия.
	ErrForbidden = errors.New("forbidden")

	// ErrPaymentRequired используется, когда доступ к премиум-контенту требует активной подписки.
	ErrPaymentRequired = errors.New("premium subscription required")

	// ErrValidation используется для ошибок валидации входных данных.
	ErrValidation = errors.New("validation failed")

	// ErrExpiredToken используется, когда токен (например, refresh) истек.
	ErrExpiredToken = errors.New("token is expired")

	// ErrConflict используется для конфликтов состояния: попытка завершить
	// уже завершенную попытку, проигранная гонка терминального перехода и т.п.
	ErrConflict = errors.New("resource state conflict")
)
