package service

import "errors"

// Ошибки федеративного входа
var (
	// ErrGoogleTokenVerificationFailed - не удалось проверить подпись или claims Google ID токена
	ErrGoogleTokenVerificationFailed = errors.New("google token verification failed")

	// ErrLinkRequired - email уже занят локальным аккаунтом, требуется явная привязка
	ErrLinkRequired = errors.New("account link required")
)
