package errors

import "errors"

// Общие ошибки приложения
var (
	// ErrNotFound используется, когда запись или ресурс не найдены.
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized используется для ошибок авторизации (невалидный токен регистрации).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrValidation используется для ошибок валидации входных данных.
	ErrValidation = errors.New("validation failed")

	// ErrConflict используется для конфликтов состояния (например, повторное использование кода).
	ErrConflict = errors.New("resource state conflict")

	// ErrStoreUnavailable используется, когда хранилище недоступно.
	ErrStoreUnavailable = errors.New("store unavailable")
)
