package service

import "errors"

// Ошибки сервисного слоя. Оборачиваются через %w с id или именем поля.
var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrProductNotFound = errors.New("product not found")
	ErrProductExists   = errors.New("product already exists")
	ErrOrderNotFound   = errors.New("order not found")
	ErrVariantNotFound = errors.New("variant not found in order")
	ErrMissingField    = errors.New("missing field")
	ErrInvalidProgress = errors.New("progress must be between 0 and 100")
	ErrDeliveryFailed  = errors.New("notification delivery failed")
)
