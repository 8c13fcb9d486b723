package apperrors

import "errors"

var (
	ErrNotFound            = errors.New("customer not found")
	ErrNoProviderAvailable = errors.New("no data provider available")
	ErrUnknownProviderType = errors.New("unknown provider type")
	ErrInvalidData         = errors.New("invalid customer data")
)
