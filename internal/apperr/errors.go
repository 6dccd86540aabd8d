package apperr

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidPageSize = errors.New("page size must be positive")
	ErrPageOutOfRange  = errors.New("page out of range")
	ErrUnsupported     = errors.New("unsupported")
)
