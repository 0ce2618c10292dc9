package apperr

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrDisabled     = errors.New("connector disabled")
	ErrInvalidInput = errors.New("invalid input")
)
