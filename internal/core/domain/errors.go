package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrValidation        = errors.New("validation failed")
	ErrConflict          = errors.New("conflict")
	ErrDuplicateRequest  = errors.New("duplicate request")
	ErrStorageTimeout    = errors.New("storage timeout")
)
