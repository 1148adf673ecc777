package domain

import "errors"

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrOperatorNotFound = errors.New("operator not found")
	ErrDuplicateEmail   = errors.New("email address already in use")
)
