package errors

import "errors"

var (
	ErrNotFound  = errors.New("contact quote not found")
	ErrInvalidID = errors.New("invalid contact quote id")
)
