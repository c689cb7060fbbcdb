package errors

import "errors"

var (
	ErrNotFound = errors.New("notification not found")

	ErrDuplicateEventKey = errors.New("notification event key already recorded")
)
