package errors

import "errors"

var (
	ErrNotFound         = errors.New("rent request not found")
	ErrInvalidID        = errors.New("invalid rent request id")
	ErrIdentityMismatch = errors.New("contact email does not match the record")
)
