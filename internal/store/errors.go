package store

import "errors"

var (
	// ErrDuplicateIdentity is returned when inserting an identity whose
	// login id already exists within the backend's registry.
	ErrDuplicateIdentity = errors.New("identity already exists")

	// ErrRecordNotFound wraps GORM's not found error for consistency
	ErrRecordNotFound = errors.New("record not found")
)
