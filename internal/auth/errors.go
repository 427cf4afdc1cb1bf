package auth

import "errors"

var (
	// ErrDuplicateIdentity is returned by Registry.Add when the login id is
	// already present. Callers must treat it as a conflict, not retry.
	ErrDuplicateIdentity = errors.New("identity already exists")

	// ErrIdentityNotFound is returned by the trusted lookup paths. Unlike a
	// bad credential (which yields a nil user and no error), this surfaces
	// as an error because the caller asked for a record that must exist.
	ErrIdentityNotFound = errors.New("identity not found")

	// HTTP directory errors
	ErrDirConnection  = errors.New("failed to connect to directory API")
	ErrDirInvalidResp = errors.New("invalid response from directory API")
)
