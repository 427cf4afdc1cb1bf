package sso

import "errors"

var (
	// ErrMissingAssertionField is returned when the assertion lacks the
	// mandatory email attribute. Reconciliation aborts before any user
	// resolution; nothing is mutated.
	ErrMissingAssertionField = errors.New("assertion is missing a mandatory field")

	// ErrAccountDisabled is returned when the matched user is
	// administratively disabled. No field sync is performed and the login
	// is denied.
	ErrAccountDisabled = errors.New("account is disabled")
)
