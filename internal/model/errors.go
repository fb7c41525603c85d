package model

import "errors"

// Every failure is terminal for the triggering action and recoverable by the
// caller; nothing here is fatal to the process.
var (
	// Identity verification.
	ErrInvalidCredential = errors.New("invalid clinic id or password")
	ErrUserNotFound      = errors.New("clinic id not found")
	ErrInvalidIdentifier = errors.New("invalid clinic id format")
	ErrRateLimited       = errors.New("too many failed attempts")

	// Attendance lifecycle.
	ErrInvalidTransition   = errors.New("invalid attendance transition")
	ErrLocationUnavailable = errors.New("location unavailable")
	ErrValidation          = errors.New("validation failed")

	// Persistence. A remote write failure leaves the local cache as the
	// durable intent; the record stays flagged for resync.
	ErrRemoteWrite   = errors.New("remote write failed")
	ErrDataIntegrity = errors.New("stored status diverges from punch data")
	ErrNotFound      = errors.New("not found")

	// Sessions.
	ErrSessionExpired = errors.New("session expired")
)
