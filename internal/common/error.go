// Package common defines shared sentinel errors and small helpers used across
// the server, its repositories and the admin tooling. Callers should use
// errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Access token codec failure. Signature, expiry and format problems all
	// collapse into this one value.
	ErrInvalidToken = errors.New("invalid token")

	// Session errors.
	ErrInvalidCredentials    = errors.New("incorrect username or password")
	ErrInactiveAccount       = errors.New("inactive account")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired refresh token")

	// Bearer resolution errors.
	ErrMissingCredential = errors.New("missing bearer credential")
	ErrInvalidCredential = errors.New("could not validate credentials")
)
