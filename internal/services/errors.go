package services

import "errors"

// Sentinel errors returned by the service layer. Handlers match on these
// with errors.Is to pick response statuses; anything else is an internal
// error and is logged, never echoed to the client.
var (
	// ErrNotFound — no user record for the given id or email.
	ErrNotFound = errors.New("user not found")

	// ErrEmailTaken — the email is already registered to another account.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials — login failed. Deliberately does not say
	// whether the email or the password was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken — the presented token is missing, expired, tampered
	// with, or revoked. All collapse into this one category.
	ErrInvalidToken = errors.New("invalid or expired token")
)
