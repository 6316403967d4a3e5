package storage

import "errors"

// Storage errors for account stores.
var (
	// ErrNotFound is returned when a requested account does not exist.
	ErrNotFound = errors.New("account not found")

	// ErrDuplicateKey is returned when attempting to insert an account
	// at an address that is already occupied.
	ErrDuplicateKey = errors.New("duplicate key: account already exists")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
