package store

import "errors"

// Error Handling Guidelines:
// - Stores: use fmt.Errorf("context: %w", err) for wrapping errors
// - Handlers: use apperrors.* functions for HTTP-appropriate errors

// Predefined errors for the store layer.
var (
	// ErrNotFound indicates that a requested resource was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrConflict indicates a uniqueness violation that could not be resolved.
	ErrConflict = errors.New("conflict")
)
