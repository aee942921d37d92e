// Package domain provides shared domain-level sentinel errors and time helpers.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates the entity already exists (duplicate task ID).
var ErrConflict = errors.New("conflict: resource already exists")

// ErrValidation indicates a required field is missing or malformed.
// Wrap with context: fmt.Errorf("%w: name is required", domain.ErrValidation).
var ErrValidation = errors.New("validation failed")

// ErrStoreUnavailable indicates the storage layer stayed locked or unreachable
// beyond the retry budget. Callers may retry the whole operation.
var ErrStoreUnavailable = errors.New("store unavailable")
