package api_keys

import (
	"errors"
	"fmt"
)

var (
	ErrKeyNotFound = errors.New("api key not found")
	ErrKeyExists   = errors.New("api key already exists")
	ErrEmptyAPIKey = errors.New("api key is required and cannot be empty")
	ErrEmptyExpiry = errors.New("expired time is required and cannot be empty")
)

// ValidationError reports a missing required field on add.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// DuplicateKeyError is returned when adding a key that is already stored,
// whether or not it has been soft deleted.
type DuplicateKeyError struct {
	APIKey string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("api key %q already exists", e.APIKey)
}

func (e *DuplicateKeyError) Unwrap() error { return ErrKeyExists }

// NotFoundError is returned by the delete operations for an absent key.
type NotFoundError struct {
	APIKey string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("api key %q not found", e.APIKey)
}

func (e *NotFoundError) Unwrap() error { return ErrKeyNotFound }
