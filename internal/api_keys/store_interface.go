package api_keys

import (
	"context"
)

// Store persists key records and the action log.
//
// Implementations are not required to be safe for concurrent read-modify-write
// sequences; Service serializes every mutation through a single writer.
type Store interface {
	// List returns every record, including soft-deleted and expired ones.
	List(ctx context.Context) (map[string]KeyRecord, error)

	// Get returns ErrKeyNotFound when the key is absent.
	Get(ctx context.Context, apiKey string) (*KeyRecord, error)

	// Create returns ErrKeyExists when the key is already stored.
	Create(ctx context.Context, apiKey string, rec KeyRecord) error

	// MarkDeleted sets the soft-delete flag. Returns ErrKeyNotFound when absent.
	MarkDeleted(ctx context.Context, apiKey string) error

	// Delete removes the record. Returns ErrKeyNotFound when absent.
	Delete(ctx context.Context, apiKey string) error

	// AppendLog adds one entry to the end of the action log.
	AppendLog(ctx context.Context, entry LogEntry) error

	// Logs returns the action log in insertion order.
	Logs(ctx context.Context) ([]LogEntry, error)

	Close() error
}
