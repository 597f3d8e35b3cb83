// Package history tracks intake records: one entry per submitted document,
// from the first staged write to its terminal status. The package is
// storage-agnostic; Repository admits database-backed implementations, and
// MemoryRepository provides the bounded in-memory default.
package history

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no record exists for the requested ID.
var ErrNotFound = errors.New("history: record not found")

// Record is one document's intake history entry.
type Record struct {
	// ID is the intake-assigned document identifier.
	ID string

	// Name is the file name the document was submitted under, before any
	// sanitization.
	Name string

	// StoredPath is where the document currently lives in the virtual
	// namespace. It changes when the document moves from staging to archive.
	StoredPath string

	// Size is the stored size in bytes.
	Size int64

	// MIMEType is the declared MIME type the document was accepted under.
	MIMEType string

	// Checksum is the content checksum computed at submission. Empty when
	// the backing driver cannot compute one.
	Checksum string

	// Status is the document's lifecycle status.
	Status string

	// Error holds the failure message for failed documents, empty otherwise.
	Error string

	// CreatedAt is when the record was first saved.
	CreatedAt time.Time

	// UpdatedAt is when the record last changed.
	UpdatedAt time.Time
}

// Repository stores and retrieves intake records.
//
// Implementations must be safe for concurrent use. Records handed to Save
// and returned from Get and List are owned by the caller; implementations
// must not retain or expose shared pointers.
type Repository interface {
	// Save stores a record, replacing any existing record with the same ID.
	Save(ctx context.Context, record *Record) error

	// Get returns the record with the given ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*Record, error)

	// List returns records ordered newest first. A limit <= 0 returns all.
	List(ctx context.Context, limit int) ([]*Record, error)

	// UpdateStatus sets the status and error message of an existing record
	// and stamps UpdatedAt, or returns ErrNotFound.
	UpdateStatus(ctx context.Context, id, status, errMessage string) error

	// Delete removes the record with the given ID, or returns ErrNotFound.
	Delete(ctx context.Context, id string) error
}
