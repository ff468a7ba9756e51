// Package store provides resource persistence for the reference API server.
package store

import (
	"context"
	"errors"

	"github.com/Azeezfasasi/cargo-realm-logistics-sub000/internal/model"
	"github.com/Azeezfasasi/cargo-realm-logistics-sub000/pkg/types"
)

var (
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrConflict is returned when a write would violate the tracking
	// number uniqueness constraint.
	ErrConflict = errors.New("duplicate key: tracking number already exists")
)

// ListOptions carries pagination parameters for list operations.
type ListOptions struct {
	Limit  int
	Offset int
}

// Store defines the data access methods for resource records. Methods
// return sentinel errors (ErrNotFound, ErrConflict) for expected error
// conditions; all other errors indicate infrastructure failures.
type Store interface {
	// Ping checks database connectivity. Used by the readiness probe.
	Ping(ctx context.Context) error

	// List retrieves a paginated slice of records of one kind plus the
	// total count.
	List(ctx context.Context, kind types.Kind, opts ListOptions) ([]model.Record, int, error)

	// Get retrieves a single record by kind and ID. Returns ErrNotFound
	// if the resource does not exist.
	Get(ctx context.Context, kind types.Kind, id string) (model.Record, error)

	// Create inserts a new record, returning the stored row or ErrConflict.
	Create(ctx context.Context, record model.Record) (model.Record, error)

	// Update replaces the mutable fields of an existing record. Returns
	// ErrNotFound or ErrConflict.
	Update(ctx context.Context, record model.Record) (model.Record, error)

	// Delete removes a record by kind and ID. Returns ErrNotFound if the
	// resource does not exist.
	Delete(ctx context.Context, kind types.Kind, id string) error
}
