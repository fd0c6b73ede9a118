// Package store declares the outbound port to the per-user record store.
// The core depends on this interface only; SQLite and the in-memory fake
// implement it.
package store

import (
	"context"
	"fmt"

	"tally/internal/core"
)

// Collection addresses one per-user record list, e.g. "expenses/u123".
type Collection struct {
	Kind    core.Kind
	OwnerID string
}

func (c Collection) Path() string {
	return fmt.Sprintf("%s/%s", c.Kind, c.OwnerID)
}

// RecordStore is the gateway to the remote document store. All operations
// are context-bound and may fail independently; a multi-item save issues
// Create calls concurrently and must not assume any completion order.
type RecordStore interface {
	// Create persists a record and returns the store-assigned id.
	Create(ctx context.Context, col Collection, rec core.Record) (string, error)

	// ReadAll returns every record of the collection in its natural
	// (insertion) order, with ids populated.
	ReadAll(ctx context.Context, col Collection) ([]core.Record, error)

	// Get returns a single record or core.ErrRecordNotFound.
	Get(ctx context.Context, col Collection, id string) (core.Record, error)

	// Delete removes one record; deleting an unknown id is an error.
	Delete(ctx context.Context, col Collection, id string) error

	// DeleteAll clears the whole collection.
	DeleteAll(ctx context.Context, col Collection) error
}
