package database

import (
	"context"
)

// IdentityReader provides read-only access to registered identities.
// Reads are strict: a missing identity is ErrNotFound.
type IdentityReader interface {
	// ReadAll returns every record ordered by id. Recognition always scans the
	// full snapshot, so there is no pagination.
	ReadAll(ctx context.Context) ([]IdentityRecord, error)
	// ReadOne returns the record with the given id.
	ReadOne(ctx context.Context, id int64) (*IdentityRecord, error)
	// ReadByName returns the lowest-id record with the given display name.
	ReadByName(ctx context.Context, displayName string) (*IdentityRecord, error)
	// Count returns the number of registered identities.
	Count(ctx context.Context) (int, error)
}

// IdentityStore adds the write path. Writes are lenient: Update and Delete on a
// missing id return false rather than an error.
type IdentityStore interface {
	IdentityReader

	// Create validates and inserts a record, returning the store-assigned id.
	Create(ctx context.Context, identity NewIdentity) (int64, error)
	// Update replaces name, description and embedding of an existing record.
	Update(ctx context.Context, id int64, identity NewIdentity) (bool, error)
	// Delete removes a record.
	Delete(ctx context.Context, id int64) (bool, error)
	// Dimension returns the embedding dimension the store enforces.
	Dimension() int
}
