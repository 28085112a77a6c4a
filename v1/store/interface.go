package store

import "context"

// Record is anything with a stable identifier.
type Record interface {
	RecordID() string
}

// RecordStore is a buffered persistent collection of records.
type RecordStore[T Record] interface {
	// LoadAll returns the persisted records with pending changes applied.
	LoadAll(ctx context.Context) ([]T, error)

	// Upsert buffers an insert or replace.
	Upsert(ctx context.Context, rec T) error

	// Delete buffers a removal. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error

	// Save writes all buffered changes.
	Save(ctx context.Context) error
}
