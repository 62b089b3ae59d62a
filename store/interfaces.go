package store

import (
	"context"

	"github.com/poiesic/corpora/core"
)

// DocumentStore holds the extracted documents of one collection.
// Implementations must be thread-safe and support concurrent access.
type DocumentStore interface {
	// PutDocuments writes one or more documents, overwriting records
	// with the same ID.
	PutDocuments(ctx context.Context, docs ...*core.Document) error

	// GetDocument retrieves a single document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id core.DocumentID) (*core.Document, error)

	// ListDocuments retrieves up to limit documents in stable key order.
	// limit <= 0 means no limit.
	ListDocuments(ctx context.Context, limit int) ([]*core.Document, error)

	// CountDocuments returns the number of stored documents.
	CountDocuments(ctx context.Context) (int, error)

	// DeleteDocuments removes documents by their IDs.
	// Missing IDs are ignored.
	DeleteDocuments(ctx context.Context, ids ...core.DocumentID) error

	// Close closes the store and releases resources.
	Close() error
}
