// Package vectorstore provides nearest-neighbor search over article
// embeddings for retrieval-grounded question answering.
package vectorstore

import (
	"context"

	"newslens/internal/core"
)

// Index stores (id, vector, metadata) tuples and supports nearest-neighbor
// search by cosine distance. One record exists per cluster representative.
type Index interface {
	// Upsert saves or replaces a record. The first record fixes the index's
	// dimensionality; later records with a different dimensionality are
	// rejected with ModelMismatchError.
	Upsert(ctx context.Context, record core.VectorRecord) error

	// Delete removes a record by id. Deleting an absent id is a no-op.
	Delete(ctx context.Context, id string) error

	// Get returns the record with the given id, or nil if absent.
	Get(ctx context.Context, id string) (*core.VectorRecord, error)

	// Search returns up to k records nearest to the query embedding,
	// ordered by ascending cosine distance with ties broken by id. An empty
	// index yields an empty result, never an error.
	Search(ctx context.Context, embedding []float64, k int) ([]SearchHit, error)

	// IDsByTopic returns the ids of all records for a topic, so a new
	// processing run can delete representatives it superseded.
	IDsByTopic(ctx context.Context, topic string) ([]string, error)

	// Stats reports the record count and stored dimensionality.
	Stats(ctx context.Context) (Stats, error)

	// Close releases the underlying storage.
	Close() error
}

// SearchHit is one nearest-neighbor result.
type SearchHit struct {
	Record   core.VectorRecord
	Distance float64 // Cosine distance, lower is closer
}

// Stats describes the current index contents.
type Stats struct {
	TotalRecords int64
	Dimensions   int // 0 while the index is empty
}
