// Package retrieval answers "which indexed stories are closest to this
// query" by embedding the query and running top-k search over the vector
// index.
package retrieval

import (
	"context"
	"fmt"
	"strings"

	"newslens/internal/core"
	"newslens/internal/vectorstore"
)

// Embedder maps text to a fixed-length vector. It must be the same model and
// version that populated the vector index; a mismatch is surfaced as
// ModelMismatchError by the search below.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Retriever performs top-k context retrieval. It owns no state beyond the
// handles it is given and is safe for concurrent use: every call only reads
// the index.
type Retriever struct {
	embedder Embedder
	index    vectorstore.Index
}

// NewRetriever creates a retriever over the given embedder and index.
func NewRetriever(embedder Embedder, index vectorstore.Index) *Retriever {
	return &Retriever{embedder: embedder, index: index}
}

// Retrieve embeds the query and returns up to k context items ordered by
// ascending distance. An empty index yields an empty result, not an error;
// callers must handle "no context available".
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]core.RetrievedContextItem, error) {
	if k < 1 {
		return nil, core.NewInvalidInput("k must be >= 1, got %d", k)
	}
	if strings.TrimSpace(query) == "" {
		return nil, core.NewInvalidInput("query text is empty")
	}

	embedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	hits, err := r.index.Search(ctx, embedding, k)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	items := make([]core.RetrievedContextItem, len(hits))
	for i, hit := range hits {
		items[i] = core.RetrievedContextItem{
			ArticleID: hit.Record.ID,
			Summary:   hit.Record.Summary,
			Distance:  hit.Distance,
		}
	}
	return items, nil
}
