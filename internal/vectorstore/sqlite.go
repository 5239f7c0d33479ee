package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	_ "github.com/mattn/go-sqlite3"

	"newslens/internal/core"
)

// SQLiteIndex is a sqlite-backed Index. Embeddings are stored JSON-encoded
// and search is a brute force scan, which is fine for topic-scoped daily
// batches. Concurrent readers see snapshot-consistent data because every
// write runs in its own transaction.
type SQLiteIndex struct {
	db   *sql.DB
	path string
}

// NewSQLiteIndex opens (or creates) the vector index database under dataDir.
func NewSQLiteIndex(dataDir string) (*SQLiteIndex, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "vectors.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, &core.UpstreamUnavailableError{Op: "vector index open", Err: err}
	}

	index := &SQLiteIndex{db: db, path: dbPath}
	if err := index.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return index, nil
}

func (s *SQLiteIndex) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS vectors (
		id TEXT PRIMARY KEY,
		topic TEXT NOT NULL,
		summary TEXT,
		url TEXT,
		embedding TEXT NOT NULL,
		dims INTEGER NOT NULL
	);`
	if _, err := s.db.Exec(schema); err != nil {
		return &core.UpstreamUnavailableError{Op: "vector index init", Err: err}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}

// Upsert saves or replaces a record, enforcing a single dimensionality
// across the whole index.
func (s *SQLiteIndex) Upsert(ctx context.Context, record core.VectorRecord) error {
	if record.ID == "" {
		return core.NewInvalidInput("vector record has no id")
	}
	if len(record.Embedding) == 0 {
		return core.NewInvalidInput("vector record %s has no embedding", record.ID)
	}
	for _, v := range record.Embedding {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return core.NewInvalidInput("vector record %s embedding contains a non-finite value", record.ID)
		}
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		return err
	}
	if stats.Dimensions > 0 && stats.Dimensions != len(record.Embedding) {
		return &core.ModelMismatchError{Want: stats.Dimensions, Got: len(record.Embedding)}
	}

	payload, err := json.Marshal(record.Embedding)
	if err != nil {
		return fmt.Errorf("failed to encode embedding for %s: %w", record.ID, err)
	}

	query := `
	INSERT OR REPLACE INTO vectors (id, topic, summary, url, embedding, dims)
	VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, query,
		record.ID, record.Topic, record.Summary, record.URL, string(payload), len(record.Embedding)); err != nil {
		return &core.UpstreamUnavailableError{Op: "vector index upsert", Err: err}
	}
	return nil
}

// Delete removes a record by id.
func (s *SQLiteIndex) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM vectors WHERE id = ?`, id); err != nil {
		return &core.UpstreamUnavailableError{Op: "vector index delete", Err: err}
	}
	return nil
}

// Get returns the record with the given id, or nil if absent.
func (s *SQLiteIndex) Get(ctx context.Context, id string) (*core.VectorRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, topic, summary, url, embedding FROM vectors WHERE id = ?`, id)

	record, err := scanRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &core.UpstreamUnavailableError{Op: "vector index get", Err: err}
	}
	return record, nil
}

// Search scans all records and returns the k nearest by cosine distance.
func (s *SQLiteIndex) Search(ctx context.Context, embedding []float64, k int) ([]SearchHit, error) {
	if k < 1 {
		return nil, core.NewInvalidInput("k must be >= 1, got %d", k)
	}
	if len(embedding) == 0 {
		return nil, core.NewInvalidInput("query embedding is empty")
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		return nil, err
	}
	if stats.TotalRecords == 0 {
		return []SearchHit{}, nil
	}
	if stats.Dimensions != len(embedding) {
		return nil, &core.ModelMismatchError{Want: stats.Dimensions, Got: len(embedding)}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, topic, summary, url, embedding FROM vectors`)
	if err != nil {
		return nil, &core.UpstreamUnavailableError{Op: "vector index search", Err: err}
	}
	defer rows.Close()

	var hits []SearchHit
	for rows.Next() {
		record, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, &core.UpstreamUnavailableError{Op: "vector index search", Err: err}
		}
		hits = append(hits, SearchHit{
			Record:   *record,
			Distance: cosineDistance(embedding, record.Embedding),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, &core.UpstreamUnavailableError{Op: "vector index search", Err: err}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].Record.ID < hits[j].Record.ID
	})

	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// IDsByTopic returns the ids of all records for a topic, ordered by id.
func (s *SQLiteIndex) IDsByTopic(ctx context.Context, topic string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM vectors WHERE topic = ? ORDER BY id`, topic)
	if err != nil {
		return nil, &core.UpstreamUnavailableError{Op: "vector index list", Err: err}
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, &core.UpstreamUnavailableError{Op: "vector index list", Err: err}
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Stats reports the record count and the stored dimensionality.
func (s *SQLiteIndex) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(MAX(dims), 0) FROM vectors`)
	if err := row.Scan(&stats.TotalRecords, &stats.Dimensions); err != nil {
		return Stats{}, &core.UpstreamUnavailableError{Op: "vector index stats", Err: err}
	}
	return stats, nil
}

func scanRecord(scan func(dest ...any) error) (*core.VectorRecord, error) {
	var record core.VectorRecord
	var payload string
	if err := scan(&record.ID, &record.Topic, &record.Summary, &record.URL, &payload); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(payload), &record.Embedding); err != nil {
		return nil, fmt.Errorf("corrupt embedding for %s: %w", record.ID, err)
	}
	return &record, nil
}

// cosineDistance is 1 minus cosine similarity, clamped to [0, 2].
func cosineDistance(a, b []float64) float64 {
	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dotProduct/(math.Sqrt(normA)*math.Sqrt(normB))
}
