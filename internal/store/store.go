// Package store persists articles and highlight lists in SQLite.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"newslens/internal/core"
)

// Store is the SQLite-backed article and highlight store.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new store instance with a SQLite database under dataDir.
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "newslens.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return store, nil
}

func (s *Store) initialize() error {
	articlesTable := `
	CREATE TABLE IF NOT EXISTS articles (
		id TEXT PRIMARY KEY,
		topic TEXT NOT NULL,
		source_domain TEXT,
		url TEXT,
		title TEXT,
		body_text TEXT,
		published_at DATETIME,
		summary TEXT,
		embedding TEXT,
		cluster_id TEXT,
		content_hash TEXT
	);`

	highlightsTable := `
	CREATE TABLE IF NOT EXISTS highlights (
		topic TEXT NOT NULL,
		rank INTEGER NOT NULL,
		article_id TEXT NOT NULL,
		title TEXT,
		summary TEXT,
		url TEXT,
		score REAL,
		PRIMARY KEY (topic, rank)
	);`

	// One row per completed ranking run, so "never computed" and "computed
	// but empty" stay distinguishable.
	runsTable := `
	CREATE TABLE IF NOT EXISTS highlight_runs (
		topic TEXT PRIMARY KEY,
		computed_at DATETIME NOT NULL
	);`

	for _, table := range []string{articlesTable, highlightsTable, runsTable} {
		if _, err := s.db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveArticle inserts or replaces an article.
func (s *Store) SaveArticle(article core.Article, contentHash string) error {
	var embedding []byte
	if article.HasEmbedding() {
		var err error
		embedding, err = json.Marshal(article.Embedding)
		if err != nil {
			return fmt.Errorf("failed to encode embedding for %s: %w", article.ID, err)
		}
	}

	query := `
	INSERT OR REPLACE INTO articles
	(id, topic, source_domain, url, title, body_text, published_at, summary, embedding, cluster_id, content_hash)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.Exec(query,
		article.ID,
		article.Topic,
		article.SourceDomain,
		article.URL,
		article.Title,
		article.BodyText,
		article.PublishedAt.UTC(),
		article.Summary,
		string(embedding),
		article.ClusterID,
		contentHash,
	)
	if err != nil {
		return fmt.Errorf("failed to save article %s: %w", article.ID, err)
	}
	return nil
}

// UpdateEnrichment writes the summary and embedding produced by the
// enrichment stage. Other fields are left untouched.
func (s *Store) UpdateEnrichment(id, topic, summary string, embedding []float64) error {
	payload, err := json.Marshal(embedding)
	if err != nil {
		return fmt.Errorf("failed to encode embedding for %s: %w", id, err)
	}
	_, err = s.db.Exec(`UPDATE articles SET topic = ?, summary = ?, embedding = ? WHERE id = ?`,
		topic, summary, string(payload), id)
	if err != nil {
		return fmt.Errorf("failed to update enrichment for %s: %w", id, err)
	}
	return nil
}

// UpdateClusterID writes a clustering run's assignment back onto an article.
func (s *Store) UpdateClusterID(id, clusterID string) error {
	if _, err := s.db.Exec(`UPDATE articles SET cluster_id = ? WHERE id = ?`, clusterID, id); err != nil {
		return fmt.Errorf("failed to update cluster id for %s: %w", id, err)
	}
	return nil
}

// HasContentHash reports whether an article with the given content hash is
// already stored, used to skip exact refetches.
func (s *Store) HasContentHash(hash string) (bool, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM articles WHERE content_hash = ?`, hash).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check content hash: %w", err)
	}
	return count > 0, nil
}

// GetArticle returns the article with the given id, or nil if absent.
func (s *Store) GetArticle(id string) (*core.Article, error) {
	row := s.db.QueryRow(`
		SELECT id, topic, source_domain, url, title, body_text, published_at, summary, embedding, cluster_id
		FROM articles WHERE id = ?`, id)

	article, err := scanArticle(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get article %s: %w", id, err)
	}
	return article, nil
}

// GetArticlesByTopic returns all articles for a topic, published_at
// ascending with ties by id, matching the clustering engine's visiting
// order.
func (s *Store) GetArticlesByTopic(topic string) ([]core.Article, error) {
	rows, err := s.db.Query(`
		SELECT id, topic, source_domain, url, title, body_text, published_at, summary, embedding, cluster_id
		FROM articles WHERE topic = ? ORDER BY published_at ASC, id ASC`, topic)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles for topic %s: %w", topic, err)
	}
	defer rows.Close()

	var articles []core.Article
	for rows.Next() {
		article, err := scanArticle(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		articles = append(articles, *article)
	}
	return articles, rows.Err()
}

// ReplaceHighlights atomically replaces a topic's highlight list and records
// the run. A failed ranking run never reaches this method, so the previous
// list survives failures untouched.
func (s *Store) ReplaceHighlights(topic string, entries []core.HighlightEntry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM highlights WHERE topic = ?`, topic); err != nil {
		return fmt.Errorf("failed to clear highlights for %s: %w", topic, err)
	}
	for _, entry := range entries {
		_, err := tx.Exec(`
			INSERT INTO highlights (topic, rank, article_id, title, summary, url, score)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			topic, entry.Rank, entry.ArticleID, entry.Title, entry.Summary, entry.URL, entry.Score)
		if err != nil {
			return fmt.Errorf("failed to insert highlight %d for %s: %w", entry.Rank, topic, err)
		}
	}
	if _, err := tx.Exec(`
		INSERT OR REPLACE INTO highlight_runs (topic, computed_at) VALUES (?, ?)`,
		topic, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to record highlight run for %s: %w", topic, err)
	}

	return tx.Commit()
}

// GetHighlights returns a topic's highlight list ordered by rank.
func (s *Store) GetHighlights(topic string) ([]core.HighlightEntry, error) {
	rows, err := s.db.Query(`
		SELECT topic, rank, article_id, title, summary, url, score
		FROM highlights WHERE topic = ? ORDER BY rank ASC`, topic)
	if err != nil {
		return nil, fmt.Errorf("failed to query highlights for %s: %w", topic, err)
	}
	defer rows.Close()

	var entries []core.HighlightEntry
	for rows.Next() {
		var e core.HighlightEntry
		if err := rows.Scan(&e.Topic, &e.Rank, &e.ArticleID, &e.Title, &e.Summary, &e.URL, &e.Score); err != nil {
			return nil, fmt.Errorf("failed to scan highlight: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// HighlightsComputedAt returns when a topic's highlights were last computed.
// ok=false means no ranking run has completed yet for the topic.
func (s *Store) HighlightsComputedAt(topic string) (time.Time, bool, error) {
	var computedAt time.Time
	err := s.db.QueryRow(`SELECT computed_at FROM highlight_runs WHERE topic = ?`, topic).Scan(&computedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to query highlight run for %s: %w", topic, err)
	}
	return computedAt, true, nil
}

func scanArticle(scan func(dest ...any) error) (*core.Article, error) {
	var article core.Article
	var embedding string
	if err := scan(
		&article.ID,
		&article.Topic,
		&article.SourceDomain,
		&article.URL,
		&article.Title,
		&article.BodyText,
		&article.PublishedAt,
		&article.Summary,
		&embedding,
		&article.ClusterID,
	); err != nil {
		return nil, err
	}
	if embedding != "" {
		if err := json.Unmarshal([]byte(embedding), &article.Embedding); err != nil {
			return nil, fmt.Errorf("corrupt embedding for %s: %w", article.ID, err)
		}
	}
	article.PublishedAt = article.PublishedAt.UTC()
	return &article, nil
}
