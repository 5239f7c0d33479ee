package core

import "time"

// Article represents a single scraped news article as it moves through the
// pipeline. Summary, Embedding and ClusterID start empty and are filled in by
// the enrichment and clustering stages; everything else is immutable after
// ingest.
type Article struct {
	ID           string    `json:"id"`            // Unique identifier for the article
	Topic        string    `json:"topic"`         // Topic bucket (e.g., "sports", "finance")
	SourceDomain string    `json:"source_domain"` // Domain the article was scraped from
	URL          string    `json:"url"`           // Canonical article URL
	Title        string    `json:"title"`         // Article headline
	BodyText     string    `json:"body_text"`     // Extracted plain-text body
	PublishedAt  time.Time `json:"published_at"`  // Publication timestamp
	Summary      string    `json:"summary"`       // LLM-generated summary (empty until enriched)
	Embedding    []float64 `json:"embedding"`     // Vector embedding of the article (empty until enriched)
	ClusterID    string    `json:"cluster_id"`    // Assigned cluster (empty until clustered)
}

// HasEmbedding reports whether the article carries a non-empty embedding.
func (a *Article) HasEmbedding() bool {
	return len(a.Embedding) > 0
}

// Cluster groups near-duplicate coverage of one story within a topic.
// The representative is always a member, fixed to the earliest-seen article.
type Cluster struct {
	ID               string   `json:"id"`                // Unique identifier for the cluster
	Topic            string   `json:"topic"`             // Topic the cluster belongs to
	MemberIDs        []string `json:"member_ids"`        // IDs of all member articles (non-empty)
	RepresentativeID string   `json:"representative_id"` // ID of the representative member
}

// Size returns the number of member articles.
func (c *Cluster) Size() int {
	return len(c.MemberIDs)
}

// HighlightEntry is one row of a topic's ranked daily highlight list.
// The list is recomputed wholesale on every ranking run.
type HighlightEntry struct {
	Topic     string  `json:"topic"`      // Topic the entry belongs to
	Rank      int     `json:"rank"`       // 1-based position, unique per topic
	ArticleID string  `json:"article_id"` // Representative article
	Title     string  `json:"title"`      // Headline, for rendering
	Summary   string  `json:"summary"`    // Summary, for rendering
	URL       string  `json:"url"`        // Source URL, for rendering
	Score     float64 `json:"score"`      // Combined keyword + frequency score
}

// RetrievedContextItem is one nearest-neighbor hit for a user query.
// Ephemeral; built per query and never persisted.
type RetrievedContextItem struct {
	ArticleID string  `json:"article_id"`
	Summary   string  `json:"summary"`
	Distance  float64 `json:"distance"` // Cosine distance, lower is closer
}

// ChatTurn is one completed question/answer exchange.
type ChatTurn struct {
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	AskedAt  time.Time `json:"asked_at"`
}

// ContextWindow is the bounded bundle of retrieved summaries plus recent
// conversation history handed to the generation side. Grounded is false when
// retrieval produced nothing, so the caller can decline rather than guess.
type ContextWindow struct {
	Items    []RetrievedContextItem `json:"items"`
	History  []ChatTurn             `json:"history"`
	Grounded bool                   `json:"grounded"`
}

// VectorRecord is one (id, vector, metadata) tuple stored in the vector
// index. One record exists per cluster representative; duplicate members are
// never indexed.
type VectorRecord struct {
	ID        string    `json:"id"` // Article ID of the representative
	Embedding []float64 `json:"embedding"`
	Topic     string    `json:"topic"`
	Summary   string    `json:"summary"`
	URL       string    `json:"url"`
}
