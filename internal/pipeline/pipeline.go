// Package pipeline orchestrates the daily processing run: enrichment,
// per-topic clustering, highlight ranking and vector indexing.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"newslens/internal/clustering"
	"newslens/internal/config"
	"newslens/internal/core"
	"newslens/internal/highlights"
	"newslens/internal/logger"
	"newslens/internal/store"
	"newslens/internal/vectorstore"
)

// Enricher annotates raw articles with topic, summary and embedding. The
// Gemini client implements it; tests substitute a stub.
type Enricher interface {
	ClassifyTopic(ctx context.Context, article core.Article, validTopics []string) (string, error)
	Summarize(ctx context.Context, article core.Article) (string, error)
	EmbedArticle(ctx context.Context, article core.Article) ([]float64, error)
}

// Processor runs the daily pipeline over the article store.
type Processor struct {
	store    *store.Store
	enricher Enricher
	index    vectorstore.Index
	cfg      config.Pipeline
}

// NewProcessor wires a processor from its collaborators.
func NewProcessor(st *store.Store, enricher Enricher, index vectorstore.Index, cfg config.Pipeline) *Processor {
	return &Processor{store: st, enricher: enricher, index: index, cfg: cfg}
}

// topicUnknown marks articles the classifier could not (yet) place. They
// sit outside every configured topic and are retried on the next run.
const topicUnknown = "unknown"

// Run classifies any still-unplaced articles, then processes every
// configured topic. Topics never interact, so one topic's failure aborts
// only that topic's writes; the error for each failed topic is joined into
// the returned error.
func (p *Processor) Run(ctx context.Context) error {
	var errs []error
	if err := p.classifyUnknown(ctx); err != nil {
		errs = append(errs, err)
	}
	for _, topic := range p.cfg.Topics {
		if err := p.ProcessTopic(ctx, topic); err != nil {
			logger.Error("Topic processing failed", err, "topic", topic)
			errs = append(errs, fmt.Errorf("topic %s: %w", topic, err))
		}
	}
	return errors.Join(errs...)
}

// ProcessTopic runs enrichment, clustering, ranking and indexing for one
// topic. Clustering and ranking are computed in full before any highlight or
// index write happens, so a failed run leaves the previous day's highlight
// list and index contents untouched.
func (p *Processor) ProcessTopic(ctx context.Context, topic string) error {
	articles, err := p.store.GetArticlesByTopic(topic)
	if err != nil {
		return err
	}
	if len(articles) == 0 {
		logger.Info("No articles for topic, skipping", "topic", topic)
		return nil
	}

	if err := p.enrich(ctx, articles); err != nil {
		return err
	}

	clusters, err := clustering.NewGreedyClusterer(p.cfg.SimilarityThreshold).Cluster(articles)
	if err != nil {
		return fmt.Errorf("clustering failed: %w", err)
	}

	representatives := representativeArticles(articles, clusters)
	entries, err := highlights.NewRanker().Rank(
		representatives,
		p.cfg.KeywordsFor(topic),
		clustering.SizesByRepresentative(clusters),
		p.cfg.TopN,
	)
	if err != nil {
		return fmt.Errorf("ranking failed: %w", err)
	}

	// All computation succeeded; now write.
	for i := range articles {
		if err := p.store.UpdateClusterID(articles[i].ID, articles[i].ClusterID); err != nil {
			return err
		}
	}
	if err := p.store.ReplaceHighlights(topic, entries); err != nil {
		return err
	}
	if err := p.reindex(ctx, topic, representatives); err != nil {
		return err
	}

	logger.Info("Topic processed", "topic", topic,
		"articles", len(articles), "clusters", len(clusters), "highlights", len(entries))
	return nil
}

// classifyUnknown assigns a topic to articles ingested without one. An
// article the classifier still cannot place keeps the unknown topic and is
// retried next run.
func (p *Processor) classifyUnknown(ctx context.Context) error {
	articles, err := p.store.GetArticlesByTopic(topicUnknown)
	if err != nil {
		return err
	}
	for i := range articles {
		a := &articles[i]
		classified, err := p.enricher.ClassifyTopic(ctx, *a, p.cfg.Topics)
		if err != nil {
			return fmt.Errorf("classification failed for %s: %w", a.ID, err)
		}
		if classified == topicUnknown || !validTopic(classified, p.cfg.Topics) {
			logger.Warn("Article could not be classified", "id", a.ID, "title", a.Title)
			continue
		}
		if err := p.store.UpdateEnrichment(a.ID, classified, a.Summary, a.Embedding); err != nil {
			return err
		}
	}
	return nil
}

// enrich fills in summary and embedding for articles that still lack them,
// persisting as it goes. Enrichment is idempotent: already-annotated
// articles are skipped on re-runs.
func (p *Processor) enrich(ctx context.Context, articles []core.Article) error {
	for i := range articles {
		a := &articles[i]
		if a.Summary != "" && a.HasEmbedding() {
			continue
		}

		if a.Summary == "" {
			summary, err := p.enricher.Summarize(ctx, *a)
			if err != nil {
				return fmt.Errorf("summarization failed for %s: %w", a.ID, err)
			}
			a.Summary = summary
		}
		if !a.HasEmbedding() {
			embedding, err := p.enricher.EmbedArticle(ctx, *a)
			if err != nil {
				return fmt.Errorf("embedding failed for %s: %w", a.ID, err)
			}
			a.Embedding = embedding
		}

		if err := p.store.UpdateEnrichment(a.ID, a.Topic, a.Summary, a.Embedding); err != nil {
			return err
		}
	}
	return nil
}

// reindex replaces the topic's vector records with the new representatives:
// superseded ids are deleted, current ones upserted. Duplicate cluster
// members are never indexed.
func (p *Processor) reindex(ctx context.Context, topic string, representatives []core.Article) error {
	current := make(map[string]bool, len(representatives))
	for i := range representatives {
		current[representatives[i].ID] = true
	}

	existing, err := p.index.IDsByTopic(ctx, topic)
	if err != nil {
		return err
	}
	for _, id := range existing {
		if !current[id] {
			if err := p.index.Delete(ctx, id); err != nil {
				return err
			}
		}
	}

	for i := range representatives {
		a := &representatives[i]
		if err := p.index.Upsert(ctx, core.VectorRecord{
			ID:        a.ID,
			Embedding: a.Embedding,
			Topic:     a.Topic,
			Summary:   a.Summary,
			URL:       a.URL,
		}); err != nil {
			return err
		}
	}
	return nil
}

func representativeArticles(articles []core.Article, clusters []core.Cluster) []core.Article {
	byID := make(map[string]*core.Article, len(articles))
	for i := range articles {
		byID[articles[i].ID] = &articles[i]
	}

	reps := make([]core.Article, 0, len(clusters))
	for i := range clusters {
		if a, ok := byID[clusters[i].RepresentativeID]; ok {
			reps = append(reps, *a)
		}
	}
	return reps
}

func validTopic(topic string, topics []string) bool {
	for _, t := range topics {
		if topic == t {
			return true
		}
	}
	return false
}
