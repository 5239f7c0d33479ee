// Package clustering groups near-duplicate news coverage within a topic
// using embedding similarity.
package clustering

import (
	"fmt"
	"math"
	"sort"

	"newslens/internal/core"
)

// GreedyClusterer implements single-pass agglomerative clustering: articles
// are visited in a stable order and either join the most similar existing
// cluster or open a new one. The representative of a cluster never moves,
// which makes the output order-dependent but fully reproducible.
type GreedyClusterer struct {
	threshold float64
}

// NewGreedyClusterer creates a clusterer with the given similarity cutoff.
// Cosine similarity at or above the cutoff means "same story".
func NewGreedyClusterer(threshold float64) *GreedyClusterer {
	return &GreedyClusterer{threshold: threshold}
}

// Cluster groups the batch into clusters of near-duplicate coverage and
// writes the assigned cluster ID back onto each input article.
//
// The batch must be topic-scoped and every article must carry an embedding;
// violations surface as InvalidInputError and no article is assigned. A
// singleton cluster is valid. Two articles with identical text always end up
// together, since their embeddings are identical and cosine similarity 1 is
// >= any threshold in (0, 1].
func (g *GreedyClusterer) Cluster(articles []core.Article) ([]core.Cluster, error) {
	if g.threshold <= 0 || g.threshold > 1 {
		return nil, core.NewInvalidInput("similarity threshold must be in (0, 1], got %v", g.threshold)
	}
	if len(articles) == 0 {
		return []core.Cluster{}, nil
	}

	topic := articles[0].Topic
	dim := len(articles[0].Embedding)
	for i := range articles {
		a := &articles[i]
		if !a.HasEmbedding() {
			return nil, core.NewInvalidInput("article %s has no embedding", a.ID)
		}
		if len(a.Embedding) != dim {
			return nil, core.NewInvalidInput("article %s embedding has %d dimensions, batch started with %d", a.ID, len(a.Embedding), dim)
		}
		for _, v := range a.Embedding {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, core.NewInvalidInput("article %s embedding contains a non-finite value", a.ID)
			}
		}
		if a.Topic != topic {
			return nil, core.NewInvalidInput("batch mixes topics %q and %q; clustering runs per topic", topic, a.Topic)
		}
	}

	// Stable visiting order: published_at ascending, ties by id. The order
	// decides which article anchors each cluster, so it must not depend on
	// input ordering.
	order := make([]int, len(articles))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := &articles[order[i]], &articles[order[j]]
		if !a.PublishedAt.Equal(b.PublishedAt) {
			return a.PublishedAt.Before(b.PublishedAt)
		}
		return a.ID < b.ID
	})

	var clusters []core.Cluster
	representatives := make([][]float64, 0, len(articles))

	for _, idx := range order {
		article := &articles[idx]

		best := -1
		bestSim := 0.0
		for c, rep := range representatives {
			sim := CosineSimilarity(article.Embedding, rep)
			if sim >= g.threshold && (best == -1 || sim > bestSim) {
				best = c
				bestSim = sim
			}
		}

		if best >= 0 {
			clusters[best].MemberIDs = append(clusters[best].MemberIDs, article.ID)
			article.ClusterID = clusters[best].ID
			continue
		}

		cluster := core.Cluster{
			ID:               fmt.Sprintf("cluster_%s_%d", topic, len(clusters)),
			Topic:            topic,
			MemberIDs:        []string{article.ID},
			RepresentativeID: article.ID,
		}
		article.ClusterID = cluster.ID
		clusters = append(clusters, cluster)
		representatives = append(representatives, article.Embedding)
	}

	return clusters, nil
}

// CosineSimilarity calculates the cosine similarity between two embeddings.
// Mismatched lengths or zero vectors yield 0.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// SizesByRepresentative maps each cluster's representative article ID to the
// cluster's member count. The ranker uses this as its corroboration signal.
func SizesByRepresentative(clusters []core.Cluster) map[string]int {
	sizes := make(map[string]int, len(clusters))
	for i := range clusters {
		sizes[clusters[i].RepresentativeID] = clusters[i].Size()
	}
	return sizes
}
