// Package highlights ranks deduplicated articles into a topic's daily
// highlight list.
package highlights

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"newslens/internal/core"
)

// Ranker scores articles by keyword weight plus cross-source corroboration
// and orders them into a fixed-size highlight list.
type Ranker struct{}

// NewRanker creates a highlight ranker.
func NewRanker() *Ranker {
	return &Ranker{}
}

// Rank scores the deduplicated articles and returns at most topN entries,
// best first. clusterSizes maps a representative article ID to its cluster's
// member count; unknown articles count as singletons.
//
// score = sum of keyword weights matched (case-insensitive, whole-word) in
// title or summary, plus log(1+clusterSize) so corroboration never dominates
// without bound. Ties break by more recent published_at, then lexical id,
// which makes repeated runs byte-identical.
//
// topN <= 0 yields an empty list, not an error. The input slice is not
// mutated; the returned list wholly replaces any prior one.
func (r *Ranker) Rank(articles []core.Article, keywords map[string]float64, clusterSizes map[string]int, topN int) ([]core.HighlightEntry, error) {
	for kw, weight := range keywords {
		if kw == "" {
			return nil, core.NewInvalidInput("keyword weights contain an empty keyword")
		}
		if weight < 0 || math.IsNaN(weight) || math.IsInf(weight, 0) {
			return nil, core.NewInvalidInput("keyword %q has malformed weight %v", kw, weight)
		}
	}
	if topN <= 0 {
		return []core.HighlightEntry{}, nil
	}

	matchers := compileKeywords(keywords)

	scored := make([]scoredArticle, len(articles))
	for i := range articles {
		a := &articles[i]
		size := clusterSizes[a.ID]
		if size < 1 {
			size = 1
		}
		scored[i] = scoredArticle{
			article: a,
			score:   keywordScore(a.Title+" "+a.Summary, matchers) + math.Log(1+float64(size)),
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		a, b := scored[i].article, scored[j].article
		if !a.PublishedAt.Equal(b.PublishedAt) {
			return a.PublishedAt.After(b.PublishedAt)
		}
		return a.ID < b.ID
	})

	if topN > len(scored) {
		topN = len(scored)
	}

	entries := make([]core.HighlightEntry, 0, topN)
	for i := 0; i < topN; i++ {
		a := scored[i].article
		entries = append(entries, core.HighlightEntry{
			Topic:     a.Topic,
			Rank:      i + 1,
			ArticleID: a.ID,
			Title:     a.Title,
			Summary:   a.Summary,
			URL:       a.URL,
			Score:     scored[i].score,
		})
	}
	return entries, nil
}

type scoredArticle struct {
	article *core.Article
	score   float64
}

type keywordMatcher struct {
	pattern *regexp.Regexp
	weight  float64
}

func compileKeywords(keywords map[string]float64) []keywordMatcher {
	matchers := make([]keywordMatcher, 0, len(keywords))
	for kw, weight := range keywords {
		pattern := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(strings.ToLower(kw)) + `\b`)
		matchers = append(matchers, keywordMatcher{pattern: pattern, weight: weight})
	}
	return matchers
}

// keywordScore sums the weight of every keyword that appears at least once
// in the text. Repeated occurrences of the same keyword do not compound.
func keywordScore(text string, matchers []keywordMatcher) float64 {
	var score float64
	for _, m := range matchers {
		if m.pattern.MatchString(text) {
			score += m.weight
		}
	}
	return score
}
