package highlights

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"newslens/internal/core"
)

func financeArticle(id, title, summary string, published time.Time) core.Article {
	return core.Article{
		ID:          id,
		Topic:       "finance",
		Title:       title,
		Summary:     summary,
		URL:         "https://example.com/" + id,
		PublishedAt: published,
	}
}

func TestRank_KeywordsBeatRecency(t *testing.T) {
	// Five deduplicated finance articles; only two mention "interest rate".
	// Those two must rank above the rest regardless of recency, with the tie
	// between them broken by published_at.
	base := time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC)
	articles := []core.Article{
		financeArticle("a1", "Markets drift sideways", "Quiet day on the ASX.", base.Add(4*time.Hour)),
		financeArticle("a2", "RBA lifts interest rate again", "The central bank moved on rates.", base),
		financeArticle("a3", "Retail sales dip", "Shoppers pulled back in May.", base.Add(3*time.Hour)),
		financeArticle("a4", "Banks react to interest rate decision", "Lenders repriced mortgages.", base.Add(time.Hour)),
		financeArticle("a5", "Dollar steady", "Currency traders unmoved.", base.Add(5*time.Hour)),
	}
	keywords := map[string]float64{"interest rate": 3, "inflation": 2}

	entries, err := NewRanker().Rank(articles, keywords, nil, 3)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	// a4 published later than a2, so it wins the tie between the two matches.
	if entries[0].ArticleID != "a4" || entries[1].ArticleID != "a2" {
		t.Errorf("expected a4, a2 on top, got %s, %s", entries[0].ArticleID, entries[1].ArticleID)
	}
	if entries[0].Rank != 1 || entries[1].Rank != 2 || entries[2].Rank != 3 {
		t.Errorf("ranks must be 1..n, got %d %d %d", entries[0].Rank, entries[1].Rank, entries[2].Rank)
	}
}

func TestRank_ClusterSizeBoostsScore(t *testing.T) {
	base := time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC)
	articles := []core.Article{
		financeArticle("solo", "One outlet story", "", base.Add(time.Hour)),
		financeArticle("multi", "Widely covered story", "", base),
	}
	sizes := map[string]int{"multi": 4, "solo": 1}

	entries, err := NewRanker().Rank(articles, nil, sizes, 2)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	if entries[0].ArticleID != "multi" {
		t.Errorf("corroborated story should outrank singleton, got %s first", entries[0].ArticleID)
	}
	wantScore := math.Log(5)
	if math.Abs(entries[0].Score-wantScore) > 1e-9 {
		t.Errorf("expected log(1+4) score %v, got %v", wantScore, entries[0].Score)
	}
}

func TestRank_WholeWordCaseInsensitive(t *testing.T) {
	base := time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC)
	articles := []core.Article{
		financeArticle("hit", "BREAKING: market news", "", base),
		financeArticle("partial", "Groundbreaking research", "", base),
	}
	keywords := map[string]float64{"breaking": 3}

	entries, err := NewRanker().Rank(articles, keywords, nil, 2)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	if entries[0].ArticleID != "hit" {
		t.Errorf("expected whole-word match to win, got %s first", entries[0].ArticleID)
	}
	// "Groundbreaking" must not match "breaking" as a whole word.
	if entries[1].Score >= entries[0].Score {
		t.Errorf("partial match scored %v, should be below %v", entries[1].Score, entries[0].Score)
	}
}

func TestRank_TitleOnlyWhenSummaryEmpty(t *testing.T) {
	base := time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC)
	articles := []core.Article{
		financeArticle("a1", "Emergency rate cut announced", "", base),
	}
	keywords := map[string]float64{"emergency": 1}

	entries, err := NewRanker().Rank(articles, keywords, nil, 1)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	wantScore := 1 + math.Log(2)
	if math.Abs(entries[0].Score-wantScore) > 1e-9 {
		t.Errorf("title-only scoring: got %v, want %v", entries[0].Score, wantScore)
	}
}

func TestRank_Bounded(t *testing.T) {
	base := time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC)
	articles := []core.Article{
		financeArticle("a1", "One", "", base),
		financeArticle("a2", "Two", "", base.Add(time.Minute)),
	}

	entries, err := NewRanker().Rank(articles, nil, nil, 10)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("fewer articles than topN should return all of them, got %d", len(entries))
	}

	entries, err = NewRanker().Rank(articles, nil, nil, 1)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected at most topN entries, got %d", len(entries))
	}
}

func TestRank_TopNZeroOrNegative(t *testing.T) {
	base := time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC)
	articles := []core.Article{financeArticle("a1", "One", "", base)}

	for _, topN := range []int{0, -3} {
		entries, err := NewRanker().Rank(articles, nil, nil, topN)
		if err != nil {
			t.Fatalf("topN=%d should not error: %v", topN, err)
		}
		if len(entries) != 0 {
			t.Errorf("topN=%d should yield empty result, got %d entries", topN, len(entries))
		}
	}
}

func TestRank_Deterministic(t *testing.T) {
	base := time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC)
	articles := []core.Article{
		financeArticle("b", "Same headline", "Same summary", base),
		financeArticle("a", "Same headline", "Same summary", base),
		financeArticle("c", "Same headline", "Same summary", base),
	}
	keywords := map[string]float64{"headline": 2, "summary": 1}

	first, err := NewRanker().Rank(articles, keywords, nil, 3)
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	second, err := NewRanker().Rank(articles, keywords, nil, 3)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("ranking is not deterministic:\nfirst:  %+v\nsecond: %+v", first, second)
	}
	// Identical scores and timestamps fall back to lexical id order.
	if first[0].ArticleID != "a" || first[1].ArticleID != "b" || first[2].ArticleID != "c" {
		t.Errorf("expected lexical id tie-break a,b,c, got %s,%s,%s",
			first[0].ArticleID, first[1].ArticleID, first[2].ArticleID)
	}
}

func TestRank_MalformedWeights(t *testing.T) {
	base := time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC)
	articles := []core.Article{financeArticle("a1", "One", "", base)}

	tests := []struct {
		name     string
		keywords map[string]float64
	}{
		{"negative weight", map[string]float64{"breaking": -1}},
		{"NaN weight", map[string]float64{"breaking": math.NaN()}},
		{"empty keyword", map[string]float64{"": 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRanker().Rank(articles, tt.keywords, nil, 3)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			var invalid *core.InvalidInputError
			if !errors.As(err, &invalid) {
				t.Errorf("expected InvalidInputError, got %T: %v", err, err)
			}
		})
	}
}

func TestRank_DoesNotMutateInput(t *testing.T) {
	base := time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC)
	articles := []core.Article{
		financeArticle("a1", "One", "", base),
		financeArticle("a2", "Two breaking", "", base.Add(time.Minute)),
	}
	snapshot := make([]core.Article, len(articles))
	copy(snapshot, articles)

	if _, err := NewRanker().Rank(articles, map[string]float64{"breaking": 3}, nil, 2); err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	if !reflect.DeepEqual(articles, snapshot) {
		t.Error("Rank mutated its input articles")
	}
}
