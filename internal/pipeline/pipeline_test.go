package pipeline

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"newslens/internal/config"
	"newslens/internal/core"
	"newslens/internal/store"
	"newslens/internal/vectorstore"
)

type stubEnricher struct {
	topic       string
	summary     string
	embedding   []float64
	classifyErr error
	embedErr    error
}

func (s *stubEnricher) ClassifyTopic(ctx context.Context, article core.Article, validTopics []string) (string, error) {
	if s.classifyErr != nil {
		return "", s.classifyErr
	}
	return s.topic, nil
}

func (s *stubEnricher) Summarize(ctx context.Context, article core.Article) (string, error) {
	return s.summary, nil
}

func (s *stubEnricher) EmbedArticle(ctx context.Context, article core.Article) ([]float64, error) {
	if s.embedErr != nil {
		return nil, s.embedErr
	}
	return s.embedding, nil
}

// vectorAt returns a unit vector whose cosine similarity to {1, 0} is sim.
func vectorAt(sim float64) []float64 {
	return []float64{sim, math.Sqrt(1 - sim*sim)}
}

func testConfig() config.Pipeline {
	return config.Pipeline{
		Topics:              []string{"sports", "finance"},
		SimilarityThreshold: 0.82,
		TopN:                5,
		Keywords:            map[string]float64{"breaking": 3},
	}
}

func newTestProcessor(t *testing.T, enricher Enricher, cfg config.Pipeline) (*Processor, *store.Store, *vectorstore.SQLiteIndex) {
	t.Helper()
	dir := t.TempDir()

	st, err := store.NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	idx, err := vectorstore.NewSQLiteIndex(dir)
	if err != nil {
		t.Fatalf("NewSQLiteIndex failed: %v", err)
	}
	t.Cleanup(func() { idx.Close() })

	return NewProcessor(st, enricher, idx, cfg), st, idx
}

func saveArticle(t *testing.T, st *store.Store, a core.Article) {
	t.Helper()
	if err := st.SaveArticle(a, "hash-"+a.ID); err != nil {
		t.Fatalf("SaveArticle(%s) failed: %v", a.ID, err)
	}
}

func TestProcessTopicClustersRanksAndIndexes(t *testing.T) {
	enricher := &stubEnricher{summary: "stub summary", embedding: vectorAt(0.99)}
	proc, st, idx := newTestProcessor(t, enricher, testConfig())

	base := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)
	// a1 and a2 cover the same match from two outlets; a3 is a distinct story.
	saveArticle(t, st, core.Article{
		ID: "a1", Topic: "sports", Title: "Breaking: cup final decided on penalties",
		Summary: "The final went to penalties.", Embedding: vectorAt(1.0),
		URL: "https://one.example/final", PublishedAt: base,
	})
	saveArticle(t, st, core.Article{
		ID: "a2", Topic: "sports", Title: "Cup final ends in shootout drama",
		Summary: "Shootout decided the final.", Embedding: vectorAt(0.95),
		URL: "https://two.example/final", PublishedAt: base.Add(time.Hour),
	})
	saveArticle(t, st, core.Article{
		ID: "a3", Topic: "sports", Title: "Club appoints new head coach",
		Summary: "A coaching change was announced.", Embedding: vectorAt(0.1),
		URL: "https://one.example/coach", PublishedAt: base.Add(2 * time.Hour),
	})

	if err := proc.ProcessTopic(context.Background(), "sports"); err != nil {
		t.Fatalf("ProcessTopic failed: %v", err)
	}

	// a1 and a2 share a cluster; a3 sits alone.
	stored1, err := st.GetArticle("a1")
	if err != nil {
		t.Fatalf("GetArticle(a1) failed: %v", err)
	}
	stored2, _ := st.GetArticle("a2")
	stored3, _ := st.GetArticle("a3")
	if stored1.ClusterID == "" || stored1.ClusterID != stored2.ClusterID {
		t.Errorf("a1 and a2 should share a cluster, got %q and %q", stored1.ClusterID, stored2.ClusterID)
	}
	if stored3.ClusterID == "" || stored3.ClusterID == stored1.ClusterID {
		t.Errorf("a3 should have its own cluster, got %q vs %q", stored3.ClusterID, stored1.ClusterID)
	}

	entries, err := st.GetHighlights("sports")
	if err != nil {
		t.Fatalf("GetHighlights failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 highlights (one per cluster), got %d", len(entries))
	}
	// a1 carries the "breaking" keyword plus the larger cluster boost.
	if entries[0].ArticleID != "a1" {
		t.Errorf("expected a1 ranked first, got %s", entries[0].ArticleID)
	}

	// Only representatives reach the index; the duplicate a2 does not.
	ids, err := idx.IDsByTopic(context.Background(), "sports")
	if err != nil {
		t.Fatalf("IDsByTopic failed: %v", err)
	}
	indexed := make(map[string]bool, len(ids))
	for _, id := range ids {
		indexed[id] = true
	}
	if !indexed["a1"] || !indexed["a3"] || indexed["a2"] {
		t.Errorf("expected index to hold a1 and a3 only, got %v", ids)
	}
}

func TestProcessTopicEnrichesMissingAnnotations(t *testing.T) {
	enricher := &stubEnricher{summary: "generated summary", embedding: vectorAt(0.5)}
	proc, st, _ := newTestProcessor(t, enricher, testConfig())

	saveArticle(t, st, core.Article{
		ID: "raw1", Topic: "finance", Title: "Central bank holds rates",
		PublishedAt: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
	})

	if err := proc.ProcessTopic(context.Background(), "finance"); err != nil {
		t.Fatalf("ProcessTopic failed: %v", err)
	}

	stored, err := st.GetArticle("raw1")
	if err != nil {
		t.Fatalf("GetArticle failed: %v", err)
	}
	if stored.Summary != "generated summary" {
		t.Errorf("summary not persisted, got %q", stored.Summary)
	}
	if !stored.HasEmbedding() {
		t.Error("embedding not persisted")
	}
}

func TestRunClassifiesUnknownArticles(t *testing.T) {
	enricher := &stubEnricher{topic: "sports", summary: "classified summary", embedding: vectorAt(0.3)}
	proc, st, _ := newTestProcessor(t, enricher, testConfig())

	saveArticle(t, st, core.Article{
		ID: "u1", Topic: "unknown", Title: "Transfer window roundup",
		PublishedAt: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
	})

	if err := proc.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	stored, err := st.GetArticle("u1")
	if err != nil {
		t.Fatalf("GetArticle failed: %v", err)
	}
	if stored.Topic != "sports" {
		t.Errorf("expected reclassified topic sports, got %q", stored.Topic)
	}
	entries, err := st.GetHighlights("sports")
	if err != nil {
		t.Fatalf("GetHighlights failed: %v", err)
	}
	if len(entries) != 1 || entries[0].ArticleID != "u1" {
		t.Errorf("reclassified article should appear in sports highlights, got %v", entries)
	}
}

func TestRunKeepsUnclassifiableArticlesOut(t *testing.T) {
	enricher := &stubEnricher{topic: "unknown", summary: "s", embedding: vectorAt(0.3)}
	proc, st, _ := newTestProcessor(t, enricher, testConfig())

	saveArticle(t, st, core.Article{
		ID: "u2", Topic: "unknown", Title: "Completely off-topic piece",
		PublishedAt: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
	})

	if err := proc.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	stored, _ := st.GetArticle("u2")
	if stored.Topic != "unknown" {
		t.Errorf("unclassifiable article should keep the unknown topic, got %q", stored.Topic)
	}
	for _, topic := range []string{"sports", "finance"} {
		entries, _ := st.GetHighlights(topic)
		if len(entries) != 0 {
			t.Errorf("unclassifiable article leaked into %s highlights", topic)
		}
	}
}

func TestFailedRunLeavesPreviousStateUntouched(t *testing.T) {
	enricher := &stubEnricher{summary: "s", embedding: vectorAt(0.9)}
	cfg := testConfig()
	proc, st, idx := newTestProcessor(t, enricher, cfg)

	saveArticle(t, st, core.Article{
		ID: "f1", Topic: "finance", Title: "Markets rally on rate cut",
		Summary: "Stocks surged.", Embedding: vectorAt(1.0),
		PublishedAt: time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC),
	})
	if err := proc.ProcessTopic(context.Background(), "finance"); err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	// A broken keyword table makes ranking fail after clustering succeeds.
	badCfg := cfg
	badCfg.Keywords = map[string]float64{"breaking": -1}
	broken := NewProcessor(st, enricher, idx, badCfg)

	saveArticle(t, st, core.Article{
		ID: "f2", Topic: "finance", Title: "Bond yields fall further",
		Summary: "Yields dropped.", Embedding: vectorAt(0.1),
		PublishedAt: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
	})
	if err := broken.ProcessTopic(context.Background(), "finance"); err == nil {
		t.Fatal("expected ranking failure")
	}

	entries, err := st.GetHighlights("finance")
	if err != nil {
		t.Fatalf("GetHighlights failed: %v", err)
	}
	if len(entries) != 1 || entries[0].ArticleID != "f1" {
		t.Errorf("failed run must not disturb highlights, got %v", entries)
	}
	ids, err := idx.IDsByTopic(context.Background(), "finance")
	if err != nil {
		t.Fatalf("IDsByTopic failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != "f1" {
		t.Errorf("failed run must not disturb the index, got %v", ids)
	}
}

func TestRunIsolatesTopicFailures(t *testing.T) {
	embedFail := errors.New("embedding backend down")
	enricher := &stubEnricher{summary: "s", embedding: vectorAt(0.9)}
	proc, st, _ := newTestProcessor(t, enricher, testConfig())

	saveArticle(t, st, core.Article{
		ID: "s1", Topic: "sports", Title: "Season opener recap",
		Summary: "The season opened.", Embedding: vectorAt(1.0),
		PublishedAt: time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC),
	})
	// Missing annotations force an enricher call that will fail.
	saveArticle(t, st, core.Article{
		ID: "b1", Topic: "finance", Title: "Earnings season preview",
		PublishedAt: time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC),
	})
	enricher.embedErr = embedFail

	err := proc.Run(context.Background())
	if err == nil {
		t.Fatal("expected the finance topic to fail")
	}
	if !errors.Is(err, embedFail) {
		t.Errorf("expected wrapped embed error, got %v", err)
	}

	entries, herr := st.GetHighlights("sports")
	if herr != nil {
		t.Fatalf("GetHighlights failed: %v", herr)
	}
	if len(entries) != 1 || entries[0].ArticleID != "s1" {
		t.Errorf("sports should be processed despite finance failing, got %v", entries)
	}
}

func TestReindexDropsSupersededRepresentatives(t *testing.T) {
	enricher := &stubEnricher{summary: "s", embedding: vectorAt(0.9)}
	proc, st, idx := newTestProcessor(t, enricher, testConfig())
	ctx := context.Background()

	base := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)
	saveArticle(t, st, core.Article{
		ID: "r2", Topic: "sports", Title: "Follow-up report",
		Summary: "Later coverage.", Embedding: vectorAt(0.95),
		PublishedAt: base.Add(time.Hour),
	})
	if err := proc.ProcessTopic(ctx, "sports"); err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	// An earlier article arrives late. It now leads the visit order, so it
	// becomes the representative and r2 must leave the index.
	saveArticle(t, st, core.Article{
		ID: "r1", Topic: "sports", Title: "Original report",
		Summary: "First coverage.", Embedding: vectorAt(1.0),
		PublishedAt: base,
	})
	if err := proc.ProcessTopic(ctx, "sports"); err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	ids, err := idx.IDsByTopic(ctx, "sports")
	if err != nil {
		t.Fatalf("IDsByTopic failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != "r1" {
		t.Errorf("expected index to hold only the new representative r1, got %v", ids)
	}
}
