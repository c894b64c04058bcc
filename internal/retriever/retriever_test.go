package retriever

import (
	"context"
	"math"
	"testing"
	"time"

	"jobscout/internal/config"
	"jobscout/internal/logging"
	"jobscout/internal/vectorstore"
)

type fixedEmbedder struct{ vec []float32 }

func (f fixedEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vec
	}
	return out, nil
}

func newTestRetriever(t *testing.T) (*Retriever, *vectorstore.Store) {
	t.Helper()
	cfg := &config.Config{}
	cfg.RAGSystem.VectorDB.PersistDirectory = t.TempDir()
	cfg.RAGSystem.VectorDB.CollectionName = "jobs"
	store, err := vectorstore.Open(cfg, fixedEmbedder{vec: []float32{1, 0, 0, 0}}, logging.NewMultiLogger())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return New(store, DefaultConfig(), logging.NewMultiLogger()), store
}

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestTimeWeightPiecewiseFormula(t *testing.T) {
	r := &Retriever{cfg: DefaultConfig()}
	now := time.Now().UTC()

	cases := []struct {
		name     string
		at       time.Time
		wantFresh bool
	}{
		{"future timestamp clamps to 1.0", now.Add(time.Hour), false},
		{"within fresh window", now.Add(-3 * 24 * time.Hour), true},
		{"between fresh and 30 days", now.Add(-15 * 24 * time.Hour), false},
		{"beyond 30 days decays exponentially", now.Add(-90 * 24 * time.Hour), false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			w, fresh := r.timeWeight(c.at, now)
			if w < 0.1 || w > 1.0 {
				t.Errorf("weight %v out of documented range", w)
			}
			if fresh != c.wantFresh {
				t.Errorf("isFresh = %v, want %v", fresh, c.wantFresh)
			}
		})
	}
}

func TestTimeWeightMissingTimestampDefaultsToHalf(t *testing.T) {
	r := &Retriever{cfg: DefaultConfig()}
	w, fresh := r.timeWeight(time.Time{}, time.Now().UTC())
	if !almostEqual(w, 0.5) {
		t.Fatalf("expected 0.5 for missing timestamp, got %v", w)
	}
	if fresh {
		t.Fatal("missing timestamp should not count as fresh")
	}
}

func TestHybridStrategyBoostsFreshDocuments(t *testing.T) {
	r, store := newTestRetriever(t)
	ctx := context.Background()

	if _, err := store.AddDocuments(ctx, []vectorstore.Document{{Content: "stale doc"}}, "job-stale"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := store.AddDocuments(ctx, []vectorstore.Document{{Content: "fresh doc"}}, "job-fresh"); err != nil {
		t.Fatalf("add: %v", err)
	}

	results, err := r.Search(ctx, "doc", 2, nil, StrategyHybrid)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	// Both docs share the identical fixed embedding and both fall inside the
	// fresh window, so similarity and fresh boost tie; job-fresh is stored
	// last, so its slightly smaller age gives it the higher time weight.
	if results[0].Doc.JobID != "job-fresh" {
		t.Fatalf("expected the freshly-created doc to rank first under hybrid, got %s", results[0].Doc.JobID)
	}
}

func TestFreshFirstPartitionsBeforeSorting(t *testing.T) {
	r, store := newTestRetriever(t)
	ctx := context.Background()
	if _, err := store.AddDocuments(ctx, []vectorstore.Document{{Content: "a"}}, "job-a"); err != nil {
		t.Fatalf("add: %v", err)
	}

	results, err := r.Search(ctx, "a", 1, nil, StrategyFreshFirst)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
}
