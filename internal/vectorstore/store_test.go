package vectorstore

import (
	"context"
	"testing"
	"time"

	"jobscout/internal/config"
	"jobscout/internal/logging"
)

// hashEmbedder is a deterministic stand-in for a real embedding API: it
// counts each rune into one of eight dimensions so that similar strings land
// close together, which is all the similarity-ranking tests need.
type hashEmbedder struct{}

func (hashEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec := make([]float32, 8)
		for _, r := range t {
			vec[int(r)%8] += 1
		}
		out[i] = vec
	}
	return out, nil
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := &config.Config{}
	cfg.RAGSystem.VectorDB.PersistDirectory = t.TempDir()
	cfg.RAGSystem.VectorDB.CollectionName = "test-jobs"
	store, err := Open(cfg, hashEmbedder{}, logging.NewMultiLogger())
	if err != nil {
		t.Fatalf("open vector store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestAddDocumentsStampsJobIDAndFlattensMetadata(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ids, err := store.AddDocuments(ctx, []Document{
		{Content: "golang backend engineer", Metadata: map[string]any{
			"document_type": "job_description",
			"tags":          []string{"go", "backend"},
		}},
	}, "job-1")
	if err != nil {
		t.Fatalf("add documents: %v", err)
	}
	if len(ids) != 1 || ids[0] == "" {
		t.Fatalf("expected one stamped doc id, got %v", ids)
	}

	docs, err := store.SimilaritySearch(ctx, "golang backend engineer", 5, nil)
	if err != nil {
		t.Fatalf("similarity search: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 doc, got %d", len(docs))
	}
	if docs[0].Metadata["tags"] != "go,backend" {
		t.Fatalf("expected list metadata flattened to comma-joined string, got %q", docs[0].Metadata["tags"])
	}
	if docs[0].Metadata["job_id"] != "job-1" {
		t.Fatalf("expected job_id stamped into metadata, got %q", docs[0].Metadata["job_id"])
	}
}

func TestSimilaritySearchRanksClosestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.AddDocuments(ctx, []Document{{Content: "aaaaaaaa"}}, "job-a"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := store.AddDocuments(ctx, []Document{{Content: "zzzzzzzz"}}, "job-z"); err != nil {
		t.Fatalf("add: %v", err)
	}

	scored, err := store.SimilaritySearchWithScore(ctx, "aaaaaaaa", 2, nil)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(scored) != 2 {
		t.Fatalf("expected 2 results, got %d", len(scored))
	}
	if scored[0].Doc.JobID != "job-a" {
		t.Fatalf("expected the identical-content doc to rank first, got %s", scored[0].Doc.JobID)
	}
	if scored[0].Score < scored[1].Score {
		t.Fatalf("expected descending score order, got %v then %v", scored[0].Score, scored[1].Score)
	}
}

func TestDeleteDocumentsRemovesByJobID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.AddDocuments(ctx, []Document{{Content: "some job text"}}, "job-x"); err != nil {
		t.Fatalf("add: %v", err)
	}
	deleted, err := store.DeleteDocuments(ctx, "job-x")
	if err != nil || !deleted {
		t.Fatalf("expected deletion, got deleted=%v err=%v", deleted, err)
	}

	stats, err := store.GetCollectionStats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Count != 0 {
		t.Fatalf("expected empty collection after delete, got count=%d", stats.Count)
	}
}

func TestFiltersRestrictByJobIDAndCreatedRange(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.AddDocuments(ctx, []Document{{Content: "job one text"}}, "job-1"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := store.AddDocuments(ctx, []Document{{Content: "job two text"}}, "job-2"); err != nil {
		t.Fatalf("add: %v", err)
	}

	docs, err := store.SimilaritySearch(ctx, "job text", 10, &Filters{JobID: "job-2"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(docs) != 1 || docs[0].JobID != "job-2" {
		t.Fatalf("expected filter to restrict to job-2, got %+v", docs)
	}

	future := time.Now().UTC().Add(24 * time.Hour)
	docs, err = store.SimilaritySearch(ctx, "job text", 10, &Filters{CreatedAfter: &future})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("expected no docs created after the future, got %d", len(docs))
	}
}
