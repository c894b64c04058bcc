package embeddings

import (
	"context"
	"testing"

	"jobscout/internal/config"
)

func TestNewSelectsLocalEmbedderWhenOffline(t *testing.T) {
	cfg := &config.Config{}
	cfg.RAGSystem.VectorDB.Embeddings.Provider = "openai"
	cfg.RAGSystem.VectorDB.Embeddings.Offline = true

	e, err := New(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := e.(*localEmbedder); !ok {
		t.Fatalf("expected local embedder for offline mode, got %T", e)
	}
}

func TestNewRequiresAPIKeyForOpenAIProvider(t *testing.T) {
	cfg := &config.Config{}
	cfg.RAGSystem.VectorDB.Embeddings.Provider = "openai"

	if _, err := New(cfg); err == nil {
		t.Fatal("expected an error when no api_key is configured for the openai provider")
	}
}

func TestLocalEmbedderIsDeterministicAndNormalized(t *testing.T) {
	e := newLocalEmbedder(false)
	vecs, err := e.Embed(context.Background(), []string{"golang backend engineer", "golang backend engineer"})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vecs) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(vecs))
	}
	for i := range vecs[0] {
		if vecs[0][i] != vecs[1][i] {
			t.Fatalf("expected identical text to embed deterministically, mismatch at %d", i)
		}
	}

	var sumSquares float64
	for _, v := range vecs[0] {
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares < 0.99 || sumSquares > 1.01 {
		t.Fatalf("expected an L2-normalized vector, got squared norm %v", sumSquares)
	}
}

func TestLocalEmbedderDistinguishesDifferentText(t *testing.T) {
	e := newLocalEmbedder(false)
	vecs, err := e.Embed(context.Background(), []string{"golang backend role", "completely unrelated legal contract text"})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	identical := true
	for i := range vecs[0] {
		if vecs[0][i] != vecs[1][i] {
			identical = false
			break
		}
	}
	if identical {
		t.Fatal("expected distinct texts to produce distinct embeddings")
	}
}
