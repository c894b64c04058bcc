// Package embeddings implements C8's embedding model selection policy
// (spec §4.8) and provides the Embedder the vector store calls to turn
// documents and queries into vectors. Grounded on the OpenAI client shape
// in the pack's internal/ai/embeddings/generator.go, extended with the
// local/offline fallback the spec requires but the reference generator
// does not implement.
package embeddings

import (
	"context"
	"crypto/sha256"
	"fmt"
	"math"
	"os"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"jobscout/internal/config"
)

// localVectorDims is the dimensionality of the deterministic local/offline
// fallback embedder. It has no semantic relationship to the OpenAI
// embedding space; the two must not be mixed within one collection.
const localVectorDims = 256

// New selects an embedder per spec §4.8's policy: a readable
// local_model_path wins outright; otherwise an explicit offline flag or a
// provider other than "openai" falls back to the local hashing embedder;
// otherwise an OpenAI client is built from the configured API key.
func New(cfg *config.Config) (Embedder, error) {
	emb := cfg.RAGSystem.VectorDB.Embeddings

	if emb.LocalModelPath != "" {
		if info, err := os.Stat(emb.LocalModelPath); err == nil && info.IsDir() {
			return newLocalEmbedder(emb.ChineseOptimized), nil
		}
	}
	if emb.Offline || emb.Provider != "openai" {
		return newLocalEmbedder(emb.ChineseOptimized), nil
	}
	if emb.APIKey == "" {
		return nil, fmt.Errorf("embeddings: provider %q requires an api_key", emb.Provider)
	}
	return newOpenAIEmbedder(emb.APIKey, emb.Model), nil
}

// Embedder is the interface vectorstore.Store consumes.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// openAIEmbedder calls the OpenAI embeddings endpoint.
type openAIEmbedder struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

func newOpenAIEmbedder(apiKey, model string) *openAIEmbedder {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	m := openai.EmbeddingModelTextEmbedding3Small
	if model != "" {
		m = openai.EmbeddingModel(model)
	}
	return &openAIEmbedder{client: &client, model: m}
}

func (e *openAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("embeddings: no texts provided")
	}
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: e.model,
	})
	if err != nil {
		return nil, fmt.Errorf("embeddings: generate: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embeddings: expected %d vectors, got %d", len(texts), len(resp.Data))
	}
	out := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		v := make([]float32, len(d.Embedding))
		for j, f := range d.Embedding {
			v[j] = float32(f)
		}
		out[i] = v
	}
	return out, nil
}

// localEmbedder is the offline/local_model_path fallback: a deterministic
// hashed bag-of-character-trigrams embedding. It never calls the network,
// satisfying spec §4.8's "offline mode disallows network fetches"; the
// chineseOptimized flag narrows the shingle from 3 runes to 2 runes, which
// carries more signal for CJK text than 3-rune shingles.
type localEmbedder struct {
	chineseOptimized bool
}

func newLocalEmbedder(chineseOptimized bool) *localEmbedder {
	return &localEmbedder{chineseOptimized: chineseOptimized}
}

func (e *localEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = e.hashEmbed(text)
	}
	return out, nil
}

func (e *localEmbedder) hashEmbed(text string) []float32 {
	vec := make([]float32, localVectorDims)
	runes := []rune(text)
	shingleLen := 3
	if e.chineseOptimized {
		shingleLen = 2
	}
	if len(runes) < shingleLen {
		shingleLen = len(runes)
	}
	if shingleLen == 0 {
		return vec
	}
	for i := 0; i+shingleLen <= len(runes); i++ {
		shingle := string(runes[i : i+shingleLen])
		sum := sha256.Sum256([]byte(shingle))
		idx := int(sum[0])<<8 | int(sum[1])
		vec[idx%localVectorDims] += 1
	}
	normalize(vec)
	return vec
}

func normalize(vec []float32) {
	var sumSquares float64
	for _, v := range vec {
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares == 0 {
		return
	}
	norm := float32(1.0 / math.Sqrt(sumSquares))
	for i := range vec {
		vec[i] *= norm
	}
}
