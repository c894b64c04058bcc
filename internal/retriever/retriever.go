// Package retriever implements C9: a time-aware re-ranking wrapper around
// C8's raw similarity search. No teacher equivalent exists for this —
// the formulas are taken verbatim from the specification and expressed
// as a pure function over vectorstore.ScoredDoc, so they're trivially
// unit-testable without a browser, database, or network dependency.
package retriever

import (
	"context"
	"math"
	"sort"
	"time"

	"jobscout/internal/logging/types"
	"jobscout/internal/vectorstore"
)

// Strategy selects one of the three re-ranking policies.
type Strategy string

const (
	StrategyHybrid     Strategy = "hybrid"
	StrategyFreshFirst Strategy = "fresh_first"
	StrategyBalanced   Strategy = "balanced"
)

// Config holds the tunables spec §4.9 names with defaults.
type Config struct {
	FreshBoost      float64
	FreshDays       int
	DecayFactor     float64
	EnableTimeBoost bool
}

func DefaultConfig() Config {
	return Config{FreshBoost: 0.2, FreshDays: 7, DecayFactor: 0.1, EnableTimeBoost: true}
}

// Retriever wraps a vector store with time-aware re-ranking.
type Retriever struct {
	store  *vectorstore.Store
	cfg    Config
	logger types.Logger
}

func New(store *vectorstore.Store, cfg Config, logger types.Logger) *Retriever {
	return &Retriever{store: store, cfg: cfg, logger: logger}
}

// Result pairs a document with its strategy-adjusted score.
type Result struct {
	Doc           vectorstore.StoredDoc
	AdjustedScore float64
}

// Search overfetches 3k candidates from C8, re-ranks by the chosen
// strategy, and returns the top k. Falls back to the unmodified C8
// result on any failure inside re-ranking.
func (r *Retriever) Search(ctx context.Context, query string, k int, filters *vectorstore.Filters, strategy Strategy) ([]Result, error) {
	overfetch := k * 3
	if overfetch < k {
		overfetch = k
	}
	scored, err := r.store.SimilaritySearchWithScore(ctx, query, overfetch, filters)
	if err != nil {
		return nil, err
	}

	reranked := r.rerank(scored, strategy)
	if reranked == nil {
		// re-rank failed internally: fall back to the raw C8 order, truncated to k.
		r.logger.Warn("time-aware re-rank failed, falling back to raw similarity order", nil)
		reranked = rawFallback(scored)
	}
	if k > 0 && len(reranked) > k {
		reranked = reranked[:k]
	}
	return reranked, nil
}

func rawFallback(scored []vectorstore.ScoredDoc) []Result {
	out := make([]Result, len(scored))
	for i, s := range scored {
		out[i] = Result{Doc: s.Doc, AdjustedScore: s.Score}
	}
	return out
}

// rerank is defensive about panics (e.g. malformed timestamps surfacing
// as unexpected types from future callers) so Search can fall back
// cleanly rather than propagate the failure.
func (r *Retriever) rerank(scored []vectorstore.ScoredDoc, strategy Strategy) (out []Result) {
	defer func() {
		if rec := recover(); rec != nil {
			out = nil
		}
	}()

	now := time.Now().UTC()
	type rankedDoc struct {
		doc       vectorstore.StoredDoc
		sim       float64
		timeWeight float64
		isFresh   bool
	}

	docs := make([]rankedDoc, len(scored))
	for i, s := range scored {
		tw, fresh := r.timeWeight(s.Doc.CreatedAt, now)
		docs[i] = rankedDoc{doc: s.Doc, sim: s.Score, timeWeight: tw, isFresh: fresh}
	}

	switch strategy {
	case StrategyFreshFirst:
		var fresh, stale []rankedDoc
		for _, d := range docs {
			if d.isFresh {
				fresh = append(fresh, d)
			} else {
				stale = append(stale, d)
			}
		}
		freshResults := make([]Result, len(fresh))
		for i, d := range fresh {
			freshResults[i] = Result{Doc: d.doc, AdjustedScore: d.sim + r.cfg.FreshBoost}
		}
		sort.Slice(freshResults, func(i, j int) bool { return freshResults[i].AdjustedScore > freshResults[j].AdjustedScore })

		staleResults := make([]Result, len(stale))
		for i, d := range stale {
			staleResults[i] = Result{Doc: d.doc, AdjustedScore: d.sim*(1-r.cfg.DecayFactor) + d.timeWeight*r.cfg.DecayFactor}
		}
		sort.Slice(staleResults, func(i, j int) bool { return staleResults[i].AdjustedScore > staleResults[j].AdjustedScore })

		return append(freshResults, staleResults...)

	case StrategyBalanced:
		results := make([]Result, len(docs))
		for i, d := range docs {
			results[i] = Result{Doc: d.doc, AdjustedScore: 0.5*d.sim + 0.5*d.timeWeight}
		}
		sort.Slice(results, func(i, j int) bool { return results[i].AdjustedScore > results[j].AdjustedScore })
		return results

	default: // hybrid
		results := make([]Result, len(docs))
		for i, d := range docs {
			score := 0.7*d.sim + 0.3*d.timeWeight
			if d.isFresh {
				score += r.cfg.FreshBoost
			}
			results[i] = Result{Doc: d.doc, AdjustedScore: score}
		}
		sort.Slice(results, func(i, j int) bool { return results[i].AdjustedScore > results[j].AdjustedScore })
		return results
	}
}

// timeWeight implements spec §4.9's piecewise formula exactly.
func (r *Retriever) timeWeight(t time.Time, now time.Time) (weight float64, isFresh bool) {
	if t.IsZero() {
		return 0.5, false
	}
	freshDays := float64(r.cfg.FreshDays)
	deltaDays := now.Sub(t).Hours() / 24

	switch {
	case deltaDays <= 0:
		weight = 1.0
	case deltaDays <= freshDays:
		weight = 1.0 - 0.3*(deltaDays/freshDays)
	case deltaDays <= 30:
		weight = 0.7 - 0.3*((deltaDays-freshDays)/(30-freshDays))
	default:
		weight = 0.4 * math.Exp(-0.5*math.Min(deltaDays/365, 2.0))
		if weight < 0.1 {
			weight = 0.1
		}
	}
	isFresh = deltaDays >= 0 && deltaDays <= freshDays
	return weight, isFresh
}
