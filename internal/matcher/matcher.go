// Package matcher implements C12: the bounded request that turns a
// résumé into a ranked list of matching jobs. Grounded on spec §4.12's
// explicit 7-step algorithm; no direct teacher analog, but follows the
// teacher's convention of a single top-level Find-style entry point
// that fans out bounded work and always returns a populated result
// rather than raising on an empty match set.
package matcher

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"jobscout/internal/jobstore"
	"jobscout/internal/logging/types"
	"jobscout/internal/resume"
	"jobscout/internal/retriever"
	"jobscout/internal/scorer"
	"jobscout/internal/vectorstore"
	"jobscout/pkg/models"
)

// maxScoringWorkers bounds the goroutine fan-out used to score candidate
// jobs concurrently, mirroring the teacher's capped worker-pool shape
// (internal/scraper/workers/pool.go) without needing its job/quit channel
// machinery: C11's Score call is a pure, stateless function, so a simple
// semaphore is enough to cap concurrency.
const maxScoringWorkers = 8

// Filters narrows the candidate pool before scoring.
type Filters struct {
	Website string
}

// Summary aggregates counts and timing over one match request.
type Summary struct {
	TotalCandidates int
	CountByPriority map[models.PriorityLevel]int
	AverageScore    float64
	Elapsed         time.Duration
}

// CareerInsights is the derived, rule-based commentary attached to a
// match bundle (spec §4.12 step 6).
type CareerInsights struct {
	TopTitles            []string
	SkillGaps            []string
	SalaryMarketPosition string
	MarketTrends         []string
	Recommendations      []string
}

// Match is one scored job in the returned bundle.
type Match struct {
	Job    models.Job
	Result scorer.MatchResult
}

// Bundle is C12's return value. It is never nil and never signals
// failure via an empty match list — per spec step 7, an empty result is
// valid and carries populated metadata.
type Bundle struct {
	Matches  []Match
	Summary  Summary
	Insights CareerInsights
}

// Matcher ties together C9 (retrieval), C11 (scoring) and C2 (job
// metadata / soft-delete state).
type Matcher struct {
	retriever       *retriever.Retriever
	scorer          *scorer.Scorer
	store           *jobstore.Store
	logger          types.Logger
	defaultSearchK  int
	minScoreThreshold float64
	strategy        retriever.Strategy
}

func New(r *retriever.Retriever, sc *scorer.Scorer, store *jobstore.Store, logger types.Logger, defaultSearchK int, minScoreThreshold float64, strategy retriever.Strategy) *Matcher {
	if defaultSearchK <= 0 {
		defaultSearchK = 30
	}
	if strategy == "" {
		strategy = retriever.StrategyHybrid
	}
	return &Matcher{
		retriever: r, scorer: sc, store: store, logger: logger,
		defaultSearchK: defaultSearchK, minScoreThreshold: minScoreThreshold, strategy: strategy,
	}
}

// FindMatchingJobs implements C12's 7-step algorithm.
func (m *Matcher) FindMatchingJobs(ctx context.Context, r *resume.Profile, filters Filters, topK int) (*Bundle, error) {
	start := time.Now()
	if topK <= 0 {
		topK = 10
	}

	query := buildQuery(r)
	k := m.defaultSearchK
	if overfetch := 3 * topK; overfetch < k {
		k = overfetch
	}

	// website isn't a vectorstore filter field; it narrows the candidate
	// set after the job-group lookup below instead.
	results, err := m.retriever.Search(ctx, query, k, nil, m.strategy)
	if err != nil {
		m.logger.Warn("retriever search failed, matcher returns empty bundle", map[string]interface{}{"error": err.Error()})
		return emptyBundle(start), nil
	}

	grouped := groupByJobID(results)
	candidates := m.loadCandidates(ctx, grouped, filters)
	matches := m.scoreCandidates(r, candidates)

	sort.Slice(matches, func(i, j int) bool { return matches[i].Result.Overall > matches[j].Result.Overall })
	if len(matches) > topK {
		matches = matches[:topK]
	}

	summary := buildSummary(matches, start)
	insights := buildInsights(matches)

	return &Bundle{Matches: matches, Summary: summary, Insights: insights}, nil
}

type jobCandidate struct {
	job    models.Job
	detail *models.JobDetail
	docs   []scorer.JobDoc
}

// ScoreSingleJob scores one already-known job against a résumé, reusing the
// same document-fetch-then-score path as FindMatchingJobs steps 3-4. It is
// used by C13's auto-repair pass, which targets specific rag_processed jobs
// rather than running a fresh retrieval query.
func (m *Matcher) ScoreSingleJob(ctx context.Context, r *resume.Profile, jobID string) (*Match, error) {
	job, err := m.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil || job.IsDeleted {
		return nil, nil
	}

	query := buildQuery(r)
	if query == "" {
		query = job.Title
	}
	results, err := m.retriever.Search(ctx, query, 10, &vectorstore.Filters{JobID: jobID}, m.strategy)
	if err != nil {
		return nil, err
	}

	var docs []scorer.JobDoc
	for _, res := range results {
		if res.Doc.JobID != jobID {
			continue
		}
		score := res.AdjustedScore
		docs = append(docs, scorer.JobDoc{
			DocumentType: res.Doc.Metadata["document_type"],
			Content:      res.Doc.Content,
			SearchScore:  &score,
		})
	}

	detail, _ := m.store.GetJobDetail(ctx, jobID)
	result := m.scorer.Score(r, docs, metadataFromJob(detail))
	return &Match{Job: *job, Result: result}, nil
}

// loadCandidates fetches job metadata for each retrieved job id, capped at
// maxScoringWorkers concurrent store lookups, and filters out soft-deleted
// or website-mismatched jobs.
func (m *Matcher) loadCandidates(ctx context.Context, grouped map[string][]scorer.JobDoc, filters Filters) []jobCandidate {
	sem := make(chan struct{}, maxScoringWorkers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	candidates := make([]jobCandidate, 0, len(grouped))

	for jobID, docs := range grouped {
		wg.Add(1)
		sem <- struct{}{}
		go func(jobID string, docs []scorer.JobDoc) {
			defer wg.Done()
			defer func() { <-sem }()

			job, err := m.store.GetJob(ctx, jobID)
			if err != nil || job == nil || job.IsDeleted {
				return
			}
			if filters.Website != "" && job.Website != filters.Website {
				return
			}
			detail, _ := m.store.GetJobDetail(ctx, jobID) // nil detail degrades to spec's documented "missing" defaults

			mu.Lock()
			candidates = append(candidates, jobCandidate{job: *job, detail: detail, docs: docs})
			mu.Unlock()
		}(jobID, docs)
	}
	wg.Wait()
	return candidates
}

// scoreCandidates runs C11's Score call across candidates with the same
// bounded concurrency, since scoring is pure CPU work independent per job.
func (m *Matcher) scoreCandidates(r *resume.Profile, candidates []jobCandidate) []Match {
	sem := make(chan struct{}, maxScoringWorkers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	matches := make([]Match, 0, len(candidates))

	for _, c := range candidates {
		wg.Add(1)
		sem <- struct{}{}
		go func(c jobCandidate) {
			defer wg.Done()
			defer func() { <-sem }()

			meta := metadataFromJob(c.detail)
			result := m.scorer.Score(r, c.docs, meta)
			if result.Overall < m.minScoreThreshold {
				return
			}

			mu.Lock()
			matches = append(matches, Match{Job: c.job, Result: result})
			mu.Unlock()
		}(c)
	}
	wg.Wait()
	return matches
}

func emptyBundle(start time.Time) *Bundle {
	return &Bundle{
		Matches: nil,
		Summary: Summary{CountByPriority: map[models.PriorityLevel]int{}, Elapsed: time.Since(start)},
		Insights: CareerInsights{},
	}
}

// buildQuery implements step 1: current position + years, top-8 skills,
// up to 3 preferred positions, up to 2 industries, up to 3 soft skills.
func buildQuery(r *resume.Profile) string {
	var parts []string
	if r.CurrentPosition != "" {
		parts = append(parts, fmt.Sprintf("%s %.0f years", r.CurrentPosition, r.TotalExperienceYears))
	}
	skills := r.GetAllSkills()
	if len(skills) > 8 {
		skills = skills[:8]
	}
	parts = append(parts, skills...)

	positions := r.PreferredPositions
	if len(positions) > 3 {
		positions = positions[:3]
	}
	parts = append(parts, positions...)

	industries := industryKeys(r.IndustryExperience)
	if len(industries) > 2 {
		industries = industries[:2]
	}
	parts = append(parts, industries...)

	soft := r.SoftSkills
	if len(soft) > 3 {
		soft = soft[:3]
	}
	parts = append(parts, soft...)

	return strings.Join(parts, " ")
}

func industryKeys(m map[string]float64) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out) // deterministic order; map iteration would otherwise vary the query each call
	return out
}

func groupByJobID(results []retriever.Result) map[string][]scorer.JobDoc {
	groups := make(map[string][]scorer.JobDoc)
	for _, res := range results {
		jobID := res.Doc.JobID
		if jobID == "" {
			continue
		}
		score := res.AdjustedScore
		groups[jobID] = append(groups[jobID], scorer.JobDoc{
			DocumentType: res.Doc.Metadata["document_type"],
			Content:      res.Doc.Content,
			SearchScore:  &score,
		})
	}
	return groups
}

// metadataFromJob projects a stored job detail onto the scorer's input
// shape. A nil detail (not yet harvested, or harvest failed) degrades
// every field to the scorer's documented "missing" defaults rather than
// inventing data.
func metadataFromJob(detail *models.JobDetail) scorer.JobMetadata {
	if detail == nil {
		return scorer.JobMetadata{}
	}
	return scorer.JobMetadata{
		Description: detail.Description,
		Industry:    detail.Industry,
		Skills:      detail.Requirements,
	}
}

func buildSummary(matches []Match, start time.Time) Summary {
	s := Summary{TotalCandidates: len(matches), CountByPriority: map[models.PriorityLevel]int{}, Elapsed: time.Since(start)}
	var total float64
	for _, m := range matches {
		s.CountByPriority[m.Result.Priority]++
		total += m.Result.Overall
	}
	if len(matches) > 0 {
		s.AverageScore = total / float64(len(matches))
	}
	return s
}

// buildInsights implements step 6's CareerInsights: top titles, skill-gap
// aggregation, a static market-trend line, and a handful of rule-derived
// recommendations.
func buildInsights(matches []Match) CareerInsights {
	insights := CareerInsights{
		MarketTrends: []string{"Remote and hybrid roles continue to make up a growing share of new postings"},
	}
	titleSeen := make(map[string]bool)
	gapCounts := make(map[string]int)

	for _, m := range matches {
		if !titleSeen[m.Job.Title] && m.Job.Title != "" {
			titleSeen[m.Job.Title] = true
			insights.TopTitles = append(insights.TopTitles, m.Job.Title)
		}
		for _, gap := range m.Result.Analysis.MissingSkills {
			gapCounts[gap]++
		}
	}
	if len(insights.TopTitles) > 5 {
		insights.TopTitles = insights.TopTitles[:5]
	}

	type gapCount struct {
		skill string
		count int
	}
	var gaps []gapCount
	for skill, count := range gapCounts {
		gaps = append(gaps, gapCount{skill, count})
	}
	sort.Slice(gaps, func(i, j int) bool { return gaps[i].count > gaps[j].count })
	for i, g := range gaps {
		if i >= 5 {
			break
		}
		insights.SkillGaps = append(insights.SkillGaps, g.skill)
	}

	if len(matches) == 0 {
		insights.SalaryMarketPosition = "insufficient data"
	} else {
		var avgSalary float64
		for _, m := range matches {
			avgSalary += m.Result.Dimensions.Salary
		}
		avgSalary /= float64(len(matches))
		switch {
		case avgSalary >= 0.7:
			insights.SalaryMarketPosition = "competitive"
		case avgSalary >= 0.4:
			insights.SalaryMarketPosition = "in range"
		default:
			insights.SalaryMarketPosition = "below market expectations"
		}
	}

	if len(insights.SkillGaps) > 0 {
		insights.Recommendations = append(insights.Recommendations,
			fmt.Sprintf("Consider building experience in: %s", strings.Join(insights.SkillGaps, ", ")))
	}
	if len(matches) == 0 {
		insights.Recommendations = append(insights.Recommendations, "Broaden search criteria or lower the minimum score threshold")
	}

	return insights
}
