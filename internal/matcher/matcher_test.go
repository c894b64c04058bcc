package matcher

import (
	"context"
	"testing"

	"jobscout/internal/config"
	"jobscout/internal/jobstore"
	"jobscout/internal/logging"
	"jobscout/internal/resume"
	"jobscout/internal/retriever"
	"jobscout/internal/scorer"
	"jobscout/internal/vectorstore"
	"jobscout/pkg/models"
)

func TestBuildQueryCapsEachSection(t *testing.T) {
	r := &resume.Profile{CurrentPosition: "Backend Engineer", TotalExperienceYears: 5}
	r.AddSkillCategory(resume.SkillCategory{Skills: []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}})
	r.PreferredPositions = []string{"p1", "p2", "p3", "p4"}
	r.SoftSkills = []string{"s1", "s2", "s3", "s4"}
	r.IndustryExperience = map[string]float64{"tech": 0.8, "finance": 0.5}

	query := buildQuery(r)
	if query == "" {
		t.Fatal("expected a non-empty query")
	}
	// i/j (9th/10th skills) and p4/s4 (4th preferred position/soft skill) must be excluded by the caps.
	for _, excluded := range []string{"i", "j", "p4", "s4"} {
		for _, tok := range splitFields(query) {
			if tok == excluded {
				t.Fatalf("query %q should not include capped-out token %q", query, excluded)
			}
		}
	}
}

func splitFields(s string) []string {
	var out []string
	cur := ""
	for _, r := range s {
		if r == ' ' {
			if cur != "" {
				out = append(out, cur)
				cur = ""
			}
			continue
		}
		cur += string(r)
	}
	if cur != "" {
		out = append(out, cur)
	}
	return out
}

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

func newTestMatcher(t *testing.T) (*Matcher, *jobstore.Store, *vectorstore.Store) {
	t.Helper()
	logger := logging.NewMultiLogger()

	js, err := jobstore.Open(t.TempDir()+"/jobs.db", logger)
	if err != nil {
		t.Fatalf("open job store: %v", err)
	}
	t.Cleanup(func() { _ = js.Close() })

	cfg := &config.Config{}
	cfg.RAGSystem.VectorDB.PersistDirectory = t.TempDir()
	cfg.RAGSystem.VectorDB.CollectionName = "jobs"
	vs, err := vectorstore.Open(cfg, hashEmbedder{}, logger)
	if err != nil {
		t.Fatalf("open vector store: %v", err)
	}
	t.Cleanup(func() { _ = vs.Close() })

	ret := retriever.New(vs, retriever.DefaultConfig(), logger)
	sc := scorer.New(scorer.DefaultWeights(), scorer.SkillTables{})
	m := New(ret, sc, js, logger, 30, 0.0, retriever.StrategyHybrid)
	return m, js, vs
}

func TestFindMatchingJobsReturnsEmptyBundleWhenNoJobsStored(t *testing.T) {
	m, _, _ := newTestMatcher(t)
	r := &resume.Profile{CurrentPosition: "Engineer"}

	bundle, err := m.FindMatchingJobs(context.Background(), r, Filters{}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bundle == nil {
		t.Fatal("expected a non-nil bundle even with zero candidates")
	}
	if len(bundle.Matches) != 0 {
		t.Fatalf("expected no matches, got %d", len(bundle.Matches))
	}
}

func TestFindMatchingJobsExcludesSoftDeletedJobs(t *testing.T) {
	m, js, vs := newTestMatcher(t)
	ctx := context.Background()

	job := &models.Job{JobID: "job-1", Title: "Backend Engineer", Company: "Acme", Website: "board", IsDeleted: true}
	if _, err := js.SaveJob(ctx, job); err != nil {
		t.Fatalf("save job: %v", err)
	}
	if _, err := vs.AddDocuments(ctx, []vectorstore.Document{{Content: "golang backend role"}}, "job-1"); err != nil {
		t.Fatalf("add doc: %v", err)
	}

	r := &resume.Profile{CurrentPosition: "Backend Engineer"}
	bundle, err := m.FindMatchingJobs(ctx, r, Filters{}, 10)
	if err != nil {
		t.Fatalf("find matching jobs: %v", err)
	}
	if len(bundle.Matches) != 0 {
		t.Fatalf("expected soft-deleted job to be excluded, got %d matches", len(bundle.Matches))
	}
}

func TestFindMatchingJobsScoresAndRanksCandidates(t *testing.T) {
	m, js, vs := newTestMatcher(t)
	ctx := context.Background()

	job := &models.Job{JobID: "job-2", Title: "Backend Engineer", Company: "Acme", Website: "board"}
	if _, err := js.SaveJob(ctx, job); err != nil {
		t.Fatalf("save job: %v", err)
	}
	if _, err := vs.AddDocuments(ctx, []vectorstore.Document{{Content: "golang backend role", Metadata: map[string]any{"document_type": "overview"}}}, "job-2"); err != nil {
		t.Fatalf("add doc: %v", err)
	}

	r := &resume.Profile{CurrentPosition: "Backend Engineer", TotalExperienceYears: 4}
	bundle, err := m.FindMatchingJobs(ctx, r, Filters{}, 10)
	if err != nil {
		t.Fatalf("find matching jobs: %v", err)
	}
	if len(bundle.Matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(bundle.Matches))
	}
	if bundle.Matches[0].Job.JobID != "job-2" {
		t.Fatalf("expected job-2 to match, got %s", bundle.Matches[0].Job.JobID)
	}
	if bundle.Summary.TotalCandidates != 1 {
		t.Fatalf("expected summary to count 1 candidate, got %d", bundle.Summary.TotalCandidates)
	}
}
