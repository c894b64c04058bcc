package pipeline

import (
	"context"
	"testing"

	"jobscout/internal/config"
	"jobscout/internal/jobstore"
	"jobscout/internal/logging"
	"jobscout/internal/parser"
	"jobscout/pkg/models"
)

func TestIsBlockedURL(t *testing.T) {
	cases := map[string]bool{
		"https://jobs.example.com/detail/123":       false,
		"https://jobs.example.com/captcha?id=9":     true,
		"https://jobs.example.com/block/verify":     true,
		"https://jobs.example.com/error/rate-limit": true,
	}
	for url, want := range cases {
		if got := isBlockedURL(url); got != want {
			t.Errorf("isBlockedURL(%q) = %v, want %v", url, got, want)
		}
	}
}

func TestRowToJobCarriesFingerprintAndWebsite(t *testing.T) {
	row := parser.Row{Title: "Backend Engineer", Company: "Acme", Salary: "20k", Location: "Remote", Fingerprint: "abc123"}
	job := rowToJob(row, "golang", "example-board")

	if job.Title != row.Title || job.Company != row.Company {
		t.Fatalf("rowToJob dropped list fields: %+v", job)
	}
	if job.JobFingerprint != "abc123" {
		t.Fatalf("expected fingerprint to carry through, got %q", job.JobFingerprint)
	}
	if job.Website != "example-board" {
		t.Fatalf("expected website to carry through, got %q", job.Website)
	}
	if job.JobID == "" {
		t.Fatal("expected a derived job ID")
	}
}

func newTestPipeline(t *testing.T) (*Pipeline, *jobstore.Store) {
	t.Helper()
	logger := logging.NewMultiLogger()
	store, err := jobstore.Open(t.TempDir()+"/jobs.db", logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	cfg := &config.Config{}
	cfg.Websites = map[string]config.WebsiteConfig{"example-board": {Enabled: true}}
	p := &Pipeline{cfg: cfg, store: store, logger: logger}
	return p, store
}

func TestDedupeSkipsAlreadyStoredAndInPageDuplicateFingerprints(t *testing.T) {
	p, store := newTestPipeline(t)
	ctx := context.Background()

	existing := &models.Job{JobID: "j1", Title: "Seen", Company: "Acme", JobFingerprint: "seen-fp", Website: "example-board"}
	if _, err := store.SaveJob(ctx, existing); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	rows := []parser.RowWithElement{
		{Row: parser.Row{Title: "Seen", Fingerprint: "seen-fp"}},
		{Row: parser.Row{Title: "Fresh", Fingerprint: "fresh-fp"}},
		{Row: parser.Row{Title: "Fresh Again", Fingerprint: "fresh-fp"}}, // duplicate within this page
	}

	out, err := p.dedupe(ctx, rows)
	if err != nil {
		t.Fatalf("dedupe: %v", err)
	}
	if len(out) != 1 || out[0].Row.Title != "Fresh" {
		t.Fatalf("expected exactly the first fresh row to survive dedup, got %+v", out)
	}
}

func TestPrimaryWebsiteReturnsConfiguredName(t *testing.T) {
	p, _ := newTestPipeline(t)
	if got := p.primaryWebsite(); got != "example-board" {
		t.Fatalf("expected configured website name, got %q", got)
	}
}
