package jobstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"jobscout/internal/logging"
	"jobscout/pkg/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "jobs.db"), logging.NewMultiLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveJobIdempotentByFingerprint(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job := &models.Job{JobID: "job-1", Title: "Engineer", Company: "ACME", JobFingerprint: "fp-abc", Website: "example"}
	ok, err := s.SaveJob(ctx, job)
	if err != nil || !ok {
		t.Fatalf("first save: ok=%v err=%v", ok, err)
	}

	dup := &models.Job{JobID: "job-2", Title: "Engineer Dup", Company: "ACME Dup", JobFingerprint: "fp-abc", Website: "example"}
	ok, err = s.SaveJob(ctx, dup)
	if err != nil {
		t.Fatalf("second save errored: %v", err)
	}
	if ok {
		t.Fatal("expected duplicate fingerprint save to be a no-op")
	}

	rows, err := s.QueryJobs(ctx, models.JobFilters{}, 10)
	if err != nil {
		t.Fatalf("QueryJobs: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected exactly 1 row, got %d", len(rows))
	}
}

func TestSaveJobDetailUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job := &models.Job{JobID: "job-1", Title: "Engineer", Company: "ACME", Website: "example"}
	if _, err := s.SaveJob(ctx, job); err != nil {
		t.Fatalf("SaveJob: %v", err)
	}

	detail := &models.JobDetail{JobID: "job-1", Description: "first pass", Requirements: []string{"go"}}
	if _, err := s.SaveJobDetail(ctx, detail, "https://example.com/jobs/1"); err != nil {
		t.Fatalf("SaveJobDetail: %v", err)
	}

	detail2 := &models.JobDetail{JobID: "job-1", Description: "second pass", Requirements: []string{"go", "sql"}}
	if _, err := s.SaveJobDetail(ctx, detail2, ""); err != nil {
		t.Fatalf("SaveJobDetail (re-harvest): %v", err)
	}

	got, err := s.GetJobDetail(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJobDetail: %v", err)
	}
	if got == nil || got.Description != "second pass" {
		t.Fatalf("expected upsert to overwrite description, got %+v", got)
	}
	if len(got.Requirements) != 2 {
		t.Fatalf("expected 2 requirements after re-harvest, got %v", got.Requirements)
	}
}

func TestGetDeduplicationStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i, fp := range []string{"fp-1", "fp-2", "fp-1"} {
		job := &models.Job{JobID: "job-" + time.Now().Add(time.Duration(i)).String(), Title: "t", Company: "c", JobFingerprint: fp}
		if _, err := s.SaveJob(ctx, job); err != nil {
			t.Fatalf("SaveJob: %v", err)
		}
	}

	stats, err := s.GetDeduplicationStats(ctx)
	if err != nil {
		t.Fatalf("GetDeduplicationStats: %v", err)
	}
	if stats.TotalJobs != 2 {
		t.Fatalf("expected 2 stored jobs (third was a dup no-op), got %d", stats.TotalJobs)
	}
	if stats.UniqueFingerprints != 2 {
		t.Fatalf("expected 2 unique fingerprints, got %d", stats.UniqueFingerprints)
	}
}
