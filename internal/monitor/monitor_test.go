package monitor

import (
	"context"
	"fmt"
	"testing"
	"time"

	"jobscout/internal/config"
	"jobscout/internal/jobstore"
	"jobscout/internal/logging"
	"jobscout/pkg/models"
)

func newTestStore(t *testing.T) *jobstore.Store {
	t.Helper()
	store, err := jobstore.Open(t.TempDir()+"/jobs.db", logging.NewMultiLogger())
	if err != nil {
		t.Fatalf("open job store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTestMonitor(t *testing.T, store *jobstore.Store) *Monitor {
	t.Helper()
	cfg := &config.Config{}
	cfg.Monitor.Interval = time.Hour
	cfg.Monitor.MinMatchRate = 0.15
	cfg.Monitor.MinAvgScore = 0.5
	cfg.Monitor.HistorySize = 3
	return New(cfg, store, nil, nil, logging.NewMultiLogger())
}

func TestRunCycleComputesRatesFromZeroJobs(t *testing.T) {
	m := newTestMonitor(t, newTestStore(t))
	snapshot, _, err := m.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if snapshot.TotalJobs != 0 || snapshot.MatchRate != 0 {
		t.Fatalf("expected zero-job snapshot, got %+v", snapshot)
	}
}

func TestRunCycleRaisesLowMatchRateAlert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		job := &models.Job{JobID: "job-" + string(rune('a'+i)), Title: "Engineer", Company: "Acme", Website: "board"}
		if _, err := store.SaveJob(ctx, job); err != nil {
			t.Fatalf("save job: %v", err)
		}
	}
	// Only one match against 10 jobs: match rate 0.1 < default 0.15.
	if err := store.SaveResumeMatch(ctx, &models.ResumeMatch{JobID: "job-a", ResumeProfileID: "default", MatchScore: 0.9}); err != nil {
		t.Fatalf("save match: %v", err)
	}

	m := newTestMonitor(t, store)
	_, alerts, err := m.RunCycle(ctx)
	if err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	found := false
	for _, a := range alerts {
		if a.Message == "match rate below configured minimum" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a low-match-rate alert, got %+v", alerts)
	}
}

func TestHistoryIsBoundedBySize(t *testing.T) {
	store := newTestStore(t)
	m := newTestMonitor(t, store)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, _, err := m.RunCycle(ctx); err != nil {
			t.Fatalf("run cycle: %v", err)
		}
	}
	if len(m.history) != 3 {
		t.Fatalf("expected history bounded to 3, got %d", len(m.history))
	}
}

func TestDecliningMatchRateRaisesCriticalAlert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	m := newTestMonitor(t, store)

	// Seed a strictly decreasing sequence of match rates across 3 cycles
	// by growing the job pool between cycles while holding matches fixed.
	seq := 0
	addJobs := func(n int) {
		for i := 0; i < n; i++ {
			seq++
			job := &models.Job{JobID: fmt.Sprintf("seed-job-%d", seq), Title: "Engineer", Company: "Acme", Website: "board"}
			if _, err := store.SaveJob(ctx, job); err != nil {
				t.Fatalf("save job: %v", err)
			}
		}
	}

	addJobs(2)
	if err := store.SaveResumeMatch(ctx, &models.ResumeMatch{JobID: "seed-match", ResumeProfileID: "default", MatchScore: 0.9}); err != nil {
		t.Fatalf("save match: %v", err)
	}
	if _, _, err := m.RunCycle(ctx); err != nil {
		t.Fatalf("run cycle 1: %v", err)
	}

	addJobs(4)
	if _, _, err := m.RunCycle(ctx); err != nil {
		t.Fatalf("run cycle 2: %v", err)
	}

	addJobs(8)
	_, alerts, err := m.RunCycle(ctx)
	if err != nil {
		t.Fatalf("run cycle 3: %v", err)
	}

	found := false
	for _, a := range alerts {
		if a.Level == "critical" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a critical declining-match-rate alert, got %+v", alerts)
	}
}

func TestLatestReturnsMostRecentSnapshot(t *testing.T) {
	store := newTestStore(t)
	m := newTestMonitor(t, store)
	if _, _, err := m.RunCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	snapshot, _ := m.Latest()
	if snapshot.Timestamp.IsZero() {
		t.Fatal("expected a non-zero timestamp from the latest snapshot")
	}
}
