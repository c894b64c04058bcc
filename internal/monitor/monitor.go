// Package monitor implements C13: a scheduled health check over match
// quality, grounded on the teacher's internal/logging/errors.go
// HealthChecker (ticker-driven run loop, stopCh-based shutdown), adapted
// from per-adapter health to match-rate/avg-score health.
package monitor

import (
	"context"
	"sync"
	"time"

	"jobscout/internal/config"
	"jobscout/internal/jobstore"
	"jobscout/internal/logging/types"
	"jobscout/internal/matcher"
	"jobscout/internal/resume"
	"jobscout/pkg/models"
	"jobscout/pkg/utils"
)

// Snapshot is one cycle's measurement, per spec §4.13 step 1.
type Snapshot struct {
	Timestamp         time.Time            `json:"timestamp"`
	TotalJobs         int                  `json:"total_jobs"`
	TotalMatches      int                  `json:"total_matches"`
	MatchRate         float64              `json:"match_rate"`
	AvgScore          float64              `json:"avg_score"`
	HighQualityCount  int                  `json:"high_quality_count"`
	HighQualityRatio  float64              `json:"high_quality_ratio"`
	RepairedJobsCount int                  `json:"repaired_jobs_count,omitempty"`
	PerKeywordStats   []models.KeywordStats `json:"per_keyword_stats,omitempty"`
}

// Alert is one threshold violation surfaced by a cycle.
type Alert struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Monitor runs scheduled snapshots over C2's job/match tables and, when
// configured, repairs jobs that were embedded but never matched.
type Monitor struct {
	store   *jobstore.Store
	matcher *matcher.Matcher
	resumes resume.Registry
	logger  types.Logger

	interval        time.Duration
	minMatchRate    float64
	minAvgScore     float64
	autoRepair      bool
	autoRepairLimit int
	historySize     int

	mu        sync.RWMutex
	history   []Snapshot
	lastAlert []Alert
	stopCh    chan struct{}
}

// New builds a Monitor from the loaded configuration's `monitor` section.
// matcherSvc and resumes may be nil if auto-repair is disabled; a nil
// resumes.Registry with auto_repair enabled degrades auto-repair to a
// logged no-op rather than panicking.
func New(cfg *config.Config, store *jobstore.Store, matcherSvc *matcher.Matcher, resumes resume.Registry, logger types.Logger) *Monitor {
	interval := cfg.Monitor.Interval
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	minMatchRate := cfg.Monitor.MinMatchRate
	if minMatchRate <= 0 {
		minMatchRate = 0.15
	}
	minAvgScore := cfg.Monitor.MinAvgScore
	if minAvgScore <= 0 {
		minAvgScore = 0.5
	}
	limit := cfg.Monitor.AutoRepairLimit
	if limit <= 0 {
		limit = 50
	}
	historySize := cfg.Monitor.HistorySize
	if historySize <= 0 {
		historySize = 100
	}

	return &Monitor{
		store: store, matcher: matcherSvc, resumes: resumes, logger: logger,
		interval: interval, minMatchRate: minMatchRate, minAvgScore: minAvgScore,
		autoRepair: cfg.Monitor.AutoRepair, autoRepairLimit: limit, historySize: historySize,
		stopCh: make(chan struct{}),
	}
}

// Start launches the ticker-driven cycle loop in the background.
func (m *Monitor) Start(ctx context.Context) {
	go m.run(ctx)
}

// Stop ends the cycle loop. Safe to call once; a second call panics on the
// already-closed channel, matching the teacher's HealthChecker contract.
func (m *Monitor) Stop() {
	close(m.stopCh)
}

func (m *Monitor) run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, _, err := m.RunCycle(ctx); err != nil {
				m.logger.Error("monitor cycle failed", map[string]interface{}{"error": err.Error()})
			}
		case <-m.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Latest returns the most recent snapshot and the alerts raised for it.
func (m *Monitor) Latest() (Snapshot, []Alert) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.history) == 0 {
		return Snapshot{}, nil
	}
	return m.history[len(m.history)-1], m.lastAlert
}

// RunCycle implements spec §4.13's four steps for a single cycle: snapshot,
// alert evaluation, optional auto-repair, and bounded history append.
func (m *Monitor) RunCycle(ctx context.Context) (Snapshot, []Alert, error) {
	cycleStart := time.Now()
	dedupStats, err := m.store.GetDeduplicationStats(ctx)
	if err != nil {
		return Snapshot{}, nil, err
	}
	totalMatches, avgScore, highQuality, err := m.store.MatchStats(ctx)
	if err != nil {
		return Snapshot{}, nil, err
	}

	snapshot := Snapshot{
		Timestamp:        time.Now(),
		TotalJobs:        dedupStats.TotalJobs,
		TotalMatches:     totalMatches,
		AvgScore:         avgScore,
		HighQualityCount: highQuality,
	}
	if dedupStats.TotalJobs > 0 {
		snapshot.MatchRate = float64(totalMatches) / float64(dedupStats.TotalJobs)
	}
	if totalMatches > 0 {
		snapshot.HighQualityRatio = float64(highQuality) / float64(totalMatches)
	}

	if m.autoRepair {
		snapshot.RepairedJobsCount = m.repairUnmatched(ctx)
	}

	if keywordStats, err := m.store.KeywordMatchStats(ctx); err != nil {
		m.logger.Warn("monitor: failed to collect per-keyword match stats", map[string]interface{}{"error": err.Error()})
	} else {
		snapshot.PerKeywordStats = keywordStats
	}

	alerts := m.evaluateAlerts(snapshot)

	m.mu.Lock()
	m.history = append(m.history, snapshot)
	if len(m.history) > m.historySize {
		m.history = m.history[len(m.history)-m.historySize:]
	}
	m.lastAlert = alerts
	m.mu.Unlock()

	m.logger.Info("monitor cycle complete", map[string]interface{}{
		"total_jobs": snapshot.TotalJobs, "total_matches": snapshot.TotalMatches,
		"match_rate": snapshot.MatchRate, "alerts": len(alerts),
		"elapsed": utils.FormatDuration(time.Since(cycleStart)),
	})
	return snapshot, alerts, nil
}

// evaluateAlerts implements spec §4.13 step 2's four threshold checks.
// Called with the write lock not held; it only reads m.history, which is
// safe because RunCycle computes alerts before appending the new snapshot.
func (m *Monitor) evaluateAlerts(current Snapshot) []Alert {
	var alerts []Alert

	if current.MatchRate < m.minMatchRate {
		alerts = append(alerts, Alert{Level: "warning", Message: "match rate below configured minimum"})
	}
	if current.AvgScore < m.minAvgScore {
		alerts = append(alerts, Alert{Level: "warning", Message: "average match score below configured minimum"})
	}
	if current.TotalMatches > 0 && current.HighQualityRatio < 0.3 {
		alerts = append(alerts, Alert{Level: "warning", Message: "high-quality match ratio below 0.3"})
	}
	for _, ks := range current.PerKeywordStats {
		if ks.TotalJobs >= 5 && ks.MatchRate < m.minMatchRate {
			alerts = append(alerts, Alert{Level: "warning", Message: "keyword \"" + ks.Keyword + "\" match rate below configured minimum"})
		}
	}

	m.mu.RLock()
	history := append([]Snapshot(nil), m.history...)
	m.mu.RUnlock()
	history = append(history, current)
	if n := len(history); n >= 3 {
		last3 := history[n-3:]
		if last3[0].MatchRate > last3[1].MatchRate && last3[1].MatchRate > last3[2].MatchRate {
			alerts = append(alerts, Alert{Level: "critical", Message: "match rate has declined for 3 consecutive cycles"})
		}
	}

	return alerts
}

// repairUnmatched implements spec §4.13 step 3: fetch up to autoRepairLimit
// rag_processed jobs with no match row, rerun C12 on each, and persist
// results via C2. Returns the number of jobs successfully repaired.
func (m *Monitor) repairUnmatched(ctx context.Context) int {
	if m.matcher == nil || m.resumes == nil {
		m.logger.Warn("auto-repair enabled but no matcher/resume registry wired, skipping", nil)
		return 0
	}

	jobs, err := m.store.UnmatchedRagProcessedJobs(ctx, m.autoRepairLimit)
	if err != nil {
		m.logger.Error("auto-repair: failed to list unmatched jobs", map[string]interface{}{"error": err.Error()})
		return 0
	}
	if len(jobs) == 0 {
		return 0
	}

	profile, err := m.resumes.Default(ctx)
	if err != nil || profile == nil {
		m.logger.Warn("auto-repair: no default résumé available, skipping", map[string]interface{}{"error": errString(err)})
		return 0
	}

	repaired := 0
	for _, job := range jobs {
		match, err := m.matcher.ScoreSingleJob(ctx, profile, job.JobID)
		if err != nil || match == nil {
			continue
		}
		resumeMatch := &models.ResumeMatch{
			JobID:           job.JobID,
			ResumeProfileID: "default",
			MatchScore:      match.Result.Overall,
			Dimensions:      match.Result.Dimensions,
			PriorityLevel:   match.Result.Priority,
			Processed:       true,
		}
		if err := m.store.SaveResumeMatch(ctx, resumeMatch); err != nil {
			m.logger.Error("auto-repair: failed to save match", map[string]interface{}{"job_id": job.JobID, "error": err.Error()})
			continue
		}
		repaired++
	}
	return repaired
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
