// Package jobstore implements C2: a single-file embedded relational store
// for jobs, job details, and résumé matches, with fingerprint-based
// deduplication. It is a single-writer model: all mutating operations run
// inside a transaction, serialized by the underlying engine.
package jobstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"jobscout/internal/logging/types"
	"jobscout/internal/xerrors"
	"jobscout/pkg/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	job_id             TEXT PRIMARY KEY,
	title              TEXT NOT NULL,
	company            TEXT NOT NULL,
	url                TEXT NOT NULL DEFAULT '',
	job_fingerprint    TEXT,
	application_status TEXT NOT NULL DEFAULT 'pending',
	match_score        REAL,
	website            TEXT NOT NULL DEFAULT '',
	created_at         DATETIME NOT NULL,
	submitted_at       DATETIME,
	is_deleted         BOOLEAN NOT NULL DEFAULT 0,
	rag_processed      BOOLEAN NOT NULL DEFAULT 0
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_jobs_fingerprint ON jobs(job_fingerprint) WHERE job_fingerprint IS NOT NULL AND is_deleted = 0;
CREATE INDEX IF NOT EXISTS idx_jobs_company ON jobs(company);
CREATE INDEX IF NOT EXISTS idx_jobs_website ON jobs(website);
CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at);

CREATE TABLE IF NOT EXISTS job_details (
	job_id            TEXT PRIMARY KEY REFERENCES jobs(job_id),
	salary            TEXT NOT NULL DEFAULT '',
	location          TEXT NOT NULL DEFAULT '',
	experience        TEXT NOT NULL DEFAULT '',
	education         TEXT NOT NULL DEFAULT '',
	description       TEXT NOT NULL DEFAULT '',
	requirements_json TEXT NOT NULL DEFAULT '[]',
	benefits_json     TEXT NOT NULL DEFAULT '[]',
	publish_time      TEXT NOT NULL DEFAULT '',
	company_scale     TEXT NOT NULL DEFAULT '',
	industry          TEXT NOT NULL DEFAULT '',
	keyword           TEXT NOT NULL DEFAULT '',
	extracted_at      DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS resume_matches (
	job_id            TEXT NOT NULL REFERENCES jobs(job_id),
	resume_profile_id TEXT NOT NULL,
	match_score       REAL NOT NULL,
	semantic_score    REAL NOT NULL,
	skills_score      REAL NOT NULL,
	experience_score  REAL NOT NULL,
	industry_score    REAL NOT NULL,
	salary_score      REAL NOT NULL,
	priority_level    TEXT NOT NULL,
	match_details     TEXT NOT NULL DEFAULT '',
	match_reasons     TEXT NOT NULL DEFAULT '',
	created_at        DATETIME NOT NULL,
	processed         BOOLEAN NOT NULL DEFAULT 0,
	PRIMARY KEY (job_id, resume_profile_id)
);
CREATE INDEX IF NOT EXISTS idx_resume_matches_job_id ON resume_matches(job_id);
`

// Store is C2's job/job-detail/resume-match repository.
type Store struct {
	db     *sqlx.DB
	logger types.Logger
}

// Open creates or attaches to the embedded SQLite file at path and ensures
// the schema exists.
func Open(path string, logger types.Logger) (*Store, error) {
	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, xerrors.NewStorageError("open job store", err)
	}
	db.SetMaxOpenConns(1) // single-writer model; the engine serializes the rest
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, xerrors.NewStorageError("migrate job store schema", err)
	}
	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// SaveJob inserts or replaces by job_id. A duplicate-fingerprint insert is
// not an error — it is the expected no-op per spec §4.2.
func (s *Store) SaveJob(ctx context.Context, job *models.Job) (bool, error) {
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	if job.ApplicationStatus == "" {
		job.ApplicationStatus = models.StatusPending
	}

	if job.JobFingerprint != "" {
		exists, err := s.FingerprintExists(ctx, job.JobFingerprint)
		if err != nil {
			return false, err
		}
		if exists {
			s.logger.Debug("skipping duplicate fingerprint", map[string]interface{}{
				"fingerprint": job.JobFingerprint, "job_id": job.JobID,
			})
			return false, nil
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (job_id, title, company, url, job_fingerprint, application_status, match_score, website, created_at, submitted_at, is_deleted, rag_processed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(job_id) DO UPDATE SET
			title=excluded.title, company=excluded.company, url=excluded.url,
			job_fingerprint=excluded.job_fingerprint, application_status=excluded.application_status,
			match_score=excluded.match_score, website=excluded.website,
			submitted_at=excluded.submitted_at, is_deleted=excluded.is_deleted,
			rag_processed=excluded.rag_processed`,
		job.JobID, job.Title, job.Company, job.URL, nullableString(job.JobFingerprint),
		job.ApplicationStatus, job.MatchScore, job.Website, job.CreatedAt, job.SubmittedAt,
		job.IsDeleted, job.RagProcessed,
	)
	if err != nil {
		if isUniqueViolation(err) {
			s.logger.Debug("duplicate fingerprint rejected by store", map[string]interface{}{"job_id": job.JobID})
			return false, nil
		}
		return false, xerrors.NewStorageError("save job", err)
	}
	return true, nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// jobRow mirrors models.Job but scans job_fingerprint through sql.NullString,
// since the column is NULL (not empty string) whenever a job has no
// fingerprint yet, to keep the partial unique index meaningful.
type jobRow struct {
	models.Job
	JobFingerprint sql.NullString `db:"job_fingerprint"`
}

func (r jobRow) toModel() models.Job {
	j := r.Job
	j.JobFingerprint = r.JobFingerprint.String
	return j
}

func isUniqueViolation(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "unique")
}

// GetJob fetches a single job by ID, including soft-deleted rows, so
// callers can decide for themselves whether a deleted job should be
// excluded from their result (e.g. the matcher's job-group filter).
func (s *Store) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	var row jobRow
	err := s.db.GetContext(ctx, &row, `SELECT job_id, title, company, url, job_fingerprint, application_status, match_score, website, created_at, submitted_at, is_deleted, rag_processed
		FROM jobs WHERE job_id = ?`, jobID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, xerrors.NewStorageError("get job", err)
	}
	job := row.toModel()
	return &job, nil
}

// FingerprintExists reports whether a non-deleted job with this fingerprint
// is already stored.
func (s *Store) FingerprintExists(ctx context.Context, fp string) (bool, error) {
	if fp == "" {
		return false, nil
	}
	var count int
	err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM jobs WHERE job_fingerprint = ? AND is_deleted = 0`, fp)
	if err != nil {
		return false, xerrors.NewStorageError("check fingerprint", err)
	}
	return count > 0, nil
}

// BatchCheckFingerprints resolves existence for many fingerprints in one query.
func (s *Store) BatchCheckFingerprints(ctx context.Context, fps []string) (map[string]bool, error) {
	result := make(map[string]bool, len(fps))
	for _, fp := range fps {
		result[fp] = false
	}
	if len(fps) == 0 {
		return result, nil
	}
	query, args, err := sqlx.In(`SELECT job_fingerprint FROM jobs WHERE job_fingerprint IN (?) AND is_deleted = 0`, fps)
	if err != nil {
		return nil, xerrors.NewStorageError("build batch fingerprint query", err)
	}
	query = s.db.Rebind(query)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, xerrors.NewStorageError("batch check fingerprints", err)
	}
	defer rows.Close()
	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			return nil, xerrors.NewStorageError("scan fingerprint row", err)
		}
		result[fp] = true
	}
	return result, nil
}

// SaveJobDetail upserts into job_details keyed by job_id: if a row exists,
// update it in place rather than create a duplicate (a historical bug
// per spec §4.2).
func (s *Store) SaveJobDetail(ctx context.Context, detail *models.JobDetail, url string) (bool, error) {
	if detail.ExtractedAt.IsZero() {
		detail.ExtractedAt = time.Now().UTC()
	}
	reqJSON, _ := json.Marshal(detail.Requirements)
	benJSON, _ := json.Marshal(detail.Benefits)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO job_details (job_id, salary, location, experience, education, description, requirements_json, benefits_json, publish_time, company_scale, industry, keyword, extracted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(job_id) DO UPDATE SET
			salary=excluded.salary, location=excluded.location, experience=excluded.experience,
			education=excluded.education, description=excluded.description,
			requirements_json=excluded.requirements_json, benefits_json=excluded.benefits_json,
			publish_time=excluded.publish_time, company_scale=excluded.company_scale,
			industry=excluded.industry, keyword=excluded.keyword, extracted_at=excluded.extracted_at`,
		detail.JobID, detail.Salary, detail.Location, detail.Experience, detail.Education,
		detail.Description, string(reqJSON), string(benJSON), detail.PublishTime,
		detail.CompanyScale, detail.Industry, detail.Keyword, detail.ExtractedAt,
	)
	if err != nil {
		return false, xerrors.NewStorageError("save job detail", err)
	}
	if url != "" {
		if _, err := s.db.ExecContext(ctx, `UPDATE jobs SET url = ? WHERE job_id = ? AND (url = '' OR url IS NULL)`, url, detail.JobID); err != nil {
			s.logger.Warn("failed to backfill job url after detail save", map[string]interface{}{"error": err.Error()})
		}
	}
	return true, nil
}

// UpdateJobWithDetailURL best-effort back-fills url on the most recent
// matching empty-URL job row for (title, company).
func (s *Store) UpdateJobWithDetailURL(ctx context.Context, title, company, detailURL string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET url = ? WHERE job_id = (
			SELECT job_id FROM jobs
			WHERE title = ? AND company = ? AND (url = '' OR url IS NULL) AND is_deleted = 0
			ORDER BY created_at DESC LIMIT 1
		)`, detailURL, title, company)
	if err != nil {
		return false, xerrors.NewStorageError("backfill job url", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// QueryJobs returns rows ordered created_at DESC, filtered per filters.
func (s *Store) QueryJobs(ctx context.Context, filters models.JobFilters, limit int) ([]models.Job, error) {
	clauses := []string{}
	args := []interface{}{}
	if !filters.IncludeDeleted {
		clauses = append(clauses, "is_deleted = 0")
	}
	if filters.Website != "" {
		clauses = append(clauses, "website = ?")
		args = append(args, filters.Website)
	}
	if filters.ApplicationStatus != "" {
		clauses = append(clauses, "application_status = ?")
		args = append(args, filters.ApplicationStatus)
	}
	if filters.RagProcessed != nil {
		clauses = append(clauses, "rag_processed = ?")
		args = append(args, *filters.RagProcessed)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	if limit <= 0 {
		limit = 100
	}
	query := fmt.Sprintf(`SELECT job_id, title, company, url, job_fingerprint, application_status, match_score, website, created_at, submitted_at, is_deleted, rag_processed
		FROM jobs %s ORDER BY created_at DESC LIMIT ?`, where)
	args = append(args, limit)

	var rows []jobRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, xerrors.NewStorageError("query jobs", err)
	}
	jobs := make([]models.Job, len(rows))
	for i, r := range rows {
		jobs[i] = r.toModel()
	}
	return jobs, nil
}

// GetDeduplicationStats reports the dedup rate over the whole table.
func (s *Store) GetDeduplicationStats(ctx context.Context) (models.DeduplicationStats, error) {
	var stats models.DeduplicationStats
	if err := s.db.GetContext(ctx, &stats.TotalJobs, `SELECT COUNT(*) FROM jobs WHERE is_deleted = 0`); err != nil {
		return stats, xerrors.NewStorageError("count total jobs", err)
	}
	if err := s.db.GetContext(ctx, &stats.UniqueFingerprints, `SELECT COUNT(DISTINCT job_fingerprint) FROM jobs WHERE is_deleted = 0 AND job_fingerprint IS NOT NULL`); err != nil {
		return stats, xerrors.NewStorageError("count unique fingerprints", err)
	}
	stats.DuplicateCount = stats.TotalJobs - stats.UniqueFingerprints
	if stats.TotalJobs > 0 {
		stats.Rate = float64(stats.DuplicateCount) / float64(stats.TotalJobs)
	}
	return stats, nil
}

// UpdateJobStatus transitions application_status and optionally stamps submitted_at.
func (s *Store) UpdateJobStatus(ctx context.Context, jobID string, status models.ApplicationStatus, submittedAt *time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE jobs SET application_status = ?, submitted_at = COALESCE(?, submitted_at) WHERE job_id = ?`,
		status, submittedAt, jobID)
	if err != nil {
		return xerrors.NewStorageError("update job status", err)
	}
	return nil
}

// JobDetailRequirements/Benefits are unmarshalled separately since SQLite
// has no native array column; GetJobDetail below reassembles them.
func (s *Store) GetJobDetail(ctx context.Context, jobID string) (*models.JobDetail, error) {
	var row struct {
		models.JobDetail
		RequirementsJSON string `db:"requirements_json"`
		BenefitsJSON     string `db:"benefits_json"`
	}
	err := s.db.GetContext(ctx, &row, `SELECT job_id, salary, location, experience, education, description, requirements_json, benefits_json, publish_time, company_scale, industry, keyword, extracted_at FROM job_details WHERE job_id = ?`, jobID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, xerrors.NewStorageError("get job detail", err)
	}
	_ = json.Unmarshal([]byte(row.RequirementsJSON), &row.Requirements)
	_ = json.Unmarshal([]byte(row.BenefitsJSON), &row.Benefits)
	return &row.JobDetail, nil
}

// SaveResumeMatch upserts by (job_id, resume_profile_id).
func (s *Store) SaveResumeMatch(ctx context.Context, m *models.ResumeMatch) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO resume_matches (job_id, resume_profile_id, match_score, semantic_score, skills_score, experience_score, industry_score, salary_score, priority_level, match_details, match_reasons, created_at, processed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(job_id, resume_profile_id) DO UPDATE SET
			match_score=excluded.match_score, semantic_score=excluded.semantic_score,
			skills_score=excluded.skills_score, experience_score=excluded.experience_score,
			industry_score=excluded.industry_score, salary_score=excluded.salary_score,
			priority_level=excluded.priority_level, match_details=excluded.match_details,
			match_reasons=excluded.match_reasons, processed=excluded.processed`,
		m.JobID, m.ResumeProfileID, m.MatchScore, m.Dimensions.Semantic, m.Dimensions.Skills,
		m.Dimensions.Experience, m.Dimensions.Industry, m.Dimensions.Salary, m.PriorityLevel,
		m.MatchDetails, m.MatchReasons, m.CreatedAt, m.Processed,
	)
	if err != nil {
		return xerrors.NewStorageError("save resume match", err)
	}
	return nil
}

// UnmatchedRagProcessedJobs returns up to limit jobs with rag_processed=true
// that have no resume_matches row, for C13's auto-repair pass.
func (s *Store) UnmatchedRagProcessedJobs(ctx context.Context, limit int) ([]models.Job, error) {
	var rows []jobRow
	query := `SELECT j.job_id, j.title, j.company, j.url, j.job_fingerprint, j.application_status, j.match_score, j.website, j.created_at, j.submitted_at, j.is_deleted, j.rag_processed
		FROM jobs j
		LEFT JOIN resume_matches m ON m.job_id = j.job_id
		WHERE j.rag_processed = 1 AND m.job_id IS NULL AND j.is_deleted = 0
		LIMIT ?`
	if err := s.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, xerrors.NewStorageError("query unmatched rag-processed jobs", err)
	}
	jobs := make([]models.Job, len(rows))
	for i, r := range rows {
		jobs[i] = r.toModel()
	}
	return jobs, nil
}

// MatchStats returns total matches, average score, and high-quality count
// (score >= 0.7) for C13's monitor snapshot.
func (s *Store) MatchStats(ctx context.Context) (totalMatches int, avgScore float64, highQuality int, err error) {
	if err = s.db.GetContext(ctx, &totalMatches, `SELECT COUNT(*) FROM resume_matches`); err != nil {
		return 0, 0, 0, xerrors.NewStorageError("count matches", err)
	}
	var avg sql.NullFloat64
	if err = s.db.GetContext(ctx, &avg, `SELECT AVG(match_score) FROM resume_matches`); err != nil {
		return 0, 0, 0, xerrors.NewStorageError("average match score", err)
	}
	avgScore = avg.Float64
	if err = s.db.GetContext(ctx, &highQuality, `SELECT COUNT(*) FROM resume_matches WHERE match_score >= 0.7`); err != nil {
		return 0, 0, 0, xerrors.NewStorageError("count high quality matches", err)
	}
	return totalMatches, avgScore, highQuality, nil
}

// KeywordMatchStats breaks match stats down by the job_details.keyword a job
// was discovered under, for C13's optional per-keyword snapshot breakdown.
func (s *Store) KeywordMatchStats(ctx context.Context) ([]models.KeywordStats, error) {
	var rows []models.KeywordStats
	query := `SELECT d.keyword AS keyword,
			COUNT(DISTINCT j.job_id) AS total_jobs,
			COUNT(DISTINCT m.job_id) AS total_matches,
			COALESCE(AVG(m.match_score), 0) AS avg_score
		FROM job_details d
		JOIN jobs j ON j.job_id = d.job_id AND j.is_deleted = 0
		LEFT JOIN resume_matches m ON m.job_id = j.job_id
		WHERE d.keyword != ''
		GROUP BY d.keyword
		ORDER BY d.keyword`
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, xerrors.NewStorageError("keyword match stats", err)
	}
	for i := range rows {
		if rows[i].TotalJobs > 0 {
			rows[i].MatchRate = float64(rows[i].TotalMatches) / float64(rows[i].TotalJobs)
		}
	}
	return rows, nil
}
