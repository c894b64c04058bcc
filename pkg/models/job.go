package models

import "time"

// ApplicationStatus is the lifecycle state of a persisted Job row.
type ApplicationStatus string

const (
	StatusPending   ApplicationStatus = "pending"
	StatusSubmitted ApplicationStatus = "submitted"
	StatusRejected  ApplicationStatus = "rejected"
	StatusInterview ApplicationStatus = "interview"
	StatusOffer     ApplicationStatus = "offer"
)

// Job is the identity row for a scraped listing (spec §3 "Job").
type Job struct {
	JobID             string            `json:"job_id" db:"job_id"`
	Title             string            `json:"title" db:"title"`
	Company           string            `json:"company" db:"company"`
	URL               string            `json:"url" db:"url"`
	JobFingerprint    string            `json:"job_fingerprint" db:"job_fingerprint"`
	ApplicationStatus ApplicationStatus `json:"application_status" db:"application_status"`
	MatchScore        *float64          `json:"match_score,omitempty" db:"match_score"`
	Website           string            `json:"website" db:"website"`
	CreatedAt         time.Time         `json:"created_at" db:"created_at"`
	SubmittedAt       *time.Time        `json:"submitted_at,omitempty" db:"submitted_at"`
	IsDeleted         bool              `json:"is_deleted" db:"is_deleted"`
	RagProcessed      bool              `json:"rag_processed" db:"rag_processed"`
}

// JobDetail is the 1:1 extended-attribute row for a Job (spec §3 "JobDetail").
type JobDetail struct {
	JobID        string    `json:"job_id" db:"job_id"`
	Salary       string    `json:"salary" db:"salary"`
	Location     string    `json:"location" db:"location"`
	Experience   string    `json:"experience" db:"experience"`
	Education    string    `json:"education" db:"education"`
	Description  string    `json:"description" db:"description"`
	Requirements []string  `json:"requirements" db:"-"`
	Benefits     []string  `json:"benefits" db:"-"`
	PublishTime  string    `json:"publish_time" db:"publish_time"`
	CompanyScale string    `json:"company_scale" db:"company_scale"`
	Industry     string    `json:"industry" db:"industry"`
	Keyword      string    `json:"keyword" db:"keyword"`
	ExtractedAt  time.Time `json:"extracted_at" db:"extracted_at"`
}

// PriorityLevel is the coarse recommendation bucket over an overall score.
type PriorityLevel string

const (
	PriorityHigh            PriorityLevel = "high"
	PriorityMedium          PriorityLevel = "medium"
	PriorityLow             PriorityLevel = "low"
	PriorityNotRecommended  PriorityLevel = "not_recommended"
)

// MatchLevel is the coarse quality bucket over an overall score.
type MatchLevel string

const (
	MatchExcellent MatchLevel = "excellent"
	MatchGood      MatchLevel = "good"
	MatchFair      MatchLevel = "fair"
	MatchPoor      MatchLevel = "poor"
)

// DimensionScores holds the five per-dimension scores from C11.
type DimensionScores struct {
	Semantic   float64 `json:"semantic_similarity"`
	Skills     float64 `json:"skills_match"`
	Experience float64 `json:"experience_match"`
	Industry   float64 `json:"industry_match"`
	Salary     float64 `json:"salary_match"`
}

// ResumeMatch is the persisted scorer output (spec §3 "ResumeMatch").
type ResumeMatch struct {
	JobID           string          `json:"job_id" db:"job_id"`
	ResumeProfileID string          `json:"resume_profile_id" db:"resume_profile_id"`
	MatchScore      float64         `json:"match_score" db:"match_score"`
	Dimensions      DimensionScores `json:"dimension_scores" db:"-"`
	PriorityLevel   PriorityLevel   `json:"priority_level" db:"priority_level"`
	MatchDetails    string          `json:"match_details" db:"match_details"`
	MatchReasons    string          `json:"match_reasons" db:"match_reasons"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	Processed       bool            `json:"processed" db:"processed"`
}

// DeduplicationStats summarizes C2's fingerprint collision rate.
type DeduplicationStats struct {
	TotalJobs         int     `json:"total_jobs"`
	UniqueFingerprints int    `json:"unique_fingerprints"`
	DuplicateCount    int     `json:"duplicate_count"`
	Rate              float64 `json:"rate"`
}

// KeywordStats breaks the monitor's global match-rate snapshot down by the
// search keyword a job was discovered under (job_details.keyword), so a
// keyword whose results consistently score low can be spotted even when the
// aggregate match rate looks healthy.
type KeywordStats struct {
	Keyword      string  `json:"keyword" db:"keyword"`
	TotalJobs    int     `json:"total_jobs" db:"total_jobs"`
	TotalMatches int     `json:"total_matches" db:"total_matches"`
	MatchRate    float64 `json:"match_rate" db:"-"`
	AvgScore     float64 `json:"avg_score" db:"avg_score"`
}

// JobFilters narrows query_jobs results; zero values mean "no filter".
type JobFilters struct {
	Website           string
	ApplicationStatus ApplicationStatus
	IncludeDeleted    bool
	RagProcessed      *bool
}

// ErrorResponse is the thin JSON envelope for failed HTTP requests
// (ambient API glue, out of spec scope per §1 but needed by the
// external surface referenced in §6).
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
