package domain

import "time"

// JobStatus represents the lifecycle state of a background job.
// Values include JobStatusPending, JobStatusProcessing, JobStatusCompleted, and JobStatusFailed.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// IsTerminal reports whether the status permits no further transitions.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// JobKind identifies the type of work a job record carries.
type JobKind string

const (
	JobKindParseTemplate     JobKind = "parse-template"
	JobKindParseLinkedInURL  JobKind = "parse-linkedin-url"
	JobKindParseLinkedInZip  JobKind = "parse-linkedin-zip"
	JobKindRenderPDF         JobKind = "render-pdf"
	JobKindATSScore          JobKind = "ats-score"
	JobKindATSRewrite        JobKind = "ats-rewrite"
	JobKindInterviewEvaluate JobKind = "interview-evaluate"
	JobKindJudgeEvaluate     JobKind = "judge-evaluate"
)

// allKinds is the closed set of valid job kinds.
var allKinds = map[JobKind]bool{
	JobKindParseTemplate:     true,
	JobKindParseLinkedInURL:  true,
	JobKindParseLinkedInZip:  true,
	JobKindRenderPDF:         true,
	JobKindATSScore:          true,
	JobKindATSRewrite:        true,
	JobKindInterviewEvaluate: true,
	JobKindJudgeEvaluate:     true,
}

// ValidJobKind reports whether s names a known job kind.
func ValidJobKind(s string) bool {
	return allKinds[JobKind(s)]
}

// JobRecord represents one unit of asynchronous background work and its
// progress metadata. Input is immutable once created; Result is written only
// on completion.
//
// The Active column implements the single-active-job claim: it is true while
// the job is non-terminal and NULL afterwards, so the composite unique index
// over (resource_id, kind, active) rejects a second non-terminal job for the
// same resource at insert time. Jobs without a resource carry a NULL claim
// and are never deduplicated.
type JobRecord struct {
	ID          string     `gorm:"type:text;primaryKey" json:"id"`
	UserID      string     `gorm:"type:text;not null;index" json:"user_id"`
	ResourceID  string     `gorm:"type:text;uniqueIndex:idx_jobs_active_claim" json:"resource_id,omitempty"`
	Kind        JobKind    `gorm:"type:text;not null;uniqueIndex:idx_jobs_active_claim" json:"kind"`
	Status      JobStatus  `gorm:"type:text;default:pending;index" json:"status"`
	Progress    int        `gorm:"default:0" json:"progress"`
	Error       string     `json:"error,omitempty"`
	Input       string     `gorm:"type:text" json:"-"`
	Result      string     `gorm:"type:text" json:"-"`
	Active      *bool      `gorm:"uniqueIndex:idx_jobs_active_claim" json:"-"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName returns the database table name for JobRecord.
func (JobRecord) TableName() string {
	return "jobs"
}
