package domain

import "time"

// JobStatus represents the delivery state of a queued audit job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// AuditJob is one durable queue entry produced by StartTracking. The prompt
// texts and brand universe are denormalized onto the row so a consumer can
// process the job without re-reading the session.
type AuditJob struct {
	ID          string      `gorm:"type:text;primaryKey" json:"id"`
	SessionID   string      `gorm:"type:text;not null;index:idx_audit_jobs_session" json:"session_id"`
	PromptTexts StringArray `gorm:"type:text" json:"prompt_texts"`
	Brands      StringArray `gorm:"type:text" json:"brands"`
	Status      JobStatus   `gorm:"type:text;index:idx_audit_jobs_status;default:pending" json:"status"`
	Attempts    int         `gorm:"default:0" json:"attempts"`
	MaxAttempts int         `gorm:"default:3" json:"max_attempts"`
	LastError   string      `gorm:"type:text" json:"last_error,omitempty"`
	StartedAt   *time.Time  `json:"started_at,omitempty"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// TableName returns the database table name for AuditJob.
func (AuditJob) TableName() string {
	return "audit_jobs"
}
