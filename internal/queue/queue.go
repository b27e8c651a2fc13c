// Package queue provides a database-backed durable job queue with
// at-least-once delivery. Producers enqueue audit jobs; a single consumer
// loop claims one job at a time and runs it to completion before taking
// the next. Stale running jobs are reclaimed to pending after a visibility
// timeout, so a crashed worker never strands a job.
package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tobyn/brandlens/internal/domain"
	"gorm.io/gorm"
)

// Config holds queue client configuration.
type Config struct {
	PollInterval      time.Duration
	VisibilityTimeout time.Duration
	MaxAttempts       int
}

// Progress is the side-channel event a running job emits for responsive
// status displays. It never affects delivery guarantees; the database-backed
// response count remains the authoritative progress signal.
type Progress struct {
	Message       string `json:"message"`
	CurrentPrompt string `json:"current_prompt"`
	Platform      string `json:"platform"`
}

// ProgressFunc reports a progress event from inside a job.
type ProgressFunc func(p Progress)

// Handler processes one claimed job. A non-nil error requeues the job until
// its attempt budget is exhausted, then marks it failed.
type Handler func(ctx context.Context, job *domain.AuditJob, report ProgressFunc) error

// Client is an explicitly constructed queue handle sharing the service's
// database. It is passed by reference to the orchestrator and the worker.
type Client struct {
	db  *gorm.DB
	cfg Config
}

// New creates a queue client.
func New(db *gorm.DB, cfg Config) *Client {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.VisibilityTimeout <= 0 {
		cfg.VisibilityTimeout = 10 * time.Minute
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	return &Client{db: db, cfg: cfg}
}

// Enqueue appends one pending audit job and returns it.
func (c *Client) Enqueue(ctx context.Context, sessionID string, promptTexts, brands []string) (*domain.AuditJob, error) {
	job := &domain.AuditJob{
		ID:          uuid.New().String(),
		SessionID:   sessionID,
		PromptTexts: promptTexts,
		Brands:      brands,
		Status:      domain.JobStatusPending,
		MaxAttempts: c.cfg.MaxAttempts,
	}
	if err := c.db.WithContext(ctx).Create(job).Error; err != nil {
		return nil, err
	}
	return job, nil
}

// GetJob retrieves a job by ID.
func (c *Client) GetJob(ctx context.Context, id string) (*domain.AuditJob, error) {
	var job domain.AuditJob
	if err := c.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// claimNext atomically claims the oldest pending job. The conditional
// pending->running update guards against double processing within and
// across consumer instances; returns nil when the queue is empty or the
// job was claimed by someone else first.
func (c *Client) claimNext(ctx context.Context) (*domain.AuditJob, error) {
	var job domain.AuditJob
	err := c.db.WithContext(ctx).
		Where("status = ?", domain.JobStatusPending).
		Order("created_at ASC").
		First(&job).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}

	now := time.Now()
	res := c.db.WithContext(ctx).Model(&domain.AuditJob{}).
		Where("id = ? AND status = ?", job.ID, domain.JobStatusPending).
		Updates(map[string]interface{}{
			"status":     domain.JobStatusRunning,
			"attempts":   gorm.Expr("attempts + 1"),
			"started_at": now,
			"updated_at": now,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}

	job.Status = domain.JobStatusRunning
	job.Attempts++
	job.StartedAt = &now
	return &job, nil
}

// reclaimStale returns running jobs older than the visibility timeout to
// pending so they are redelivered. Duplicate processing after a reclaim is
// tolerated: result rows are append-only and finalization is idempotent.
func (c *Client) reclaimStale(ctx context.Context) error {
	cutoff := time.Now().Add(-c.cfg.VisibilityTimeout)
	return c.db.WithContext(ctx).Model(&domain.AuditJob{}).
		Where("status = ? AND updated_at < ?", domain.JobStatusRunning, cutoff).
		Updates(map[string]interface{}{
			"status":     domain.JobStatusPending,
			"updated_at": time.Now(),
		}).Error
}

func (c *Client) finish(ctx context.Context, job *domain.AuditJob, handlerErr error) error {
	now := time.Now()
	updates := map[string]interface{}{"updated_at": now}

	switch {
	case handlerErr == nil:
		updates["status"] = domain.JobStatusCompleted
		updates["completed_at"] = now
	case job.Attempts < job.MaxAttempts:
		updates["status"] = domain.JobStatusPending
		updates["last_error"] = handlerErr.Error()
	default:
		updates["status"] = domain.JobStatusFailed
		updates["last_error"] = handlerErr.Error()
		updates["completed_at"] = now
	}

	return c.db.WithContext(ctx).Model(&domain.AuditJob{}).
		Where("id = ?", job.ID).
		Updates(updates).Error
}
