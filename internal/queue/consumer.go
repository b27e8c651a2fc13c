package queue

import (
	"context"
	"time"

	"github.com/tobyn/brandlens/internal/domain"
	"github.com/tobyn/brandlens/internal/logger"
)

// Consumer is a long-lived single-job-at-a-time queue worker. One job runs
// to completion before the next is claimed; there is no cross-job
// parallelism within an instance. Throughput scales by running more
// instances, each still globally serialized.
type Consumer struct {
	client  *Client
	handler Handler
	log     *logger.Logger
}

// NewConsumer registers a handler against the queue.
func NewConsumer(client *Client, handler Handler, log *logger.Logger) *Consumer {
	return &Consumer{client: client, handler: handler, log: log}
}

// Run blocks, claiming and processing jobs until ctx is cancelled.
func (w *Consumer) Run(ctx context.Context) {
	w.log.Info("Queue consumer started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Queue consumer stopped")
			return
		default:
		}

		if err := w.client.reclaimStale(ctx); err != nil && ctx.Err() == nil {
			w.log.WithError(err).Warn("Failed to reclaim stale jobs")
		}

		job, err := w.client.claimNext(ctx)
		if err != nil {
			if ctx.Err() == nil {
				w.log.WithError(err).Error("Failed to claim next job")
			}
			w.sleep(ctx)
			continue
		}
		if job == nil {
			w.sleep(ctx)
			continue
		}

		w.processOne(ctx, job)
	}
}

// ProcessNext claims and processes at most one job. Returns false when the
// queue was empty. Used by tests and one-shot maintenance commands.
func (w *Consumer) ProcessNext(ctx context.Context) (bool, error) {
	job, err := w.client.claimNext(ctx)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}
	w.processOne(ctx, job)
	return true, nil
}

func (w *Consumer) processOne(ctx context.Context, job *domain.AuditJob) {
	jobCtx := logger.SetJobID(ctx, job.ID)
	jobCtx = logger.SetSessionID(jobCtx, job.SessionID)

	start := time.Now()
	logger.CtxInfo(jobCtx, "Processing audit job (attempt %d/%d)", job.Attempts, job.MaxAttempts)

	handlerErr := w.handler(jobCtx, job, w.progressReporter(jobCtx))

	if err := w.client.finish(jobCtx, job, handlerErr); err != nil {
		logger.CtxError(jobCtx, "Failed to record job outcome: %v", err)
	}

	entry := logger.With(logger.Fields{
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
	})
	if handlerErr != nil {
		entry.Error(jobCtx, "Audit job failed: %v", handlerErr)
	} else {
		entry.Info(jobCtx, "Audit job completed")
	}
}

func (w *Consumer) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(w.client.cfg.PollInterval):
	}
}

// progressReporter emits progress events to the log. The side channel is
// advisory only; delivery guarantees are unaffected.
func (w *Consumer) progressReporter(ctx context.Context) ProgressFunc {
	return func(p Progress) {
		logger.With(logger.Fields{
			logger.FieldPlatform: p.Platform,
		}).Info(ctx, "%s", p.Message)
	}
}
