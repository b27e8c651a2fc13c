package service

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/tobyn/brandlens/internal/domain"
	"github.com/tobyn/brandlens/internal/logger"
	"github.com/tobyn/brandlens/internal/queue"
	"github.com/tobyn/brandlens/internal/repository"
)

// AuditProcessor drives every prompt of a session through the model
// provider and the analyzer, persists results, and decides the session's
// terminal status. Prompts are processed strictly sequentially in
// generation order; a fixed delay between prompts keeps request volume
// under the provider's rate limits.
type AuditProcessor struct {
	sessions  *repository.SessionRepository
	prompts   *repository.PromptRepository
	responses *repository.ResponseRepository
	mentions  *repository.MentionRepository
	citations *repository.CitationRepository
	provider  ModelProvider
	analyzer  Analyzer
	archiver  *ReportArchiver
	tracking  *TrackingService
	throttle  time.Duration
}

// AuditProcessorConfig tunes the processor.
type AuditProcessorConfig struct {
	ThrottleDelay time.Duration
}

// NewAuditProcessor creates the processor. archiver may be nil; tracking is
// used only to assemble the archived report and may be nil when archiver is.
func NewAuditProcessor(
	sessions *repository.SessionRepository,
	prompts *repository.PromptRepository,
	responses *repository.ResponseRepository,
	mentions *repository.MentionRepository,
	citations *repository.CitationRepository,
	provider ModelProvider,
	analyzer Analyzer,
	archiver *ReportArchiver,
	tracking *TrackingService,
	cfg *AuditProcessorConfig,
) *AuditProcessor {
	throttle := 500 * time.Millisecond
	if cfg != nil && cfg.ThrottleDelay > 0 {
		throttle = cfg.ThrottleDelay
	}
	return &AuditProcessor{
		sessions:  sessions,
		prompts:   prompts,
		responses: responses,
		mentions:  mentions,
		citations: citations,
		provider:  provider,
		analyzer:  analyzer,
		archiver:  archiver,
		tracking:  tracking,
		throttle:  throttle,
	}
}

// Process runs one audit job. Any error escaping the per-prompt recovery
// marks the session FAILED and is returned so the queue's own retry policy
// can act on the job.
func (p *AuditProcessor) Process(ctx context.Context, job *domain.AuditJob, report queue.ProgressFunc) error {
	sessionID := job.SessionID
	platform := p.provider.Platform()

	promptList, err := p.prompts.ListBySession(ctx, sessionID)
	if err != nil {
		p.markFailed(ctx, sessionID)
		return fmt.Errorf("failed to load prompts: %w", err)
	}

	if len(promptList) == 0 {
		logger.CtxError(ctx, "Session has no prompts, marking failed")
		p.markFailed(ctx, sessionID)
		return nil
	}

	brandSet := make(map[string]struct{}, len(job.Brands))
	for _, b := range job.Brands {
		brandSet[b] = struct{}{}
	}

	promptsProcessed := 0

	for i := range promptList {
		if stopped, err := p.sessionStopped(ctx, sessionID); err == nil && stopped {
			logger.CtxInfo(ctx, "Session reached a terminal state externally, stopping after %d prompts", promptsProcessed)
			return nil
		}

		prompt := &promptList[i]
		if err := p.processPrompt(ctx, job, prompt, brandSet, platform, i, len(promptList), report); err != nil {
			// Per-prompt failure isolation: log and continue, the prompt
			// is simply not counted as processed
			logger.With(logger.Fields{
				logger.FieldPromptID: prompt.ID,
			}).Error(ctx, "Error processing prompt: %v", err)
		} else {
			promptsProcessed++
		}

		select {
		case <-ctx.Done():
			// Leave the session as-is; the requeued job resumes the work
			return ctx.Err()
		case <-time.After(p.throttle):
		}
	}

	if promptsProcessed > 0 {
		now := time.Now()
		if _, err := p.sessions.UpdateStatus(ctx, sessionID, domain.SessionStatusCompleted, &now); err != nil {
			return fmt.Errorf("failed to mark session completed: %w", err)
		}
		p.archiveReport(ctx, sessionID)
	} else {
		p.markFailed(ctx, sessionID)
	}

	logger.With(logger.Fields{
		logger.FieldCount: promptsProcessed,
	}).Info(ctx, "Audit finished: %d/%d prompts processed", promptsProcessed, len(promptList))

	return nil
}

// sessionStopped reports whether the session was terminalized externally
// (stopTracking flips the status record only). The check runs at the top of
// each prompt iteration: the current prompt always finishes, then the loop
// exits.
func (p *AuditProcessor) sessionStopped(ctx context.Context, sessionID string) (bool, error) {
	session, err := p.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return false, err
	}
	return session.Status.IsTerminal(), nil
}

func (p *AuditProcessor) processPrompt(
	ctx context.Context,
	job *domain.AuditJob,
	prompt *domain.Prompt,
	brandSet map[string]struct{},
	platform domain.Platform,
	index, total int,
	report queue.ProgressFunc,
) error {
	report(queue.Progress{
		Message:       fmt.Sprintf("Processing prompt %d/%d...", index+1, total),
		CurrentPrompt: prompt.PromptText,
		Platform:      string(platform),
	})

	completion, err := p.provider.Complete(ctx, prompt.PromptText)
	if err != nil {
		return fmt.Errorf("provider call failed: %w", err)
	}
	if !completion.Success || completion.Content == "" {
		return fmt.Errorf("provider returned no content for prompt %q", prompt.PromptText)
	}

	response := &domain.Response{
		ID:          uuid.New().String(),
		PromptID:    prompt.ID,
		SessionID:   job.SessionID,
		RawResponse: completion.Content,
		Platform:    platform,
	}
	if err := p.responses.Create(ctx, response); err != nil {
		return fmt.Errorf("failed to save response: %w", err)
	}

	report(queue.Progress{
		Message:       "Analyzing AI response...",
		CurrentPrompt: prompt.PromptText,
		Platform:      string(platform),
	})

	result := p.analyzer.Analyze(ctx, completion.Content, job.Brands)

	// Only mentions naming a brand from the job's universe are persisted;
	// unknown brand names from the extractor are discarded
	mentionRows := make([]domain.Mention, 0, len(result.Mentions))
	for _, m := range result.Mentions {
		if _, ok := brandSet[m.Brand]; !ok {
			continue
		}
		mentionRows = append(mentionRows, domain.Mention{
			ID:           uuid.New().String(),
			ResponseID:   response.ID,
			SessionID:    job.SessionID,
			PromptID:     prompt.ID,
			BrandName:    m.Brand,
			MentionCount: m.Count,
			Context:      m.Context,
		})
	}
	if err := p.mentions.CreateBatch(ctx, mentionRows); err != nil {
		return fmt.Errorf("failed to save mentions: %w", err)
	}

	citationRows := buildCitations(response.ID, job.SessionID, result.Citations)
	if err := p.citations.CreateBatch(ctx, citationRows); err != nil {
		return fmt.Errorf("failed to save citations: %w", err)
	}

	return nil
}

// buildCitations keeps only URLs that parse as absolute http/https URLs
// with a host; everything else is dropped without failing the prompt.
func buildCitations(responseID, sessionID string, rawURLs []string) []domain.Citation {
	citations := make([]domain.Citation, 0, len(rawURLs))
	for _, raw := range rawURLs {
		u, err := url.Parse(raw)
		if err != nil || !u.IsAbs() || u.Host == "" {
			continue
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			continue
		}
		citations = append(citations, domain.Citation{
			ID:         uuid.New().String(),
			ResponseID: responseID,
			SessionID:  sessionID,
			URL:        raw,
			Domain:     u.Hostname(),
		})
	}
	return citations
}

func (p *AuditProcessor) markFailed(ctx context.Context, sessionID string) {
	if _, err := p.sessions.UpdateStatus(ctx, sessionID, domain.SessionStatusFailed, nil); err != nil {
		logger.CtxError(ctx, "Failed to mark session %s failed: %v", sessionID, err)
	}
}

// archiveReport uploads the completed session's full result to object
// storage when archival is configured. Best effort only.
func (p *AuditProcessor) archiveReport(ctx context.Context, sessionID string) {
	if p.archiver == nil || p.tracking == nil {
		return
	}
	result, err := p.tracking.GetTrackingResults(ctx, sessionID)
	if err != nil {
		logger.CtxWarn(ctx, "Skipping report archival, failed to load results: %v", err)
		return
	}
	if err := p.archiver.Archive(ctx, result); err != nil {
		logger.CtxWarn(ctx, "Report archival failed: %v", err)
	}
}
