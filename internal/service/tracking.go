package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/tobyn/brandlens/internal/domain"
	"github.com/tobyn/brandlens/internal/logger"
	"github.com/tobyn/brandlens/internal/prompts"
	"github.com/tobyn/brandlens/internal/repository"
	"gorm.io/gorm"
)

// ErrSessionNotFound is returned when a session ID does not exist.
var ErrSessionNotFound = errors.New("session not found")

func mapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrSessionNotFound
	}
	return err
}

// PromptGenerator produces the prompt battery for a category. Count must be
// deterministic for a given category.
type PromptGenerator interface {
	Generate(category string) []prompts.GeneratedPrompt
}

// PromptGeneratorFunc adapts a function to the PromptGenerator interface.
type PromptGeneratorFunc func(category string) []prompts.GeneratedPrompt

// Generate calls the wrapped function.
func (f PromptGeneratorFunc) Generate(category string) []prompts.GeneratedPrompt {
	return f(category)
}

// Enqueuer appends one durable audit job.
type Enqueuer interface {
	Enqueue(ctx context.Context, sessionID string, promptTexts, brands []string) (*domain.AuditJob, error)
}

// StartTrackingInput is the request to begin a session.
type StartTrackingInput struct {
	Category      string   `json:"category" binding:"required"`
	PrimaryBrand  string   `json:"primary_brand" binding:"required"`
	Competitors   []string `json:"competitors"`
	CustomPrompts []string `json:"custom_prompts"`
}

// StartTrackingResult is returned once the session and its job exist.
type StartTrackingResult struct {
	SessionID    string `json:"session_id"`
	TotalPrompts int    `json:"total_prompts"`
}

// SessionStatus is the polling view of a session.
type SessionStatus struct {
	Status             domain.SessionStatus `json:"status"`
	Progress           int                  `json:"progress"`
	TotalPrompts       int                  `json:"total_prompts"`
	CompletedResponses int                  `json:"completed_responses"`
	CreatedAt          string               `json:"created_at"`
	CompletedAt        string               `json:"completed_at,omitempty"`
}

// SessionMetrics is the summary attached to results.
type SessionMetrics struct {
	OverallVisibility int            `json:"overall_visibility"`
	CitationShare     map[string]int `json:"citation_share"`
	TotalResponses    int            `json:"total_responses"`
}

// TrackingResult is the fan-out read of everything a session owns.
type TrackingResult struct {
	Session   *domain.Session   `json:"session"`
	Prompts   []domain.Prompt   `json:"prompts"`
	Responses []domain.Response `json:"responses"`
	Mentions  []domain.Mention  `json:"mentions"`
	Citations []domain.Citation `json:"citations"`
	Metrics   *SessionMetrics   `json:"metrics"`
}

// TrackingService owns the session lifecycle: create a session and its
// prompt set, enqueue one audit job, and expose status/results/stop.
type TrackingService struct {
	sessions  *repository.SessionRepository
	prompts   *repository.PromptRepository
	responses *repository.ResponseRepository
	mentions  *repository.MentionRepository
	citations *repository.CitationRepository
	generator PromptGenerator
	queue     Enqueuer
}

// NewTrackingService creates the orchestrator.
func NewTrackingService(
	sessions *repository.SessionRepository,
	promptRepo *repository.PromptRepository,
	responses *repository.ResponseRepository,
	mentions *repository.MentionRepository,
	citations *repository.CitationRepository,
	generator PromptGenerator,
	queue Enqueuer,
) *TrackingService {
	if generator == nil {
		generator = PromptGeneratorFunc(prompts.Generate)
	}
	return &TrackingService{
		sessions:  sessions,
		prompts:   promptRepo,
		responses: responses,
		mentions:  mentions,
		citations: citations,
		generator: generator,
		queue:     queue,
	}
}

// StartTracking creates the session and prompt set, enqueues exactly one
// audit job, and transitions the session PENDING -> RUNNING. If the enqueue
// fails after the session row exists, the session is marked FAILED rather
// than left dangling with no worker ever assigned.
func (s *TrackingService) StartTracking(ctx context.Context, input *StartTrackingInput) (*StartTrackingResult, error) {
	// Order preserved, duplicates allowed
	brands := append([]string{input.PrimaryBrand}, input.Competitors...)

	generated := s.generator.Generate(input.Category)
	promptTexts := make([]string, 0, len(generated)+len(input.CustomPrompts))
	for _, p := range generated {
		promptTexts = append(promptTexts, p.Text)
	}
	promptTexts = append(promptTexts, input.CustomPrompts...)

	if len(promptTexts) == 0 {
		return nil, fmt.Errorf("no prompts generated for category %q", input.Category)
	}

	session := &domain.Session{
		ID:           uuid.New().String(),
		Category:     input.Category,
		PrimaryBrand: input.PrimaryBrand,
		Competitors:  input.Competitors,
		Brands:       brands,
		TotalPrompts: len(promptTexts),
		Status:       domain.SessionStatusPending,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	promptRows := make([]domain.Prompt, 0, len(promptTexts))
	for i, text := range promptTexts {
		promptRows = append(promptRows, domain.Prompt{
			ID:         uuid.New().String(),
			SessionID:  session.ID,
			PromptText: text,
			Position:   i,
		})
	}
	if err := s.prompts.CreateBatch(ctx, promptRows); err != nil {
		s.failSession(ctx, session.ID)
		return nil, fmt.Errorf("failed to create prompts: %w", err)
	}

	if _, err := s.queue.Enqueue(ctx, session.ID, promptTexts, brands); err != nil {
		s.failSession(ctx, session.ID)
		return nil, fmt.Errorf("failed to enqueue audit job: %w", err)
	}

	if _, err := s.sessions.UpdateStatus(ctx, session.ID, domain.SessionStatusRunning, nil); err != nil {
		return nil, fmt.Errorf("failed to mark session running: %w", err)
	}

	logger.With(logger.Fields{
		logger.FieldSessionID: session.ID,
		logger.FieldCount:     len(promptTexts),
	}).Info(ctx, "Tracking session started for category %q", input.Category)

	return &StartTrackingResult{
		SessionID:    session.ID,
		TotalPrompts: len(promptTexts),
	}, nil
}

func (s *TrackingService) failSession(ctx context.Context, sessionID string) {
	if _, err := s.sessions.UpdateStatus(ctx, sessionID, domain.SessionStatusFailed, nil); err != nil {
		logger.CtxError(ctx, "Failed to mark session %s failed: %v", sessionID, err)
	}
}

// GetSessionStatus reports the durably recorded state plus live progress.
// Progress derives from the persisted response count, so it advances as the
// worker writes results, with no dependency on queue-reported progress.
func (s *TrackingService) GetSessionStatus(ctx context.Context, sessionID string) (*SessionStatus, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, mapNotFound(err)
	}

	responseCount, err := s.responses.CountBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	status := &SessionStatus{
		Status:             session.Status,
		Progress:           roundPct(int(responseCount), session.TotalPrompts),
		TotalPrompts:       session.TotalPrompts,
		CompletedResponses: int(responseCount),
		CreatedAt:          session.CreatedAt.Format("2006-01-02T15:04:05.000Z07:00"),
	}
	if session.CompletedAt != nil {
		status.CompletedAt = session.CompletedAt.Format("2006-01-02T15:04:05.000Z07:00")
	}
	return status, nil
}

// StopTracking forces the session to FAILED regardless of its current state.
// Idempotent terminalization: it only changes the status record; a worker
// mid-prompt observes the flag at its next iteration boundary.
func (s *TrackingService) StopTracking(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, err := s.sessions.UpdateStatus(ctx, sessionID, domain.SessionStatusFailed, nil)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return session, nil
}

// GetTrackingResults performs the fan-out read of a session and everything
// it owns, plus the metrics summary. Available for any existing session
// independent of status; partial results are visible and never rolled back.
func (s *TrackingService) GetTrackingResults(ctx context.Context, sessionID string) (*TrackingResult, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, mapNotFound(err)
	}

	promptList, err := s.prompts.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	responses, err := s.responses.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	mentions, err := s.mentions.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	citations, err := s.citations.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	metrics := calculateMetrics(session, mentions, len(responses))

	return &TrackingResult{
		Session:   session,
		Prompts:   promptList,
		Responses: responses,
		Mentions:  mentions,
		Citations: citations,
		Metrics:   metrics,
	}, nil
}

// calculateMetrics summarizes a session: overall visibility is the share of
// distinct prompts with at least one mention; citation share splits total
// mention counts per brand.
func calculateMetrics(session *domain.Session, mentions []domain.Mention, responseCount int) *SessionMetrics {
	mentionCounts := make(map[string]int)
	promptsWithMentions := make(map[string]struct{})
	totalMentions := 0

	for _, m := range mentions {
		mentionCounts[m.BrandName] += m.MentionCount
		promptsWithMentions[m.PromptID] = struct{}{}
		totalMentions += m.MentionCount
	}

	citationShare := make(map[string]int, len(mentionCounts))
	for brand, count := range mentionCounts {
		citationShare[brand] = roundPct(count, totalMentions)
	}

	return &SessionMetrics{
		OverallVisibility: roundPct(len(promptsWithMentions), session.TotalPrompts),
		CitationShare:     citationShare,
		TotalResponses:    responseCount,
	}
}
