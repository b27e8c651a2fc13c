package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/tobyn/brandlens/internal/domain"
	"github.com/tobyn/brandlens/internal/queue"
	"github.com/tobyn/brandlens/internal/repository"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newTestDB opens a private in-memory database with the full schema. The
// shared cache keeps the database alive across pooled connections.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := repository.Migrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

type testRepos struct {
	sessions  *repository.SessionRepository
	prompts   *repository.PromptRepository
	responses *repository.ResponseRepository
	mentions  *repository.MentionRepository
	citations *repository.CitationRepository
}

func newTestRepos(db *gorm.DB) *testRepos {
	return &testRepos{
		sessions:  repository.NewSessionRepository(db),
		prompts:   repository.NewPromptRepository(db),
		responses: repository.NewResponseRepository(db),
		mentions:  repository.NewMentionRepository(db),
		citations: repository.NewCitationRepository(db),
	}
}

// seedSession creates a session with one prompt per text, in order.
func seedSession(t *testing.T, r *testRepos, brands []string, promptTexts []string) *domain.Session {
	t.Helper()
	ctx := context.Background()

	session := &domain.Session{
		ID:           uuid.New().String(),
		Category:     "crm tools",
		PrimaryBrand: brands[0],
		Brands:       brands,
		TotalPrompts: len(promptTexts),
		Status:       domain.SessionStatusRunning,
	}
	if err := r.sessions.Create(ctx, session); err != nil {
		t.Fatalf("failed to create session: %v", err)
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
	if err := r.prompts.CreateBatch(ctx, promptRows); err != nil {
		t.Fatalf("failed to create prompts: %v", err)
	}

	return session
}

type fakeProvider struct {
	content string
	err     error
	calls   int
}

func (f *fakeProvider) Complete(ctx context.Context, prompt string) (*ProviderResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &ProviderResponse{Success: f.content != "", Content: f.content}, nil
}

func (f *fakeProvider) Platform() domain.Platform {
	return domain.PlatformChatGPT
}

type fakeAnalyzer struct {
	result *AnalysisResult
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, rawText string, brands []string) *AnalysisResult {
	if f.result == nil {
		return emptyResult()
	}
	return f.result
}

func newTestProcessor(r *testRepos, provider ModelProvider, analyzer Analyzer) *AuditProcessor {
	return NewAuditProcessor(
		r.sessions, r.prompts, r.responses, r.mentions, r.citations,
		provider, analyzer, nil, nil,
		&AuditProcessorConfig{ThrottleDelay: time.Millisecond},
	)
}

func noProgress(queue.Progress) {}

func TestAuditProcessor_CompletesSession(t *testing.T) {
	ctx := context.Background()
	r := newTestRepos(newTestDB(t))
	session := seedSession(t, r, []string{"Alpha", "Beta"}, []string{"best crm tools", "top crm for startups"})

	provider := &fakeProvider{content: "Alpha is the most recommended CRM, followed by Beta."}
	analyzer := &fakeAnalyzer{result: &AnalysisResult{
		Mentions: []BrandMention{
			{Brand: "Alpha", Count: 2, Context: "Alpha is the most recommended CRM"},
			{Brand: "Gamma", Count: 1, Context: "not part of this session"},
		},
		Citations: []string{
			"https://example.com/crm-review",
			"ftp://example.com/file",
			"not a url",
			"/relative/path",
		},
	}}

	job := &domain.AuditJob{ID: uuid.New().String(), SessionID: session.ID, Brands: session.Brands}

	var events []queue.Progress
	err := newTestProcessor(r, provider, analyzer).Process(ctx, job, func(p queue.Progress) {
		events = append(events, p)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := r.sessions.GetByID(ctx, session.ID)
	if err != nil {
		t.Fatalf("failed to load session: %v", err)
	}
	if got.Status != domain.SessionStatusCompleted {
		t.Errorf("expected COMPLETED, got %s", got.Status)
	}
	if got.CompletedAt == nil {
		t.Error("expected completed_at to be set")
	}

	responses, _ := r.responses.ListBySession(ctx, session.ID)
	if len(responses) != 2 {
		t.Fatalf("expected 2 responses, got %d", len(responses))
	}
	if responses[0].Platform != domain.PlatformChatGPT {
		t.Errorf("unexpected platform %q", responses[0].Platform)
	}

	// Mentions for brands outside the job's universe are dropped
	mentions, _ := r.mentions.ListBySession(ctx, session.ID)
	if len(mentions) != 2 {
		t.Fatalf("expected 2 mentions (one per prompt), got %d", len(mentions))
	}
	for _, m := range mentions {
		if m.BrandName != "Alpha" {
			t.Errorf("unexpected brand %q persisted", m.BrandName)
		}
	}

	// Only absolute http/https URLs survive
	citations, _ := r.citations.ListBySession(ctx, session.ID)
	if len(citations) != 2 {
		t.Fatalf("expected 2 citations (one per prompt), got %d", len(citations))
	}
	for _, c := range citations {
		if c.URL != "https://example.com/crm-review" || c.Domain != "example.com" {
			t.Errorf("unexpected citation %+v", c)
		}
	}

	// Two progress events per prompt: query then analysis
	if len(events) != 4 {
		t.Errorf("expected 4 progress events, got %d", len(events))
	}
}

func TestAuditProcessor_AllPromptsFailMarksFailed(t *testing.T) {
	ctx := context.Background()
	r := newTestRepos(newTestDB(t))
	session := seedSession(t, r, []string{"Alpha"}, []string{"q1", "q2"})

	provider := &fakeProvider{err: errors.New("provider unavailable")}
	job := &domain.AuditJob{ID: uuid.New().String(), SessionID: session.ID, Brands: session.Brands}

	err := newTestProcessor(r, provider, &fakeAnalyzer{}).Process(ctx, job, noProgress)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := r.sessions.GetByID(ctx, session.ID)
	if got.Status != domain.SessionStatusFailed {
		t.Errorf("expected FAILED, got %s", got.Status)
	}
	responses, _ := r.responses.ListBySession(ctx, session.ID)
	if len(responses) != 0 {
		t.Errorf("expected no responses, got %d", len(responses))
	}
}

func TestAuditProcessor_PartialFailureStillCompletes(t *testing.T) {
	ctx := context.Background()
	r := newTestRepos(newTestDB(t))
	session := seedSession(t, r, []string{"Alpha"}, []string{"q1", "q2"})

	// First call fails, second succeeds
	provider := &flakyProvider{failures: 1, content: "Alpha remains a solid pick for most teams."}
	job := &domain.AuditJob{ID: uuid.New().String(), SessionID: session.ID, Brands: session.Brands}

	err := newTestProcessor(r, provider, &fakeAnalyzer{}).Process(ctx, job, noProgress)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := r.sessions.GetByID(ctx, session.ID)
	if got.Status != domain.SessionStatusCompleted {
		t.Errorf("expected COMPLETED after partial success, got %s", got.Status)
	}
	responses, _ := r.responses.ListBySession(ctx, session.ID)
	if len(responses) != 1 {
		t.Errorf("expected 1 response, got %d", len(responses))
	}
}

type flakyProvider struct {
	failures int
	calls    int
	content  string
}

func (f *flakyProvider) Complete(ctx context.Context, prompt string) (*ProviderResponse, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("transient provider error")
	}
	return &ProviderResponse{Success: true, Content: f.content}, nil
}

func (f *flakyProvider) Platform() domain.Platform {
	return domain.PlatformChatGPT
}

func TestAuditProcessor_NoPromptsMarksFailed(t *testing.T) {
	ctx := context.Background()
	r := newTestRepos(newTestDB(t))

	session := &domain.Session{
		ID:           uuid.New().String(),
		Category:     "crm tools",
		PrimaryBrand: "Alpha",
		Brands:       []string{"Alpha"},
		Status:       domain.SessionStatusRunning,
	}
	if err := r.sessions.Create(ctx, session); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	provider := &fakeProvider{content: "irrelevant"}
	job := &domain.AuditJob{ID: uuid.New().String(), SessionID: session.ID, Brands: session.Brands}

	err := newTestProcessor(r, provider, &fakeAnalyzer{}).Process(ctx, job, noProgress)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := r.sessions.GetByID(ctx, session.ID)
	if got.Status != domain.SessionStatusFailed {
		t.Errorf("expected FAILED, got %s", got.Status)
	}
	if provider.calls != 0 {
		t.Errorf("expected no provider calls, got %d", provider.calls)
	}
}

func TestAuditProcessor_StoppedSessionExitsEarly(t *testing.T) {
	ctx := context.Background()
	r := newTestRepos(newTestDB(t))
	session := seedSession(t, r, []string{"Alpha"}, []string{"q1", "q2"})

	// Externally stopped before the worker picked up the job
	if _, err := r.sessions.UpdateStatus(ctx, session.ID, domain.SessionStatusFailed, nil); err != nil {
		t.Fatalf("failed to stop session: %v", err)
	}

	provider := &fakeProvider{content: "should never be asked"}
	job := &domain.AuditJob{ID: uuid.New().String(), SessionID: session.ID, Brands: session.Brands}

	err := newTestProcessor(r, provider, &fakeAnalyzer{}).Process(ctx, job, noProgress)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if provider.calls != 0 {
		t.Errorf("expected no provider calls for a stopped session, got %d", provider.calls)
	}
	got, _ := r.sessions.GetByID(ctx, session.ID)
	if got.Status != domain.SessionStatusFailed {
		t.Errorf("expected status to stay FAILED, got %s", got.Status)
	}
}

func TestBuildCitations(t *testing.T) {
	tests := []struct {
		name string
		urls []string
		want int
	}{
		{"valid https", []string{"https://example.com/a"}, 1},
		{"valid http", []string{"http://example.com/a"}, 1},
		{"scheme rejected", []string{"ftp://example.com/a"}, 0},
		{"relative rejected", []string{"/path/only"}, 0},
		{"garbage rejected", []string{"not a url at all"}, 0},
		{"mixed", []string{"https://a.com", "nope", "http://b.com/x"}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildCitations("r1", "s1", tt.urls)
			if len(got) != tt.want {
				t.Errorf("expected %d citations, got %d", tt.want, len(got))
			}
		})
	}
}

func TestBuildCitations_Domain(t *testing.T) {
	got := buildCitations("r1", "s1", []string{"https://www.example.com:8443/path?q=1"})
	if len(got) != 1 {
		t.Fatalf("expected 1 citation, got %d", len(got))
	}
	if got[0].Domain != "www.example.com" {
		t.Errorf("expected domain without port, got %q", got[0].Domain)
	}
	if got[0].URL != "https://www.example.com:8443/path?q=1" {
		t.Errorf("expected original URL preserved, got %q", got[0].URL)
	}
}
