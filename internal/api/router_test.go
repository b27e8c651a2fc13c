package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/tobyn/brandlens/internal/domain"
	"github.com/tobyn/brandlens/internal/logger"
	"github.com/tobyn/brandlens/internal/repository"
	"github.com/tobyn/brandlens/internal/service"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type stubEnqueuer struct{}

func (stubEnqueuer) Enqueue(ctx context.Context, sessionID string, promptTexts, brands []string) (*domain.AuditJob, error) {
	return &domain.AuditJob{ID: uuid.New().String(), SessionID: sessionID}, nil
}

func newTestRouter(t *testing.T) http.Handler {
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

	sessionRepo := repository.NewSessionRepository(db)
	promptRepo := repository.NewPromptRepository(db)
	responseRepo := repository.NewResponseRepository(db)
	mentionRepo := repository.NewMentionRepository(db)
	citationRepo := repository.NewCitationRepository(db)

	tracking := service.NewTrackingService(
		sessionRepo, promptRepo, responseRepo, mentionRepo, citationRepo,
		nil, stubEnqueuer{},
	)
	analytics := service.NewAnalyticsService(sessionRepo, promptRepo, responseRepo, mentionRepo)

	return SetupRouter(tracking, analytics, &RouterConfig{
		Mode:   "test",
		Logger: logger.GetDefault(),
	})
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestStartTrackingEndpoint(t *testing.T) {
	router := newTestRouter(t)

	body := `{"category":"crm tools","primary_brand":"Salesforce","competitors":["HubSpot"]}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tracking/start", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var result struct {
		SessionID    string `json:"session_id"`
		TotalPrompts int    `json:"total_prompts"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if result.SessionID == "" || result.TotalPrompts == 0 {
		t.Errorf("unexpected result: %+v", result)
	}

	// The new session is immediately pollable
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/tracking/"+result.SessionID+"/status", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var status struct {
		Status   string `json:"status"`
		Progress int    `json:"progress"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("failed to parse status: %v", err)
	}
	if status.Status != string(domain.SessionStatusRunning) {
		t.Errorf("expected RUNNING, got %s", status.Status)
	}
	if status.Progress != 0 {
		t.Errorf("expected zero progress, got %d", status.Progress)
	}
}

func TestStartTrackingEndpoint_MissingFields(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tracking/start", strings.NewReader(`{"category":"crm"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing primary brand, got %d", w.Code)
	}
}

func TestUnknownSessionReturns404(t *testing.T) {
	router := newTestRouter(t)

	paths := []string{
		"/api/v1/tracking/nope/status",
		"/api/v1/tracking/nope/results",
		"/api/v1/tracking/nope/leaderboard",
		"/api/v1/tracking/nope/matrix",
	}
	for _, path := range paths {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		router.ServeHTTP(w, req)
		if w.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", path, w.Code)
		}
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/tracking/nope", nil)
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("DELETE: expected 404, got %d", w.Code)
	}
}

func TestStopTrackingEndpoint(t *testing.T) {
	router := newTestRouter(t)

	body := `{"category":"crm tools","primary_brand":"Salesforce"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tracking/start", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}

	var result struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete, "/api/v1/tracking/"+result.SessionID, nil)
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var stopped struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &stopped); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if stopped.Status != string(domain.SessionStatusFailed) {
		t.Errorf("expected FAILED after stop, got %s", stopped.Status)
	}
}
