package repository

import (
	"context"

	"github.com/tobyn/brandlens/internal/domain"
	"gorm.io/gorm"
)

// ResponseRepository handles response data operations.
type ResponseRepository struct {
	db *gorm.DB
}

// NewResponseRepository creates a new ResponseRepository.
func NewResponseRepository(db *gorm.DB) *ResponseRepository {
	return &ResponseRepository{db: db}
}

// Create inserts a new response record.
func (r *ResponseRepository) Create(ctx context.Context, response *domain.Response) error {
	return r.db.WithContext(ctx).Create(response).Error
}

// ListBySession retrieves all responses for a session.
func (r *ResponseRepository) ListBySession(ctx context.Context, sessionID string) ([]domain.Response, error) {
	var responses []domain.Response
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&responses).Error; err != nil {
		return nil, err
	}
	return responses, nil
}

// CountBySession counts persisted responses for a session. This is the
// authoritative progress signal for status polling.
func (r *ResponseRepository) CountBySession(ctx context.Context, sessionID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Response{}).
		Where("session_id = ?", sessionID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
