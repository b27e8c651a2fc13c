package repository

import (
	"context"

	"github.com/tobyn/brandlens/internal/domain"
	"gorm.io/gorm"
)

// PromptRepository handles prompt data operations.
type PromptRepository struct {
	db *gorm.DB
}

// NewPromptRepository creates a new PromptRepository.
func NewPromptRepository(db *gorm.DB) *PromptRepository {
	return &PromptRepository{db: db}
}

// CreateBatch inserts prompt records in a single statement.
func (r *PromptRepository) CreateBatch(ctx context.Context, prompts []domain.Prompt) error {
	if len(prompts) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&prompts).Error
}

// ListBySession retrieves a session's prompts in generation order.
func (r *PromptRepository) ListBySession(ctx context.Context, sessionID string) ([]domain.Prompt, error) {
	var prompts []domain.Prompt
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("position ASC").
		Find(&prompts).Error; err != nil {
		return nil, err
	}
	return prompts, nil
}

// CountBySession counts a session's prompts.
func (r *PromptRepository) CountBySession(ctx context.Context, sessionID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Prompt{}).
		Where("session_id = ?", sessionID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
