package repository

import (
	"context"

	"github.com/tobyn/brandlens/internal/domain"
	"gorm.io/gorm"
)

// MentionRepository handles mention data operations.
type MentionRepository struct {
	db *gorm.DB
}

// NewMentionRepository creates a new MentionRepository.
func NewMentionRepository(db *gorm.DB) *MentionRepository {
	return &MentionRepository{db: db}
}

// CreateBatch inserts mention records in a single statement.
func (r *MentionRepository) CreateBatch(ctx context.Context, mentions []domain.Mention) error {
	if len(mentions) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&mentions).Error
}

// ListBySession retrieves all mentions for a session.
func (r *MentionRepository) ListBySession(ctx context.Context, sessionID string) ([]domain.Mention, error) {
	var mentions []domain.Mention
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Find(&mentions).Error; err != nil {
		return nil, err
	}
	return mentions, nil
}
