package repository

import (
	"context"

	"github.com/tobyn/brandlens/internal/domain"
	"gorm.io/gorm"
)

// CitationRepository handles citation data operations.
type CitationRepository struct {
	db *gorm.DB
}

// NewCitationRepository creates a new CitationRepository.
func NewCitationRepository(db *gorm.DB) *CitationRepository {
	return &CitationRepository{db: db}
}

// CreateBatch inserts citation records in a single statement.
func (r *CitationRepository) CreateBatch(ctx context.Context, citations []domain.Citation) error {
	if len(citations) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&citations).Error
}

// ListBySession retrieves all citations for a session.
func (r *CitationRepository) ListBySession(ctx context.Context, sessionID string) ([]domain.Citation, error) {
	var citations []domain.Citation
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Find(&citations).Error; err != nil {
		return nil, err
	}
	return citations, nil
}
