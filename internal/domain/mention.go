package domain

import "time"

// Mention is a structured brand occurrence extracted from one response.
// BrandName is always a member of the owning session's brand list; the
// analyzer output is filtered before a row is created. Multiple rows may
// exist for the same (prompt, brand) pair; aggregation sums their counts.
type Mention struct {
	ID           string    `gorm:"type:text;primaryKey" json:"id"`
	ResponseID   string    `gorm:"type:text;not null;index:idx_mentions_response" json:"response_id"`
	SessionID    string    `gorm:"type:text;not null;index:idx_mentions_session" json:"session_id"`
	PromptID     string    `gorm:"type:text;not null;index:idx_mentions_prompt" json:"prompt_id"`
	BrandName    string    `gorm:"type:text;not null" json:"brand_name"`
	MentionCount int       `gorm:"not null" json:"mention_count"`
	Context      string    `gorm:"type:text" json:"context,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName returns the database table name for Mention.
func (Mention) TableName() string {
	return "mentions"
}
