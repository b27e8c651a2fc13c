package domain

import "time"

// Prompt is one natural-language question put to the model provider.
// Position drives processing order and prompt numbering within a session.
type Prompt struct {
	ID         string    `gorm:"type:text;primaryKey" json:"id"`
	SessionID  string    `gorm:"type:text;not null;index:idx_prompts_session" json:"session_id"`
	PromptText string    `gorm:"type:text;not null" json:"prompt_text"`
	Position   int       `gorm:"not null" json:"position"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName returns the database table name for Prompt.
func (Prompt) TableName() string {
	return "prompts"
}
