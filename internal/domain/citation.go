package domain

import "time"

// Citation is a URL extracted from one response, with the domain derived
// from the URL's host. URLs that fail to parse are never persisted.
type Citation struct {
	ID         string    `gorm:"type:text;primaryKey" json:"id"`
	ResponseID string    `gorm:"type:text;not null;index:idx_citations_response" json:"response_id"`
	SessionID  string    `gorm:"type:text;not null;index:idx_citations_session" json:"session_id"`
	URL        string    `gorm:"type:text;not null" json:"url"`
	Domain     string    `gorm:"type:text;not null" json:"domain"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName returns the database table name for Citation.
func (Citation) TableName() string {
	return "citations"
}
