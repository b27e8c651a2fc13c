package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// SessionStatus represents the lifecycle state of a tracking session.
// Transitions only move forward: PENDING -> RUNNING -> {COMPLETED, FAILED}.
// COMPLETED and FAILED are terminal.
type SessionStatus string

const (
	SessionStatusPending   SessionStatus = "PENDING"
	SessionStatusRunning   SessionStatus = "RUNNING"
	SessionStatusCompleted SessionStatus = "COMPLETED"
	SessionStatusFailed    SessionStatus = "FAILED"
)

// IsTerminal reports whether the status is COMPLETED or FAILED.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusFailed
}

// StringArray is a custom type for storing string arrays as JSON in the database.
type StringArray []string

// Value implements the driver.Valuer interface for database serialization.
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = StringArray{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan StringArray")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, a)
}

// Session represents one brand-visibility audit run over a fixed prompt set.
// Brands is the union of PrimaryBrand and Competitors with order preserved;
// it is immutable after creation and is the universe every downstream
// computation operates on.
type Session struct {
	ID           string        `gorm:"type:text;primaryKey" json:"id"`
	Category     string        `gorm:"type:text;not null" json:"category"`
	PrimaryBrand string        `gorm:"type:text;not null" json:"primary_brand"`
	Competitors  StringArray   `gorm:"type:text" json:"competitors"`
	Brands       StringArray   `gorm:"type:text" json:"brands"`
	TotalPrompts int           `gorm:"not null" json:"total_prompts"`
	Status       SessionStatus `gorm:"type:text;index:idx_sessions_status;default:PENDING" json:"status"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty"`
}

// TableName returns the database table name for Session.
func (Session) TableName() string {
	return "sessions"
}
