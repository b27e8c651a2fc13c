package domain

import "time"

// Platform identifies the model provider that produced a response.
// Currently single-valued; kept as an enum for forward compatibility.
type Platform string

const (
	PlatformChatGPT Platform = "CHATGPT"
)

// Response is the raw text a provider returned for one prompt.
// At most one successful response exists per prompt per run; absence means
// the prompt failed or was skipped.
type Response struct {
	ID          string    `gorm:"type:text;primaryKey" json:"id"`
	PromptID    string    `gorm:"type:text;not null;index:idx_responses_prompt" json:"prompt_id"`
	SessionID   string    `gorm:"type:text;not null;index:idx_responses_session" json:"session_id"`
	RawResponse string    `gorm:"type:text;not null" json:"raw_response"`
	Platform    Platform  `gorm:"type:text;not null" json:"platform"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName returns the database table name for Response.
func (Response) TableName() string {
	return "responses"
}
