package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Standard tracing fields propagated through the call chain.
const (
	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldSessionID is the tracking session ID
	FieldSessionID = "session_id"

	// FieldJobID is the audit job ID
	FieldJobID = "job_id"

	// FieldPromptID is the prompt being processed
	FieldPromptID = "prompt_id"

	// FieldComponent is the component/module name
	FieldComponent = "component"

	// FieldPlatform is the model provider platform
	FieldPlatform = "platform"
)

// Standard metric fields used for aggregation and alerting.
const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic count field
	FieldCount = "count"

	// FieldStatus is the operation status
	FieldStatus = "status"
)
