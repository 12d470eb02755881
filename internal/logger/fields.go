package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// ============================================
// Standard Tracing Fields (Context level)
// These fields are propagated through the call chain
// ============================================

const (
	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldJobID is the background job ID
	FieldJobID = "job_id"

	// FieldJobKind is the background job kind
	FieldJobKind = "job_kind"

	// FieldInterviewID is the interview being evaluated
	FieldInterviewID = "interview_id"

	// FieldJudgeID is the judge submitting an evaluation
	FieldJudgeID = "judge_id"

	// FieldComponent is the component/module name
	FieldComponent = "component"

	// FieldUserID is the owning user ID
	FieldUserID = "user_id"
)

// ============================================
// Standard Metric Fields (Entry level)
// These fields are used for aggregation and alerting
// ============================================

const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic count field
	FieldCount = "count"

	// FieldSize is the data size in bytes
	FieldSize = "size"

	// FieldStatus is the operation status
	FieldStatus = "status"
)
