package log

// Common field names for structured logging
const (
	FieldComponent = "component"
	FieldError     = "error"
	FieldDocument  = "document"
	FieldSHA256    = "sha256"
	FieldSlots     = "slots"
	FieldIssues    = "issues"
	FieldCell      = "cell"
	FieldAttempt   = "attempt"
	FieldDelay     = "delay"
	FieldDuration  = "duration"
	FieldSize      = "size"
	FieldCount     = "count"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentPipeline = "pipeline"
	ComponentAMQP     = "amqp"
	ComponentDelivery = "delivery"
)
