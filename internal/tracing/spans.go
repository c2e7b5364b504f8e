package tracing

// Span names.
const (
	SpanDispatch = "dispatch.handle"
	SpanTrigger  = "trigger.send"
)

// Span attribute keys.
const (
	AttrScriptName     = "script.name"
	AttrScriptArgs     = "script.args"
	AttrOutcome        = "dispatch.outcome"
	AttrRequestID      = "dispatch.request_id"
	AttrHTTPStatusCode = "http.status_code"
	AttrURL            = "url.full"
)

// Event names.
const (
	EventRegistryResolved = "registry.resolved"
	EventScriptStarted    = "script.started"
)
