package models

// LogEntry is the unified shape for structured log records. It is designed so
// that log lines can be shipped and indexed without per-service parsing rules.
type LogEntry struct {
	// ServiceName identifies the service or worker that produced the record,
	// e.g. "report-service", "report-worker".
	ServiceName string `json:"service_name"`

	// TraceID ties together all records belonging to one request or task.
	TraceID string `json:"trace_id,omitempty"`

	// DocumentID identifies the document being processed, when applicable.
	DocumentID string `json:"document_id,omitempty"`

	// RequestInfo carries HTTP request context for API-originated records.
	RequestInfo *RequestInfo `json:"request_info,omitempty"`

	// Error carries structured error details for Warn/Error level records.
	Error *ErrorInfo `json:"error,omitempty"`

	// Payload holds any additional structured business data.
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// RequestInfo stores context about an HTTP request.
type RequestInfo struct {
	Method     string `json:"method"`
	Path       string `json:"path"`
	RemoteAddr string `json:"remote_addr"`
	UserAgent  string `json:"user_agent"`
}

// ErrorInfo stores structured information about an error.
type ErrorInfo struct {
	Message    string `json:"message"`
	Type       string `json:"type,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
}
