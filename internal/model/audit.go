package model

import (
	"time"
)

// AuditLog records one API operation end to end: who called, what they
// sent (redacted), what came back and how long it took.
type AuditLog struct {
	ID        string `json:"id"`
	AccountID string `json:"account_id"`
	Method    string `json:"method"`
	Path      string `json:"path"`
	IP        string `json:"ip"`
	UserAgent string `json:"user_agent"`

	RequestBody   string `json:"request_body"`
	RequestHeader string `json:"request_header"`

	StatusCode   int    `json:"status_code"`
	ResponseBody string `json:"response_body"`
	LatencyMs    int64  `json:"latency_ms"`

	// Business context: parsed amounts, swap outputs, upstream errors.
	Context map[string]interface{} `json:"context"`

	CreatedAt time.Time `json:"created_at"`
}
