package models

import "time"

// EnrichResponse wraps a single enrichment result
type EnrichResponse struct {
	Result    *EnrichmentResult `json:"result"`
	RequestID string            `json:"request_id"`
}

// TaskStatus is the status of an asynchronous batch task
type TaskStatus string

const (
	TaskStatusAccepted   TaskStatus = "ACCEPTED"
	TaskStatusProcessing TaskStatus = "PROCESSING"
	TaskStatusSuccess    TaskStatus = "SUCCESS"
	TaskStatusFailure    TaskStatus = "FAILURE"
)

// BatchAcceptedResponse is returned right after a batch is queued
type BatchAcceptedResponse struct {
	ProcessID string     `json:"processId"`
	Status    TaskStatus `json:"status"`
	Jobs      int        `json:"jobs"`
	Message   string     `json:"message"`
	Timestamp time.Time  `json:"timestamp"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Uptime    time.Duration     `json:"uptime"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}
