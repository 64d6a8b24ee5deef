package logsource

import "time"

// StatusResponse mirrors the payload returned by /status.
type StatusResponse struct {
	File                string    `json:"file"`
	Offset              int64     `json:"offset"`
	Subscribers         int       `json:"subscribers"`
	LinesPublished      uint64    `json:"linesPublished"`
	LastError           string    `json:"lastError,omitempty"`
	ConsecutiveFailures int       `json:"consecutiveFailures"`
	LastUpdated         time.Time `json:"lastUpdated"`
}

// HealthResponse mirrors /health.
type HealthResponse struct {
	Status string `json:"status"`
}
