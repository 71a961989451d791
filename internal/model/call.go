package model

import "time"

// CallRecord captures the outcome of a single remote browser call.
type CallRecord struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"durationMs"`
	CreatedAt  time.Time `json:"createdAt"`
}
