package models

import "time"

// EndpointClass groups routes that share a request budget.
type EndpointClass string

const (
	// ClassAuth covers login and account creation.
	ClassAuth EndpointClass = "auth"
	// ClassWrite covers flow events and other mutations.
	ClassWrite EndpointClass = "write"
)

// Limit is a request budget per client over a sliding window.
type Limit struct {
	Requests int
	Window   time.Duration
}

// Result is the outcome of one rate limit check.
type Result struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, only set when not allowed
}

// ExceededResponse is the body of a 429.
type ExceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after"`
}
