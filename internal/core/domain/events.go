package domain

import "time"

// Conversion event statuses.
const (
	ConversionCompleted = "completed"
	ConversionFailed    = "failed"
)

// ConversionEvent records the outcome of one conversion request. Published to
// the broker after the response is decided; consumers use it for monitoring,
// not for request handling.
type ConversionEvent struct {
	ID         string    `json:"id"`
	Model      string    `json:"model"`
	Status     string    `json:"status"`
	Features   int       `json:"features,omitempty"`
	TargetCRS  string    `json:"target_crs,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
	Time       time.Time `json:"time"`
}
