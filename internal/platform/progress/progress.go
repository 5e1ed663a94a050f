package progress

import "context"

const (
	StatusProcessing = "processing"
	StatusDone       = "done"
	StatusNotFound   = "not_found"
)

// Progress is the pollable state of one running ingestion, addressed
// by its session token.
type Progress struct {
	Total     int    `json:"total"`
	Processed int    `json:"processed"`
	Success   int    `json:"success"`
	Errors    int    `json:"errors"`
	Status    string `json:"status"`
}

// NotFound is what pollers observe for unknown or expired tokens.
func NotFound() Progress {
	return Progress{Status: StatusNotFound}
}

// Tracker stores ingestion progress with a fixed expiry window. Every
// Set refreshes the window; Get never fails, it degrades to the
// not-found default.
type Tracker interface {
	Set(ctx context.Context, token string, p Progress)
	Get(ctx context.Context, token string) Progress
}
