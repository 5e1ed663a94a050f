package metrics

import (
	"sync/atomic"
	"time"
)

// Collector tracks request and ingestion counters without locks so it
// can sit on the hot path.
type Collector struct {
	totalRequests   uint64
	errorRequests   uint64
	rateLimited     uint64
	totalDurationMs uint64

	uploadsTotal uint64
	rowsAccepted uint64
	rowsRejected uint64
}

func New() *Collector {
	return &Collector{}
}

func (c *Collector) Record(status int, duration time.Duration) {
	atomic.AddUint64(&c.totalRequests, 1)
	if status >= 500 {
		atomic.AddUint64(&c.errorRequests, 1)
	}
	if status == 429 {
		atomic.AddUint64(&c.rateLimited, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))
}

// RecordUpload tallies one attendance sheet ingestion.
func (c *Collector) RecordUpload(accepted, rejected int) {
	atomic.AddUint64(&c.uploadsTotal, 1)
	atomic.AddUint64(&c.rowsAccepted, uint64(accepted))
	atomic.AddUint64(&c.rowsRejected, uint64(rejected))
}

func (c *Collector) Snapshot() map[string]any {
	total := atomic.LoadUint64(&c.totalRequests)
	errs := atomic.LoadUint64(&c.errorRequests)
	limited := atomic.LoadUint64(&c.rateLimited)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}
	return map[string]any{
		"requestsTotal":    total,
		"errorsTotal":      errs,
		"rateLimitedTotal": limited,
		"avgDurationMs":    avg,
		"uploadsTotal":     atomic.LoadUint64(&c.uploadsTotal),
		"rowsAccepted":     atomic.LoadUint64(&c.rowsAccepted),
		"rowsRejected":     atomic.LoadUint64(&c.rowsRejected),
	}
}
