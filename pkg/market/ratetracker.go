package market

import (
	"sync"
	"time"
)

// rateWindow is the trailing window over which outbound calls are counted.
const rateWindow = 60 * time.Second

// RateTracker records the timestamps of outbound remote calls and reports
// how many were made in the trailing 60 seconds. It is process-local and
// resets on restart.
type RateTracker struct {
	mu    sync.Mutex
	calls []time.Time
	now   func() time.Time
}

func NewRateTracker() *RateTracker {
	return &RateTracker{
		calls: make([]time.Time, 0),
		now:   time.Now,
	}
}

// Record appends the current time to the call log. Call it exactly once
// per outbound request, success or failure.
func (t *RateTracker) Record() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls = append(t.calls, t.now())
}

// CountRecent discards entries older than the window and returns the
// remaining count. The prune runs before the count so stale entries never
// inflate the result.
func (t *RateTracker) CountRecent() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-rateWindow)
	i := 0
	for i < len(t.calls) && !t.calls[i].After(cutoff) {
		i++
	}
	t.calls = t.calls[i:]
	return len(t.calls)
}
