package history

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Window is a fixed lookback range used for statistical summaries.
type Window string

const (
	Window1Hour  Window = "1h"
	Window12Hour Window = "12h"
	Window1Day   Window = "1d"
	Window1Week  Window = "1w"
)

// validWindows maps each lookback window to its duration.
var validWindows = map[Window]time.Duration{
	Window1Hour:  time.Hour,
	Window12Hour: 12 * time.Hour,
	Window1Day:   24 * time.Hour,
	Window1Week:  7 * 24 * time.Hour,
}

// IsValid checks if the Window is a valid predefined lookback.
func (w Window) IsValid() bool {
	_, ok := validWindows[w]
	return ok
}

func (w Window) Duration() time.Duration {
	return validWindows[w]
}

// ParseWindow parses a string into a valid Window.
func ParseWindow(s string) (Window, error) {
	w := Window(s)
	if !w.IsValid() {
		return "", fmt.Errorf("invalid lookback window: %s", s)
	}
	return w, nil
}

// History is the append-only snapshot log plus its summary compiler.
// It owns the dedupe rule; the Store underneath is a dumb append/range
// backend.
type History struct {
	store Store
}

func New(store Store) *History {
	return &History{store: store}
}

// RecordIfChanged appends the state as a new snapshot only when its price
// differs from the most recently stored one (or when no prior snapshot
// exists). It returns the stored snapshot that now represents the current
// price: the fresh one when appended, the unchanged prior one otherwise.
func (h *History) RecordIfChanged(ctx context.Context, s Snapshot) (Snapshot, bool, error) {
	latest, err := h.store.LatestSnapshot(ctx)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("load latest snapshot: %w", err)
	}

	if latest != nil && latest.Price == s.Price {
		return *latest, false, nil
	}

	if err := h.store.InsertSnapshot(ctx, s); err != nil {
		return Snapshot{}, false, fmt.Errorf("insert snapshot: %w", err)
	}
	return s, true, nil
}

// RecordTrade appends one completed chunk to the trade log.
func (h *History) RecordTrade(ctx context.Context, t TradeEntry) error {
	if err := h.store.InsertTrade(ctx, t); err != nil {
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// Summarize computes count/min/max/mean/sample-stddev over the snapshots
// with timestamps in [start, end].
func (h *History) Summarize(ctx context.Context, start, end time.Time) (Summary, error) {
	snaps, err := h.store.SnapshotsInRange(ctx, start, end)
	if err != nil {
		return Summary{}, fmt.Errorf("range query: %w", err)
	}

	sum := Summary{PeriodStart: start, PeriodEnd: end, Count: len(snaps)}
	if len(snaps) == 0 {
		return sum, nil
	}

	sum.Min = snaps[0].Price
	sum.Max = snaps[0].Price
	var total int64
	for _, s := range snaps {
		if s.Price < sum.Min {
			sum.Min = s.Price
		}
		if s.Price > sum.Max {
			sum.Max = s.Price
		}
		total += s.Price
	}
	sum.Mean = float64(total) / float64(len(snaps))

	// Sample standard deviation with Bessel's correction; defined as 0
	// for fewer than 2 points.
	if len(snaps) >= 2 {
		var sq float64
		for _, s := range snaps {
			d := float64(s.Price) - sum.Mean
			sq += d * d
		}
		sum.StdDev = math.Sqrt(sq / float64(len(snaps)-1))
	}

	return sum, nil
}

// SummarizeWindows compiles all fixed lookback windows relative to now.
func (h *History) SummarizeWindows(ctx context.Context, now time.Time) (map[Window]Summary, error) {
	out := make(map[Window]Summary, len(validWindows))
	for w, d := range validWindows {
		sum, err := h.Summarize(ctx, now.Add(-d), now)
		if err != nil {
			return nil, fmt.Errorf("summarize %s: %w", w, err)
		}
		out[w] = sum
	}
	return out, nil
}
