package airq

import "time"

// DefaultDedupWindow is the minimum elapsed time before an unchanged index is
// persisted again.
const DefaultDedupWindow = 5 * time.Minute

// Guard decides whether a new snapshot is worth writing, given the most
// recent stored snapshot for the same city. It bounds write volume while
// conditions are static without ever suppressing an actual change.
type Guard struct {
	Window time.Duration
}

// NewGuard creates a Guard; window <= 0 falls back to DefaultDedupWindow.
func NewGuard(window time.Duration) Guard {
	if window <= 0 {
		window = DefaultDedupWindow
	}
	return Guard{Window: window}
}

// ShouldWrite reports whether candidate should be appended to the store.
// It returns false only when the candidate arrived within the dedup window of
// the last persisted snapshot AND carries the same index.
func (g Guard) ShouldWrite(candidate, last MetricSnapshot, hasLast bool) bool {
	if !hasLast {
		return true
	}
	if candidate.Index != last.Index {
		return true
	}
	return candidate.Timestamp.Sub(last.Timestamp) >= g.Window
}
