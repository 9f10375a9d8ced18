package timex

import "time"

// NowMs returns Unix milliseconds as int64.
func NowMs() int64 { return time.Now().UnixMilli() }

// ResetTimer stops, drains and re-arms t. Negative durations fire at once.
func ResetTimer(t *time.Timer, d time.Duration) {
	if d < 0 {
		d = 0
	}
	if !t.Stop() {
		DrainTimer(t)
	}
	t.Reset(d)
}

func DrainTimer(t *time.Timer) {
	select {
	case <-t.C:
	default:
	}
}

// NextBoundary returns the first instant start+k*period (k >= 1) that lies
// after now. Boundaries missed by an overrun are skipped, so lateness never
// accumulates beyond one period.
func NextBoundary(start, now time.Time, period time.Duration) time.Time {
	if period <= 0 {
		return now
	}
	next := start.Add(period)
	if next.After(now) {
		return next
	}
	k := now.Sub(start)/period + 1
	return start.Add(k * period)
}
