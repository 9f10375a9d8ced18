// Package central is the host-side BLE client of the telemetry service.
package central

import (
	"context"
	"sync"
	"time"

	"powermon-go/gatt"
	"powermon-go/types"
)

// Tracker folds notified characteristic values into the latest reading.
// It is safe for concurrent use; notification callbacks call Apply.
type Tracker struct {
	mu      sync.Mutex
	r       types.Reading
	seq     uint64
	at      time.Time
	errs    uint64
	changed chan struct{}
	now     func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{changed: make(chan struct{}), now: time.Now}
}

// Apply decodes one notification. Malformed values are counted and leave
// the reading untouched.
func (t *Tracker) Apply(f gatt.Field, b []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	next := t.r
	if err := gatt.Decode(f, b, &next); err != nil {
		t.errs++
		return err
	}
	t.r = next
	t.seq++
	t.at = t.now()
	close(t.changed)
	t.changed = make(chan struct{})
	return nil
}

// Latest returns the current reading, its update sequence and the time of
// the last update. seq is zero before the first notification.
func (t *Tracker) Latest() (r types.Reading, seq uint64, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.r, t.seq, t.at
}

// Errors counts rejected notifications.
func (t *Tracker) Errors() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.errs
}

// Next blocks until the sequence moves past after or ctx ends.
func (t *Tracker) Next(ctx context.Context, after uint64) (types.Reading, uint64, error) {
	for {
		t.mu.Lock()
		r, seq, ch := t.r, t.seq, t.changed
		t.mu.Unlock()
		if seq > after {
			return r, seq, nil
		}
		select {
		case <-ctx.Done():
			return types.Reading{}, seq, ctx.Err()
		case <-ch:
		}
	}
}
