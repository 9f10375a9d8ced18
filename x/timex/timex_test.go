package timex

import (
	"testing"
	"time"
)

func TestNextBoundary(t *testing.T) {
	t0 := time.Unix(1000, 0)
	sec := time.Second

	cases := []struct {
		name string
		now  time.Duration
		want time.Duration
	}{
		{"fast acquisition", 20 * time.Millisecond, sec},
		{"exactly on boundary", sec, 2 * sec},
		{"overrun skips missed tick", 1500 * time.Millisecond, 2 * sec},
		{"long overrun", 3200 * time.Millisecond, 4 * sec},
	}
	for _, tc := range cases {
		got := NextBoundary(t0, t0.Add(tc.now), sec)
		if !got.Equal(t0.Add(tc.want)) {
			t.Errorf("%s: got +%v, want +%v", tc.name, got.Sub(t0), tc.want)
		}
	}
}

func TestResetTimerDrainsFired(t *testing.T) {
	tm := time.NewTimer(time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	ResetTimer(tm, time.Hour)
	select {
	case <-tm.C:
		t.Fatal("stale fire not drained")
	default:
	}
	tm.Stop()
}
