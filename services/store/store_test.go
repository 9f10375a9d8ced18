package store

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"powermon-go/types"
)

func TestNewDefaults(t *testing.T) {
	assert.Equal(t, DefaultRxCapacity, New(0).RxCapacity())
	assert.Equal(t, MaxRxCapacity, New(4096).RxCapacity())
	assert.Equal(t, types.TelemetryRecord{}, New(8).Snapshot())
}

func TestUpdateAndSnapshot(t *testing.T) {
	s := New(0)
	r := types.Reading{VoltageMilliV: 3700, CurrentMilliA: 1500, PowerDeciW: 50, TempCentiC: 2500, BatteryPct: 42}
	s.UpdateSensor(r)
	assert.Equal(t, "hello", s.UpdateRxText("hello"))

	snap := s.Snapshot()
	assert.Equal(t, r, snap.Reading)
	assert.Equal(t, "hello", snap.RxText)

	// Sensor updates leave the text alone and vice versa.
	s.UpdateSensor(types.Reading{VoltageMilliV: 1})
	assert.Equal(t, "hello", s.Snapshot().RxText)
	s.UpdateRxText("")
	assert.Equal(t, uint16(1), s.Snapshot().VoltageMilliV)
}

func TestTruncateASCII(t *testing.T) {
	s := New(8)
	got := s.UpdateRxText(strings.Repeat("abcdefghij", 3))
	assert.Equal(t, "abcdefgh", got)
	assert.Equal(t, "abcdefgh", s.Snapshot().RxText)
}

func TestTruncateRuneBoundary(t *testing.T) {
	// "é" is two bytes; the third would be split at n=3.
	assert.Equal(t, "éé", Truncate("ééé", 4))
	assert.Equal(t, "é", Truncate("ééé", 3))
	assert.Equal(t, "", Truncate("é", 1))
}

func TestTruncateDropsInvalidUTF8(t *testing.T) {
	assert.Equal(t, "ab", Truncate("a\xffb", 64))
	assert.Equal(t, "ok", Truncate("\xc3ok", 64))
}

// Each snapshot must show a reading written as one unit: all fields carry
// the same generation value.
func TestSnapshotNeverTorn(t *testing.T) {
	s := New(16)
	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(2)
	go func() {
		defer wg.Done()
		for g := uint16(1); ; g++ {
			select {
			case <-stop:
				return
			default:
			}
			s.UpdateSensor(types.Reading{
				VoltageMilliV: g,
				CurrentMilliA: int16(g),
				PowerDeciW:    g,
				TempCentiC:    int16(g),
				BatteryPct:    uint8(g),
			})
		}
	}()
	go func() {
		defer wg.Done()
		texts := []string{"aaaa", "bbbb"}
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			s.UpdateRxText(texts[i%2])
		}
	}()

	for i := 0; i < 20000; i++ {
		snap := s.Snapshot()
		g := snap.VoltageMilliV
		if uint16(snap.CurrentMilliA) != g || snap.PowerDeciW != g || uint16(snap.TempCentiC) != g || snap.BatteryPct != uint8(g) {
			close(stop)
			wg.Wait()
			t.Fatalf("torn reading: %+v", snap.Reading)
		}
		if snap.RxText != "" && snap.RxText != "aaaa" && snap.RxText != "bbbb" {
			close(stop)
			wg.Wait()
			t.Fatalf("torn text: %q", snap.RxText)
		}
	}
	close(stop)
	wg.Wait()
}
