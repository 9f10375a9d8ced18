package display

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"powermon-go/services/store"
	"powermon-go/types"
)

type fakePanel struct {
	modes []RefreshMode
	ink   []int
	fail  bool
}

func (p *fakePanel) Render(f *Frame, mode RefreshMode) error {
	p.modes = append(p.modes, mode)
	p.ink = append(p.ink, f.InkCount())
	if p.fail {
		return errors.New("busy pin stuck")
	}
	return nil
}

func newSvc(t *testing.T, fullEvery int) (*Service, *fakePanel, *store.Store) {
	t.Helper()
	p := &fakePanel{}
	st := store.New(0)
	svc, err := New(p, st, zerolog.Nop(), Config{FullEvery: fullEvery})
	require.NoError(t, err)
	return svc, p, st
}

func TestFrameSetPixel(t *testing.T) {
	f := NewFrame(10, 3)
	f.SetPixel(9, 2, Black)
	f.SetPixel(10, 0, Black) // out of range
	assert.True(t, f.Ink(9, 2))
	assert.Equal(t, 1, f.InkCount())
	f.SetPixel(9, 2, White)
	assert.False(t, f.Ink(9, 2))
	assert.Len(t, f.Bytes(), 6)
}

func TestLayoutLines(t *testing.T) {
	var l Layout
	rec := types.TelemetryRecord{
		Reading: types.Reading{VoltageMilliV: 37125, CurrentMilliA: 1500, PowerDeciW: 50, TempCentiC: 2500, BatteryPct: 42},
		RxText:  "2,12.3,45",
	}
	l.Build(rec, ParseRx(rec.RxText))
	want := []string{
		"Battery Monitor",
		"V: 37.125V",
		"I: 1500mA",
		"P: 5.0W",
		"T: 25.00C",
		"BAT: 42%",
		"PAS: 2",
		"SPD: 12.3km/h",
		"RNG: 45.0km",
		"RX: 2,12.3,45",
	}
	for i, w := range want {
		assert.Equal(t, w, l.Line(i), "line %d", i)
	}
}

func TestLayoutNegativeCurrentAndLongRx(t *testing.T) {
	var l Layout
	l.Build(types.TelemetryRecord{Reading: types.Reading{CurrentMilliA: -250, TempCentiC: -5}, RxText: "abcdefghijklmnopqrstuvwxyz"}, types.RxCommand{})
	assert.Equal(t, "I: -250mA", l.Line(2))
	assert.Equal(t, "T: -0.05C", l.Line(4))
	assert.Equal(t, "RX: abcdefghijklm", l.Line(9))
}

func TestRefreshPolicy(t *testing.T) {
	svc, p, st := newSvc(t, 3)

	assert.True(t, svc.tick())  // first render is full
	assert.False(t, svc.tick()) // unchanged snapshot skipped
	for i := 1; i <= 4; i++ {
		st.UpdateSensor(types.Reading{VoltageMilliV: uint16(i)})
		assert.True(t, svc.tick())
	}
	assert.Equal(t, []RefreshMode{RefreshFull, RefreshPartial, RefreshPartial, RefreshPartial, RefreshFull}, p.modes)
	assert.Greater(t, p.ink[0], 0, "text drawn into frame")
}

func TestPanelErrorForcesFullRefresh(t *testing.T) {
	svc, p, st := newSvc(t, 30)
	svc.tick()

	st.UpdateRxText("hello")
	p.fail = true
	assert.True(t, svc.tick())
	// Snapshot was not marked rendered: retried on the next tick.
	p.fail = false
	assert.True(t, svc.tick())
	assert.Equal(t, []RefreshMode{RefreshFull, RefreshPartial, RefreshFull}, p.modes)
	assert.False(t, svc.tick())
}

func TestNewRejectsNilPanel(t *testing.T) {
	_, err := New(nil, store.New(0), zerolog.Nop(), Config{})
	assert.Error(t, err)
}
