package sample

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"powermon-go/types"
)

func TestFromReading(t *testing.T) {
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	s := FromReading("bike", ts, types.Reading{
		VoltageMilliV: 37125,
		CurrentMilliA: -1500,
		PowerDeciW:    50,
		TempCentiC:    2500,
		BatteryPct:    42,
	})

	assert.Equal(t, "bike", s.Device)
	assert.Equal(t, time.UTC, s.Timestamp.Location())
	assert.True(t, s.Timestamp.Equal(ts))
	assert.InDelta(t, 37.125, s.VoltageV, 1e-9)
	assert.InDelta(t, -1.5, s.CurrentA, 1e-9)
	assert.InDelta(t, 5.0, s.PowerW, 1e-9)
	assert.InDelta(t, 25.0, s.TempC, 1e-9)
	assert.Equal(t, uint8(42), s.BatteryPct)
}
