// Package sample is the host-side view of one telemetry reading, in SI
// units, as published over MQTT and stored by the recorder.
package sample

import (
	"time"

	"powermon-go/gatt"
	"powermon-go/types"
)

type Sample struct {
	Device     string    `json:"device"`
	Timestamp  time.Time `json:"timestamp"`
	VoltageV   float64   `json:"voltage_v"`
	CurrentA   float64   `json:"current_a"`
	PowerW     float64   `json:"power_w"`
	TempC      float64   `json:"temperature_c"`
	BatteryPct uint8     `json:"battery_pct"`
}

// FromReading converts a decoded reading. Power is rounded to whole watts,
// the resolution carried on the air.
func FromReading(device string, ts time.Time, r types.Reading) Sample {
	return Sample{
		Device:     device,
		Timestamp:  ts.UTC(),
		VoltageV:   float64(r.VoltageMilliV) / 1000,
		CurrentA:   float64(r.CurrentMilliA) / 1000,
		PowerW:     float64(gatt.PowerWatts(r.PowerDeciW)),
		TempC:      float64(r.TempCentiC) / 100,
		BatteryPct: r.BatteryPct,
	}
}
