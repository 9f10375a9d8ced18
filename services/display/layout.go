package display

import (
	"powermon-go/services/store"
	"powermon-go/types"
	"powermon-go/x/conv"
)

const (
	NumLines = 10
	lineCap  = 32
	rxChars  = 13
)

// Layout holds the text lines of one screen in fixed buffers.
type Layout struct {
	buf   [NumLines][lineCap]byte
	lines [NumLines][]byte
	num   [24]byte
}

// Build formats rec and its interpreted RX command.
func (l *Layout) Build(rec types.TelemetryRecord, cmd types.RxCommand) {
	r := rec.Reading
	l.set(0, "Battery Monitor")
	l.fixed(1, "V: ", int64(r.VoltageMilliV), 3, "V")
	l.fixed(2, "I: ", int64(r.CurrentMilliA), 0, "mA")
	l.fixed(3, "P: ", int64(r.PowerDeciW), 1, "W")
	l.fixed(4, "T: ", int64(r.TempCentiC), 2, "C")
	l.fixed(5, "BAT: ", int64(r.BatteryPct), 0, "%")
	l.set(6, "PAS: ")
	l.add(6, store.Truncate(cmd.PAS, rxChars))
	l.fixed(7, "SPD: ", int64(cmd.SpeedDeciKmh), 1, "km/h")
	l.fixed(8, "RNG: ", int64(cmd.RangeDeciKm), 1, "km")
	l.set(9, "RX: ")
	l.add(9, store.Truncate(rec.RxText, rxChars))
}

// Line returns line i as a string.
func (l *Layout) Line(i int) string { return string(l.lines[i]) }

func (l *Layout) set(i int, s string) {
	l.lines[i] = append(l.buf[i][:0], s...)
}

func (l *Layout) add(i int, s string) {
	l.lines[i] = append(l.lines[i], s...)
}

func (l *Layout) fixed(i int, label string, n int64, frac int, unit string) {
	l.set(i, label)
	l.lines[i] = append(l.lines[i], conv.Fixed(l.num[:], n, frac)...)
	l.add(i, unit)
}
