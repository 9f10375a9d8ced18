// Package gatt holds the characteristic table of the telemetry service and
// the wire codecs shared by the firmware and the host terminal.
//
// All multi-byte values are little-endian.
package gatt

import (
	"encoding/binary"
	"errors"

	"powermon-go/types"
)

// Field identifies a characteristic of the telemetry service.
type Field uint8

const (
	FieldVoltage Field = iota
	FieldCurrent
	FieldPower
	FieldBattery
	FieldTemperature
	FieldRX
)

const (
	ServiceUUID16 uint16 = 0x180F
	RXUUID               = "12345678-1234-5678-1234-56789abcdef0"

	// Advertising defaults.
	LocalName     = "EBikeSensor"
	Appearance    = 1344 // generic sensor
	AdvIntervalMs = 250
)

var ErrShortValue = errors.New("gatt: value too short")

// Characteristic describes one entry of the table.
type Characteristic struct {
	Field  Field
	Name   string
	UUID16 uint16 // zero for the custom RX characteristic
	Size   int    // wire size in bytes; zero for variable length
	Notify bool
	Write  bool
}

// Table lists every characteristic in service order.
var Table = [...]Characteristic{
	{Field: FieldVoltage, Name: "voltage", UUID16: 0x2B18, Size: 2, Notify: true},
	{Field: FieldCurrent, Name: "current", UUID16: 0x2704, Size: 2, Notify: true},
	{Field: FieldPower, Name: "power", UUID16: 0x2726, Size: 2, Notify: true},
	{Field: FieldBattery, Name: "battery", UUID16: 0x2A19, Size: 1, Notify: true},
	{Field: FieldTemperature, Name: "temperature", UUID16: 0x2A6E, Size: 2, Notify: true},
	{Field: FieldRX, Name: "rx", Write: true},
}

// Published are the fields pushed to the owner on every notify tick.
var Published = [...]Field{FieldVoltage, FieldCurrent, FieldPower, FieldBattery, FieldTemperature}

func (f Field) Info() (Characteristic, bool) {
	if int(f) >= len(Table) {
		return Characteristic{}, false
	}
	return Table[f], true
}

func (f Field) String() string {
	if c, ok := f.Info(); ok {
		return c.Name
	}
	return "unknown"
}

// ByUUID16 resolves a 16-bit characteristic UUID.
func ByUUID16(u uint16) (Field, bool) {
	for _, c := range Table {
		if c.UUID16 != 0 && c.UUID16 == u {
			return c.Field, true
		}
	}
	return 0, false
}

// PowerWatts converts the stored 0.1 W value to whole watts, rounded.
func PowerWatts(deciW uint16) uint16 {
	return uint16((uint32(deciW) + 5) / 10)
}

// Encode appends the wire form of field f of r to dst.
// FieldRX is write-only and encodes to nothing.
func Encode(dst []byte, f Field, r types.Reading) []byte {
	switch f {
	case FieldVoltage:
		return binary.LittleEndian.AppendUint16(dst, r.VoltageMilliV)
	case FieldCurrent:
		return binary.LittleEndian.AppendUint16(dst, uint16(r.CurrentMilliA))
	case FieldPower:
		return binary.LittleEndian.AppendUint16(dst, PowerWatts(r.PowerDeciW))
	case FieldBattery:
		pct := r.BatteryPct
		if pct > 100 {
			pct = 100
		}
		return append(dst, pct)
	case FieldTemperature:
		return binary.LittleEndian.AppendUint16(dst, uint16(r.TempCentiC))
	}
	return dst
}

// Decode applies a notified value of field f to r. Power arrives in whole
// watts and is stored back in 0.1 W, saturating.
func Decode(f Field, b []byte, r *types.Reading) error {
	c, ok := f.Info()
	if !ok || f == FieldRX {
		return errors.New("gatt: field not decodable: " + f.String())
	}
	if len(b) < c.Size {
		return ErrShortValue
	}
	switch f {
	case FieldVoltage:
		r.VoltageMilliV = binary.LittleEndian.Uint16(b)
	case FieldCurrent:
		r.CurrentMilliA = int16(binary.LittleEndian.Uint16(b))
	case FieldPower:
		w := uint32(binary.LittleEndian.Uint16(b)) * 10
		if w > 0xFFFF {
			w = 0xFFFF
		}
		r.PowerDeciW = uint16(w)
	case FieldBattery:
		r.BatteryPct = b[0]
	case FieldTemperature:
		r.TempCentiC = int16(binary.LittleEndian.Uint16(b))
	}
	return nil
}
