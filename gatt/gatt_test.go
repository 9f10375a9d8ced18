package gatt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"powermon-go/types"
)

func TestEncodeScenarioReading(t *testing.T) {
	r := types.Reading{
		VoltageMilliV: 3700,
		CurrentMilliA: 1500,
		PowerDeciW:    50,
		TempCentiC:    2500,
		BatteryPct:    42,
	}
	assert.Equal(t, []byte{0x74, 0x0E}, Encode(nil, FieldVoltage, r))
	assert.Equal(t, []byte{0xDC, 0x05}, Encode(nil, FieldCurrent, r))
	assert.Equal(t, []byte{0x05, 0x00}, Encode(nil, FieldPower, r))
	assert.Equal(t, []byte{42}, Encode(nil, FieldBattery, r))
	assert.Equal(t, []byte{0xC4, 0x09}, Encode(nil, FieldTemperature, r))
	assert.Empty(t, Encode(nil, FieldRX, r))
}

func TestEncodeSignedAndClamped(t *testing.T) {
	r := types.Reading{CurrentMilliA: -2, TempCentiC: -1050, BatteryPct: 250}
	assert.Equal(t, []byte{0xFE, 0xFF}, Encode(nil, FieldCurrent, r))
	assert.Equal(t, []byte{0xE6, 0xFB}, Encode(nil, FieldTemperature, r))
	assert.Equal(t, []byte{100}, Encode(nil, FieldBattery, r))
}

func TestPowerWattsRounding(t *testing.T) {
	assert.Equal(t, uint16(0), PowerWatts(4))
	assert.Equal(t, uint16(1), PowerWatts(5))
	assert.Equal(t, uint16(6554), PowerWatts(0xFFFF))
}

func TestDecodeRoundTripsPublishedFields(t *testing.T) {
	in := types.Reading{VoltageMilliV: 48123, CurrentMilliA: -12000, PowerDeciW: 5780, TempCentiC: 3125, BatteryPct: 67}
	var out types.Reading
	for _, f := range Published {
		require.NoError(t, Decode(f, Encode(nil, f, in), &out), f.String())
	}
	assert.Equal(t, in, out)
}

func TestDecodeErrors(t *testing.T) {
	var r types.Reading
	assert.ErrorIs(t, Decode(FieldVoltage, []byte{1}, &r), ErrShortValue)
	assert.Error(t, Decode(FieldRX, []byte("hi"), &r))
	assert.Error(t, Decode(Field(42), nil, &r))
}

func TestByUUID16(t *testing.T) {
	f, ok := ByUUID16(0x2A19)
	require.True(t, ok)
	assert.Equal(t, FieldBattery, f)
	_, ok = ByUUID16(0)
	assert.False(t, ok)
}
