package central

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"powermon-go/gatt"
	"powermon-go/types"
)

func TestTrackerAppliesNotifications(t *testing.T) {
	tr := NewTracker()
	want := types.Reading{VoltageMilliV: 37125, CurrentMilliA: -20, PowerDeciW: 50, TempCentiC: 2500, BatteryPct: 42}

	for _, f := range gatt.Published {
		require.NoError(t, tr.Apply(f, gatt.Encode(nil, f, want)))
	}

	got, seq, at := tr.Latest()
	assert.Equal(t, want, got)
	assert.Equal(t, uint64(len(gatt.Published)), seq)
	assert.False(t, at.IsZero())
}

func TestTrackerRejectsShortValue(t *testing.T) {
	tr := NewTracker()
	require.NoError(t, tr.Apply(gatt.FieldVoltage, []byte{0x10, 0x27}))

	err := tr.Apply(gatt.FieldVoltage, []byte{0x01})
	assert.ErrorIs(t, err, gatt.ErrShortValue)
	assert.Error(t, tr.Apply(gatt.FieldRX, []byte("x")))

	r, seq, _ := tr.Latest()
	assert.Equal(t, uint16(10000), r.VoltageMilliV)
	assert.Equal(t, uint64(1), seq)
	assert.Equal(t, uint64(2), tr.Errors())
}

func TestTrackerNextWakesOnUpdate(t *testing.T) {
	tr := NewTracker()
	done := make(chan types.Reading, 1)
	go func() {
		r, _, err := tr.Next(context.Background(), 0)
		if err == nil {
			done <- r
		}
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, tr.Apply(gatt.FieldBattery, []byte{77}))

	select {
	case r := <-done:
		assert.Equal(t, uint8(77), r.BatteryPct)
	case <-time.After(time.Second):
		t.Fatal("Next did not wake")
	}
}

func TestTrackerNextHonoursContext(t *testing.T) {
	tr := NewTracker()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, _, err := tr.Next(ctx, 0)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
