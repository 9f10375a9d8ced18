// config/config_test.go
package config

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"powermon-go/bus"
	"powermon-go/errcode"
)

func withLookup(t *testing.T, f func(device string) ([]byte, bool)) {
	t.Helper()
	old := EmbeddedConfigLookup
	EmbeddedConfigLookup = f
	t.Cleanup(func() { EmbeddedConfigLookup = old })
}

func TestConfig_PublishEmbedded_RetainedPerKey(t *testing.T) {
	withLookup(t, func(device string) ([]byte, bool) {
		if device != "pico" {
			return nil, false
		}
		return []byte(`{
			"mode": "dev",
			"debug": true,
			"heartbeat": {"interval": 2}
		}`), true
	})

	b := bus.NewBus(16)
	conn := b.NewConnection("test-config")
	svc := NewConfigService(zerolog.Nop())

	ctx := context.WithValue(context.Background(), CtxDeviceKey, "pico")
	svc.Start(ctx, conn)

	sub := conn.Subscribe(bus.Topic{configPrefix, "#"})

	wantCount := 3
	got := map[string]any{}
	deadline := time.Now().Add(600 * time.Millisecond)
	for len(got) < wantCount && time.Now().Before(deadline) {
		select {
		case m := <-sub.Channel():
			if len(m.Topic) < 2 {
				t.Fatalf("unexpected topic length: %#v", m.Topic)
			}
			if prefix, ok := m.Topic[0].(string); !ok || prefix != configPrefix {
				t.Fatalf("unexpected prefix: %#v", m.Topic[0])
			}
			key, ok := m.Topic[1].(string)
			if !ok {
				t.Fatalf("topic[1] type %T, want string", m.Topic[1])
			}
			got[key] = m.Payload
		case <-time.After(10 * time.Millisecond):
		}
	}
	require.Len(t, got, wantCount)
	assert.Equal(t, "dev", got["mode"])
	assert.Equal(t, true, got["debug"])
	assert.Equal(t, map[string]any{"interval": float64(2)}, got["heartbeat"])
}

func TestConfig_PublishConfig_MissingDevice(t *testing.T) {
	b := bus.NewBus(4)
	svc := NewConfigService(zerolog.Nop())
	assert.Error(t, svc.publishConfig(context.Background(), b.NewConnection("t")))
}

func TestConfig_PublishConfig_NoConfigFound(t *testing.T) {
	withLookup(t, func(string) ([]byte, bool) { return nil, false })
	b := bus.NewBus(4)
	svc := NewConfigService(zerolog.Nop())
	ctx := context.WithValue(context.Background(), CtxDeviceKey, "unknown-device")
	assert.Error(t, svc.publishConfig(ctx, b.NewConnection("t")))
}

func TestLoadEmbeddedBoards(t *testing.T) {
	for _, dev := range []string{"pico-w", "pico2-w", "host"} {
		cfg, err := Load(dev)
		require.NoError(t, err, dev)
		assert.Equal(t, uint32(15000), cfg.Sensor.ShuntMicroOhm, dev)
		assert.Equal(t, 64, cfg.Store.RxCapacity, dev)
	}
	cfg, _ := Load("pico-w")
	assert.Equal(t, uint8(0), cfg.Sensor.I2CBus)
	assert.Equal(t, uint8(0), cfg.Sensor.SDA)
	assert.Equal(t, uint8(1), cfg.Sensor.SCL)
	assert.Equal(t, uint32(400_000), cfg.Sensor.I2CHz)

	cfg, _ = Load("host")
	assert.Equal(t, float64(2), cfg.Heartbeat.Interval)
	assert.Equal(t, "EBikeSensor", cfg.Wireless.Name)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"window":   `{"battery": {"vmin_mV": 54000, "vmax_mV": 36000}}`,
		"capacity": `{"store": {"rx_capacity": 1000}}`,
		"shunt":    `{"sensor": {"shunt_uohm": 0}}`,
		"pins":     `{"sensor": {"sda": 4, "scl": 4}}`,
		"bus":      `{"sensor": {"i2c_bus": 2}}`,
		"period":   `{"display": {"period_ms": 0}}`,
		"syntax":   `{"sensor": `,
	}
	for name, doc := range cases {
		withLookup(t, func(string) ([]byte, bool) { return []byte(doc), true })
		_, err := Load("x")
		require.Error(t, err, name)
		assert.Equal(t, errcode.InvalidConfig, errcode.Of(err), name)
		assert.True(t, errcode.IsFatal(err), name)
	}
	withLookup(t, func(string) ([]byte, bool) { return nil, false })
	_, err := Load("missing")
	assert.Equal(t, errcode.InvalidConfig, errcode.Of(err))
}
