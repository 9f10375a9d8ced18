package config

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog"

	"powermon-go/bus"
	"powermon-go/errcode"
	"powermon-go/gatt"
	"powermon-go/types"
)

// -----------------------------------------------------------------------------
// String constants (live in flash, not RAM)
// -----------------------------------------------------------------------------

const (
	serviceName  = "config"
	configPrefix = "config"
	CtxDeviceKey = "device" // context key used for device ID
)

// EmbeddedConfigLookup allows overriding how configs are resolved.
var EmbeddedConfigLookup = func(device string) ([]byte, bool) {
	b, ok := embeddedConfigs[device]
	return b, ok
}

// Defaults returns the board defaults every loaded config starts from.
func Defaults() types.Config {
	return types.Config{
		Sensor: types.SensorConfig{
			I2CBus:           0,
			SDA:              0,
			SCL:              1,
			Addr:             0x40,
			ShuntMicroOhm:    15000,
			MaxCurrentMilliA: 10000,
			I2CHz:            400_000,
			PeriodMs:         1000,
		},
		Battery:   types.BatteryConfig{VMinMilliV: 36000, VMaxMilliV: 54000},
		Store:     types.StoreConfig{RxCapacity: 64},
		Wireless:  types.WirelessConfig{Name: gatt.LocalName, NotifyMs: 1000, AdvIntervalMs: gatt.AdvIntervalMs},
		Display:   types.DisplayConfig{PeriodMs: 1000, FullEvery: 30},
		Heartbeat: types.HeartbeatConfig{Interval: 10},
	}
}

// Load decodes the embedded config for device over Defaults and validates it.
func Load(device string) (types.Config, error) {
	raw, ok := EmbeddedConfigLookup(device)
	if !ok || len(raw) == 0 {
		return types.Config{}, errcode.Wrap(errcode.InvalidConfig, "config.Load", errors.New("no embedded config for device: "+device))
	}
	cfg := Defaults()
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return types.Config{}, errcode.Wrap(errcode.InvalidConfig, "config.Load", err)
	}
	if err := Validate(cfg); err != nil {
		return types.Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges the services rely on.
func Validate(c types.Config) error {
	fail := func(msg string) error {
		return &errcode.E{C: errcode.InvalidConfig, Op: "config.Validate", Msg: msg}
	}
	switch {
	case c.Sensor.PeriodMs == 0:
		return fail("sensor.period_ms must be positive")
	case c.Sensor.I2CBus > 1:
		return fail("sensor.i2c_bus must be 0 or 1")
	case c.Sensor.SDA == c.Sensor.SCL:
		return fail("sensor.sda and sensor.scl must differ")
	case c.Sensor.ShuntMicroOhm == 0:
		return fail("sensor.shunt_uohm must be non-zero")
	case c.Sensor.MaxCurrentMilliA == 0:
		return fail("sensor.max_current_mA must be non-zero")
	case c.Battery.VMinMilliV >= c.Battery.VMaxMilliV:
		return fail("battery.vmin_mV must be below vmax_mV")
	case c.Store.RxCapacity < 1 || c.Store.RxCapacity > 512:
		return fail("store.rx_capacity must be 1..512")
	case c.Wireless.NotifyMs == 0:
		return fail("wireless.notify_ms must be positive")
	case c.Display.PeriodMs == 0:
		return fail("display.period_ms must be positive")
	case c.Heartbeat.Interval <= 0:
		return fail("heartbeat.interval must be positive")
	}
	return nil
}

// -----------------------------------------------------------------------------
// Config Service
// -----------------------------------------------------------------------------

type ConfigService struct {
	Name string
	log  zerolog.Logger
}

func NewConfigService(log zerolog.Logger) *ConfigService {
	return &ConfigService{Name: serviceName, log: log}
}

// publishConfig reads the device config from embedded data and publishes it as retained messages.
func (s *ConfigService) publishConfig(ctx context.Context, conn *bus.Connection) error {
	device, _ := ctx.Value(CtxDeviceKey).(string)
	if device == "" {
		return errors.New("missing device ID in context")
	}

	raw, ok := EmbeddedConfigLookup(device)
	if !ok || len(raw) == 0 {
		return errors.New("no embedded config for device: " + device)
	}

	var m map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&m); err != nil {
		return errcode.Wrap(errcode.InvalidConfig, "config.publish", err)
	}

	for k, v := range m {
		conn.Publish(&bus.Message{
			Topic:    bus.T(configPrefix, k),
			Payload:  v,
			Retained: true,
		})
	}
	return nil
}

// Start launches the config publisher in a goroutine.
func (s *ConfigService) Start(ctx context.Context, conn *bus.Connection) {
	go func() {
		if err := s.publishConfig(ctx, conn); err != nil {
			s.log.Error().Err(err).Msg("config publish failed")
		}
	}()
}
