package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Key: device ID (same value placed in ctx under CtxDeviceKey)
// Val: raw JSON bytes for that device
// -----------------------------------------------------------------------------

const cfgPicoW = `{
  "sensor": {
    "i2c_bus": 0,
    "sda": 0,
    "scl": 1,
    "addr": 64,
    "shunt_uohm": 15000,
    "max_current_mA": 10000,
    "i2c_hz": 400000,
    "period_ms": 1000
  },
  "battery": {
    "vmin_mV": 36000,
    "vmax_mV": 54000
  },
  "store": {
    "rx_capacity": 64
  },
  "wireless": {
    "name": "EBikeSensor",
    "notify_ms": 1000,
    "adv_interval_ms": 250
  },
  "display": {
    "period_ms": 1000,
    "full_every": 30
  },
  "heartbeat": {
    "interval": 10
  }
}`

// Pico 2 W carries the same board wiring.
const cfgPico2W = cfgPicoW

const cfgHost = `{
  "sensor": {
    "period_ms": 1000
  },
  "heartbeat": {
    "interval": 2
  }
}`

var embeddedConfigs = map[string][]byte{
	"pico-w":  []byte(cfgPicoW),
	"pico2-w": []byte(cfgPico2W),
	"host":    []byte(cfgHost),
}
