package types

// Config is the typed firmware configuration. Top-level keys are also
// published retained on config/<key>.
type Config struct {
	Sensor    SensorConfig    `json:"sensor"`
	Battery   BatteryConfig   `json:"battery"`
	Store     StoreConfig     `json:"store"`
	Wireless  WirelessConfig  `json:"wireless"`
	Display   DisplayConfig   `json:"display"`
	Heartbeat HeartbeatConfig `json:"heartbeat"`
}

// SensorConfig describes the INA228 and its bus. SDA and SCL are RP2 GPIO
// numbers.
type SensorConfig struct {
	I2CBus           uint8  `json:"i2c_bus"`
	SDA              uint8  `json:"sda"`
	SCL              uint8  `json:"scl"`
	Addr             uint16 `json:"addr"`
	ShuntMicroOhm    uint32 `json:"shunt_uohm"`
	MaxCurrentMilliA uint32 `json:"max_current_mA"`
	I2CHz            uint32 `json:"i2c_hz"`
	PeriodMs         uint32 `json:"period_ms"`
}

// BatteryConfig is the pack voltage window used for the battery percentage.
type BatteryConfig struct {
	VMinMilliV uint32 `json:"vmin_mV"`
	VMaxMilliV uint32 `json:"vmax_mV"`
}

type StoreConfig struct {
	RxCapacity int `json:"rx_capacity"`
}

type WirelessConfig struct {
	Name          string `json:"name"`
	NotifyMs      uint32 `json:"notify_ms"`
	AdvIntervalMs uint32 `json:"adv_interval_ms"`
}

type DisplayConfig struct {
	PeriodMs  uint32 `json:"period_ms"`
	FullEvery int    `json:"full_every"`
}

type HeartbeatConfig struct {
	Interval float64 `json:"interval"` // seconds
}
