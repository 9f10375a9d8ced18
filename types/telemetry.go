package types

// ---- Telemetry (store + wire) ----

// Reading is the numeric field group of the telemetry record. It is always
// replaced as a whole.
type Reading struct {
	VoltageMilliV uint16 `json:"voltage_mV"`
	CurrentMilliA int16  `json:"current_mA"`
	PowerDeciW    uint16 `json:"power_dW"`  // 0.1 W
	TempCentiC    int16  `json:"temp_cC"`   // 0.01 °C
	BatteryPct    uint8  `json:"battery_pct"`
}

// TelemetryRecord is the single shared record served to the owner and the
// display.
type TelemetryRecord struct {
	Reading
	RxText string `json:"rx_text"`
}

// RawReading is what a sensor driver returns. Integer-only.
type RawReading struct {
	BusMilliV     int32
	CurrentMilliA int32
	PowerMilliW   int32
	DieTempMilliC int32
}

// RxCommand is the display-side interpretation of RxText.
// Speed and range are in tenths (km/h, km).
type RxCommand struct {
	PAS          string
	SpeedDeciKmh int32
	RangeDeciKm  int32
	DistDeciKm   int32
}
