// Package ina228 provides a minimal TinyGo driver for the TI INA228
// 85 V, 20-bit power/energy/charge monitor.
//
// Design notes (datasheet references):
// • I2C up to 1 MHz (400 kHz used here); registers are big-endian, 16 or 24 bits.
// • VBUS, VSHUNT and CURRENT carry 20-bit values in bits 23:4.
// • CURRENT_LSB = max expected current / 2^19; SHUNT_CAL = 13107.2e6 × CURRENT_LSB × RSHUNT,
//   multiplied by 4 when ADCRANGE selects ±40.96 mV.
// • Integer-only scaling throughout.
package ina228

import (
	"errors"

	"tinygo.org/x/drivers"
)

const AddressDefault = 0x40

var (
	ErrNotINA228     = errors.New("ina228: unexpected manufacturer or device id")
	ErrNotConfigured = errors.New("ina228: shunt calibration not configured")
)

// Config is integer-only. Zero values select defaults where noted.
type Config struct {
	Address          uint16 // 0 => AddressDefault
	ShuntMicroOhm    uint32 // required
	MaxCurrentMilliA uint32 // required
	HighResolution   bool   // ADCRANGE=1 (±40.96 mV full scale)
	ADCConfig        uint16 // 0 => ADCConfigDefault
}

func (c Config) Validate() error {
	if c.ShuntMicroOhm == 0 {
		return errors.New("ina228: ShuntMicroOhm must be set")
	}
	if c.MaxCurrentMilliA == 0 {
		return errors.New("ina228: MaxCurrentMilliA must be set")
	}
	return nil
}

// Device represents an INA228 on an I²C bus.
type Device struct {
	i2c  drivers.I2C
	addr uint16

	lsbNanoA  uint32
	highRange bool

	// Fixed buffers to avoid per-call heap allocations.
	w [3]byte
	r [3]byte
}

// New constructs a Device. Call Configure before reading current or power.
func New(i2c drivers.I2C, addr uint16) *Device {
	if addr == 0 {
		addr = AddressDefault
	}
	return &Device{i2c: i2c, addr: addr}
}

// CurrentLSBNanoA returns the current LSB for a full-scale current.
func CurrentLSBNanoA(maxMilliA uint32) uint32 {
	return uint32(uint64(maxMilliA) * 1_000_000 / (1 << 19))
}

// ShuntCal returns the SHUNT_CAL register value.
func ShuntCal(lsbNanoA, shuntMicroOhm uint32, highRange bool) uint16 {
	cal := uint64(lsbNanoA) * uint64(shuntMicroOhm) * 131072 / 10_000_000_000
	if highRange {
		cal *= 4
	}
	if cal > 0x7FFF {
		cal = 0x7FFF // register is 15 bits
	}
	return uint16(cal)
}

// Probe checks the manufacturer and device identifiers.
func (d *Device) Probe() error {
	mfr, err := d.read16(regManufacturerID)
	if err != nil {
		return err
	}
	dev, err := d.read16(regDeviceID)
	if err != nil {
		return err
	}
	if mfr != ManufacturerTI || dev>>4 != DeviceINA228 {
		return ErrNotINA228
	}
	return nil
}

// Configure resets the device and programs ranges and calibration.
func (d *Device) Configure(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := d.write16(regConfig, configRST); err != nil {
		return err
	}
	var c uint16
	if cfg.HighResolution {
		c |= configADCRange
	}
	if err := d.write16(regConfig, c); err != nil {
		return err
	}
	adc := cfg.ADCConfig
	if adc == 0 {
		adc = ADCConfigDefault
	}
	if err := d.write16(regADCConfig, adc); err != nil {
		return err
	}
	lsb := CurrentLSBNanoA(cfg.MaxCurrentMilliA)
	if err := d.write16(regShuntCal, ShuntCal(lsb, cfg.ShuntMicroOhm, cfg.HighResolution)); err != nil {
		return err
	}
	d.lsbNanoA = lsb
	d.highRange = cfg.HighResolution
	return nil
}

// BusMilliV returns VBUS in mV (LSB 195.3125 µV).
func (d *Device) BusMilliV() (int32, error) {
	raw, err := d.read20(regVBus)
	if err != nil {
		return 0, err
	}
	return int32(int64(raw) * 1_953_125 / 10_000_000), nil
}

// ShuntNanoV returns VSHUNT in nV (LSB 312.5 nV, or 78.125 nV in high range).
func (d *Device) ShuntNanoV() (int64, error) {
	raw, err := d.read20(regVShunt)
	if err != nil {
		return 0, err
	}
	if d.highRange {
		return int64(raw) * 78_125 / 1000, nil
	}
	return int64(raw) * 3125 / 10, nil
}

// CurrentMilliA returns the calibrated current in mA.
func (d *Device) CurrentMilliA() (int32, error) {
	if d.lsbNanoA == 0 {
		return 0, ErrNotConfigured
	}
	raw, err := d.read20(regCurrent)
	if err != nil {
		return 0, err
	}
	return int32(int64(raw) * int64(d.lsbNanoA) / 1_000_000), nil
}

// PowerMilliW returns the calibrated power in mW (LSB 3.2 × CURRENT_LSB).
func (d *Device) PowerMilliW() (int32, error) {
	if d.lsbNanoA == 0 {
		return 0, ErrNotConfigured
	}
	raw, err := d.read24(regPower)
	if err != nil {
		return 0, err
	}
	mw := uint64(raw) * uint64(d.lsbNanoA) * 32 / 10_000_000
	if mw > 0x7FFFFFFF {
		mw = 0x7FFFFFFF
	}
	return int32(mw), nil
}

// DieTempMilliC returns the die temperature in m°C (LSB 7.8125 m°C).
func (d *Device) DieTempMilliC() (int32, error) {
	u, err := d.read16(regDieTemp)
	if err != nil {
		return 0, err
	}
	return int32(int64(int16(u)) * 78125 / 10000), nil
}

// Measurement is one full acquisition.
type Measurement struct {
	BusMilliV     int32
	CurrentMilliA int32
	PowerMilliW   int32
	DieTempMilliC int32
}

// Measure reads bus voltage, current, power and die temperature in one
// pass. The first failing transfer aborts the measurement.
func (d *Device) Measure() (Measurement, error) {
	var m Measurement
	var err error
	if m.BusMilliV, err = d.BusMilliV(); err != nil {
		return Measurement{}, err
	}
	if m.CurrentMilliA, err = d.CurrentMilliA(); err != nil {
		return Measurement{}, err
	}
	if m.PowerMilliW, err = d.PowerMilliW(); err != nil {
		return Measurement{}, err
	}
	if m.DieTempMilliC, err = d.DieTempMilliC(); err != nil {
		return Measurement{}, err
	}
	return m, nil
}
