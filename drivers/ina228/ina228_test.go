package ina228

import (
	"errors"
	"testing"
)

// fakeI2C is a register file addressed by the first written byte.
type fakeI2C struct {
	addr   uint16
	regs   map[byte][]byte
	writes map[byte][]uint16
	failOn byte
	fail   bool
}

func newFake() *fakeI2C {
	return &fakeI2C{regs: map[byte][]byte{}, writes: map[byte][]uint16{}}
}

func (f *fakeI2C) Tx(addr uint16, w, r []byte) error {
	f.addr = addr
	if len(w) == 0 {
		return errors.New("no register")
	}
	if f.fail && w[0] == f.failOn {
		return errors.New("nack")
	}
	if len(w) == 3 {
		f.writes[w[0]] = append(f.writes[w[0]], uint16(w[1])<<8|uint16(w[2]))
		return nil
	}
	v := f.regs[w[0]]
	for i := range r {
		if i < len(v) {
			r[i] = v[i]
		} else {
			r[i] = 0
		}
	}
	return nil
}

func u24(v uint32) []byte { return []byte{byte(v >> 16), byte(v >> 8), byte(v)} }

// s20 packs a signed 20-bit value into bits 23:4.
func s20(v int32) []byte { return u24(uint32(v<<4) & 0xFFFFFF) }

func configured(t *testing.T) (*Device, *fakeI2C) {
	t.Helper()
	f := newFake()
	d := New(f, 0)
	if err := d.Configure(Config{ShuntMicroOhm: 15000, MaxCurrentMilliA: 10000}); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	return d, f
}

func TestCalibrationMaths(t *testing.T) {
	lsb := CurrentLSBNanoA(10000)
	if lsb != 19073 {
		t.Fatalf("CurrentLSBNanoA = %d, want 19073", lsb)
	}
	if got := ShuntCal(lsb, 15000, false); got != 3749 {
		t.Fatalf("ShuntCal = %d, want 3749", got)
	}
	if got := ShuntCal(lsb, 15000, true); got != 3749*4 {
		t.Fatalf("ShuntCal(high) = %d, want %d", got, 3749*4)
	}
}

func TestConfigureWritesSequence(t *testing.T) {
	_, f := configured(t)
	if f.addr != AddressDefault {
		t.Fatalf("addr = %#x", f.addr)
	}
	cfg := f.writes[regConfig]
	if len(cfg) != 2 || cfg[0] != configRST || cfg[1] != 0 {
		t.Fatalf("CONFIG writes = %#v", cfg)
	}
	if w := f.writes[regADCConfig]; len(w) != 1 || w[0] != ADCConfigDefault {
		t.Fatalf("ADC_CONFIG writes = %#v", w)
	}
	if w := f.writes[regShuntCal]; len(w) != 1 || w[0] != 3749 {
		t.Fatalf("SHUNT_CAL writes = %#v", w)
	}
}

func TestConfigureRejectsMissingShunt(t *testing.T) {
	d := New(newFake(), 0)
	if err := d.Configure(Config{MaxCurrentMilliA: 10000}); err == nil {
		t.Fatal("expected validation error")
	}
	if _, err := d.CurrentMilliA(); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("CurrentMilliA err = %v", err)
	}
}

func TestProbe(t *testing.T) {
	f := newFake()
	f.regs[regManufacturerID] = []byte{0x54, 0x49}
	f.regs[regDeviceID] = []byte{0x22, 0x81}
	d := New(f, 0x41)
	if err := d.Probe(); err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if f.addr != 0x41 {
		t.Fatalf("addr = %#x", f.addr)
	}
	f.regs[regDeviceID] = []byte{0x22, 0x70}
	if err := d.Probe(); !errors.Is(err, ErrNotINA228) {
		t.Fatalf("Probe err = %v", err)
	}
}

func TestMeasure(t *testing.T) {
	d, f := configured(t)
	// 37.125 V => 190080 LSB of 195.3125 µV.
	f.regs[regVBus] = s20(190080)
	// 1500 mA at 19073 nA per LSB.
	f.regs[regCurrent] = s20(78650)
	// 5000 mW => raw = 5000e7 / (19073*32) = 81925.
	f.regs[regPower] = u24(81925)
	// 25 °C => 3200 LSB of 7.8125 m°C.
	f.regs[regDieTemp] = []byte{0x0C, 0x80}

	m, err := d.Measure()
	if err != nil {
		t.Fatalf("Measure: %v", err)
	}
	if m.BusMilliV != 37125 {
		t.Errorf("BusMilliV = %d", m.BusMilliV)
	}
	if m.CurrentMilliA != 1500 {
		t.Errorf("CurrentMilliA = %d", m.CurrentMilliA)
	}
	if m.PowerMilliW != 5000 {
		t.Errorf("PowerMilliW = %d", m.PowerMilliW)
	}
	if m.DieTempMilliC != 25000 {
		t.Errorf("DieTempMilliC = %d", m.DieTempMilliC)
	}
}

func TestNegativeCurrentAndTemp(t *testing.T) {
	d, f := configured(t)
	f.regs[regCurrent] = s20(-52429)         // ≈ -1 A
	f.regs[regDieTemp] = []byte{0xFF, 0x00} // -256 LSB = -2 °C

	i, err := d.CurrentMilliA()
	if err != nil || i != -999 {
		t.Fatalf("CurrentMilliA = %d, %v", i, err)
	}
	tc, err := d.DieTempMilliC()
	if err != nil || tc != -2000 {
		t.Fatalf("DieTempMilliC = %d, %v", tc, err)
	}
}

func TestShuntNanoV(t *testing.T) {
	d, f := configured(t)
	f.regs[regVShunt] = s20(-3200) // -1 mV at 312.5 nV
	v, err := d.ShuntNanoV()
	if err != nil || v != -1_000_000 {
		t.Fatalf("ShuntNanoV = %d, %v", v, err)
	}
}

func TestMeasureAbortsOnError(t *testing.T) {
	d, f := configured(t)
	f.fail, f.failOn = true, regPower
	if _, err := d.Measure(); err == nil {
		t.Fatal("expected error")
	}
}
