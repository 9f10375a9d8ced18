//go:build rp2040 || rp2350

package platform

import (
	"machine"
	"time"

	"tinygo.org/x/drivers"

	"powermon-go/errcode"
)

// i2cReq is posted to the bus worker.
type i2cReq struct {
	addr uint16
	w, r []byte
	done chan error // buffered(1); worker replies best-effort
}

// I2COwner hosts a single worker goroutine per bus so transactions from
// different tasks never interleave.
type I2COwner struct {
	hw   *machine.I2C
	reqs chan i2cReq
	quit chan struct{}
}

// I2CConfig selects the bus instance and pins.
type I2CConfig struct {
	Bus uint8 // 0 or 1
	SDA machine.Pin
	SCL machine.Pin
	Hz  uint32
}

// NewI2COwner configures the bus and starts its worker.
func NewI2COwner(cfg I2CConfig) *I2COwner {
	hw := machine.I2C0
	if cfg.Bus == 1 {
		hw = machine.I2C1
	}
	cfg.SDA.Configure(machine.PinConfig{Mode: machine.PinI2C})
	cfg.SCL.Configure(machine.PinConfig{Mode: machine.PinI2C})
	hw.Configure(machine.I2CConfig{
		SCL:       cfg.SCL,
		SDA:       cfg.SDA,
		Frequency: cfg.Hz,
	})
	o := &I2COwner{
		hw:   hw,
		reqs: make(chan i2cReq, 16),
		quit: make(chan struct{}),
	}
	go o.loop()
	return o
}

func (o *I2COwner) loop() {
	for {
		select {
		case req := <-o.reqs:
			err := o.hw.Tx(req.addr, req.w, req.r)
			select {
			case req.done <- err:
			default:
			}
		case <-o.quit:
			return
		}
	}
}

func (o *I2COwner) Stop() { close(o.quit) }

// Client returns a drivers.I2C bound to this owner. timeout 0 means no
// deadline.
func (o *I2COwner) Client(timeout time.Duration) drivers.I2C {
	return &driversI2C{o: o, timeout: timeout}
}

// driversI2C adapts the owner to tinygo.org/x/drivers.I2C.
type driversI2C struct {
	o       *I2COwner
	timeout time.Duration
}

var _ drivers.I2C = (*driversI2C)(nil)

func (d *driversI2C) Tx(addr uint16, w, r []byte) error {
	req := i2cReq{addr: addr, w: w, r: r, done: make(chan error, 1)}

	if d.timeout <= 0 {
		d.o.reqs <- req
		return <-req.done
	}

	t := time.NewTimer(d.timeout)
	defer t.Stop()
	select {
	case d.o.reqs <- req:
	case <-t.C:
		return errcode.Busy
	}
	select {
	case err := <-req.done:
		return err
	case <-t.C:
		return errcode.Timeout
	}
}
