//go:build rp2040 || rp2350

package platform

import (
	"context"
	"machine"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"

	"powermon-go/services/console"
)

// UARTConfig selects the console UART.
type UARTConfig struct {
	Bus    uint8 // 0 or 1
	Baud   uint32
	TX, RX machine.Pin
}

// consolePort adapts uartx to console.Port.
type consolePort struct{ u *uartx.UART }

var _ console.Port = (*consolePort)(nil)

func (p *consolePort) Write(b []byte) (int, error) { return p.u.Write(b) }
func (p *consolePort) Readable() <-chan struct{}   { return p.u.Readable() }
func (p *consolePort) RecvSomeContext(ctx context.Context, buf []byte) (int, error) {
	return p.u.RecvSomeContext(ctx, buf)
}

// NewConsolePort configures the UART. Defaults inside uartx apply to zero
// fields.
func NewConsolePort(cfg UARTConfig) (console.Port, error) {
	hw := uartx.UART0
	if cfg.Bus == 1 {
		hw = uartx.UART1
	}
	if err := hw.Configure(uartx.UARTConfig{
		BaudRate: cfg.Baud,
		TX:       cfg.TX,
		RX:       cfg.RX,
	}); err != nil {
		return nil, err
	}
	return &consolePort{u: hw}, nil
}
