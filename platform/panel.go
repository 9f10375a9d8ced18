//go:build rp2040 || rp2350

package platform

import (
	"machine"

	"tinygo.org/x/drivers/waveshare-epd/epd2in13"

	"powermon-go/errcode"
	"powermon-go/services/display"
)

// PanelConfig wires a Waveshare 2.13" e-paper module on SPI1.
type PanelConfig struct {
	SCK, SDO          machine.Pin
	CS, DC, RST, Busy machine.Pin
	Width, Height     int16
	FrequencyHz       uint32
}

// PicoEPaperPins is the pinout of the Pico e-Paper 2.13 HAT.
var PicoEPaperPins = PanelConfig{
	SCK: machine.GP10, SDO: machine.GP11,
	CS: machine.GP9, DC: machine.GP8, RST: machine.GP12, Busy: machine.GP13,
	Width: display.DefaultWidth, Height: display.DefaultHeight,
	FrequencyHz: 4_000_000,
}

// Panel renders display frames on the e-paper module.
type Panel struct {
	dev     epd2in13.Device
	lutFull bool
	lutSet  bool
}

var _ display.Panel = (*Panel)(nil)

func NewPanel(cfg PanelConfig) (*Panel, error) {
	spi := machine.SPI1
	err := spi.Configure(machine.SPIConfig{
		Frequency: cfg.FrequencyHz,
		SCK:       cfg.SCK,
		SDO:       cfg.SDO,
	})
	if err != nil {
		return nil, errcode.Wrap(errcode.PanelFailed, "panel.spi", err)
	}
	cfg.CS.Configure(machine.PinConfig{Mode: machine.PinOutput})
	cfg.DC.Configure(machine.PinConfig{Mode: machine.PinOutput})
	cfg.RST.Configure(machine.PinConfig{Mode: machine.PinOutput})
	cfg.Busy.Configure(machine.PinConfig{Mode: machine.PinInput})

	p := &Panel{dev: epd2in13.New(spi, cfg.CS, cfg.DC, cfg.RST, cfg.Busy)}
	p.dev.Configure(epd2in13.Config{Width: cfg.Width, Height: cfg.Height})
	p.dev.ClearBuffer()
	p.dev.ClearDisplay()
	return p, nil
}

// Render copies the frame into the panel buffer and refreshes. The LUT is
// switched only when the mode changes.
func (p *Panel) Render(f *display.Frame, mode display.RefreshMode) error {
	full := mode == display.RefreshFull
	if !p.lutSet || p.lutFull != full {
		p.dev.SetLUT(full)
		p.lutFull, p.lutSet = full, true
	}

	w, h := f.Size()
	for y := int16(0); y < h; y++ {
		for x := int16(0); x < w; x++ {
			c := display.White
			if f.Ink(x, y) {
				c = display.Black
			}
			p.dev.SetPixel(x, y, c)
		}
	}
	if err := p.dev.Display(); err != nil {
		return errcode.Wrap(errcode.PanelFailed, "panel.display", err)
	}
	p.dev.WaitUntilIdle()
	return nil
}
