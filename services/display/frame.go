package display

import "image/color"

var (
	Black = color.RGBA{A: 0xFF}
	White = color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
)

// Frame is a 1-bit framebuffer implementing drivers.Displayer, so tinyfont
// can draw into it. Set bits are ink.
type Frame struct {
	w, h   int16
	stride int
	buf    []byte
}

func NewFrame(w, h int16) *Frame {
	stride := (int(w) + 7) / 8
	return &Frame{w: w, h: h, stride: stride, buf: make([]byte, stride*int(h))}
}

func (f *Frame) Size() (x, y int16) { return f.w, f.h }

// SetPixel marks dark colours as ink. Out-of-range writes are ignored.
func (f *Frame) SetPixel(x, y int16, c color.RGBA) {
	if x < 0 || y < 0 || x >= f.w || y >= f.h {
		return
	}
	i := int(y)*f.stride + int(x)/8
	bit := byte(0x80) >> (uint(x) % 8)
	if c.A != 0 && (uint16(c.R)+uint16(c.G)+uint16(c.B))/3 < 0x80 {
		f.buf[i] |= bit
	} else {
		f.buf[i] &^= bit
	}
}

// Display is a no-op; the Panel flushes frames.
func (f *Frame) Display() error { return nil }

func (f *Frame) Ink(x, y int16) bool {
	if x < 0 || y < 0 || x >= f.w || y >= f.h {
		return false
	}
	return f.buf[int(y)*f.stride+int(x)/8]&(byte(0x80)>>(uint(x)%8)) != 0
}

func (f *Frame) Clear() {
	for i := range f.buf {
		f.buf[i] = 0
	}
}

// Bytes returns the packed rows, MSB first.
func (f *Frame) Bytes() []byte { return f.buf }

func (f *Frame) InkCount() int {
	n := 0
	for _, b := range f.buf {
		for ; b != 0; b &= b - 1 {
			n++
		}
	}
	return n
}
