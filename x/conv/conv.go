// Package conv formats integers into caller-owned buffers without fmt or
// strconv, for status lines on the MCU.
package conv

// Utoa writes n in base 10 into the tail of buf and returns the used slice.
// buf should be at least 20 bytes for a full uint64.
func Utoa(buf []byte, n uint64) []byte {
	return buf[digits(buf, len(buf), n, 0):]
}

// Itoa is Utoa for signed values.
func Itoa(buf []byte, n int64) []byte {
	return Fixed(buf, n, 0)
}

// Fixed writes n as a decimal with frac fractional digits (n is in units of
// 10^-frac) into the tail of buf and returns the used slice.
// Fixed(buf, 37125, 3) => "37.125", Fixed(buf, -5, 2) => "-0.05".
func Fixed(buf []byte, n int64, frac int) []byte {
	u := uint64(n)
	if n < 0 {
		u = uint64(-n)
	}
	i := digits(buf, len(buf), u, frac)
	if n < 0 && i > 0 {
		i--
		buf[i] = '-'
	}
	return buf[i:]
}

// digits writes u backwards ending at buf[i-1], with a point after frac
// digits and at least one integer digit. It returns the new start index.
func digits(buf []byte, i int, u uint64, frac int) int {
	for d := 0; d < frac && i > 0; d++ {
		i--
		buf[i] = byte('0' + u%10)
		u /= 10
	}
	if frac > 0 && i > 0 {
		i--
		buf[i] = '.'
	}
	for first := true; (u > 0 || first) && i > 0; first = false {
		i--
		buf[i] = byte('0' + u%10)
		u /= 10
	}
	return i
}
