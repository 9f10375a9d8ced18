package mathx

import "golang.org/x/exp/constraints"

// Clamp limits v to [lo, hi]. If lo > hi, the bounds are swapped.
func Clamp[T constraints.Integer](v, lo, hi T) T {
	if hi < lo {
		lo, hi = hi, lo
	}
	return min(max(v, lo), hi)
}

// Percent maps v linearly from [lo, hi] onto [0, 100], saturating outside
// the window. An empty window yields 0.
func Percent[T constraints.Integer](v, lo, hi T) uint8 {
	if hi <= lo {
		return 0
	}
	p := (int64(v) - int64(lo)) * 100 / (int64(hi) - int64(lo))
	return uint8(Clamp(p, 0, 100))
}
