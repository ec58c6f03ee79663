package safe

import "math"

// Uint64ToInt64 converts a kernel-reported unsigned value (an RSS byte
// count from /proc) to int64, clamping to math.MaxInt64 rather than
// wrapping negative. Returns the value and whether clamping occurred.
func Uint64ToInt64(val uint64) (int64, bool) {
	if val > math.MaxInt64 {
		return math.MaxInt64, true
	}
	return int64(val), false
}
