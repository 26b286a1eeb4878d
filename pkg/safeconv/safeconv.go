// Package safeconv provides integer conversions that refuse to overflow.
package safeconv

import (
	"errors"
	"math"
)

// ErrOverflow indicates a value outside the target type's range.
var ErrOverflow = errors.New("integer overflow")

// Uint64ToInt64 converts v, failing when it exceeds math.MaxInt64.
func Uint64ToInt64(v uint64) (int64, error) {
	if v > math.MaxInt64 {
		return 0, ErrOverflow
	}

	return int64(v), nil
}

// MustInt64ToUint64 converts v, panics if negative.
// Use only when negative values are logically impossible.
func MustInt64ToUint64(v int64) uint64 {
	if v < 0 {
		panic("safeconv: negative int64 to uint64 conversion")
	}

	return uint64(v)
}
