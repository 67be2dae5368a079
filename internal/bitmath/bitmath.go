package bitmath

import (
	"errors"
	"math/bits"

	"github.com/holiman/uint256"
)

var ErrZeroValue = errors.New("argument must be nonzero")

// MostSignificantBit returns the index of the highest set bit of x,
// so that 2^msb <= x < 2^(msb+1). Fails on zero.
func MostSignificantBit(x *uint256.Int) (uint, error) {
	if x.IsZero() {
		return 0, ErrZeroValue
	}
	return uint(x.BitLen() - 1), nil
}

// LeastSignificantBit returns the index of the lowest set bit of x,
// so that x % 2^lsb == 0 and x % 2^(lsb+1) != 0. Fails on zero.
func LeastSignificantBit(x *uint256.Int) (uint, error) {
	if x.IsZero() {
		return 0, ErrZeroValue
	}
	for i, word := range x {
		if word != 0 {
			return uint(i*64 + bits.TrailingZeros64(word)), nil
		}
	}
	return 0, ErrZeroValue
}
