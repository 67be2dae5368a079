package fullmath

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"
)

var (
	ErrDivisionByZero = errors.New("division by zero")
	ErrOverflow       = errors.New("result does not fit in 256 bits")

	one = uint256.NewInt(1)
)

// MulDiv returns floor(x*y/d) computed with a full 512-bit intermediate
// product. It fails when d is zero or the quotient exceeds 2^256-1.
func MulDiv(x, y, d *uint256.Int) (*uint256.Int, error) {
	if d.IsZero() {
		return nil, ErrDivisionByZero
	}
	product := new(big.Int).Mul(x.ToBig(), y.ToBig())
	quotient := product.Div(product, d.ToBig())
	result, overflow := uint256.FromBig(quotient)
	if overflow {
		return nil, ErrOverflow
	}
	return result, nil
}

// MulDivRoundingUp returns ceil(x*y/d) with the same failure conditions
// as MulDiv.
func MulDivRoundingUp(x, y, d *uint256.Int) (*uint256.Int, error) {
	if d.IsZero() {
		return nil, ErrDivisionByZero
	}
	product := new(big.Int).Mul(x.ToBig(), y.ToBig())
	quotient, rem := new(big.Int).QuoRem(product, d.ToBig(), new(big.Int))
	if rem.Sign() > 0 {
		quotient.Add(quotient, big.NewInt(1))
	}
	result, overflow := uint256.FromBig(quotient)
	if overflow {
		return nil, ErrOverflow
	}
	return result, nil
}

// DivRoundingUp returns ceil(x/d). The caller guarantees d is nonzero.
func DivRoundingUp(x, d *uint256.Int) *uint256.Int {
	quotient, rem := new(uint256.Int), new(uint256.Int)
	quotient.DivMod(x, d, rem)
	if !rem.IsZero() {
		quotient.Add(quotient, one)
	}
	return quotient
}
