package sqrtmath

import (
	"errors"

	"github.com/holiman/uint256"

	"liquidityCore/internal/fullmath"
)

// Q96 is the Q64.96 fixed-point representation of 1.
var Q96 = new(uint256.Int).Lsh(uint256.NewInt(1), 96)

var (
	ErrZeroPrice     = errors.New("sqrt price must be nonzero")
	ErrZeroLiquidity = errors.New("liquidity must be nonzero")
	ErrPriceOverflow = errors.New("price calculation overflows")
	// ErrOutputExceedsReserves reports an exact-output request larger than
	// the virtual reserves available on that side of the curve.
	ErrOutputExceedsReserves = errors.New("requested output exceeds virtual reserves")
)

// NextSqrtPriceFromInput returns the price after spending amountIn of
// token0 (zeroForOne) or token1 against liquidity at sqrtPX96. The result
// rounds toward the starting price so the pool never undercharges.
func NextSqrtPriceFromInput(sqrtPX96, liquidity, amountIn *uint256.Int, zeroForOne bool) (*uint256.Int, error) {
	if sqrtPX96.IsZero() {
		return nil, ErrZeroPrice
	}
	if liquidity.IsZero() {
		return nil, ErrZeroLiquidity
	}
	if zeroForOne {
		return nextSqrtPriceFromAmount0RoundingUp(sqrtPX96, liquidity, amountIn, true)
	}
	return nextSqrtPriceFromAmount1RoundingDown(sqrtPX96, liquidity, amountIn, true)
}

// NextSqrtPriceFromOutput returns the price after withdrawing amountOut of
// token1 (zeroForOne) or token0 from liquidity at sqrtPX96.
func NextSqrtPriceFromOutput(sqrtPX96, liquidity, amountOut *uint256.Int, zeroForOne bool) (*uint256.Int, error) {
	if sqrtPX96.IsZero() {
		return nil, ErrZeroPrice
	}
	if liquidity.IsZero() {
		return nil, ErrZeroLiquidity
	}
	if zeroForOne {
		return nextSqrtPriceFromAmount1RoundingDown(sqrtPX96, liquidity, amountOut, false)
	}
	return nextSqrtPriceFromAmount0RoundingUp(sqrtPX96, liquidity, amountOut, false)
}

// nextSqrtPriceFromAmount0RoundingUp solves liquidity*price / (liquidity +-
// amount*price) for the new price, rounding up. Adding token0 moves the
// price down, removing it moves the price up.
func nextSqrtPriceFromAmount0RoundingUp(sqrtPX96, liquidity, amount *uint256.Int, add bool) (*uint256.Int, error) {
	if amount.IsZero() {
		return new(uint256.Int).Set(sqrtPX96), nil
	}
	numerator1 := new(uint256.Int).Lsh(liquidity, 96)

	product, overflow := new(uint256.Int).MulOverflow(amount, sqrtPX96)
	if add {
		if !overflow {
			denominator, carry := new(uint256.Int).AddOverflow(numerator1, product)
			if !carry {
				return fullmath.MulDivRoundingUp(numerator1, sqrtPX96, denominator)
			}
		}
		// Fall back to the formulation that cannot overflow:
		// liquidity / (liquidity/price + amount), rounded up.
		denominator := new(uint256.Int).Div(numerator1, sqrtPX96)
		denominator.Add(denominator, amount)
		return fullmath.DivRoundingUp(numerator1, denominator), nil
	}

	if overflow || numerator1.Cmp(product) <= 0 {
		return nil, ErrOutputExceedsReserves
	}
	denominator := new(uint256.Int).Sub(numerator1, product)
	return fullmath.MulDivRoundingUp(numerator1, sqrtPX96, denominator)
}

// nextSqrtPriceFromAmount1RoundingDown computes price +- amount/liquidity,
// rounding down. Adding token1 moves the price up.
func nextSqrtPriceFromAmount1RoundingDown(sqrtPX96, liquidity, amount *uint256.Int, add bool) (*uint256.Int, error) {
	if add {
		quotient, err := fullmath.MulDiv(amount, Q96, liquidity)
		if err != nil {
			return nil, ErrPriceOverflow
		}
		next, carry := new(uint256.Int).AddOverflow(sqrtPX96, quotient)
		if carry {
			return nil, ErrPriceOverflow
		}
		return next, nil
	}

	quotient, err := fullmath.MulDivRoundingUp(amount, Q96, liquidity)
	if err != nil {
		return nil, ErrPriceOverflow
	}
	if sqrtPX96.Cmp(quotient) <= 0 {
		return nil, ErrOutputExceedsReserves
	}
	return new(uint256.Int).Sub(sqrtPX96, quotient), nil
}

// Amount0Delta returns the token0 amount covering the price range
// [sqrtRatioA, sqrtRatioB] at constant liquidity:
// liquidity * 2^96 * (sqrtB - sqrtA) / (sqrtB * sqrtA).
// Round up when the caller is about to require payment, down when paying out.
func Amount0Delta(sqrtRatioAX96, sqrtRatioBX96, liquidity *uint256.Int, roundUp bool) (*uint256.Int, error) {
	if sqrtRatioAX96.Cmp(sqrtRatioBX96) > 0 {
		sqrtRatioAX96, sqrtRatioBX96 = sqrtRatioBX96, sqrtRatioAX96
	}
	if sqrtRatioAX96.IsZero() {
		return nil, ErrZeroPrice
	}

	numerator1 := new(uint256.Int).Lsh(liquidity, 96)
	numerator2 := new(uint256.Int).Sub(sqrtRatioBX96, sqrtRatioAX96)

	if roundUp {
		scaled, err := fullmath.MulDivRoundingUp(numerator1, numerator2, sqrtRatioBX96)
		if err != nil {
			return nil, err
		}
		return fullmath.DivRoundingUp(scaled, sqrtRatioAX96), nil
	}
	scaled, err := fullmath.MulDiv(numerator1, numerator2, sqrtRatioBX96)
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).Div(scaled, sqrtRatioAX96), nil
}

// Amount1Delta returns the token1 amount covering the price range:
// liquidity * (sqrtB - sqrtA) / 2^96.
func Amount1Delta(sqrtRatioAX96, sqrtRatioBX96, liquidity *uint256.Int, roundUp bool) (*uint256.Int, error) {
	if sqrtRatioAX96.Cmp(sqrtRatioBX96) > 0 {
		sqrtRatioAX96, sqrtRatioBX96 = sqrtRatioBX96, sqrtRatioAX96
	}
	diff := new(uint256.Int).Sub(sqrtRatioBX96, sqrtRatioAX96)
	if roundUp {
		return fullmath.MulDivRoundingUp(liquidity, diff, Q96)
	}
	return fullmath.MulDiv(liquidity, diff, Q96)
}

// SignedAmount0Delta is Amount0Delta for a two's-complement signed
// liquidity delta: negative liquidity pays out (rounds down, result
// negative), positive liquidity requires payment (rounds up).
func SignedAmount0Delta(sqrtRatioAX96, sqrtRatioBX96, liquidity *uint256.Int) (*uint256.Int, error) {
	if liquidity.Sign() < 0 {
		amount, err := Amount0Delta(sqrtRatioAX96, sqrtRatioBX96, new(uint256.Int).Neg(liquidity), false)
		if err != nil {
			return nil, err
		}
		return amount.Neg(amount), nil
	}
	return Amount0Delta(sqrtRatioAX96, sqrtRatioBX96, liquidity, true)
}

// SignedAmount1Delta is the token1 analogue of SignedAmount0Delta.
func SignedAmount1Delta(sqrtRatioAX96, sqrtRatioBX96, liquidity *uint256.Int) (*uint256.Int, error) {
	if liquidity.Sign() < 0 {
		amount, err := Amount1Delta(sqrtRatioAX96, sqrtRatioBX96, new(uint256.Int).Neg(liquidity), false)
		if err != nil {
			return nil, err
		}
		return amount.Neg(amount), nil
	}
	return Amount1Delta(sqrtRatioAX96, sqrtRatioBX96, liquidity, true)
}
