// Package swapmath computes the result of a single swap step within one
// tick range, splitting the input into the amount swapped and the fee.
package swapmath

import (
	"github.com/holiman/uint256"

	"liquidityCore/internal/fullmath"
	"liquidityCore/internal/sqrtmath"
)

// FeeDenominator is the basis of fee pips: a fee of 3000 is 0.30%.
const FeeDenominator = 1_000_000

var feeDenominator = uint256.NewInt(FeeDenominator)

// ComputeStep advances the price from sqrtRatioCurrentX96 toward
// sqrtRatioTargetX96, consuming at most amountRemaining. amountRemaining is
// a two's-complement signed value: non-negative means exact input (fee
// taken from it), negative means exact output. The returned sqrtRatioNextX96
// equals the target when the remaining amount was enough to reach it.
func ComputeStep(
	sqrtRatioCurrentX96, sqrtRatioTargetX96, liquidity, amountRemaining *uint256.Int,
	feePips uint32,
) (sqrtRatioNextX96, amountIn, amountOut, feeAmount *uint256.Int, err error) {
	zeroForOne := sqrtRatioCurrentX96.Cmp(sqrtRatioTargetX96) >= 0
	exactIn := amountRemaining.Sign() >= 0

	fee := uint256.NewInt(uint64(feePips))
	feeComplement := new(uint256.Int).Sub(feeDenominator, fee)

	if exactIn {
		amountRemainingLessFee, mdErr := fullmath.MulDiv(amountRemaining, feeComplement, feeDenominator)
		if mdErr != nil {
			return nil, nil, nil, nil, mdErr
		}
		if zeroForOne {
			amountIn, err = sqrtmath.Amount0Delta(sqrtRatioTargetX96, sqrtRatioCurrentX96, liquidity, true)
		} else {
			amountIn, err = sqrtmath.Amount1Delta(sqrtRatioCurrentX96, sqrtRatioTargetX96, liquidity, true)
		}
		if err != nil {
			return nil, nil, nil, nil, err
		}
		if amountRemainingLessFee.Cmp(amountIn) >= 0 {
			sqrtRatioNextX96 = new(uint256.Int).Set(sqrtRatioTargetX96)
		} else {
			sqrtRatioNextX96, err = sqrtmath.NextSqrtPriceFromInput(
				sqrtRatioCurrentX96, liquidity, amountRemainingLessFee, zeroForOne)
			if err != nil {
				return nil, nil, nil, nil, err
			}
		}
	} else {
		amountRemainingAbs := new(uint256.Int).Neg(amountRemaining)
		if zeroForOne {
			amountOut, err = sqrtmath.Amount1Delta(sqrtRatioTargetX96, sqrtRatioCurrentX96, liquidity, false)
		} else {
			amountOut, err = sqrtmath.Amount0Delta(sqrtRatioCurrentX96, sqrtRatioTargetX96, liquidity, false)
		}
		if err != nil {
			return nil, nil, nil, nil, err
		}
		if amountRemainingAbs.Cmp(amountOut) >= 0 {
			sqrtRatioNextX96 = new(uint256.Int).Set(sqrtRatioTargetX96)
		} else {
			sqrtRatioNextX96, err = sqrtmath.NextSqrtPriceFromOutput(
				sqrtRatioCurrentX96, liquidity, amountRemainingAbs, zeroForOne)
			if err != nil {
				return nil, nil, nil, nil, err
			}
		}
	}

	max := sqrtRatioTargetX96.Cmp(sqrtRatioNextX96) == 0

	if zeroForOne {
		if !(max && exactIn) {
			amountIn, err = sqrtmath.Amount0Delta(sqrtRatioNextX96, sqrtRatioCurrentX96, liquidity, true)
			if err != nil {
				return nil, nil, nil, nil, err
			}
		}
		if !(max && !exactIn) {
			amountOut, err = sqrtmath.Amount1Delta(sqrtRatioNextX96, sqrtRatioCurrentX96, liquidity, false)
			if err != nil {
				return nil, nil, nil, nil, err
			}
		}
	} else {
		if !(max && exactIn) {
			amountIn, err = sqrtmath.Amount1Delta(sqrtRatioCurrentX96, sqrtRatioNextX96, liquidity, true)
			if err != nil {
				return nil, nil, nil, nil, err
			}
		}
		if !(max && !exactIn) {
			amountOut, err = sqrtmath.Amount0Delta(sqrtRatioCurrentX96, sqrtRatioNextX96, liquidity, false)
			if err != nil {
				return nil, nil, nil, nil, err
			}
		}
	}

	// Exact output never pays out more than was asked for.
	if !exactIn {
		amountRemainingAbs := new(uint256.Int).Neg(amountRemaining)
		if amountOut.Cmp(amountRemainingAbs) > 0 {
			amountOut = amountRemainingAbs
		}
	}

	if exactIn && !max {
		// The whole remainder is consumed: whatever was not swapped is fee.
		feeAmount = new(uint256.Int).Sub(amountRemaining, amountIn)
	} else {
		feeAmount, err = fullmath.MulDivRoundingUp(amountIn, fee, feeComplement)
		if err != nil {
			return nil, nil, nil, nil, err
		}
	}
	return sqrtRatioNextX96, amountIn, amountOut, feeAmount, nil
}
