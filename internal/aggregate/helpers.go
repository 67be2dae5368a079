package aggregate

import (
	"math/big"
)

const ratioScale = 18

// computeFeeRates expresses window fees as a fraction of window volume.
func computeFeeRates(fee0, fee1, volume0, volume1 *big.Int) (*string, *string) {
	var feeRate0 *string
	var feeRate1 *string

	if rate := computeRateFromInt(fee0, volume0); rate != "" {
		feeRate0 = &rate
	}
	if rate := computeRateFromInt(fee1, volume1); rate != "" {
		feeRate1 = &rate
	}
	return feeRate0, feeRate1
}

func computeRateFromInt(fee *big.Int, volume *big.Int) string {
	if fee == nil || fee.Sign() == 0 || volume == nil || volume.Sign() == 0 {
		return ""
	}
	rat := new(big.Rat).SetFrac(fee, volume)
	return rat.FloatString(ratioScale)
}
