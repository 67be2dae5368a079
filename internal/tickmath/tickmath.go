package tickmath

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"
)

const (
	// MinTick is the lowest tick with a representable sqrt price.
	MinTick = -887272
	// MaxTick is the highest tick with a representable sqrt price.
	MaxTick = 887272
)

var (
	// MinSqrtRatio is SqrtRatioAtTick(MinTick).
	MinSqrtRatio = uint256.NewInt(4295128739)
	// MaxSqrtRatio is SqrtRatioAtTick(MaxTick). Valid sqrt prices live in
	// [MinSqrtRatio, MaxSqrtRatio).
	MaxSqrtRatio = mustDec("1461446703485210103287273052203988822378723970342")

	ErrTickOutOfRange  = errors.New("tick outside [MinTick, MaxTick]")
	ErrPriceOutOfRange = errors.New("sqrt price outside [MinSqrtRatio, MaxSqrtRatio)")

	maxUint256 = new(uint256.Int).Not(uint256.NewInt(0))
	roundMask  = uint256.NewInt(0xffffffff)
	one        = uint256.NewInt(1)

	// sqrt(1/1.0001^(2^i)) in Q128.128 for i = 0..19, plus the Q128.128 one
	// at index 0 used when bit 0 is clear. A base-2 decomposition of
	// 1.0001^(tick/2) multiplies the constants selected by the tick's bits.
	ratios = [21]*uint256.Int{
		mustHex("0xfffcb933bd6fad37aa2d162d1a594001"),
		mustHex("0xfff97272373d413259a46990580e213a"),
		mustHex("0xfff2e50f5f656932ef12357cf3c7fdcc"),
		mustHex("0xffe5caca7e10e4e61c3624eaa0941cd0"),
		mustHex("0xffcb9843d60f6159c9db58835c926644"),
		mustHex("0xff973b41fa98c081472e6896dfb254c0"),
		mustHex("0xff2ea16466c96a3843ec78b326b52861"),
		mustHex("0xfe5dee046a99a2a811c461f1969c3053"),
		mustHex("0xfcbe86c7900a88aedcffc83b479aa3a4"),
		mustHex("0xf987a7253ac413176f2b074cf7815e54"),
		mustHex("0xf3392b0822b70005940c7a398e4b70f3"),
		mustHex("0xe7159475a2c29b7443b29c7fa6e889d9"),
		mustHex("0xd097f3bdfd2022b8845ad8f792aa5825"),
		mustHex("0xa9f746462d870fdf8a65dc1f90e061e5"),
		mustHex("0x70d869a156d2a1b890bb3df62baf32f7"),
		mustHex("0x31be135f97d08fd981231505542fcfa6"),
		mustHex("0x9aa508b5b7a84e1c677de54f3e99bc9"),
		mustHex("0x5d6af8dedb81196699c329225ee604"),
		mustHex("0x2216e584f5fa1ea926041bedfe98"),
		mustHex("0x48a170391f7dc42444e8fa2"),
		mustHex("0x100000000000000000000000000000000"),
	}
)

func mustHex(s string) *uint256.Int {
	n, ok := new(big.Int).SetString(s[2:], 16)
	if !ok {
		panic("bad hex constant " + s)
	}
	return uint256.MustFromBig(n)
}

func mustDec(s string) *uint256.Int {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad decimal constant " + s)
	}
	return uint256.MustFromBig(n)
}

// SqrtRatioAtTick returns sqrt(1.0001^tick) as a Q64.96 fixed-point value.
// The bit-tested multiplication ladder guarantees bit-identical results
// across implementations, unlike a floating-point power function.
func SqrtRatioAtTick(tick int) (*uint256.Int, error) {
	if tick < MinTick || tick > MaxTick {
		return nil, ErrTickOutOfRange
	}

	absTick := tick
	if absTick < 0 {
		absTick = -absTick
	}

	ratio := new(uint256.Int)
	if absTick&1 != 0 {
		ratio.Set(ratios[0])
	} else {
		ratio.Set(ratios[20])
	}
	for i := 1; i < 20; i++ {
		if absTick&(1<<i) != 0 {
			ratio.Mul(ratio, ratios[i]).Rsh(ratio, 128)
		}
	}

	if tick > 0 {
		ratio.Div(maxUint256, ratio)
	}

	// Q128.128 -> Q64.96, rounding up.
	rem := new(uint256.Int).And(ratio, roundMask)
	ratio.Rsh(ratio, 32)
	if !rem.IsZero() {
		ratio.Add(ratio, one)
	}
	return ratio, nil
}

// TickAtSqrtRatio returns the largest tick whose sqrt price is at most
// sqrtPriceX96, i.e. SqrtRatioAtTick(t) <= sqrtPriceX96 < SqrtRatioAtTick(t+1).
func TickAtSqrtRatio(sqrtPriceX96 *uint256.Int) (int, error) {
	if sqrtPriceX96.Cmp(MinSqrtRatio) < 0 || sqrtPriceX96.Cmp(MaxSqrtRatio) >= 0 {
		return 0, ErrPriceOutOfRange
	}

	lo, hi := MinTick, MaxTick
	tick := MinTick
	for lo <= hi {
		mid := (lo + hi) / 2
		ratio, err := SqrtRatioAtTick(mid)
		if err != nil {
			return 0, err
		}
		if ratio.Cmp(sqrtPriceX96) <= 0 {
			tick = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return tick, nil
}
