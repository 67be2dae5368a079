package sqrtmath

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
)

func e18(n uint64) *uint256.Int {
	x := uint256.NewInt(n)
	return x.Mul(x, uint256.NewInt(1_000_000_000_000_000_000))
}

func mustDec(t *testing.T, s string) *uint256.Int {
	t.Helper()
	x, err := uint256.FromDecimal(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return x
}

var priceOne = new(uint256.Int).Lsh(uint256.NewInt(1), 96)

func TestNextSqrtPriceFromInputValidation(t *testing.T) {
	if _, err := NextSqrtPriceFromInput(uint256.NewInt(0), uint256.NewInt(1), e18(1), false); !errors.Is(err, ErrZeroPrice) {
		t.Fatalf("expected ErrZeroPrice, got %v", err)
	}
	if _, err := NextSqrtPriceFromInput(uint256.NewInt(1), uint256.NewInt(0), e18(1), true); !errors.Is(err, ErrZeroLiquidity) {
		t.Fatalf("expected ErrZeroLiquidity, got %v", err)
	}
}

func TestNextSqrtPriceFromInputZeroAmount(t *testing.T) {
	liquidity := new(uint256.Int).Div(e18(1), uint256.NewInt(10))
	for _, zeroForOne := range []bool{true, false} {
		got, err := NextSqrtPriceFromInput(priceOne, liquidity, uint256.NewInt(0), zeroForOne)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Cmp(priceOne) != 0 {
			t.Fatalf("zero amount moved price to %s", got.Dec())
		}
	}
}

func TestNextSqrtPriceFromInputKnownValues(t *testing.T) {
	tenth := new(uint256.Int).Div(e18(1), uint256.NewInt(10))

	got, err := NextSqrtPriceFromInput(priceOne, e18(1), tenth, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Dec() != "87150978765690771352898345369" {
		t.Fatalf("0.1 token1 in: got %s", got.Dec())
	}

	got, err = NextSqrtPriceFromInput(priceOne, e18(1), tenth, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Dec() != "72025602285694852357767227579" {
		t.Fatalf("0.1 token0 in: got %s", got.Dec())
	}

	// amountIn > 2^96 exercises the overflow-safe fallback path.
	big := new(uint256.Int).Lsh(uint256.NewInt(1), 100)
	got, err = NextSqrtPriceFromInput(priceOne, e18(10), big, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Dec() != "624999999995069620" {
		t.Fatalf("2^100 token0 in: got %s", got.Dec())
	}
}

func TestNextSqrtPriceFromInputCannotUnderflow(t *testing.T) {
	halfMax := new(uint256.Int).Rsh(new(uint256.Int).Not(uint256.NewInt(0)), 1)
	got, err := NextSqrtPriceFromInput(priceOne, uint256.NewInt(1), halfMax, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Eq(uint256.NewInt(1)) {
		t.Fatalf("price floored at %s, want 1", got.Dec())
	}
}

func TestNextSqrtPriceFromOutputReserveLimits(t *testing.T) {
	price := mustDec(t, "20282409603651670423947251286016") // 256 * 2^96
	liquidity := uint256.NewInt(1024)

	// Virtual token0 reserves are 4: both 4 and 5 must fail.
	for _, amountOut := range []uint64{4, 5} {
		if _, err := NextSqrtPriceFromOutput(price, liquidity, uint256.NewInt(amountOut), false); err == nil {
			t.Fatalf("output of %d token0 should exceed reserves", amountOut)
		}
	}

	// Virtual token1 reserves are 262144.
	for _, amountOut := range []uint64{262144, 262145} {
		if _, err := NextSqrtPriceFromOutput(price, liquidity, uint256.NewInt(amountOut), true); err == nil {
			t.Fatalf("output of %d token1 should exceed reserves", amountOut)
		}
	}

	got, err := NextSqrtPriceFromOutput(price, liquidity, uint256.NewInt(262143), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Dec() != "77371252455336267181195264" {
		t.Fatalf("just under reserves: got %s", got.Dec())
	}
}

func TestAmount0Delta(t *testing.T) {
	// Zero liquidity or an empty range produces zero.
	got, err := Amount0Delta(priceOne, mustDec(t, "87150978765690771352898345369"), uint256.NewInt(0), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.IsZero() {
		t.Fatalf("zero liquidity produced %s", got.Dec())
	}

	// Price 1 -> 1.21 with 1e18 liquidity.
	upper := mustDec(t, "87150978765690771352898345369")
	roundedUp, err := Amount0Delta(priceOne, upper, e18(1), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if roundedUp.Dec() != "90909090909090910" {
		t.Fatalf("amount0 rounded up: got %s", roundedUp.Dec())
	}
	roundedDown, err := Amount0Delta(priceOne, upper, e18(1), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := new(uint256.Int).SubUint64(roundedUp, 1)
	if roundedDown.Cmp(want) != 0 {
		t.Fatalf("rounded down should be one less: %s vs %s", roundedDown.Dec(), roundedUp.Dec())
	}
}

func TestAmount1Delta(t *testing.T) {
	upper := mustDec(t, "87150978765690771352898345369")
	roundedUp, err := Amount1Delta(priceOne, upper, e18(1), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	roundedDown, err := Amount1Delta(priceOne, upper, e18(1), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	diff := new(uint256.Int).Sub(roundedUp, roundedDown)
	if diff.Uint64() > 1 {
		t.Fatalf("rounding directions differ by %s", diff.Dec())
	}
	if roundedUp.Cmp(roundedDown) < 0 {
		t.Fatalf("round up below round down")
	}
}

func TestAmountDeltaOrderInsensitive(t *testing.T) {
	upper := mustDec(t, "87150978765690771352898345369")
	a, _ := Amount0Delta(priceOne, upper, e18(1), true)
	b, _ := Amount0Delta(upper, priceOne, e18(1), true)
	if a.Cmp(b) != 0 {
		t.Fatalf("argument order changed amount0: %s vs %s", a.Dec(), b.Dec())
	}
}

func TestSignedAmountDeltas(t *testing.T) {
	upper := mustDec(t, "87150978765690771352898345369")

	pos, err := SignedAmount0Delta(priceOne, upper, e18(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	neg, err := SignedAmount0Delta(priceOne, upper, new(uint256.Int).Neg(e18(1)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pos.Sign() <= 0 || neg.Sign() >= 0 {
		t.Fatalf("signs wrong: pos=%d neg=%d", pos.Sign(), neg.Sign())
	}
	// The magnitudes differ only by the rounding direction.
	sum := new(uint256.Int).Add(pos, neg)
	if sum.Uint64() > 1 {
		t.Fatalf("pos + neg = %s, want at most 1", sum.Dec())
	}
}
