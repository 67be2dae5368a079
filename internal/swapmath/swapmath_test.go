package swapmath

import (
	"testing"

	"github.com/holiman/uint256"
)

func dec(t *testing.T, s string) *uint256.Int {
	t.Helper()
	x, err := uint256.FromDecimal(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return x
}

func neg(x *uint256.Int) *uint256.Int {
	return new(uint256.Int).Neg(x)
}

func TestExactInCappedAtTarget(t *testing.T) {
	price := dec(t, "79228162514264337593543950336")       // 1:1
	priceTarget := dec(t, "79623317895830914510639640423") // 101:100
	liquidity := dec(t, "2000000000000000000")
	amount := dec(t, "1000000000000000000")

	next, amountIn, amountOut, feeAmount, err := ComputeStep(price, priceTarget, liquidity, amount, 600)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if amountIn.Dec() != "9975124224178055" {
		t.Fatalf("amountIn = %s", amountIn.Dec())
	}
	if feeAmount.Dec() != "5988667735148" {
		t.Fatalf("feeAmount = %s", feeAmount.Dec())
	}
	if amountOut.Dec() != "9925619580021728" {
		t.Fatalf("amountOut = %s", amountOut.Dec())
	}
	sum := new(uint256.Int).Add(amountIn, feeAmount)
	if sum.Cmp(amount) >= 0 {
		t.Fatalf("entire amount used despite hitting target")
	}
	if next.Cmp(priceTarget) != 0 {
		t.Fatalf("price stopped at %s, want target", next.Dec())
	}
}

func TestExactOutCappedAtTarget(t *testing.T) {
	price := dec(t, "79228162514264337593543950336")
	priceTarget := dec(t, "79623317895830914510639640423")
	liquidity := dec(t, "2000000000000000000")
	amount := neg(dec(t, "1000000000000000000"))

	next, amountIn, amountOut, feeAmount, err := ComputeStep(price, priceTarget, liquidity, amount, 600)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if amountIn.Dec() != "9975124224178055" {
		t.Fatalf("amountIn = %s", amountIn.Dec())
	}
	if feeAmount.Dec() != "5988667735148" {
		t.Fatalf("feeAmount = %s", feeAmount.Dec())
	}
	if amountOut.Dec() != "9925619580021728" {
		t.Fatalf("amountOut = %s", amountOut.Dec())
	}
	if next.Cmp(priceTarget) != 0 {
		t.Fatalf("price stopped at %s, want target", next.Dec())
	}
}

func TestExactInFullySpent(t *testing.T) {
	price := dec(t, "79228162514264337593543950336")
	priceTarget := dec(t, "250541448375047931186413801569") // 1000:100
	liquidity := dec(t, "2000000000000000000")
	amount := dec(t, "1000000000000000000")

	next, amountIn, amountOut, feeAmount, err := ComputeStep(price, priceTarget, liquidity, amount, 600)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if amountIn.Dec() != "999400000000000000" {
		t.Fatalf("amountIn = %s", amountIn.Dec())
	}
	if feeAmount.Dec() != "600000000000000" {
		t.Fatalf("feeAmount = %s", feeAmount.Dec())
	}
	if amountOut.Dec() != "666399946655997866" {
		t.Fatalf("amountOut = %s", amountOut.Dec())
	}
	sum := new(uint256.Int).Add(amountIn, feeAmount)
	if sum.Cmp(amount) != 0 {
		t.Fatalf("amountIn + fee = %s, want the full input", sum.Dec())
	}
	if next.Cmp(priceTarget) >= 0 {
		t.Fatalf("price %s should fall short of the target", next.Dec())
	}
}

func TestExactOutFullyReceived(t *testing.T) {
	price := dec(t, "79228162514264337593543950336")
	priceTarget := dec(t, "792281625142643375935439503360") // 10000:100
	liquidity := dec(t, "2000000000000000000")
	want := dec(t, "1000000000000000000")

	next, amountIn, amountOut, feeAmount, err := ComputeStep(price, priceTarget, liquidity, neg(want), 600)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if amountIn.Dec() != "2000000000000000000" {
		t.Fatalf("amountIn = %s", amountIn.Dec())
	}
	if feeAmount.Dec() != "1200720432259356" {
		t.Fatalf("feeAmount = %s", feeAmount.Dec())
	}
	if amountOut.Cmp(want) != 0 {
		t.Fatalf("amountOut = %s, want full output", amountOut.Dec())
	}
	if next.Cmp(priceTarget) >= 0 {
		t.Fatalf("price %s should fall short of the target", next.Dec())
	}
}

func TestAmountOutCappedAtDesired(t *testing.T) {
	price := dec(t, "417332158212080721273783715441582")
	priceTarget := dec(t, "1452870262520218020823638996")
	liquidity := dec(t, "159344665391607089467575320103")

	next, amountIn, amountOut, feeAmount, err := ComputeStep(price, priceTarget, liquidity, neg(uint256.NewInt(1)), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !amountIn.Eq(uint256.NewInt(1)) || !feeAmount.Eq(uint256.NewInt(1)) {
		t.Fatalf("amountIn=%s fee=%s, want 1/1", amountIn.Dec(), feeAmount.Dec())
	}
	if !amountOut.Eq(uint256.NewInt(1)) {
		t.Fatalf("amountOut = %s, capped amount should be 1", amountOut.Dec())
	}
	if next.Dec() != "417332158212080721273783715441581" {
		t.Fatalf("next price = %s", next.Dec())
	}
}

func TestEntireInputTakenAsFee(t *testing.T) {
	price := uint256.NewInt(2413)
	priceTarget := dec(t, "79887613182836312")
	liquidity := dec(t, "1985041575832132834610021537970")

	next, amountIn, amountOut, feeAmount, err := ComputeStep(price, priceTarget, liquidity, uint256.NewInt(10), 1872)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !amountIn.IsZero() || !amountOut.IsZero() {
		t.Fatalf("amountIn=%s amountOut=%s, want zero", amountIn.Dec(), amountOut.Dec())
	}
	if !feeAmount.Eq(uint256.NewInt(10)) {
		t.Fatalf("feeAmount = %s, want 10", feeAmount.Dec())
	}
	if next.Cmp(price) != 0 {
		t.Fatalf("price moved to %s", next.Dec())
	}
}
