package ticks

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
)

func u(n uint64) *uint256.Int { return uint256.NewInt(n) }

func negU(n uint64) *uint256.Int { return new(uint256.Int).Neg(uint256.NewInt(n)) }

func mustDec(t *testing.T, s string) *uint256.Int {
	t.Helper()
	x, err := uint256.FromDecimal(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return x
}

func TestMaxLiquidityPerTick(t *testing.T) {
	cases := []struct {
		spacing int
		want    string
	}{
		{1, "191757530477355301479181766273477"},
		{10, "1917569901783203986719870431555990"},
		{60, "11505743598341114571880798222544994"},
		{200, "38350317471085141830651933667504588"},
		{887272, "113427455640312821154458202477256070485"}, // (2^128-1)/3
	}
	for _, tc := range cases {
		got := MaxLiquidityPerTick(tc.spacing)
		if got.Dec() != tc.want {
			t.Fatalf("MaxLiquidityPerTick(%d) = %s, want %s", tc.spacing, got.Dec(), tc.want)
		}
	}
}

func TestAddDelta(t *testing.T) {
	got, err := AddDelta(u(1), u(0))
	if err != nil || !got.Eq(u(1)) {
		t.Fatalf("1+0 = (%v, %v)", got, err)
	}
	got, err = AddDelta(u(1), negU(1))
	if err != nil || !got.IsZero() {
		t.Fatalf("1-1 = (%v, %v)", got, err)
	}
	if _, err := AddDelta(u(0), negU(1)); !errors.Is(err, ErrLiquidityUnderflow) {
		t.Fatalf("expected underflow, got %v", err)
	}

	almostMax := mustDec(t, "340282366920938463463374607431768211454") // 2^128-2
	if _, err := AddDelta(almostMax, u(2)); !errors.Is(err, ErrLiquidityOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
	got, err = AddDelta(almostMax, u(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Dec() != "340282366920938463463374607431768211455" {
		t.Fatalf("got %s", got.Dec())
	}
}

func update(t *testing.T, l *Ledger, tick, current int, delta *uint256.Int, upper bool, max *uint256.Int) bool {
	t.Helper()
	flipped, err := l.Update(tick, current, delta, u(0), u(0), u(0), 0, 0, upper, max)
	if err != nil {
		t.Fatalf("update tick %d: %v", tick, err)
	}
	return flipped
}

func TestUpdateFlips(t *testing.T) {
	l := NewLedger()
	max := MaxLiquidityPerTick(1)

	if !update(t, l, 0, 0, u(1), false, max) {
		t.Fatalf("zero to nonzero should flip")
	}
	if update(t, l, 0, 0, u(1), false, max) {
		t.Fatalf("nonzero to greater nonzero should not flip")
	}
	if update(t, l, 0, 0, negU(1), false, max) {
		t.Fatalf("nonzero to lesser nonzero should not flip")
	}
	if !update(t, l, 0, 0, negU(1), false, max) {
		t.Fatalf("nonzero to zero should flip")
	}
}

func TestUpdateGrossCap(t *testing.T) {
	l := NewLedger()
	update(t, l, 0, 0, u(2), false, u(3))
	update(t, l, 0, 0, u(1), true, u(3))
	if _, err := l.Update(0, 0, u(1), u(0), u(0), u(0), 0, 0, false, u(3)); !errors.Is(err, ErrGrossLiquidityTooHigh) {
		t.Fatalf("expected gross cap error, got %v", err)
	}
}

func TestUpdateNetsLiquidity(t *testing.T) {
	l := NewLedger()
	max := MaxLiquidityPerTick(1)
	update(t, l, 0, 0, u(2), false, max)
	update(t, l, 0, 0, u(1), true, max)
	update(t, l, 0, 0, u(3), true, max)
	update(t, l, 0, 0, u(1), false, max)

	info := l.Get(0)
	if info.LiquidityGross.Dec() != "7" {
		t.Fatalf("gross = %s, want 7", info.LiquidityGross.Dec())
	}
	// net = 2 - 1 - 3 + 1 = -1
	if info.LiquidityNet.Sign() != -1 || new(uint256.Int).Neg(info.LiquidityNet).Dec() != "1" {
		t.Fatalf("net = %s, want -1", info.LiquidityNet.Dec())
	}
}

func TestUpdateOutsideSnapshots(t *testing.T) {
	l := NewLedger()
	max := MaxLiquidityPerTick(1)

	// A tick at or below the current tick starts with outside = globals.
	if _, err := l.Update(1, 1, u(1), u(1), u(2), u(3), 4, 5, false, max); err != nil {
		t.Fatalf("update: %v", err)
	}
	info := l.Get(1)
	if !info.FeeGrowthOutside0X128.Eq(u(1)) || !info.FeeGrowthOutside1X128.Eq(u(2)) {
		t.Fatalf("fee outside = %s/%s, want 1/2",
			info.FeeGrowthOutside0X128.Dec(), info.FeeGrowthOutside1X128.Dec())
	}
	if !info.SecondsPerLiquidityOutsideX128.Eq(u(3)) || info.TickCumulativeOutside != 4 || info.SecondsOutside != 5 {
		t.Fatalf("outside snapshots not seeded from globals")
	}
	if !info.Initialized {
		t.Fatalf("entry not marked initialized")
	}

	// A tick above the current tick starts at zero.
	if _, err := l.Update(2, 1, u(1), u(1), u(2), u(3), 4, 5, false, max); err != nil {
		t.Fatalf("update: %v", err)
	}
	above := l.Get(2)
	if !above.FeeGrowthOutside0X128.IsZero() || above.SecondsOutside != 0 {
		t.Fatalf("tick above current should start with zero outside values")
	}

	// Seeding happens only on the zero-to-nonzero transition.
	if _, err := l.Update(1, 1, u(1), u(6), u(7), u(8), 9, 10, false, max); err != nil {
		t.Fatalf("update: %v", err)
	}
	if !l.Get(1).FeeGrowthOutside0X128.Eq(u(1)) {
		t.Fatalf("second update reseeded outside values")
	}
}

func TestCross(t *testing.T) {
	l := NewLedger()
	info := l.Get(2)
	info.FeeGrowthOutside0X128.SetUint64(1)
	info.FeeGrowthOutside1X128.SetUint64(2)
	info.LiquidityGross.SetUint64(3)
	info.LiquidityNet.SetUint64(4)
	info.SecondsPerLiquidityOutsideX128.SetUint64(5)
	info.TickCumulativeOutside = 6
	info.SecondsOutside = 7

	net := l.Cross(2, u(7), u(9), u(8), 15, 10)
	if !net.Eq(u(4)) {
		t.Fatalf("net = %s, want 4", net.Dec())
	}
	if !info.FeeGrowthOutside0X128.Eq(u(6)) || !info.FeeGrowthOutside1X128.Eq(u(7)) {
		t.Fatalf("fee outside = %s/%s, want 6/7",
			info.FeeGrowthOutside0X128.Dec(), info.FeeGrowthOutside1X128.Dec())
	}
	if !info.SecondsPerLiquidityOutsideX128.Eq(u(3)) || info.TickCumulativeOutside != 9 || info.SecondsOutside != 3 {
		t.Fatalf("cross snapshots wrong")
	}

	// Crossing back restores the original snapshots.
	l.Cross(2, u(7), u(9), u(8), 15, 10)
	if !info.FeeGrowthOutside0X128.Eq(u(1)) || info.TickCumulativeOutside != 6 || info.SecondsOutside != 7 {
		t.Fatalf("double cross did not restore snapshots")
	}
}

func TestFeeGrowthInside(t *testing.T) {
	l := NewLedger()

	inside0, inside1 := l.FeeGrowthInside(-2, 2, 0, u(15), u(15))
	if !inside0.Eq(u(15)) || !inside1.Eq(u(15)) {
		t.Fatalf("uninitialized ticks: got %s/%s, want 15/15", inside0.Dec(), inside1.Dec())
	}

	// Growth above the upper tick is excluded.
	upper := l.Get(2)
	upper.FeeGrowthOutside0X128.SetUint64(2)
	upper.FeeGrowthOutside1X128.SetUint64(3)
	upper.Initialized = true
	inside0, inside1 = l.FeeGrowthInside(-2, 2, 0, u(15), u(15))
	if !inside0.Eq(u(13)) || !inside1.Eq(u(12)) {
		t.Fatalf("upper outside: got %s/%s, want 13/12", inside0.Dec(), inside1.Dec())
	}
	l.Clear(2)

	// Growth below the lower tick is excluded.
	lower := l.Get(-2)
	lower.FeeGrowthOutside0X128.SetUint64(2)
	lower.FeeGrowthOutside1X128.SetUint64(3)
	lower.Initialized = true
	inside0, inside1 = l.FeeGrowthInside(-2, 2, 0, u(15), u(15))
	if !inside0.Eq(u(13)) || !inside1.Eq(u(12)) {
		t.Fatalf("lower outside: got %s/%s, want 13/12", inside0.Dec(), inside1.Dec())
	}
	l.Clear(-2)

	// Wrapping subtraction keeps the difference meaningful after overflow.
	lower = l.Get(-2)
	lower.FeeGrowthOutside0X128.Sub(new(uint256.Int).Not(u(0)), u(3))
	lower.FeeGrowthOutside1X128.Sub(new(uint256.Int).Not(u(0)), u(2))
	lower.Initialized = true
	upper = l.Get(2)
	upper.FeeGrowthOutside0X128.SetUint64(3)
	upper.FeeGrowthOutside1X128.SetUint64(5)
	upper.Initialized = true
	inside0, inside1 = l.FeeGrowthInside(-2, 2, 0, u(15), u(15))
	if !inside0.Eq(u(16)) || !inside1.Eq(u(13)) {
		t.Fatalf("overflow case: got %s/%s, want 16/13", inside0.Dec(), inside1.Dec())
	}
}

func TestPeekDoesNotMaterialize(t *testing.T) {
	l := NewLedger()

	info := l.Peek(5)
	if !info.LiquidityGross.IsZero() || info.Initialized {
		t.Fatalf("peek of a missing tick returned a nonzero entry: %+v", info)
	}
	if _, ok := l.entries[5]; ok {
		t.Fatalf("peek stored a zero-gross entry")
	}
	if l.Has(5) {
		t.Fatalf("peek marked the tick initialized")
	}

	l.Get(5).LiquidityGross.SetUint64(7)
	if got := l.Peek(5); !got.LiquidityGross.Eq(u(7)) {
		t.Fatalf("peek of a live entry = %s, want 7", got.LiquidityGross.Dec())
	}

	// Read-only inside math must not grow the map either.
	l.FeeGrowthInside(-2, 2, 0, u(15), u(15))
	if _, ok := l.entries[-2]; ok {
		t.Fatalf("FeeGrowthInside stored an entry for an absent tick")
	}
}
