// Package ticks tracks per-tick liquidity and the fee-growth, seconds and
// tick-cumulative snapshots taken on the "outside" of each initialized tick.
package ticks

import (
	"errors"

	"github.com/holiman/uint256"

	"liquidityCore/internal/tickmath"
)

var (
	ErrLiquidityUnderflow    = errors.New("liquidity delta underflows")
	ErrLiquidityOverflow     = errors.New("liquidity exceeds uint128")
	ErrGrossLiquidityTooHigh = errors.New("gross liquidity exceeds per-tick maximum")

	maxUint128 = new(uint256.Int).SubUint64(new(uint256.Int).Lsh(uint256.NewInt(1), 128), 1)
)

// Info is the ledger entry for one initialized tick. The outside snapshots
// are relative values: they only have meaning when compared against the
// globals, flipping interpretation each time the tick is crossed.
type Info struct {
	LiquidityGross *uint256.Int
	// LiquidityNet is two's-complement signed: added when crossing left to
	// right, subtracted right to left.
	LiquidityNet                   *uint256.Int
	FeeGrowthOutside0X128          *uint256.Int
	FeeGrowthOutside1X128          *uint256.Int
	SecondsPerLiquidityOutsideX128 *uint256.Int
	TickCumulativeOutside          int64
	SecondsOutside                 uint32
	Initialized                    bool
}

func newInfo() *Info {
	return &Info{
		LiquidityGross:                 uint256.NewInt(0),
		LiquidityNet:                   uint256.NewInt(0),
		FeeGrowthOutside0X128:          uint256.NewInt(0),
		FeeGrowthOutside1X128:          uint256.NewInt(0),
		SecondsPerLiquidityOutsideX128: uint256.NewInt(0),
	}
}

// Ledger is a sparse map of initialized ticks.
type Ledger struct {
	entries map[int]*Info
}

func NewLedger() *Ledger {
	return &Ledger{entries: make(map[int]*Info)}
}

// Get returns the entry for tick, or a zero-valued entry if none exists.
// The returned entry is live: mutations are visible to the ledger.
func (l *Ledger) Get(tick int) *Info {
	if info, ok := l.entries[tick]; ok {
		return info
	}
	info := newInfo()
	l.entries[tick] = info
	return info
}

// Peek returns the entry for tick without materializing a missing one.
// Absent ticks yield a fresh zero-valued entry that is not stored, so
// query paths never grow the map.
func (l *Ledger) Peek(tick int) *Info {
	if info, ok := l.entries[tick]; ok {
		return info
	}
	return newInfo()
}

// Clone returns a deep copy of the ledger.
func (l *Ledger) Clone() *Ledger {
	c := NewLedger()
	for tick, info := range l.entries {
		c.entries[tick] = &Info{
			LiquidityGross:                 new(uint256.Int).Set(info.LiquidityGross),
			LiquidityNet:                   new(uint256.Int).Set(info.LiquidityNet),
			FeeGrowthOutside0X128:          new(uint256.Int).Set(info.FeeGrowthOutside0X128),
			FeeGrowthOutside1X128:          new(uint256.Int).Set(info.FeeGrowthOutside1X128),
			SecondsPerLiquidityOutsideX128: new(uint256.Int).Set(info.SecondsPerLiquidityOutsideX128),
			TickCumulativeOutside:          info.TickCumulativeOutside,
			SecondsOutside:                 info.SecondsOutside,
			Initialized:                    info.Initialized,
		}
	}
	return c
}

// Has reports whether tick has an initialized entry.
func (l *Ledger) Has(tick int) bool {
	info, ok := l.entries[tick]
	return ok && info.Initialized
}

// Clear removes the entry for tick.
func (l *Ledger) Clear(tick int) {
	delete(l.entries, tick)
}

// MaxLiquidityPerTick returns the maximum gross liquidity one tick may
// carry so that the sum over all usable ticks cannot overflow uint128.
func MaxLiquidityPerTick(tickSpacing int) *uint256.Int {
	minTick := (tickmath.MinTick / tickSpacing) * tickSpacing
	maxTick := (tickmath.MaxTick / tickSpacing) * tickSpacing
	numTicks := uint64((maxTick-minTick)/tickSpacing) + 1
	return new(uint256.Int).Div(maxUint128, uint256.NewInt(numTicks))
}

// AddDelta applies a two's-complement signed delta to an unsigned uint128
// liquidity value.
func AddDelta(x, y *uint256.Int) (*uint256.Int, error) {
	if y.Sign() < 0 {
		abs := new(uint256.Int).Neg(y)
		if x.Cmp(abs) < 0 {
			return nil, ErrLiquidityUnderflow
		}
		return new(uint256.Int).Sub(x, abs), nil
	}
	z := new(uint256.Int).Add(x, y)
	if z.Cmp(maxUint128) > 0 {
		return nil, ErrLiquidityOverflow
	}
	return z, nil
}

// Update applies a liquidity delta to tick and reports whether the tick
// flipped between initialized and uninitialized. A tick at or below the
// current tick is born with its outside snapshots set to the current
// globals, so that "inside" math starts from zero.
func (l *Ledger) Update(
	tick, tickCurrent int,
	liquidityDelta *uint256.Int,
	feeGrowthGlobal0X128, feeGrowthGlobal1X128 *uint256.Int,
	secondsPerLiquidityCumulativeX128 *uint256.Int,
	tickCumulative int64,
	time uint32,
	upper bool,
	maxLiquidity *uint256.Int,
) (flipped bool, err error) {
	info := l.Get(tick)

	grossAfter, err := AddDelta(info.LiquidityGross, liquidityDelta)
	if err != nil {
		return false, err
	}
	if grossAfter.Cmp(maxLiquidity) > 0 {
		return false, ErrGrossLiquidityTooHigh
	}

	flipped = grossAfter.IsZero() != info.LiquidityGross.IsZero()

	if info.LiquidityGross.IsZero() {
		if tick <= tickCurrent {
			info.FeeGrowthOutside0X128.Set(feeGrowthGlobal0X128)
			info.FeeGrowthOutside1X128.Set(feeGrowthGlobal1X128)
			info.SecondsPerLiquidityOutsideX128.Set(secondsPerLiquidityCumulativeX128)
			info.TickCumulativeOutside = tickCumulative
			info.SecondsOutside = time
		}
		info.Initialized = true
	}

	info.LiquidityGross = grossAfter
	if upper {
		info.LiquidityNet.Sub(info.LiquidityNet, liquidityDelta)
	} else {
		info.LiquidityNet.Add(info.LiquidityNet, liquidityDelta)
	}
	return flipped, nil
}

// Cross transitions tick as the price moves through it, flipping every
// outside snapshot to the other side, and returns the signed liquidity
// to apply to the pool's active liquidity.
func (l *Ledger) Cross(
	tick int,
	feeGrowthGlobal0X128, feeGrowthGlobal1X128 *uint256.Int,
	secondsPerLiquidityCumulativeX128 *uint256.Int,
	tickCumulative int64,
	time uint32,
) *uint256.Int {
	info := l.Get(tick)
	info.FeeGrowthOutside0X128.Sub(feeGrowthGlobal0X128, info.FeeGrowthOutside0X128)
	info.FeeGrowthOutside1X128.Sub(feeGrowthGlobal1X128, info.FeeGrowthOutside1X128)
	info.SecondsPerLiquidityOutsideX128.Sub(secondsPerLiquidityCumulativeX128, info.SecondsPerLiquidityOutsideX128)
	info.TickCumulativeOutside = tickCumulative - info.TickCumulativeOutside
	info.SecondsOutside = time - info.SecondsOutside
	return info.LiquidityNet
}

// FeeGrowthInside returns the fee growth per unit of liquidity accrued
// inside [tickLower, tickUpper]. All subtraction wraps modulo 2^256: the
// differences are meaningful even when individual counters have wrapped.
func (l *Ledger) FeeGrowthInside(
	tickLower, tickUpper, tickCurrent int,
	feeGrowthGlobal0X128, feeGrowthGlobal1X128 *uint256.Int,
) (inside0, inside1 *uint256.Int) {
	lower := l.Peek(tickLower)
	upper := l.Peek(tickUpper)

	below0 := new(uint256.Int)
	below1 := new(uint256.Int)
	if tickCurrent >= tickLower {
		below0.Set(lower.FeeGrowthOutside0X128)
		below1.Set(lower.FeeGrowthOutside1X128)
	} else {
		below0.Sub(feeGrowthGlobal0X128, lower.FeeGrowthOutside0X128)
		below1.Sub(feeGrowthGlobal1X128, lower.FeeGrowthOutside1X128)
	}

	above0 := new(uint256.Int)
	above1 := new(uint256.Int)
	if tickCurrent < tickUpper {
		above0.Set(upper.FeeGrowthOutside0X128)
		above1.Set(upper.FeeGrowthOutside1X128)
	} else {
		above0.Sub(feeGrowthGlobal0X128, upper.FeeGrowthOutside0X128)
		above1.Sub(feeGrowthGlobal1X128, upper.FeeGrowthOutside1X128)
	}

	inside0 = new(uint256.Int).Sub(feeGrowthGlobal0X128, below0)
	inside0.Sub(inside0, above0)
	inside1 = new(uint256.Int).Sub(feeGrowthGlobal1X128, below1)
	inside1.Sub(inside1, above1)
	return inside0, inside1
}
