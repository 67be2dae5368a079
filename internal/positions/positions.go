// Package positions tracks per-owner liquidity ranges and the fees they
// have earned but not yet collected.
package positions

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"liquidityCore/internal/fullmath"
	"liquidityCore/internal/ticks"
)

// ErrPositionEmpty reports a poke (zero delta) of a position that holds
// no liquidity.
var ErrPositionEmpty = errors.New("position has no liquidity")

var (
	q128       = new(uint256.Int).Lsh(uint256.NewInt(1), 128)
	maxUint128 = new(uint256.Int).SubUint64(new(uint256.Int).Lsh(uint256.NewInt(1), 128), 1)
)

// Key identifies a position: one owner may hold many distinct ranges.
type Key struct {
	Owner     common.Address
	TickLower int
	TickUpper int
}

// Position records the owner's liquidity in a range together with the
// fee-growth-inside checkpoints taken at the last update.
type Position struct {
	Liquidity                *uint256.Int
	FeeGrowthInside0LastX128 *uint256.Int
	FeeGrowthInside1LastX128 *uint256.Int
	TokensOwed0              *uint256.Int
	TokensOwed1              *uint256.Int
}

type Ledger struct {
	entries map[Key]*Position
}

func NewLedger() *Ledger {
	return &Ledger{entries: make(map[Key]*Position)}
}

// Get returns the live position for key, creating a zero-valued one if
// none exists.
func (l *Ledger) Get(key Key) *Position {
	if pos, ok := l.entries[key]; ok {
		return pos
	}
	pos := &Position{
		Liquidity:                uint256.NewInt(0),
		FeeGrowthInside0LastX128: uint256.NewInt(0),
		FeeGrowthInside1LastX128: uint256.NewInt(0),
		TokensOwed0:              uint256.NewInt(0),
		TokensOwed1:              uint256.NewInt(0),
	}
	l.entries[key] = pos
	return pos
}

// Clone returns a deep copy of the ledger.
func (l *Ledger) Clone() *Ledger {
	c := NewLedger()
	for k, pos := range l.entries {
		c.entries[k] = &Position{
			Liquidity:                new(uint256.Int).Set(pos.Liquidity),
			FeeGrowthInside0LastX128: new(uint256.Int).Set(pos.FeeGrowthInside0LastX128),
			FeeGrowthInside1LastX128: new(uint256.Int).Set(pos.FeeGrowthInside1LastX128),
			TokensOwed0:              new(uint256.Int).Set(pos.TokensOwed0),
			TokensOwed1:              new(uint256.Int).Set(pos.TokensOwed1),
		}
	}
	return c
}

// Update applies a signed liquidity delta and credits the fees accrued
// since the last checkpoint. Owed balances saturate at MaxUint128: fees
// must be collected before the counter pins there.
func (l *Ledger) Update(key Key, liquidityDelta, feeGrowthInside0X128, feeGrowthInside1X128 *uint256.Int) error {
	pos := l.Get(key)

	var liquidityNext *uint256.Int
	if liquidityDelta.IsZero() {
		if pos.Liquidity.IsZero() {
			return ErrPositionEmpty
		}
		liquidityNext = pos.Liquidity
	} else {
		var err error
		liquidityNext, err = ticks.AddDelta(pos.Liquidity, liquidityDelta)
		if err != nil {
			return err
		}
	}

	owed0 := owedDelta(feeGrowthInside0X128, pos.FeeGrowthInside0LastX128, pos.Liquidity)
	owed1 := owedDelta(feeGrowthInside1X128, pos.FeeGrowthInside1LastX128, pos.Liquidity)

	pos.Liquidity = liquidityNext
	pos.FeeGrowthInside0LastX128.Set(feeGrowthInside0X128)
	pos.FeeGrowthInside1LastX128.Set(feeGrowthInside1X128)
	if !owed0.IsZero() {
		pos.TokensOwed0 = saturatingAdd(pos.TokensOwed0, owed0)
	}
	if !owed1.IsZero() {
		pos.TokensOwed1 = saturatingAdd(pos.TokensOwed1, owed1)
	}
	return nil
}

// AccrueOwed credits freed principal to the owed balances, saturating at
// the uint128 ceiling the same way fee accrual does.
func (p *Position) AccrueOwed(amount0, amount1 *uint256.Int) {
	if !amount0.IsZero() {
		p.TokensOwed0 = saturatingAdd(p.TokensOwed0, amount0)
	}
	if !amount1.IsZero() {
		p.TokensOwed1 = saturatingAdd(p.TokensOwed1, amount1)
	}
}

// owedDelta is liquidity * (growthInside - lastCheckpoint) / 2^128, with
// the subtraction wrapping modulo 2^256.
func owedDelta(growthInside, last, liquidity *uint256.Int) *uint256.Int {
	delta := new(uint256.Int).Sub(growthInside, last)
	owed, err := fullmath.MulDiv(delta, liquidity, q128)
	if err != nil || owed.Cmp(maxUint128) > 0 {
		return new(uint256.Int).Set(maxUint128)
	}
	return owed
}

func saturatingAdd(x, y *uint256.Int) *uint256.Int {
	z, overflow := new(uint256.Int).AddOverflow(x, y)
	if overflow || z.Cmp(maxUint128) > 0 {
		return new(uint256.Int).Set(maxUint128)
	}
	return z
}
