// Package engine implements the concentrated-liquidity pool state machine:
// initialize, mint, burn, collect, swap, flash and the protocol fee admin,
// composed from the math and ledger packages underneath it.
package engine

import (
	"bytes"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"liquidityCore/internal/bitmap"
	"liquidityCore/internal/fullmath"
	"liquidityCore/internal/oracle"
	"liquidityCore/internal/positions"
	"liquidityCore/internal/sqrtmath"
	"liquidityCore/internal/swapmath"
	"liquidityCore/internal/tickmath"
	"liquidityCore/internal/ticks"
	"liquidityCore/internal/tokens"
)

var q128 = new(uint256.Int).Lsh(uint256.NewInt(1), 128)

// MintCallback must transfer the owed amounts to the pool's account
// before returning. The pool verifies its balances afterwards.
type MintCallback func(amount0Owed, amount1Owed *uint256.Int, data []byte) error

// SwapCallback receives signed deltas: positive amounts are owed to the
// pool, negative amounts were already sent to the recipient.
type SwapCallback func(amount0Delta, amount1Delta *uint256.Int, data []byte) error

// FlashCallback must return the borrowed amounts plus the given fees.
type FlashCallback func(fee0, fee1 *uint256.Int, data []byte) error

// Config carries the immutable pool parameters and injected collaborators.
type Config struct {
	TokenA, TokenB common.Address
	TickSpacing    int
	FeePips        uint32
	// Account is the pool's own address in the token ledger.
	Account common.Address
	Owner   common.Address
	// MintGate, when nonzero, is the only caller Mint accepts.
	MintGate common.Address
	Bank     *tokens.Ledger
	// Clock returns the current 32-bit timestamp. Defaults to wall time.
	Clock  func() uint32
	Sink   Sink
	Logger *zap.Logger
}

// Pool owns all state for one token pair. Not safe for concurrent use:
// operations are fully serialized by the caller.
type Pool struct {
	token0, token1      common.Address
	tickSpacing         int
	feePips             uint32
	maxLiquidityPerTick *uint256.Int
	account             common.Address
	owner               common.Address
	mintGate            common.Address

	bank  *tokens.Ledger
	clock func() uint32
	sink  Sink
	log   *zap.Logger

	initialized bool
	unlocked    bool

	sqrtPriceX96               *uint256.Int
	tick                       int
	observationIndex           uint16
	observationCardinality     uint16
	observationCardinalityNext uint16
	feeProtocol                uint8

	liquidity            *uint256.Int
	feeGrowthGlobal0X128 *uint256.Int
	feeGrowthGlobal1X128 *uint256.Int
	protocolFees0        *uint256.Int
	protocolFees1        *uint256.Int

	ticks        *ticks.Ledger
	tickBitmap   *bitmap.Bitmap
	positions    *positions.Ledger
	observations *oracle.Buffer
}

var errMissingBank = errors.New("token ledger is required")

func New(cfg Config) (*Pool, error) {
	if cfg.TickSpacing <= 0 {
		return nil, errors.New("tick spacing must be positive")
	}
	if cfg.Bank == nil {
		return nil, errMissingBank
	}
	token0, token1 := cfg.TokenA, cfg.TokenB
	if bytes.Compare(token1.Bytes(), token0.Bytes()) < 0 {
		token0, token1 = token1, token0
	}
	clock := cfg.Clock
	if clock == nil {
		clock = func() uint32 { return uint32(time.Now().Unix()) }
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Pool{
		token0:               token0,
		token1:               token1,
		tickSpacing:          cfg.TickSpacing,
		feePips:              cfg.FeePips,
		maxLiquidityPerTick:  ticks.MaxLiquidityPerTick(cfg.TickSpacing),
		account:              cfg.Account,
		owner:                cfg.Owner,
		mintGate:             cfg.MintGate,
		bank:                 cfg.Bank,
		clock:                clock,
		sink:                 cfg.Sink,
		log:                  log,
		sqrtPriceX96:         uint256.NewInt(0),
		liquidity:            uint256.NewInt(0),
		feeGrowthGlobal0X128: uint256.NewInt(0),
		feeGrowthGlobal1X128: uint256.NewInt(0),
		protocolFees0:        uint256.NewInt(0),
		protocolFees1:        uint256.NewInt(0),
		ticks:                ticks.NewLedger(),
		tickBitmap:           bitmap.New(),
		positions:            positions.NewLedger(),
		observations:         oracle.NewBuffer(),
	}, nil
}

// Accessors. All returned big values are copies.

func (p *Pool) Token0() common.Address  { return p.token0 }
func (p *Pool) Token1() common.Address  { return p.token1 }
func (p *Pool) Account() common.Address { return p.account }
func (p *Pool) TickSpacing() int        { return p.tickSpacing }
func (p *Pool) FeePips() uint32         { return p.feePips }
func (p *Pool) CurrentTick() int        { return p.tick }

func (p *Pool) SqrtPriceX96() *uint256.Int { return new(uint256.Int).Set(p.sqrtPriceX96) }
func (p *Pool) Liquidity() *uint256.Int    { return new(uint256.Int).Set(p.liquidity) }

func (p *Pool) FeeGrowthGlobal0X128() *uint256.Int {
	return new(uint256.Int).Set(p.feeGrowthGlobal0X128)
}

func (p *Pool) FeeGrowthGlobal1X128() *uint256.Int {
	return new(uint256.Int).Set(p.feeGrowthGlobal1X128)
}

func (p *Pool) ProtocolFees() (fees0, fees1 *uint256.Int) {
	return new(uint256.Int).Set(p.protocolFees0), new(uint256.Int).Set(p.protocolFees1)
}

func (p *Pool) FeeProtocol() uint8 { return p.feeProtocol }

func (p *Pool) ObservationCardinalityNext() uint16 { return p.observationCardinalityNext }

// Position returns a copy of the position for the given key.
func (p *Pool) Position(owner common.Address, tickLower, tickUpper int) positions.Position {
	pos := p.positions.Get(positions.Key{Owner: owner, TickLower: tickLower, TickUpper: tickUpper})
	return positions.Position{
		Liquidity:                new(uint256.Int).Set(pos.Liquidity),
		FeeGrowthInside0LastX128: new(uint256.Int).Set(pos.FeeGrowthInside0LastX128),
		FeeGrowthInside1LastX128: new(uint256.Int).Set(pos.FeeGrowthInside1LastX128),
		TokensOwed0:              new(uint256.Int).Set(pos.TokensOwed0),
		TokensOwed1:              new(uint256.Int).Set(pos.TokensOwed1),
	}
}

// Tick returns a copy of the ledger entry for tick.
func (p *Pool) Tick(tick int) ticks.Info {
	info := p.ticks.Peek(tick)
	return ticks.Info{
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

func (p *Pool) balance0() *uint256.Int { return p.bank.BalanceOf(p.token0, p.account) }
func (p *Pool) balance1() *uint256.Int { return p.bank.BalanceOf(p.token1, p.account) }

func (p *Pool) emit(e Event) {
	p.log.Debug("pool event", zap.String("event", e.Name()), zap.Any("payload", e))
	if p.sink != nil {
		p.sink.Emit(e)
	}
}

// snapshot captures every mutable piece of pool state, including the
// token ledger: a failed operation must leave nothing behind, callback
// side effects included.
type snapshot struct {
	sqrtPriceX96               *uint256.Int
	tick                       int
	observationIndex           uint16
	observationCardinality     uint16
	observationCardinalityNext uint16
	feeProtocol                uint8
	liquidity                  *uint256.Int
	feeGrowthGlobal0X128       *uint256.Int
	feeGrowthGlobal1X128       *uint256.Int
	protocolFees0              *uint256.Int
	protocolFees1              *uint256.Int
	ticks                      *ticks.Ledger
	tickBitmap                 *bitmap.Bitmap
	positions                  *positions.Ledger
	observations               *oracle.Buffer
	bank                       *tokens.Ledger
}

func (p *Pool) snapshot() *snapshot {
	return &snapshot{
		sqrtPriceX96:               new(uint256.Int).Set(p.sqrtPriceX96),
		tick:                       p.tick,
		observationIndex:           p.observationIndex,
		observationCardinality:     p.observationCardinality,
		observationCardinalityNext: p.observationCardinalityNext,
		feeProtocol:                p.feeProtocol,
		liquidity:                  new(uint256.Int).Set(p.liquidity),
		feeGrowthGlobal0X128:       new(uint256.Int).Set(p.feeGrowthGlobal0X128),
		feeGrowthGlobal1X128:       new(uint256.Int).Set(p.feeGrowthGlobal1X128),
		protocolFees0:              new(uint256.Int).Set(p.protocolFees0),
		protocolFees1:              new(uint256.Int).Set(p.protocolFees1),
		ticks:                      p.ticks.Clone(),
		tickBitmap:                 p.tickBitmap.Clone(),
		positions:                  p.positions.Clone(),
		observations:               p.observations.Clone(),
		bank:                       p.bank.Clone(),
	}
}

func (p *Pool) restore(s *snapshot) {
	p.sqrtPriceX96 = s.sqrtPriceX96
	p.tick = s.tick
	p.observationIndex = s.observationIndex
	p.observationCardinality = s.observationCardinality
	p.observationCardinalityNext = s.observationCardinalityNext
	p.feeProtocol = s.feeProtocol
	p.liquidity = s.liquidity
	p.feeGrowthGlobal0X128 = s.feeGrowthGlobal0X128
	p.feeGrowthGlobal1X128 = s.feeGrowthGlobal1X128
	p.protocolFees0 = s.protocolFees0
	p.protocolFees1 = s.protocolFees1
	p.ticks = s.ticks
	p.tickBitmap = s.tickBitmap
	p.positions = s.positions
	p.observations = s.observations
	p.bank.Restore(s.bank)
}

// begin takes the lock and snapshots the state for rollback.
func (p *Pool) begin() (*snapshot, error) {
	if !p.unlocked {
		return nil, ErrLocked
	}
	p.unlocked = false
	return p.snapshot(), nil
}

// finish releases the lock, rolling back if the operation failed.
func (p *Pool) finish(s *snapshot, errp *error) {
	if *errp != nil {
		p.restore(s)
	}
	p.unlocked = true
}

// Initialize sets the starting price, writes observation slot 0 and
// unlocks the pool. Valid exactly once.
func (p *Pool) Initialize(sqrtPriceX96 *uint256.Int) error {
	if p.initialized {
		return ErrAlreadyInitialized
	}
	tick, err := tickmath.TickAtSqrtRatio(sqrtPriceX96)
	if err != nil {
		return err
	}

	p.sqrtPriceX96 = new(uint256.Int).Set(sqrtPriceX96)
	p.tick = tick
	p.observationCardinality, p.observationCardinalityNext = p.observations.Initialize(p.clock())
	p.initialized = true
	p.unlocked = true

	p.emit(InitializeEvent{SqrtPriceX96: p.SqrtPriceX96(), Tick: tick})
	return nil
}

func (p *Pool) checkTicks(tickLower, tickUpper int) error {
	if tickLower >= tickUpper {
		return ErrTickOrderInvalid
	}
	if tickLower < tickmath.MinTick || tickUpper > tickmath.MaxTick {
		return tickmath.ErrTickOutOfRange
	}
	if tickLower%p.tickSpacing != 0 || tickUpper%p.tickSpacing != 0 {
		return bitmap.ErrTickMisaligned
	}
	return nil
}

// updatePosition applies a liquidity delta to a position and its two
// boundary ticks, flipping bitmap bits and clearing emptied tick entries.
func (p *Pool) updatePosition(
	owner common.Address,
	tickLower, tickUpper int,
	liquidityDelta *uint256.Int,
	tick int,
) (*positions.Position, error) {
	key := positions.Key{Owner: owner, TickLower: tickLower, TickUpper: tickUpper}

	var flippedLower, flippedUpper bool
	if !liquidityDelta.IsZero() {
		now := p.clock()
		tickCumulative, secondsPerLiquidityX128, err := p.observations.ObserveSingle(
			now, 0, p.tick, p.observationIndex, p.liquidity, p.observationCardinality)
		if err != nil {
			return nil, err
		}

		flippedLower, err = p.ticks.Update(tickLower, tick, liquidityDelta,
			p.feeGrowthGlobal0X128, p.feeGrowthGlobal1X128,
			secondsPerLiquidityX128, tickCumulative, now, false, p.maxLiquidityPerTick)
		if err != nil {
			return nil, err
		}
		flippedUpper, err = p.ticks.Update(tickUpper, tick, liquidityDelta,
			p.feeGrowthGlobal0X128, p.feeGrowthGlobal1X128,
			secondsPerLiquidityX128, tickCumulative, now, true, p.maxLiquidityPerTick)
		if err != nil {
			return nil, err
		}

		if flippedLower {
			if err := p.tickBitmap.FlipTick(tickLower, p.tickSpacing); err != nil {
				return nil, err
			}
		}
		if flippedUpper {
			if err := p.tickBitmap.FlipTick(tickUpper, p.tickSpacing); err != nil {
				return nil, err
			}
		}
	}

	inside0, inside1 := p.ticks.FeeGrowthInside(tickLower, tickUpper, tick,
		p.feeGrowthGlobal0X128, p.feeGrowthGlobal1X128)
	if err := p.positions.Update(key, liquidityDelta, inside0, inside1); err != nil {
		return nil, err
	}

	if liquidityDelta.Sign() < 0 {
		if flippedLower {
			p.ticks.Clear(tickLower)
		}
		if flippedUpper {
			p.ticks.Clear(tickUpper)
		}
	}
	return p.positions.Get(key), nil
}

// modifyPosition returns the signed token deltas for a liquidity change
// over a range: positive amounts are owed to the pool.
func (p *Pool) modifyPosition(
	owner common.Address,
	tickLower, tickUpper int,
	liquidityDelta *uint256.Int,
) (pos *positions.Position, amount0, amount1 *uint256.Int, err error) {
	if err := p.checkTicks(tickLower, tickUpper); err != nil {
		return nil, nil, nil, err
	}

	pos, err = p.updatePosition(owner, tickLower, tickUpper, liquidityDelta, p.tick)
	if err != nil {
		return nil, nil, nil, err
	}

	amount0 = uint256.NewInt(0)
	amount1 = uint256.NewInt(0)
	if liquidityDelta.IsZero() {
		return pos, amount0, amount1, nil
	}

	priceLower, err := tickmath.SqrtRatioAtTick(tickLower)
	if err != nil {
		return nil, nil, nil, err
	}
	priceUpper, err := tickmath.SqrtRatioAtTick(tickUpper)
	if err != nil {
		return nil, nil, nil, err
	}

	switch {
	case p.tick < tickLower:
		// Range entirely above the current price: all token0.
		amount0, err = sqrtmath.SignedAmount0Delta(priceLower, priceUpper, liquidityDelta)
	case p.tick < tickUpper:
		// In range: the observation is written with the pre-change liquidity.
		p.observationIndex, p.observationCardinality = p.observations.Write(
			p.observationIndex, p.clock(), p.tick, p.liquidity,
			p.observationCardinality, p.observationCardinalityNext)

		amount0, err = sqrtmath.SignedAmount0Delta(p.sqrtPriceX96, priceUpper, liquidityDelta)
		if err == nil {
			amount1, err = sqrtmath.SignedAmount1Delta(priceLower, p.sqrtPriceX96, liquidityDelta)
		}
		if err == nil {
			p.liquidity, err = ticks.AddDelta(p.liquidity, liquidityDelta)
		}
	default:
		// Range entirely below the current price: all token1.
		amount1, err = sqrtmath.SignedAmount1Delta(priceLower, priceUpper, liquidityDelta)
	}
	if err != nil {
		return nil, nil, nil, err
	}
	return pos, amount0, amount1, nil
}

// Mint adds liquidity to a range for recipient. The callback must pay the
// returned amounts into the pool's account before returning.
func (p *Pool) Mint(
	caller, recipient common.Address,
	tickLower, tickUpper int,
	amount *uint256.Int,
	cb MintCallback,
	data []byte,
) (amount0, amount1 *uint256.Int, err error) {
	snap, err := p.begin()
	if err != nil {
		return nil, nil, err
	}
	defer p.finish(snap, &err)

	if p.mintGate != (common.Address{}) && caller != p.mintGate {
		return nil, nil, ErrOnlyMintGate
	}
	if amount.IsZero() {
		return nil, nil, ErrZeroAmount
	}

	_, amount0, amount1, err = p.modifyPosition(recipient, tickLower, tickUpper, amount)
	if err != nil {
		return nil, nil, err
	}

	var balance0Before, balance1Before *uint256.Int
	if !amount0.IsZero() {
		balance0Before = p.balance0()
	}
	if !amount1.IsZero() {
		balance1Before = p.balance1()
	}
	if cb != nil {
		if err = cb(new(uint256.Int).Set(amount0), new(uint256.Int).Set(amount1), data); err != nil {
			return nil, nil, err
		}
	}
	if !amount0.IsZero() {
		owed := new(uint256.Int).Add(balance0Before, amount0)
		if p.balance0().Cmp(owed) < 0 {
			return nil, nil, ErrInsufficientInput
		}
	}
	if !amount1.IsZero() {
		owed := new(uint256.Int).Add(balance1Before, amount1)
		if p.balance1().Cmp(owed) < 0 {
			return nil, nil, ErrInsufficientInput
		}
	}

	p.emit(MintEvent{
		Sender: caller, Owner: recipient,
		TickLower: tickLower, TickUpper: tickUpper,
		Amount:  new(uint256.Int).Set(amount),
		Amount0: new(uint256.Int).Set(amount0),
		Amount1: new(uint256.Int).Set(amount1),
	})
	return amount0, amount1, nil
}

// Burn removes liquidity from the caller's position and accrues the freed
// amounts as tokens owed. amount zero is a poke: fee snapshots refresh
// without a liquidity change.
func (p *Pool) Burn(
	owner common.Address,
	tickLower, tickUpper int,
	amount *uint256.Int,
) (amount0, amount1 *uint256.Int, err error) {
	snap, err := p.begin()
	if err != nil {
		return nil, nil, err
	}
	defer p.finish(snap, &err)

	pos, amount0Signed, amount1Signed, err := p.modifyPosition(
		owner, tickLower, tickUpper, new(uint256.Int).Neg(amount))
	if err != nil {
		return nil, nil, err
	}

	amount0 = new(uint256.Int).Neg(amount0Signed)
	amount1 = new(uint256.Int).Neg(amount1Signed)
	pos.AccrueOwed(amount0, amount1)

	p.emit(BurnEvent{
		Owner:     owner,
		TickLower: tickLower, TickUpper: tickUpper,
		Amount:  new(uint256.Int).Set(amount),
		Amount0: new(uint256.Int).Set(amount0),
		Amount1: new(uint256.Int).Set(amount1),
	})
	return amount0, amount1, nil
}

// Collect transfers up to amount0Requested/amount1Requested of the
// position's owed tokens to recipient.
func (p *Pool) Collect(
	owner, recipient common.Address,
	tickLower, tickUpper int,
	amount0Requested, amount1Requested *uint256.Int,
) (amount0, amount1 *uint256.Int, err error) {
	snap, err := p.begin()
	if err != nil {
		return nil, nil, err
	}
	defer p.finish(snap, &err)

	pos := p.positions.Get(positions.Key{Owner: owner, TickLower: tickLower, TickUpper: tickUpper})

	amount0 = minU256(amount0Requested, pos.TokensOwed0)
	amount1 = minU256(amount1Requested, pos.TokensOwed1)

	if !amount0.IsZero() {
		pos.TokensOwed0.Sub(pos.TokensOwed0, amount0)
		if err = p.bank.Transfer(p.token0, p.account, recipient, amount0); err != nil {
			return nil, nil, err
		}
	}
	if !amount1.IsZero() {
		pos.TokensOwed1.Sub(pos.TokensOwed1, amount1)
		if err = p.bank.Transfer(p.token1, p.account, recipient, amount1); err != nil {
			return nil, nil, err
		}
	}

	p.emit(CollectEvent{
		Owner: owner, Recipient: recipient,
		TickLower: tickLower, TickUpper: tickUpper,
		Amount0: new(uint256.Int).Set(amount0),
		Amount1: new(uint256.Int).Set(amount1),
	})
	return amount0, amount1, nil
}

func minU256(a, b *uint256.Int) *uint256.Int {
	if a.Cmp(b) < 0 {
		return new(uint256.Int).Set(a)
	}
	return new(uint256.Int).Set(b)
}

// Swap trades along the curve until amountSpecified is exhausted or the
// price limit is reached. amountSpecified is signed: positive for exact
// input, negative for exact output. Returned deltas are signed from the
// pool's point of view.
func (p *Pool) Swap(
	caller, recipient common.Address,
	zeroForOne bool,
	amountSpecified *uint256.Int,
	sqrtPriceLimitX96 *uint256.Int,
	cb SwapCallback,
	data []byte,
) (amount0, amount1 *uint256.Int, err error) {
	snap, err := p.begin()
	if err != nil {
		return nil, nil, err
	}
	defer p.finish(snap, &err)

	if amountSpecified.IsZero() {
		return nil, nil, ErrZeroAmount
	}
	if p.liquidity.IsZero() {
		return nil, nil, ErrInsufficientLiquidity
	}
	if zeroForOne {
		if sqrtPriceLimitX96.Cmp(p.sqrtPriceX96) >= 0 || sqrtPriceLimitX96.Cmp(tickmath.MinSqrtRatio) <= 0 {
			return nil, nil, ErrPriceLimitInvalid
		}
	} else {
		if sqrtPriceLimitX96.Cmp(p.sqrtPriceX96) <= 0 || sqrtPriceLimitX96.Cmp(tickmath.MaxSqrtRatio) >= 0 {
			return nil, nil, ErrPriceLimitInvalid
		}
	}

	startTick := p.tick
	startLiquidity := new(uint256.Int).Set(p.liquidity)
	now := p.clock()

	var protocolFeeShare uint8
	if zeroForOne {
		protocolFeeShare = p.feeProtocol % 16
	} else {
		protocolFeeShare = p.feeProtocol >> 4
	}

	exactInput := amountSpecified.Sign() > 0

	remaining := new(uint256.Int).Set(amountSpecified)
	calculated := uint256.NewInt(0)
	price := new(uint256.Int).Set(p.sqrtPriceX96)
	tick := p.tick
	liquidity := new(uint256.Int).Set(p.liquidity)
	feeGrowthGlobal := new(uint256.Int)
	if zeroForOne {
		feeGrowthGlobal.Set(p.feeGrowthGlobal0X128)
	} else {
		feeGrowthGlobal.Set(p.feeGrowthGlobal1X128)
	}
	protocolFeeAccrued := uint256.NewInt(0)

	// Cross accumulators are computed once, on the first tick crossing.
	var crossTickCumulative int64
	var crossSecondsPerLiquidity *uint256.Int

	for !remaining.IsZero() && price.Cmp(sqrtPriceLimitX96) != 0 {
		stepStartPrice := new(uint256.Int).Set(price)

		tickNext, stepInitialized := p.tickBitmap.NextInitializedTickWithinOneWord(tick, p.tickSpacing, zeroForOne)
		if tickNext < tickmath.MinTick {
			tickNext = tickmath.MinTick
		} else if tickNext > tickmath.MaxTick {
			tickNext = tickmath.MaxTick
		}
		stepNextPrice, serr := tickmath.SqrtRatioAtTick(tickNext)
		if serr != nil {
			err = serr
			return nil, nil, err
		}

		target := stepNextPrice
		if zeroForOne {
			if stepNextPrice.Cmp(sqrtPriceLimitX96) < 0 {
				target = sqrtPriceLimitX96
			}
		} else {
			if stepNextPrice.Cmp(sqrtPriceLimitX96) > 0 {
				target = sqrtPriceLimitX96
			}
		}

		var amountIn, amountOut, feeAmount *uint256.Int
		price, amountIn, amountOut, feeAmount, err = swapmath.ComputeStep(price, target, liquidity, remaining, p.feePips)
		if err != nil {
			return nil, nil, err
		}

		if exactInput {
			remaining.Sub(remaining, amountIn)
			remaining.Sub(remaining, feeAmount)
			calculated.Sub(calculated, amountOut)
		} else {
			remaining.Add(remaining, amountOut)
			calculated.Add(calculated, amountIn)
			calculated.Add(calculated, feeAmount)
		}

		if protocolFeeShare > 0 {
			delta := new(uint256.Int).Div(feeAmount, uint256.NewInt(uint64(protocolFeeShare)))
			feeAmount.Sub(feeAmount, delta)
			protocolFeeAccrued.Add(protocolFeeAccrued, delta)
		}
		if !liquidity.IsZero() && !feeAmount.IsZero() {
			growth, gerr := fullmath.MulDiv(feeAmount, q128, liquidity)
			if gerr != nil {
				err = gerr
				return nil, nil, err
			}
			feeGrowthGlobal.Add(feeGrowthGlobal, growth)
		}

		if price.Cmp(stepNextPrice) == 0 {
			if stepInitialized {
				if crossSecondsPerLiquidity == nil {
					crossTickCumulative, crossSecondsPerLiquidity, err = p.observations.ObserveSingle(
						now, 0, startTick, p.observationIndex, startLiquidity, p.observationCardinality)
					if err != nil {
						return nil, nil, err
					}
				}
				var fee0, fee1 *uint256.Int
				if zeroForOne {
					fee0, fee1 = feeGrowthGlobal, p.feeGrowthGlobal1X128
				} else {
					fee0, fee1 = p.feeGrowthGlobal0X128, feeGrowthGlobal
				}
				liquidityNet := new(uint256.Int).Set(
					p.ticks.Cross(tickNext, fee0, fee1, crossSecondsPerLiquidity, crossTickCumulative, now))
				if zeroForOne {
					liquidityNet.Neg(liquidityNet)
				}
				liquidity, err = ticks.AddDelta(liquidity, liquidityNet)
				if err != nil {
					return nil, nil, err
				}
			}
			if zeroForOne {
				tick = tickNext - 1
			} else {
				tick = tickNext
			}
		} else if price.Cmp(stepStartPrice) != 0 {
			tick, err = tickmath.TickAtSqrtRatio(price)
			if err != nil {
				return nil, nil, err
			}
		}
	}

	// The observation goes in before slot0 moves, with pre-swap values.
	if tick != startTick {
		p.observationIndex, p.observationCardinality = p.observations.Write(
			p.observationIndex, now, startTick, startLiquidity,
			p.observationCardinality, p.observationCardinalityNext)
		p.tick = tick
	}
	p.sqrtPriceX96 = price
	p.liquidity = liquidity

	if zeroForOne {
		p.feeGrowthGlobal0X128 = feeGrowthGlobal
		p.protocolFees0.Add(p.protocolFees0, protocolFeeAccrued)
	} else {
		p.feeGrowthGlobal1X128 = feeGrowthGlobal
		p.protocolFees1.Add(p.protocolFees1, protocolFeeAccrued)
	}

	used := new(uint256.Int).Sub(amountSpecified, remaining)
	if zeroForOne == exactInput {
		amount0, amount1 = used, calculated
	} else {
		amount0, amount1 = calculated, used
	}

	// Pay out first, then demand the input through the callback.
	if zeroForOne {
		if amount1.Sign() < 0 {
			out := new(uint256.Int).Neg(amount1)
			if err = p.bank.Transfer(p.token1, p.account, recipient, out); err != nil {
				return nil, nil, err
			}
		}
		balanceBefore := p.balance0()
		if cb != nil {
			if err = cb(new(uint256.Int).Set(amount0), new(uint256.Int).Set(amount1), data); err != nil {
				return nil, nil, err
			}
		}
		owed := new(uint256.Int).Add(balanceBefore, amount0)
		if p.balance0().Cmp(owed) < 0 {
			return nil, nil, ErrInsufficientInput
		}
	} else {
		if amount0.Sign() < 0 {
			out := new(uint256.Int).Neg(amount0)
			if err = p.bank.Transfer(p.token0, p.account, recipient, out); err != nil {
				return nil, nil, err
			}
		}
		balanceBefore := p.balance1()
		if cb != nil {
			if err = cb(new(uint256.Int).Set(amount0), new(uint256.Int).Set(amount1), data); err != nil {
				return nil, nil, err
			}
		}
		owed := new(uint256.Int).Add(balanceBefore, amount1)
		if p.balance1().Cmp(owed) < 0 {
			return nil, nil, ErrInsufficientInput
		}
	}

	p.emit(SwapEvent{
		Sender: caller, Recipient: recipient,
		Amount0:      new(uint256.Int).Set(amount0),
		Amount1:      new(uint256.Int).Set(amount1),
		SqrtPriceX96: p.SqrtPriceX96(),
		Liquidity:    p.Liquidity(),
		Tick:         p.tick,
	})
	return amount0, amount1, nil
}

// Flash lends amount0/amount1 to recipient for the duration of the
// callback. Repayment of principal plus the pool fee is enforced through
// the balance check; anything paid above that is credited to fee growth.
func (p *Pool) Flash(
	caller, recipient common.Address,
	amount0, amount1 *uint256.Int,
	cb FlashCallback,
	data []byte,
) (err error) {
	snap, err := p.begin()
	if err != nil {
		return err
	}
	defer p.finish(snap, &err)

	if p.liquidity.IsZero() {
		return ErrInsufficientLiquidity
	}

	fee0, err := fullmath.MulDivRoundingUp(amount0, uint256.NewInt(uint64(p.feePips)), uint256.NewInt(swapmath.FeeDenominator))
	if err != nil {
		return err
	}
	fee1, err := fullmath.MulDivRoundingUp(amount1, uint256.NewInt(uint64(p.feePips)), uint256.NewInt(swapmath.FeeDenominator))
	if err != nil {
		return err
	}

	balance0Before := p.balance0()
	balance1Before := p.balance1()

	if !amount0.IsZero() {
		if err = p.bank.Transfer(p.token0, p.account, recipient, amount0); err != nil {
			return err
		}
	}
	if !amount1.IsZero() {
		if err = p.bank.Transfer(p.token1, p.account, recipient, amount1); err != nil {
			return err
		}
	}
	if cb != nil {
		if err = cb(new(uint256.Int).Set(fee0), new(uint256.Int).Set(fee1), data); err != nil {
			return err
		}
	}

	balance0After := p.balance0()
	balance1After := p.balance1()
	if new(uint256.Int).Add(balance0Before, fee0).Cmp(balance0After) > 0 {
		return ErrInsufficientInput
	}
	if new(uint256.Int).Add(balance1Before, fee1).Cmp(balance1After) > 0 {
		return ErrInsufficientInput
	}

	// The whole of what was paid above principal goes to the providers,
	// never to the protocol fee.
	paid0 := new(uint256.Int).Sub(balance0After, balance0Before)
	paid1 := new(uint256.Int).Sub(balance1After, balance1Before)
	if !paid0.IsZero() {
		growth, gerr := fullmath.MulDiv(paid0, q128, p.liquidity)
		if gerr != nil {
			return gerr
		}
		p.feeGrowthGlobal0X128.Add(p.feeGrowthGlobal0X128, growth)
	}
	if !paid1.IsZero() {
		growth, gerr := fullmath.MulDiv(paid1, q128, p.liquidity)
		if gerr != nil {
			return gerr
		}
		p.feeGrowthGlobal1X128.Add(p.feeGrowthGlobal1X128, growth)
	}

	p.emit(FlashEvent{
		Sender: caller, Recipient: recipient,
		Amount0: new(uint256.Int).Set(amount0),
		Amount1: new(uint256.Int).Set(amount1),
		Paid0:   paid0, Paid1: paid1,
	})
	return nil
}

// SetFeeProtocol configures the protocol's share of trading fees, one
// 4-bit value per token, each 0 or in [4,10].
func (p *Pool) SetFeeProtocol(caller common.Address, feeProtocol0, feeProtocol1 uint8) (err error) {
	snap, err := p.begin()
	if err != nil {
		return err
	}
	defer p.finish(snap, &err)

	if caller != p.owner {
		return ErrNotOwner
	}
	if !validFeeProtocol(feeProtocol0) || !validFeeProtocol(feeProtocol1) {
		return ErrInvalidFeeProtocol
	}

	old := p.feeProtocol
	p.feeProtocol = feeProtocol0 + (feeProtocol1 << 4)
	p.emit(SetFeeProtocolEvent{
		Old0: old % 16, Old1: old >> 4,
		New0: feeProtocol0, New1: feeProtocol1,
	})
	return nil
}

func validFeeProtocol(v uint8) bool {
	return v == 0 || (v >= 4 && v <= 10)
}

// CollectProtocol withdraws accrued protocol fees to recipient.
func (p *Pool) CollectProtocol(
	caller, recipient common.Address,
	amount0Requested, amount1Requested *uint256.Int,
) (amount0, amount1 *uint256.Int, err error) {
	snap, err := p.begin()
	if err != nil {
		return nil, nil, err
	}
	defer p.finish(snap, &err)

	if caller != p.owner {
		return nil, nil, ErrNotOwner
	}

	amount0 = minU256(amount0Requested, p.protocolFees0)
	amount1 = minU256(amount1Requested, p.protocolFees1)

	if !amount0.IsZero() {
		p.protocolFees0.Sub(p.protocolFees0, amount0)
		if err = p.bank.Transfer(p.token0, p.account, recipient, amount0); err != nil {
			return nil, nil, err
		}
	}
	if !amount1.IsZero() {
		p.protocolFees1.Sub(p.protocolFees1, amount1)
		if err = p.bank.Transfer(p.token1, p.account, recipient, amount1); err != nil {
			return nil, nil, err
		}
	}

	p.emit(CollectProtocolEvent{
		Sender: caller, Recipient: recipient,
		Amount0: new(uint256.Int).Set(amount0),
		Amount1: new(uint256.Int).Set(amount1),
	})
	return amount0, amount1, nil
}

// IncreaseObservationCardinalityNext grows the oracle's allocated
// capacity. Shrinks are ignored; the event fires only on actual growth.
func (p *Pool) IncreaseObservationCardinalityNext(observationCardinalityNext uint16) (err error) {
	snap, err := p.begin()
	if err != nil {
		return err
	}
	defer p.finish(snap, &err)

	old := p.observationCardinalityNext
	p.observationCardinalityNext = p.observations.Grow(old, observationCardinalityNext)
	if p.observationCardinalityNext != old {
		p.emit(IncreaseObservationCardinalityNextEvent{Old: old, New: p.observationCardinalityNext})
	}
	return nil
}

// Observe answers TWAP accumulator queries for a list of historical
// offsets in seconds.
func (p *Pool) Observe(secondsAgos []uint32) ([]int64, []*uint256.Int, error) {
	if !p.initialized {
		return nil, nil, ErrLocked
	}
	return p.observations.Observe(p.clock(), secondsAgos, p.tick,
		p.observationIndex, p.liquidity, p.observationCardinality)
}

// SnapshotCumulativesInside returns the accumulator values scoped to a
// range. Both boundary ticks must currently hold liquidity.
func (p *Pool) SnapshotCumulativesInside(tickLower, tickUpper int) (
	tickCumulativeInside int64,
	secondsPerLiquidityInsideX128 *uint256.Int,
	secondsInside uint32,
	err error,
) {
	if !p.initialized {
		return 0, nil, 0, ErrLocked
	}
	if err = p.checkTicks(tickLower, tickUpper); err != nil {
		return 0, nil, 0, err
	}
	if !p.ticks.Has(tickLower) || !p.ticks.Has(tickUpper) {
		return 0, nil, 0, ErrTickNotInitialized
	}

	lower := p.Tick(tickLower)
	upper := p.Tick(tickUpper)

	switch {
	case p.tick < tickLower:
		spl := new(uint256.Int).Sub(lower.SecondsPerLiquidityOutsideX128, upper.SecondsPerLiquidityOutsideX128)
		return lower.TickCumulativeOutside - upper.TickCumulativeOutside,
			spl, lower.SecondsOutside - upper.SecondsOutside, nil
	case p.tick < tickUpper:
		now := p.clock()
		tickCumulative, secondsPerLiquidityX128, oerr := p.observations.ObserveSingle(
			now, 0, p.tick, p.observationIndex, p.liquidity, p.observationCardinality)
		if oerr != nil {
			return 0, nil, 0, oerr
		}
		spl := new(uint256.Int).Sub(secondsPerLiquidityX128, lower.SecondsPerLiquidityOutsideX128)
		spl.Sub(spl, upper.SecondsPerLiquidityOutsideX128)
		return tickCumulative - lower.TickCumulativeOutside - upper.TickCumulativeOutside,
			spl, now - lower.SecondsOutside - upper.SecondsOutside, nil
	default:
		spl := new(uint256.Int).Sub(upper.SecondsPerLiquidityOutsideX128, lower.SecondsPerLiquidityOutsideX128)
		return upper.TickCumulativeOutside - lower.TickCumulativeOutside,
			spl, upper.SecondsOutside - lower.SecondsOutside, nil
	}
}
