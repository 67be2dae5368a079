package engine

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Event is a post-state snapshot of one pool operation. Events carry no
// control flow: consumers observe, they never influence the pool.
type Event interface {
	Name() string
}

// Sink receives every event the pool emits, in operation order.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) { f(e) }

type InitializeEvent struct {
	SqrtPriceX96 *uint256.Int `json:"sqrt_price_x96"`
	Tick         int          `json:"tick"`
}

func (InitializeEvent) Name() string { return "Initialize" }

type MintEvent struct {
	Sender    common.Address `json:"sender"`
	Owner     common.Address `json:"owner"`
	TickLower int            `json:"tick_lower"`
	TickUpper int            `json:"tick_upper"`
	Amount    *uint256.Int   `json:"amount"`
	Amount0   *uint256.Int   `json:"amount0"`
	Amount1   *uint256.Int   `json:"amount1"`
}

func (MintEvent) Name() string { return "Mint" }

type BurnEvent struct {
	Owner     common.Address `json:"owner"`
	TickLower int            `json:"tick_lower"`
	TickUpper int            `json:"tick_upper"`
	Amount    *uint256.Int   `json:"amount"`
	Amount0   *uint256.Int   `json:"amount0"`
	Amount1   *uint256.Int   `json:"amount1"`
}

func (BurnEvent) Name() string { return "Burn" }

type CollectEvent struct {
	Owner     common.Address `json:"owner"`
	Recipient common.Address `json:"recipient"`
	TickLower int            `json:"tick_lower"`
	TickUpper int            `json:"tick_upper"`
	Amount0   *uint256.Int   `json:"amount0"`
	Amount1   *uint256.Int   `json:"amount1"`
}

func (CollectEvent) Name() string { return "Collect" }

// SwapEvent amounts are signed: positive flows into the pool.
type SwapEvent struct {
	Sender       common.Address `json:"sender"`
	Recipient    common.Address `json:"recipient"`
	Amount0      *uint256.Int   `json:"amount0"`
	Amount1      *uint256.Int   `json:"amount1"`
	SqrtPriceX96 *uint256.Int   `json:"sqrt_price_x96"`
	Liquidity    *uint256.Int   `json:"liquidity"`
	Tick         int            `json:"tick"`
}

func (SwapEvent) Name() string { return "Swap" }

type FlashEvent struct {
	Sender    common.Address `json:"sender"`
	Recipient common.Address `json:"recipient"`
	Amount0   *uint256.Int   `json:"amount0"`
	Amount1   *uint256.Int   `json:"amount1"`
	Paid0     *uint256.Int   `json:"paid0"`
	Paid1     *uint256.Int   `json:"paid1"`
}

func (FlashEvent) Name() string { return "Flash" }

type SetFeeProtocolEvent struct {
	Old0 uint8 `json:"old0"`
	Old1 uint8 `json:"old1"`
	New0 uint8 `json:"new0"`
	New1 uint8 `json:"new1"`
}

func (SetFeeProtocolEvent) Name() string { return "SetFeeProtocol" }

type CollectProtocolEvent struct {
	Sender    common.Address `json:"sender"`
	Recipient common.Address `json:"recipient"`
	Amount0   *uint256.Int   `json:"amount0"`
	Amount1   *uint256.Int   `json:"amount1"`
}

func (CollectProtocolEvent) Name() string { return "CollectProtocol" }

type IncreaseObservationCardinalityNextEvent struct {
	Old uint16 `json:"old"`
	New uint16 `json:"new"`
}

func (IncreaseObservationCardinalityNextEvent) Name() string {
	return "IncreaseObservationCardinalityNext"
}
