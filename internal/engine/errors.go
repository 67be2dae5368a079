package engine

import "errors"

var (
	// ErrLocked reports a reentrant call, or any call before Initialize.
	ErrLocked             = errors.New("pool is locked")
	ErrAlreadyInitialized = errors.New("pool already initialized")
	// ErrTickOrderInvalid reports a range with lower >= upper.
	ErrTickOrderInvalid = errors.New("lower tick must be below upper tick")
	ErrZeroAmount       = errors.New("amount must be nonzero")
	// ErrPriceLimitInvalid reports a swap price limit on the wrong side of
	// the current price or outside the representable range.
	ErrPriceLimitInvalid = errors.New("price limit out of range")
	// ErrInsufficientInput reports a payment callback that did not deliver
	// the owed amounts.
	ErrInsufficientInput = errors.New("insufficient input amount")
	// ErrInsufficientLiquidity reports a swap or flash against a pool with
	// no active liquidity.
	ErrInsufficientLiquidity = errors.New("no active liquidity")
	ErrInvalidFeeProtocol    = errors.New("fee protocol value must be 0 or in [4,10]")
	// ErrOnlyMintGate reports a mint from anyone but the configured gate.
	ErrOnlyMintGate = errors.New("mint restricted to the configured gate")
	ErrNotOwner     = errors.New("caller is not the pool owner")
	// ErrTickNotInitialized reports a range snapshot over a boundary tick
	// holding no liquidity.
	ErrTickNotInitialized = errors.New("boundary tick not initialized")
)
