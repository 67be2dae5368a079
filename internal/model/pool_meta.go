package model

// PoolMeta captures the immutable pool parameters for a run.
type PoolMeta struct {
	Token0      string `json:"token0"`
	Token1      string `json:"token1"`
	Fee         uint32 `json:"fee"`
	TickSpacing int    `json:"tick_spacing"`
}

// PoolSlot0 is a point-in-time snapshot of the pool's price state.
type PoolSlot0 struct {
	SqrtPriceX96 string `json:"sqrt_price_x96"`
	Tick         int    `json:"tick"`
	Liquidity    string `json:"liquidity"`
}
