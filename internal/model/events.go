package model

// Decoded event payloads. Amounts are decimal strings so records stay
// readable and survive tools that mangle 256-bit integers.

// InitializeEventData is the decoded Initialize event payload.
type InitializeEventData struct {
	SqrtPriceX96 string `json:"sqrt_price_x96"`
	Tick         int    `json:"tick"`
}

// SwapEventData is the decoded Swap event payload. Amounts are signed:
// positive flows into the pool.
type SwapEventData struct {
	Sender       string `json:"sender"`
	Recipient    string `json:"recipient"`
	Amount0      string `json:"amount0"`
	Amount1      string `json:"amount1"`
	SqrtPriceX96 string `json:"sqrt_price_x96"`
	Liquidity    string `json:"liquidity"`
	Tick         int    `json:"tick"`
}

// MintEventData is the decoded Mint event payload.
type MintEventData struct {
	Sender    string `json:"sender"`
	Owner     string `json:"owner"`
	TickLower int    `json:"tick_lower"`
	TickUpper int    `json:"tick_upper"`
	Amount    string `json:"amount"`
	Amount0   string `json:"amount0"`
	Amount1   string `json:"amount1"`
}

// BurnEventData is the decoded Burn event payload.
type BurnEventData struct {
	Owner     string `json:"owner"`
	TickLower int    `json:"tick_lower"`
	TickUpper int    `json:"tick_upper"`
	Amount    string `json:"amount"`
	Amount0   string `json:"amount0"`
	Amount1   string `json:"amount1"`
}

// CollectEventData is the decoded Collect event payload.
type CollectEventData struct {
	Owner     string `json:"owner"`
	Recipient string `json:"recipient"`
	TickLower int    `json:"tick_lower"`
	TickUpper int    `json:"tick_upper"`
	Amount0   string `json:"amount0"`
	Amount1   string `json:"amount1"`
}

// FlashEventData is the decoded Flash event payload.
type FlashEventData struct {
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Amount0   string `json:"amount0"`
	Amount1   string `json:"amount1"`
	Paid0     string `json:"paid0"`
	Paid1     string `json:"paid1"`
}

// SetFeeProtocolEventData is the decoded SetFeeProtocol event payload.
type SetFeeProtocolEventData struct {
	Old0 uint8 `json:"old0"`
	Old1 uint8 `json:"old1"`
	New0 uint8 `json:"new0"`
	New1 uint8 `json:"new1"`
}

// CollectProtocolEventData is the decoded CollectProtocol event payload.
type CollectProtocolEventData struct {
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Amount0   string `json:"amount0"`
	Amount1   string `json:"amount1"`
}

// IncreaseCardinalityEventData is the decoded cardinality growth payload.
type IncreaseCardinalityEventData struct {
	Old uint16 `json:"old"`
	New uint16 `json:"new"`
}

// QualifiedEventData is the decoded gate qualification payload.
type QualifiedEventData struct {
	Payer     string `json:"payer"`
	Recipient string `json:"recipient"`
	TickLower int    `json:"tick_lower"`
	TickUpper int    `json:"tick_upper"`
	Liquidity string `json:"liquidity"`
	ShareBps  uint64 `json:"share_bps"`
	Tier      int    `json:"tier"`
}

// RebatePaidEventData is the decoded gate rebate payload.
type RebatePaidEventData struct {
	Payer   string `json:"payer"`
	Vault   string `json:"vault"`
	Amount0 string `json:"amount0"`
	Amount1 string `json:"amount1"`
}

// RetainedEventData is the decoded gate retention payload.
type RetainedEventData struct {
	Payer    string `json:"payer"`
	Treasury string `json:"treasury"`
	Amount0  string `json:"amount0"`
	Amount1  string `json:"amount1"`
}
