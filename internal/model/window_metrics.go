package model

// WindowMetrics stores aggregated activity for one pool time window.
type WindowMetrics struct {
	RunID          string  `json:"run_id"`
	Pool           string  `json:"pool"`
	WindowSizeSecs uint32  `json:"window_size_seconds"`
	WindowStart    uint32  `json:"window_start_ts"`
	WindowEnd      uint32  `json:"window_end_ts"`
	SwapCount      uint64  `json:"swap_count"`
	MintCount      uint64  `json:"mint_count"`
	BurnCount      uint64  `json:"burn_count"`
	FlashCount     uint64  `json:"flash_count"`
	Volume0        string  `json:"volume0"`
	Volume1        string  `json:"volume1"`
	Fee0           string  `json:"fee0"`
	Fee1           string  `json:"fee1"`
	FeeRate0       *string `json:"fee_rate0,omitempty"`
	FeeRate1       *string `json:"fee_rate1,omitempty"`
}
