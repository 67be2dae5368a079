// Package scenario runs scripted pool sessions: a JSON file declares the
// pool, funded accounts, and an ordered list of operations, and the
// runner executes them against a fresh engine while recording every
// emitted event.
package scenario

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Step operations.
const (
	OpInitialize          = "initialize"
	OpMint                = "mint"
	OpMintWithRebate      = "mint-with-rebate"
	OpBurn                = "burn"
	OpCollect             = "collect"
	OpSwap                = "swap"
	OpFlash               = "flash"
	OpAdvanceTime         = "advance-time"
	OpIncreaseCardinality = "increase-cardinality"
	OpSetFeeProtocol      = "set-fee-protocol"
	OpCollectProtocol     = "collect-protocol"
	OpObserve             = "observe"
)

// Scenario declares one scripted pool session.
type Scenario struct {
	Name      string        `json:"name"`
	StartTime uint32        `json:"start_time"`
	Pool      PoolSpec      `json:"pool"`
	Gate      *GateSpec     `json:"gate,omitempty"`
	Accounts  []AccountSpec `json:"accounts"`
	Steps     []Step        `json:"steps"`
}

// PoolSpec declares the pool under test.
type PoolSpec struct {
	Address     string `json:"address"`
	Owner       string `json:"owner"`
	Token0      string `json:"token0"`
	Token1      string `json:"token1"`
	TickSpacing int    `json:"tick_spacing"`
	FeePips     uint32 `json:"fee_pips"`
}

// GateSpec declares the mint gate. When present, all mints must go
// through it and the pool rejects direct mint calls.
type GateSpec struct {
	Address        string   `json:"address"`
	Vault          string   `json:"vault"`
	Treasury       string   `json:"treasury"`
	ShareBreaksBps []uint64 `json:"share_breaks_bps,omitempty"`
	RebateBps      []uint64 `json:"rebate_bps,omitempty"`
	RetentionBps   []uint64 `json:"retention_bps,omitempty"`
}

// AccountSpec funds one account before the run starts.
type AccountSpec struct {
	Address  string `json:"address"`
	Balance0 string `json:"balance0,omitempty"`
	Balance1 string `json:"balance1,omitempty"`
}

// Step is one operation of a scenario. Fields are a flat union; each op
// reads the ones it needs.
type Step struct {
	Op           string   `json:"op"`
	Account      string   `json:"account,omitempty"`
	Recipient    string   `json:"recipient,omitempty"`
	SqrtPriceX96 string   `json:"sqrt_price_x96,omitempty"`
	TickLower    int      `json:"tick_lower,omitempty"`
	TickUpper    int      `json:"tick_upper,omitempty"`
	Liquidity    string   `json:"liquidity,omitempty"`
	Amount       string   `json:"amount,omitempty"`
	Amount0      string   `json:"amount0,omitempty"`
	Amount1      string   `json:"amount1,omitempty"`
	ZeroForOne   bool     `json:"zero_for_one,omitempty"`
	PriceLimit   string   `json:"price_limit,omitempty"`
	Seconds      uint32   `json:"seconds,omitempty"`
	Cardinality  uint16   `json:"cardinality,omitempty"`
	FeeProtocol0 uint8    `json:"fee_protocol0,omitempty"`
	FeeProtocol1 uint8    `json:"fee_protocol1,omitempty"`
	SecondsAgos  []uint32 `json:"seconds_agos,omitempty"`
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates scenario JSON.
func Parse(data []byte) (*Scenario, error) {
	var scn Scenario
	if err := json.Unmarshal(data, &scn); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := scn.Validate(); err != nil {
		return nil, err
	}
	return &scn, nil
}

// Validate checks structural requirements before the run starts. Value
// errors like a misaligned tick surface from the engine during the run.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("scenario name is required")
	}
	if !common.IsHexAddress(s.Pool.Address) {
		return fmt.Errorf("pool address is invalid: %q", s.Pool.Address)
	}
	if !common.IsHexAddress(s.Pool.Token0) || !common.IsHexAddress(s.Pool.Token1) {
		return fmt.Errorf("pool tokens are invalid")
	}
	if s.Pool.TickSpacing <= 0 {
		return fmt.Errorf("tick spacing must be positive")
	}
	if s.Gate != nil {
		for _, addr := range []string{s.Gate.Address, s.Gate.Vault, s.Gate.Treasury} {
			if !common.IsHexAddress(addr) {
				return fmt.Errorf("gate address is invalid: %q", addr)
			}
		}
	}
	for i, account := range s.Accounts {
		if !common.IsHexAddress(account.Address) {
			return fmt.Errorf("account %d address is invalid: %q", i, account.Address)
		}
	}
	for i, step := range s.Steps {
		if !knownOp(step.Op) {
			return fmt.Errorf("step %d: unknown op %q", i, step.Op)
		}
		if step.Op == OpMintWithRebate && s.Gate == nil {
			return fmt.Errorf("step %d: %s requires a gate", i, step.Op)
		}
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("scenario has no steps")
	}
	return nil
}

func knownOp(op string) bool {
	switch strings.ToLower(op) {
	case OpInitialize, OpMint, OpMintWithRebate, OpBurn, OpCollect, OpSwap,
		OpFlash, OpAdvanceTime, OpIncreaseCardinality, OpSetFeeProtocol,
		OpCollectProtocol, OpObserve:
		return true
	}
	return false
}

func parseAddress(value string) (common.Address, error) {
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("invalid address: %q", value)
	}
	return common.HexToAddress(value), nil
}

// parseAmount decodes a decimal string; empty means zero.
func parseAmount(value string) (*uint256.Int, error) {
	if value == "" {
		return new(uint256.Int), nil
	}
	v, err := uint256.FromDecimal(value)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	return v, nil
}

// parseSigned decodes a decimal string into two's complement form.
func parseSigned(value string) (*uint256.Int, error) {
	if value == "" {
		return new(uint256.Int), nil
	}
	neg := strings.HasPrefix(value, "-")
	v, err := parseAmount(strings.TrimPrefix(value, "-"))
	if err != nil {
		return nil, err
	}
	if neg {
		v.Neg(v)
	}
	return v, nil
}
