package aggregate

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"liquidityCore/internal/model"
)

// Accumulator holds aggregate values for one pool window of a run.
type Accumulator struct {
	RunID       string
	Pool        string
	WindowStart uint32
	WindowEnd   uint32
	SwapCount   uint64
	MintCount   uint64
	BurnCount   uint64
	FlashCount  uint64
	Volume0     *big.Int
	Volume1     *big.Int
	Fee0        *big.Int
	Fee1        *big.Int
	LastSeq     uint64
	LastTS      uint32
}

func NewAccumulator(record model.EventRecord, windowStart, windowEnd uint32) *Accumulator {
	return &Accumulator{
		RunID:       record.RunID,
		Pool:        record.Pool,
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		Volume0:     big.NewInt(0),
		Volume1:     big.NewInt(0),
		Fee0:        big.NewInt(0),
		Fee1:        big.NewInt(0),
		LastSeq:     record.Seq,
		LastTS:      record.Timestamp,
	}
}

// AddEvent folds one event record into the window. feePips is the pool's
// fee rate, used to estimate the fee slice of swap input volume.
func (a *Accumulator) AddEvent(record model.EventRecord, feePips uint32) error {
	if record.Seq >= a.LastSeq {
		a.LastSeq = record.Seq
		a.LastTS = record.Timestamp
	}

	switch strings.ToLower(record.EventName) {
	case "swap":
		var swap model.SwapEventData
		if err := json.Unmarshal(record.Payload, &swap); err != nil {
			return fmt.Errorf("decode swap: %w", err)
		}
		return a.applySwap(swap, feePips)
	case "flash":
		var flash model.FlashEventData
		if err := json.Unmarshal(record.Payload, &flash); err != nil {
			return fmt.Errorf("decode flash: %w", err)
		}
		return a.applyFlash(flash)
	case "mint":
		a.MintCount++
		return nil
	case "burn":
		a.BurnCount++
		return nil
	default:
		return nil
	}
}

func (a *Accumulator) applySwap(swap model.SwapEventData, feePips uint32) error {
	amount0, err := parseBigInt(swap.Amount0)
	if err != nil {
		return err
	}
	amount1, err := parseBigInt(swap.Amount1)
	if err != nil {
		return err
	}

	absAdd(a.Volume0, amount0)
	absAdd(a.Volume1, amount1)
	a.SwapCount++
	if feePips == 0 {
		return nil
	}

	// Fees come out of the input side.
	if amount0.Sign() > 0 && amount1.Sign() < 0 {
		a.Fee0.Add(a.Fee0, feeFromAmount(amount0, feePips))
	} else if amount1.Sign() > 0 && amount0.Sign() < 0 {
		a.Fee1.Add(a.Fee1, feeFromAmount(amount1, feePips))
	}
	return nil
}

func (a *Accumulator) applyFlash(flash model.FlashEventData) error {
	paid0, err := parseBigInt(flash.Paid0)
	if err != nil {
		return err
	}
	paid1, err := parseBigInt(flash.Paid1)
	if err != nil {
		return err
	}
	a.Fee0.Add(a.Fee0, paid0)
	a.Fee1.Add(a.Fee1, paid1)
	a.FlashCount++
	return nil
}

func parseBigInt(value string) (*big.Int, error) {
	if value == "" {
		return big.NewInt(0), nil
	}
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid int: %s", value)
	}
	return parsed, nil
}

func absAdd(target *big.Int, value *big.Int) {
	if value == nil || target == nil {
		return
	}
	abs := new(big.Int).Abs(value)
	target.Add(target, abs)
}

func feeFromAmount(amountIn *big.Int, feePips uint32) *big.Int {
	if amountIn == nil {
		return big.NewInt(0)
	}
	fee := new(big.Int).Abs(amountIn)
	fee.Mul(fee, big.NewInt(int64(feePips)))
	fee.Div(fee, big.NewInt(1_000_000))
	return fee
}
