package aggregate

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"liquidityCore/internal/model"
)

// Config controls aggregation behavior.
type Config struct {
	WindowSeconds uint32
	// FeePips is the pool fee rate applied when estimating swap fees.
	FeePips    uint32
	StateStore StateStore
}

// Aggregator folds event records into pool window metrics.
type Aggregator struct {
	cfg          Config
	logger       *zap.Logger
	accumulators map[string]*Accumulator
}

func NewAggregator(cfg Config, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		cfg:          cfg,
		logger:       logger,
		accumulators: make(map[string]*Accumulator),
	}
}

// Run aggregates records into window metrics, skipping records at or
// below the state store's last processed sequence. Records must be in
// sequence order within each pool.
func (a *Aggregator) Run(ctx context.Context, records []model.EventRecord) ([]model.WindowMetrics, error) {
	if a.cfg.WindowSeconds == 0 {
		return nil, fmt.Errorf("window seconds must be > 0")
	}

	startSeq, err := a.loadStartSeq(ctx)
	if err != nil {
		return nil, err
	}

	var out []model.WindowMetrics
	var total, skipped, failed int
	maxSeq := startSeq

	for _, record := range records {
		total++
		if record.Seq <= startSeq {
			skipped++
			continue
		}

		windowStart := windowStart(record.Timestamp, a.cfg.WindowSeconds)
		windowEnd := windowStart + a.cfg.WindowSeconds

		acc := a.accumulators[record.Pool]
		if acc == nil {
			acc = NewAccumulator(record, windowStart, windowEnd)
			a.accumulators[record.Pool] = acc
		} else if acc.WindowStart != windowStart {
			out = append(out, a.flushAccumulator(acc))
			acc = NewAccumulator(record, windowStart, windowEnd)
			a.accumulators[record.Pool] = acc
		}

		if err := acc.AddEvent(record, a.cfg.FeePips); err != nil {
			failed++
			a.logger.Warn("aggregate event",
				zap.Error(err),
				zap.String("pool", record.Pool),
				zap.String("event", record.EventName))
			continue
		}
		if record.Seq > maxSeq {
			maxSeq = record.Seq
		}
	}

	for _, acc := range a.accumulators {
		out = append(out, a.flushAccumulator(acc))
	}
	a.accumulators = make(map[string]*Accumulator)

	sort.Slice(out, func(i, j int) bool {
		if out[i].Pool != out[j].Pool {
			return out[i].Pool < out[j].Pool
		}
		return out[i].WindowStart < out[j].WindowStart
	})

	if a.cfg.StateStore != nil {
		if err := a.cfg.StateStore.Save(ctx, maxSeq); err != nil {
			return nil, err
		}
	}

	a.logger.Info("aggregate complete",
		zap.Int("total", total),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
		zap.Int("windows", len(out)),
	)
	return out, nil
}

func (a *Aggregator) loadStartSeq(ctx context.Context) (uint64, error) {
	if a.cfg.StateStore == nil {
		return 0, nil
	}
	last, ok, err := a.cfg.StateStore.Load(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return last, nil
}

func (a *Aggregator) flushAccumulator(acc *Accumulator) model.WindowMetrics {
	feeRate0, feeRate1 := computeFeeRates(acc.Fee0, acc.Fee1, acc.Volume0, acc.Volume1)
	return model.WindowMetrics{
		RunID:          acc.RunID,
		Pool:           acc.Pool,
		WindowSizeSecs: a.cfg.WindowSeconds,
		WindowStart:    acc.WindowStart,
		WindowEnd:      acc.WindowEnd,
		SwapCount:      acc.SwapCount,
		MintCount:      acc.MintCount,
		BurnCount:      acc.BurnCount,
		FlashCount:     acc.FlashCount,
		Volume0:        acc.Volume0.String(),
		Volume1:        acc.Volume1.String(),
		Fee0:           acc.Fee0.String(),
		Fee1:           acc.Fee1.String(),
		FeeRate0:       feeRate0,
		FeeRate1:       feeRate1,
	}
}

func windowStart(ts uint32, windowSec uint32) uint32 {
	return ts - (ts % windowSec)
}
