package scenario

import (
	"encoding/json"
	"time"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"liquidityCore/internal/engine"
	"liquidityCore/internal/gate"
	"liquidityCore/internal/model"
	"liquidityCore/internal/storage"
)

// Recorder turns pool and gate events into event records and flushes
// them to storage in batches.
type Recorder struct {
	runID     string
	pool      string
	store     storage.Storage
	batchSize int
	logger    *zap.Logger

	clock   func() uint32
	seq     uint64
	step    uint64
	pending []model.EventRecord
}

func NewRecorder(runID, pool string, store storage.Storage, batchSize int, clock func() uint32, logger *zap.Logger) *Recorder {
	if batchSize <= 0 {
		batchSize = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{
		runID:     runID,
		pool:      pool,
		store:     store,
		batchSize: batchSize,
		logger:    logger,
		clock:     clock,
	}
}

// SetStep tags subsequent records with the scenario step index.
func (r *Recorder) SetStep(step uint64) { r.step = step }

// Count returns how many events have been recorded so far.
func (r *Recorder) Count() uint64 { return r.seq }

// Emit implements engine.Sink.
func (r *Recorder) Emit(e engine.Event) {
	payload, err := json.Marshal(decodePayload(e))
	if err != nil {
		r.logger.Error("marshal event payload", zap.String("event", e.Name()), zap.Error(err))
		return
	}

	r.seq++
	r.pending = append(r.pending, model.EventRecord{
		RunID:      r.runID,
		Seq:        r.seq,
		Step:       r.step,
		Timestamp:  r.clock(),
		Pool:       r.pool,
		EventName:  e.Name(),
		Payload:    payload,
		RecordedAt: time.Now().UTC().Format(time.RFC3339Nano),
	})

	if len(r.pending) >= r.batchSize {
		if err := r.Flush(); err != nil {
			r.logger.Error("flush event batch", zap.Error(err))
		}
	}
}

// Flush writes all pending records to storage.
func (r *Recorder) Flush() error {
	if len(r.pending) == 0 || r.store == nil {
		r.pending = r.pending[:0]
		return nil
	}
	if err := r.store.PutEventBatch(r.pending); err != nil {
		return err
	}
	r.pending = r.pending[:0]
	return nil
}

// decodePayload maps an event to its storage representation with
// decimal-string amounts.
func decodePayload(e engine.Event) interface{} {
	switch ev := e.(type) {
	case engine.InitializeEvent:
		return model.InitializeEventData{
			SqrtPriceX96: dec(ev.SqrtPriceX96),
			Tick:         ev.Tick,
		}
	case engine.MintEvent:
		return model.MintEventData{
			Sender:    ev.Sender.Hex(),
			Owner:     ev.Owner.Hex(),
			TickLower: ev.TickLower,
			TickUpper: ev.TickUpper,
			Amount:    dec(ev.Amount),
			Amount0:   dec(ev.Amount0),
			Amount1:   dec(ev.Amount1),
		}
	case engine.BurnEvent:
		return model.BurnEventData{
			Owner:     ev.Owner.Hex(),
			TickLower: ev.TickLower,
			TickUpper: ev.TickUpper,
			Amount:    dec(ev.Amount),
			Amount0:   dec(ev.Amount0),
			Amount1:   dec(ev.Amount1),
		}
	case engine.CollectEvent:
		return model.CollectEventData{
			Owner:     ev.Owner.Hex(),
			Recipient: ev.Recipient.Hex(),
			TickLower: ev.TickLower,
			TickUpper: ev.TickUpper,
			Amount0:   dec(ev.Amount0),
			Amount1:   dec(ev.Amount1),
		}
	case engine.SwapEvent:
		return model.SwapEventData{
			Sender:       ev.Sender.Hex(),
			Recipient:    ev.Recipient.Hex(),
			Amount0:      signedDec(ev.Amount0),
			Amount1:      signedDec(ev.Amount1),
			SqrtPriceX96: dec(ev.SqrtPriceX96),
			Liquidity:    dec(ev.Liquidity),
			Tick:         ev.Tick,
		}
	case engine.FlashEvent:
		return model.FlashEventData{
			Sender:    ev.Sender.Hex(),
			Recipient: ev.Recipient.Hex(),
			Amount0:   dec(ev.Amount0),
			Amount1:   dec(ev.Amount1),
			Paid0:     dec(ev.Paid0),
			Paid1:     dec(ev.Paid1),
		}
	case engine.SetFeeProtocolEvent:
		return model.SetFeeProtocolEventData{
			Old0: ev.Old0, Old1: ev.Old1, New0: ev.New0, New1: ev.New1,
		}
	case engine.CollectProtocolEvent:
		return model.CollectProtocolEventData{
			Sender:    ev.Sender.Hex(),
			Recipient: ev.Recipient.Hex(),
			Amount0:   dec(ev.Amount0),
			Amount1:   dec(ev.Amount1),
		}
	case engine.IncreaseObservationCardinalityNextEvent:
		return model.IncreaseCardinalityEventData{Old: ev.Old, New: ev.New}
	case gate.QualifiedEvent:
		return model.QualifiedEventData{
			Payer:     ev.Payer.Hex(),
			Recipient: ev.Recipient.Hex(),
			TickLower: ev.TickLower,
			TickUpper: ev.TickUpper,
			Liquidity: dec(ev.Liquidity),
			ShareBps:  ev.ShareBps,
			Tier:      ev.Tier,
		}
	case gate.RebatePaidEvent:
		return model.RebatePaidEventData{
			Payer:   ev.Payer.Hex(),
			Vault:   ev.Vault.Hex(),
			Amount0: dec(ev.Amount0),
			Amount1: dec(ev.Amount1),
		}
	case gate.RetainedEvent:
		return model.RetainedEventData{
			Payer:    ev.Payer.Hex(),
			Treasury: ev.Treasury.Hex(),
			Amount0:  dec(ev.Amount0),
			Amount1:  dec(ev.Amount1),
		}
	default:
		return e
	}
}

func dec(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}

// signedDec renders a two's complement value as a signed decimal.
func signedDec(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	if v.Sign() < 0 {
		return "-" + new(uint256.Int).Neg(v).Dec()
	}
	return v.Dec()
}
