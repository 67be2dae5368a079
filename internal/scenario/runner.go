package scenario

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"liquidityCore/internal/engine"
	"liquidityCore/internal/gate"
	"liquidityCore/internal/model"
	"liquidityCore/internal/storage"
	"liquidityCore/internal/tickmath"
	"liquidityCore/internal/tokens"
)

// RunConfig holds runtime settings for a scenario run.
type RunConfig struct {
	RunID     string
	BatchSize int
}

// Runner executes one scenario against a fresh pool.
type Runner struct {
	scn      *Scenario
	cfg      RunConfig
	bank     *tokens.Ledger
	pool     *engine.Pool
	gate     *gate.Gate
	recorder *Recorder
	logger   *zap.Logger
	now      uint32
}

// NewRunner builds the bank, pool, and optional gate for a scenario.
func NewRunner(scn *Scenario, cfg RunConfig, store storage.Storage, logger *zap.Logger) (*Runner, error) {
	if scn == nil {
		return nil, fmt.Errorf("scenario is nil")
	}
	if cfg.RunID == "" {
		return nil, fmt.Errorf("run id is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Runner{scn: scn, cfg: cfg, logger: logger, now: scn.StartTime}

	r.bank = tokens.NewLedger()
	token0, err := parseAddress(scn.Pool.Token0)
	if err != nil {
		return nil, err
	}
	token1, err := parseAddress(scn.Pool.Token1)
	if err != nil {
		return nil, err
	}
	for _, account := range scn.Accounts {
		addr, err := parseAddress(account.Address)
		if err != nil {
			return nil, err
		}
		balance0, err := parseAmount(account.Balance0)
		if err != nil {
			return nil, err
		}
		balance1, err := parseAmount(account.Balance1)
		if err != nil {
			return nil, err
		}
		r.bank.Mint(token0, addr, balance0)
		r.bank.Mint(token1, addr, balance1)
	}

	poolAddr, err := parseAddress(scn.Pool.Address)
	if err != nil {
		return nil, err
	}
	var owner common.Address
	if scn.Pool.Owner != "" {
		if owner, err = parseAddress(scn.Pool.Owner); err != nil {
			return nil, err
		}
	}

	var gateAddr common.Address
	if scn.Gate != nil {
		if gateAddr, err = parseAddress(scn.Gate.Address); err != nil {
			return nil, err
		}
	}

	r.recorder = NewRecorder(cfg.RunID, poolAddr.Hex(), store, cfg.BatchSize,
		func() uint32 { return r.now }, logger)

	r.pool, err = engine.New(engine.Config{
		TokenA:      token0,
		TokenB:      token1,
		TickSpacing: scn.Pool.TickSpacing,
		FeePips:     scn.Pool.FeePips,
		Account:     poolAddr,
		Owner:       owner,
		MintGate:    gateAddr,
		Bank:        r.bank,
		Clock:       func() uint32 { return r.now },
		Sink:        r.recorder,
		Logger:      logger.Named("pool"),
	})
	if err != nil {
		return nil, fmt.Errorf("build pool: %w", err)
	}

	if scn.Gate != nil {
		vault, err := parseAddress(scn.Gate.Vault)
		if err != nil {
			return nil, err
		}
		treasury, err := parseAddress(scn.Gate.Treasury)
		if err != nil {
			return nil, err
		}
		r.gate, err = gate.New(gate.Config{
			Address:        gateAddr,
			Owner:          owner,
			Vault:          vault,
			Treasury:       treasury,
			Bank:           r.bank,
			ShareBreaksBps: scn.Gate.ShareBreaksBps,
			RebateBps:      scn.Gate.RebateBps,
			RetentionBps:   scn.Gate.RetentionBps,
			Logger:         logger.Named("gate"),
			Sink:           r.recorder,
		})
		if err != nil {
			return nil, fmt.Errorf("build gate: %w", err)
		}
	}

	return r, nil
}

// Pool exposes the pool under test, mainly for assertions after a run.
func (r *Runner) Pool() *engine.Pool { return r.pool }

// Bank exposes the token ledger backing the run.
func (r *Runner) Bank() *tokens.Ledger { return r.bank }

// Run executes every step in order and returns the run summary. The
// first failing step aborts the run.
func (r *Runner) Run(ctx context.Context) (model.RunSummary, error) {
	startedAt := time.Now().UTC()

	var steps uint64
	for i, step := range r.scn.Steps {
		select {
		case <-ctx.Done():
			return model.RunSummary{}, ctx.Err()
		default:
		}

		r.recorder.SetStep(uint64(i + 1))
		r.logger.Info("execute step", zap.Int("step", i+1), zap.String("op", step.Op))
		if err := r.execStep(step); err != nil {
			r.flush()
			return model.RunSummary{}, fmt.Errorf("step %d (%s): %w", i+1, step.Op, err)
		}
		steps++
	}

	if err := r.recorder.Flush(); err != nil {
		return model.RunSummary{}, fmt.Errorf("flush events: %w", err)
	}

	summary := model.RunSummary{
		RunID:    r.cfg.RunID,
		Scenario: r.scn.Name,
		PoolMeta: model.PoolMeta{
			Token0:      r.pool.Token0().Hex(),
			Token1:      r.pool.Token1().Hex(),
			Fee:         r.pool.FeePips(),
			TickSpacing: r.pool.TickSpacing(),
		},
		Steps:  steps,
		Events: r.recorder.Count(),
		FinalState: model.PoolSlot0{
			SqrtPriceX96: r.pool.SqrtPriceX96().Dec(),
			Tick:         r.pool.CurrentTick(),
			Liquidity:    r.pool.Liquidity().Dec(),
		},
		StartedAt:  startedAt.Format(time.RFC3339Nano),
		FinishedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	return summary, nil
}

func (r *Runner) flush() {
	if err := r.recorder.Flush(); err != nil {
		r.logger.Error("flush events", zap.Error(err))
	}
}

func (r *Runner) execStep(step Step) error {
	switch strings.ToLower(step.Op) {
	case OpInitialize:
		price, err := parseAmount(step.SqrtPriceX96)
		if err != nil {
			return err
		}
		return r.pool.Initialize(price)

	case OpMint:
		account, recipient, err := r.stepAccounts(step)
		if err != nil {
			return err
		}
		liquidity, err := parseAmount(step.Liquidity)
		if err != nil {
			return err
		}
		_, _, err = r.pool.Mint(account, recipient, step.TickLower, step.TickUpper,
			liquidity, r.payFrom(account), nil)
		return err

	case OpMintWithRebate:
		account, recipient, err := r.stepAccounts(step)
		if err != nil {
			return err
		}
		liquidity, err := parseAmount(step.Liquidity)
		if err != nil {
			return err
		}
		_, err = r.gate.MintWithRebate(r.pool, gate.Params{
			TickLower: step.TickLower,
			TickUpper: step.TickUpper,
			Liquidity: liquidity,
			Recipient: recipient,
			Payer:     account,
		})
		return err

	case OpBurn:
		account, _, err := r.stepAccounts(step)
		if err != nil {
			return err
		}
		liquidity, err := parseAmount(step.Liquidity)
		if err != nil {
			return err
		}
		_, _, err = r.pool.Burn(account, step.TickLower, step.TickUpper, liquidity)
		return err

	case OpCollect:
		account, recipient, err := r.stepAccounts(step)
		if err != nil {
			return err
		}
		request0, request1, err := collectRequests(step)
		if err != nil {
			return err
		}
		_, _, err = r.pool.Collect(account, recipient, step.TickLower, step.TickUpper, request0, request1)
		return err

	case OpSwap:
		account, recipient, err := r.stepAccounts(step)
		if err != nil {
			return err
		}
		amount, err := parseSigned(step.Amount)
		if err != nil {
			return err
		}
		limit, err := r.swapLimit(step)
		if err != nil {
			return err
		}
		_, _, err = r.pool.Swap(account, recipient, step.ZeroForOne, amount, limit,
			r.settleSwapFrom(account), nil)
		return err

	case OpFlash:
		account, recipient, err := r.stepAccounts(step)
		if err != nil {
			return err
		}
		amount0, err := parseAmount(step.Amount0)
		if err != nil {
			return err
		}
		amount1, err := parseAmount(step.Amount1)
		if err != nil {
			return err
		}
		return r.pool.Flash(account, recipient, amount0, amount1,
			r.repayFlashFrom(account, amount0, amount1), nil)

	case OpAdvanceTime:
		r.now += step.Seconds
		return nil

	case OpIncreaseCardinality:
		return r.pool.IncreaseObservationCardinalityNext(step.Cardinality)

	case OpSetFeeProtocol:
		account, _, err := r.stepAccounts(step)
		if err != nil {
			return err
		}
		return r.pool.SetFeeProtocol(account, step.FeeProtocol0, step.FeeProtocol1)

	case OpCollectProtocol:
		account, recipient, err := r.stepAccounts(step)
		if err != nil {
			return err
		}
		request0, request1, err := collectRequests(step)
		if err != nil {
			return err
		}
		_, _, err = r.pool.CollectProtocol(account, recipient, request0, request1)
		return err

	case OpObserve:
		tickCumulatives, secondsPerLiquidity, err := r.pool.Observe(step.SecondsAgos)
		if err != nil {
			return err
		}
		for i := range tickCumulatives {
			r.logger.Info("observation",
				zap.Uint32("seconds_ago", step.SecondsAgos[i]),
				zap.Int64("tick_cumulative", tickCumulatives[i]),
				zap.String("seconds_per_liquidity_x128", secondsPerLiquidity[i].Dec()))
		}
		return nil

	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
}

// stepAccounts resolves the acting account and the recipient, which
// defaults to the acting account.
func (r *Runner) stepAccounts(step Step) (account, recipient common.Address, err error) {
	if step.Account == "" {
		return common.Address{}, common.Address{}, fmt.Errorf("op %s requires an account", step.Op)
	}
	if account, err = parseAddress(step.Account); err != nil {
		return common.Address{}, common.Address{}, err
	}
	recipient = account
	if step.Recipient != "" {
		if recipient, err = parseAddress(step.Recipient); err != nil {
			return common.Address{}, common.Address{}, err
		}
	}
	return account, recipient, nil
}

// collectRequests parses requested amounts; an empty field means all.
func collectRequests(step Step) (*uint256.Int, *uint256.Int, error) {
	request0 := new(uint256.Int).SetAllOne()
	request1 := new(uint256.Int).SetAllOne()
	var err error
	if step.Amount0 != "" {
		if request0, err = parseAmount(step.Amount0); err != nil {
			return nil, nil, err
		}
	}
	if step.Amount1 != "" {
		if request1, err = parseAmount(step.Amount1); err != nil {
			return nil, nil, err
		}
	}
	return request0, request1, nil
}

func (r *Runner) swapLimit(step Step) (*uint256.Int, error) {
	if step.PriceLimit != "" {
		return parseAmount(step.PriceLimit)
	}
	if step.ZeroForOne {
		return new(uint256.Int).AddUint64(tickmath.MinSqrtRatio, 1), nil
	}
	return new(uint256.Int).SubUint64(tickmath.MaxSqrtRatio, 1), nil
}

func (r *Runner) payFrom(account common.Address) engine.MintCallback {
	return func(owed0, owed1 *uint256.Int, _ []byte) error {
		if !owed0.IsZero() {
			if err := r.bank.Transfer(r.pool.Token0(), account, r.pool.Account(), owed0); err != nil {
				return err
			}
		}
		if !owed1.IsZero() {
			return r.bank.Transfer(r.pool.Token1(), account, r.pool.Account(), owed1)
		}
		return nil
	}
}

func (r *Runner) settleSwapFrom(account common.Address) engine.SwapCallback {
	return func(amount0Delta, amount1Delta *uint256.Int, _ []byte) error {
		if amount0Delta.Sign() > 0 {
			if err := r.bank.Transfer(r.pool.Token0(), account, r.pool.Account(), amount0Delta); err != nil {
				return err
			}
		}
		if amount1Delta.Sign() > 0 {
			return r.bank.Transfer(r.pool.Token1(), account, r.pool.Account(), amount1Delta)
		}
		return nil
	}
}

func (r *Runner) repayFlashFrom(account common.Address, amount0, amount1 *uint256.Int) engine.FlashCallback {
	return func(fee0, fee1 *uint256.Int, _ []byte) error {
		repay0 := new(uint256.Int).Add(amount0, fee0)
		repay1 := new(uint256.Int).Add(amount1, fee1)
		if !repay0.IsZero() {
			if err := r.bank.Transfer(r.pool.Token0(), account, r.pool.Account(), repay0); err != nil {
				return err
			}
		}
		if !repay1.IsZero() {
			return r.bank.Transfer(r.pool.Token1(), account, r.pool.Account(), repay1)
		}
		return nil
	}
}
