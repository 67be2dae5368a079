// Package gate is the pool's mint front door: it pulls the principal from
// the payer, then levies a share-based surcharge split between a rebate
// vault and a treasury.
package gate

import (
	"errors"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"liquidityCore/internal/engine"
	"liquidityCore/internal/tokens"
)

var (
	ErrNotOwner      = errors.New("caller is not the gate owner")
	ErrZeroAddress   = errors.New("recipient and payer must be nonzero")
	ErrZeroLiquidity = errors.New("liquidity must be nonzero")
	// ErrBadTierTable reports breakpoints that are not strictly ascending
	// or rate tables whose lengths do not line up.
	ErrBadTierTable = errors.New("invalid tier table")
	ErrMissingPool  = errors.New("pool is required")
)

var bpsDenominator = uint256.NewInt(10_000)

// Default tier table. Tier n applies from the n-th breakpoint upward;
// below the first breakpoint tier 0 rates still apply.
var (
	DefaultShareBreaksBps = []uint64{1000, 2000, 3500, 5000}
	DefaultRebateBps      = []uint64{100, 180, 250, 350}
	DefaultRetentionBps   = []uint64{50, 90, 125, 175}
)

// Config wires the gate to its pool-side identity and fee recipients.
type Config struct {
	// Address is the identity the gate presents to the pool's mint guard.
	Address  common.Address
	Owner    common.Address
	Vault    common.Address
	Treasury common.Address
	Bank     *tokens.Ledger
	// Tier table; nil fields fall back to the defaults above.
	ShareBreaksBps []uint64
	RebateBps      []uint64
	RetentionBps   []uint64
	Logger         *zap.Logger
	Sink           engine.Sink
}

// Params describes one gated mint.
type Params struct {
	TickLower int
	TickUpper int
	Liquidity *uint256.Int
	Recipient common.Address
	Payer     common.Address
}

// Receipt reports the settlement of a gated mint.
type Receipt struct {
	Amount0, Amount1     *uint256.Int
	ShareBps             uint64
	Tier                 int
	Rebate0, Rebate1     *uint256.Int
	Retained0, Retained1 *uint256.Int
}

type Gate struct {
	address  common.Address
	owner    common.Address
	vault    common.Address
	treasury common.Address
	bank     *tokens.Ledger

	shareBreaksBps []uint64
	rebateBps      []uint64
	retentionBps   []uint64

	log  *zap.Logger
	sink engine.Sink
}

func New(cfg Config) (*Gate, error) {
	if cfg.Bank == nil {
		return nil, errors.New("token ledger is required")
	}
	breaks, rebates, retentions := cfg.ShareBreaksBps, cfg.RebateBps, cfg.RetentionBps
	if breaks == nil {
		breaks = DefaultShareBreaksBps
	}
	if rebates == nil {
		rebates = DefaultRebateBps
	}
	if retentions == nil {
		retentions = DefaultRetentionBps
	}
	if err := validateTiers(breaks, rebates, retentions); err != nil {
		return nil, err
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Gate{
		address:        cfg.Address,
		owner:          cfg.Owner,
		vault:          cfg.Vault,
		treasury:       cfg.Treasury,
		bank:           cfg.Bank,
		shareBreaksBps: append([]uint64(nil), breaks...),
		rebateBps:      append([]uint64(nil), rebates...),
		retentionBps:   append([]uint64(nil), retentions...),
		log:            log,
		sink:           cfg.Sink,
	}, nil
}

func validateTiers(breaks, rebates, retentions []uint64) error {
	if len(breaks) == 0 || len(rebates) != len(breaks) || len(retentions) != len(breaks) {
		return ErrBadTierTable
	}
	if !sort.SliceIsSorted(breaks, func(i, j int) bool { return breaks[i] < breaks[j] }) {
		return ErrBadTierTable
	}
	for i := 1; i < len(breaks); i++ {
		if breaks[i] == breaks[i-1] {
			return ErrBadTierTable
		}
	}
	for _, b := range breaks {
		if b > 10_000 {
			return ErrBadTierTable
		}
	}
	return nil
}

// Address returns the identity the pool should configure as its mint gate.
func (g *Gate) Address() common.Address { return g.address }

// SetTiers replaces the tier table. Owner only.
func (g *Gate) SetTiers(caller common.Address, breaks, rebates, retentions []uint64) error {
	if caller != g.owner {
		return ErrNotOwner
	}
	if err := validateTiers(breaks, rebates, retentions); err != nil {
		return err
	}
	g.shareBreaksBps = append([]uint64(nil), breaks...)
	g.rebateBps = append([]uint64(nil), rebates...)
	g.retentionBps = append([]uint64(nil), retentions...)
	g.log.Info("tier table replaced",
		zap.Uint64s("breaks_bps", breaks),
		zap.Uint64s("rebate_bps", rebates),
		zap.Uint64s("retention_bps", retentions))
	return nil
}

// tierFor counts how many breakpoints the share clears, capped at the
// last table row.
func (g *Gate) tierFor(shareBps uint64) int {
	tier := 0
	for _, b := range g.shareBreaksBps {
		if shareBps >= b {
			tier++
		}
	}
	if tier > len(g.rebateBps)-1 {
		tier = len(g.rebateBps) - 1
	}
	return tier
}

// MintWithRebate mints through the pool's gate guard, pays the principal
// from the payer, and settles the tiered rebate and retention on top.
func (g *Gate) MintWithRebate(pool *engine.Pool, p Params) (*Receipt, error) {
	if pool == nil {
		return nil, ErrMissingPool
	}
	if p.Recipient == (common.Address{}) || p.Payer == (common.Address{}) {
		return nil, ErrZeroAddress
	}
	if p.Liquidity == nil || p.Liquidity.IsZero() {
		return nil, ErrZeroLiquidity
	}

	liquidityBefore := pool.Liquidity()

	pay := func(owed0, owed1 *uint256.Int, _ []byte) error {
		if !owed0.IsZero() {
			if err := g.bank.Transfer(pool.Token0(), p.Payer, pool.Account(), owed0); err != nil {
				return err
			}
		}
		if !owed1.IsZero() {
			return g.bank.Transfer(pool.Token1(), p.Payer, pool.Account(), owed1)
		}
		return nil
	}

	amount0, amount1, err := pool.Mint(g.address, p.Recipient, p.TickLower, p.TickUpper, p.Liquidity, pay, nil)
	if err != nil {
		return nil, err
	}

	// Share of pool value the mint represents, in basis points. An empty
	// pool makes any mint a 100% share.
	total := new(uint256.Int).Add(liquidityBefore, p.Liquidity)
	share := new(uint256.Int).Mul(p.Liquidity, bpsDenominator)
	share.Div(share, total)
	shareBps := share.Uint64()
	tier := g.tierFor(shareBps)

	receipt := &Receipt{
		Amount0:   amount0,
		Amount1:   amount1,
		ShareBps:  shareBps,
		Tier:      tier,
		Rebate0:   bpsOf(amount0, g.rebateBps[tier]),
		Rebate1:   bpsOf(amount1, g.rebateBps[tier]),
		Retained0: bpsOf(amount0, g.retentionBps[tier]),
		Retained1: bpsOf(amount1, g.retentionBps[tier]),
	}

	// The surcharge is pulled from the payer on top of the principal;
	// single-sided mints only owe it on the token actually paid.
	if err := g.settle(pool.Token0(), p.Payer, receipt.Rebate0, receipt.Retained0); err != nil {
		return nil, err
	}
	if err := g.settle(pool.Token1(), p.Payer, receipt.Rebate1, receipt.Retained1); err != nil {
		return nil, err
	}

	g.log.Info("gated mint settled",
		zap.String("payer", p.Payer.Hex()),
		zap.String("recipient", p.Recipient.Hex()),
		zap.Uint64("share_bps", shareBps),
		zap.Int("tier", tier))
	g.emit(QualifiedEvent{
		Payer: p.Payer, Recipient: p.Recipient,
		TickLower: p.TickLower, TickUpper: p.TickUpper,
		Liquidity: new(uint256.Int).Set(p.Liquidity),
		ShareBps:  shareBps, Tier: tier,
	})
	if !receipt.Rebate0.IsZero() || !receipt.Rebate1.IsZero() {
		g.emit(RebatePaidEvent{Payer: p.Payer, Vault: g.vault,
			Amount0: new(uint256.Int).Set(receipt.Rebate0),
			Amount1: new(uint256.Int).Set(receipt.Rebate1)})
	}
	if !receipt.Retained0.IsZero() || !receipt.Retained1.IsZero() {
		g.emit(RetainedEvent{Payer: p.Payer, Treasury: g.treasury,
			Amount0: new(uint256.Int).Set(receipt.Retained0),
			Amount1: new(uint256.Int).Set(receipt.Retained1)})
	}
	return receipt, nil
}

func (g *Gate) settle(token common.Address, payer common.Address, rebate, retained *uint256.Int) error {
	if !rebate.IsZero() {
		if err := g.bank.Transfer(token, payer, g.vault, rebate); err != nil {
			return err
		}
	}
	if !retained.IsZero() {
		if err := g.bank.Transfer(token, payer, g.treasury, retained); err != nil {
			return err
		}
	}
	return nil
}

func bpsOf(amount *uint256.Int, bps uint64) *uint256.Int {
	v := new(uint256.Int).Mul(amount, uint256.NewInt(bps))
	return v.Div(v, bpsDenominator)
}

func (g *Gate) emit(e engine.Event) {
	g.log.Debug("gate event", zap.String("event", e.Name()), zap.Any("payload", e))
	if g.sink != nil {
		g.sink.Emit(e)
	}
}

// QualifiedEvent records the tier decision for a gated mint.
type QualifiedEvent struct {
	Payer     common.Address `json:"payer"`
	Recipient common.Address `json:"recipient"`
	TickLower int            `json:"tick_lower"`
	TickUpper int            `json:"tick_upper"`
	Liquidity *uint256.Int   `json:"liquidity"`
	ShareBps  uint64         `json:"share_bps"`
	Tier      int            `json:"tier"`
}

func (QualifiedEvent) Name() string { return "Qualified" }

type RebatePaidEvent struct {
	Payer   common.Address `json:"payer"`
	Vault   common.Address `json:"vault"`
	Amount0 *uint256.Int   `json:"amount0"`
	Amount1 *uint256.Int   `json:"amount1"`
}

func (RebatePaidEvent) Name() string { return "RebatePaid" }

type RetainedEvent struct {
	Payer    common.Address `json:"payer"`
	Treasury common.Address `json:"treasury"`
	Amount0  *uint256.Int   `json:"amount0"`
	Amount1  *uint256.Int   `json:"amount1"`
}

func (RetainedEvent) Name() string { return "Retained" }
