// Package tokens is an in-memory balance ledger standing in for the pair
// tokens: the engine reads its own balances from it to verify payment.
package tokens

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var ErrInsufficientBalance = errors.New("insufficient token balance")

type key struct {
	token   common.Address
	account common.Address
}

// Ledger holds balances per (token, account).
type Ledger struct {
	balances map[key]*uint256.Int
}

func NewLedger() *Ledger {
	return &Ledger{balances: make(map[key]*uint256.Int)}
}

// BalanceOf returns a copy of account's balance of token.
func (l *Ledger) BalanceOf(token, account common.Address) *uint256.Int {
	if bal, ok := l.balances[key{token, account}]; ok {
		return new(uint256.Int).Set(bal)
	}
	return uint256.NewInt(0)
}

// Mint credits amount of token to account out of thin air. Scenario and
// test funding only.
func (l *Ledger) Mint(token, to common.Address, amount *uint256.Int) {
	k := key{token, to}
	bal, ok := l.balances[k]
	if !ok {
		bal = uint256.NewInt(0)
		l.balances[k] = bal
	}
	bal.Add(bal, amount)
}

// Clone returns a deep copy of the ledger.
func (l *Ledger) Clone() *Ledger {
	c := NewLedger()
	for k, bal := range l.balances {
		c.balances[k] = new(uint256.Int).Set(bal)
	}
	return c
}

// Restore replaces the ledger's contents with those of snapshot. The
// receiver keeps its identity so holders of the pointer see the rollback.
func (l *Ledger) Restore(snapshot *Ledger) {
	l.balances = make(map[key]*uint256.Int, len(snapshot.balances))
	for k, bal := range snapshot.balances {
		l.balances[k] = new(uint256.Int).Set(bal)
	}
}

// Transfer moves amount of token between accounts.
func (l *Ledger) Transfer(token, from, to common.Address, amount *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}
	fromBal, ok := l.balances[key{token, from}]
	if !ok || fromBal.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	fromBal.Sub(fromBal, amount)
	l.Mint(token, to, amount)
	return nil
}
