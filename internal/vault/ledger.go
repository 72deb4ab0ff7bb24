package vault

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// NativeAsset is the pseudo-asset identifier used for native-value deposits
// and legacy native withdrawals.
var NativeAsset = common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")

// Ledger is the keyed balance store. Balances are held per (account, asset)
// in settlement micro-units for the settlement asset and in raw asset units
// for legacy entries. The settlement-asset entry of an account IS its
// settlement balance; totalSettlement tracks the sum of exactly those
// entries, so the two are updated together and never independently.
//
// The ledger performs pure balance arithmetic. Cap enforcement lives in
// CapPolicy; serialization of mutations lives in the engine's reentrancy
// guard.
type Ledger struct {
	settlement common.Address
	balances   map[common.Address]map[common.Address]*big.Int
	total      *big.Int
}

func NewLedger(settlement common.Address) *Ledger {
	return &Ledger{
		settlement: settlement,
		balances:   make(map[common.Address]map[common.Address]*big.Int),
		total:      big.NewInt(0),
	}
}

// SettlementAsset returns the asset all caps and totals are denominated in.
func (l *Ledger) SettlementAsset() common.Address {
	return l.settlement
}

// Credit adds amount to the (account, asset) balance. Crediting the
// settlement asset also increments the global total as part of the same
// mutation.
func (l *Ledger) Credit(account, asset common.Address, amount *big.Int) error {
	if l == nil {
		return ErrNotConfigured
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	entry := l.ensure(account)
	current, ok := entry[asset]
	if !ok {
		current = big.NewInt(0)
	}
	entry[asset] = new(big.Int).Add(current, amount)
	if asset == l.settlement {
		l.total = new(big.Int).Add(l.total, amount)
	}
	return nil
}

// Debit subtracts amount from the (account, asset) balance, failing with
// ErrInsufficientBalance when the result would go negative. Debiting the
// settlement asset also decrements the global total as part of the same
// mutation.
func (l *Ledger) Debit(account, asset common.Address, amount *big.Int) error {
	if l == nil {
		return ErrNotConfigured
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	current := l.Balance(account, asset)
	if current.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	l.ensure(account)[asset] = new(big.Int).Sub(current, amount)
	if asset == l.settlement {
		l.total = new(big.Int).Sub(l.total, amount)
	}
	return nil
}

// Balance returns a copy of the (account, asset) balance; zero when the
// account has never been credited.
func (l *Ledger) Balance(account, asset common.Address) *big.Int {
	if l == nil {
		return big.NewInt(0)
	}
	entry, ok := l.balances[account]
	if !ok {
		return big.NewInt(0)
	}
	amount, ok := entry[asset]
	if !ok {
		return big.NewInt(0)
	}
	return new(big.Int).Set(amount)
}

// SettlementBalance returns the account's normalized balance.
func (l *Ledger) SettlementBalance(account common.Address) *big.Int {
	return l.Balance(account, l.settlement)
}

// Total returns a copy of the global settlement balance.
func (l *Ledger) Total() *big.Int {
	if l == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(l.total)
}

// SettlementSum recomputes the sum of all settlement entries. Used by tests
// and the inspector to verify the total invariant; O(accounts).
func (l *Ledger) SettlementSum() *big.Int {
	sum := big.NewInt(0)
	if l == nil {
		return sum
	}
	for _, entry := range l.balances {
		if amount, ok := entry[l.settlement]; ok {
			sum.Add(sum, amount)
		}
	}
	return sum
}

func (l *Ledger) ensure(account common.Address) map[common.Address]*big.Int {
	entry, ok := l.balances[account]
	if !ok {
		entry = make(map[common.Address]*big.Int)
		l.balances[account] = entry
	}
	return entry
}
