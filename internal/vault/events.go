package vault

import (
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
)

const (
	TypeDeposit         = "vault.deposit"
	TypeWithdrawal      = "vault.withdrawal"
	TypeSlippageUpdated = "vault.slippage_updated"
)

// Event is an observable record of a committed vault operation.
type Event interface {
	EventType() string
	Attributes() map[string]string
}

// Emitter receives events after the operation they describe committed.
// Emission is observational: an emitter must not fail the operation.
type Emitter interface {
	Emit(Event)
}

// NoopEmitter discards events; the default until a stream is wired.
type NoopEmitter struct{}

func (NoopEmitter) Emit(Event) {}

// DepositEvent is emitted once per committed deposit, whatever the entry
// shape. AmountIn is in the input asset's units; Credited is the settlement
// amount added to the ledger.
type DepositEvent struct {
	Account  common.Address
	AssetIn  common.Address
	AmountIn *big.Int
	Credited *big.Int
	Swapped  bool
}

func (DepositEvent) EventType() string { return TypeDeposit }

func (e DepositEvent) Attributes() map[string]string {
	return map[string]string{
		"account":  e.Account.Hex(),
		"assetIn":  e.AssetIn.Hex(),
		"amountIn": formatAmount(e.AmountIn),
		"credited": formatAmount(e.Credited),
		"swapped":  strconv.FormatBool(e.Swapped),
	}
}

// WithdrawalEvent is emitted once per committed withdrawal.
type WithdrawalEvent struct {
	Account common.Address
	Asset   common.Address
	Amount  *big.Int
	Legacy  bool
}

func (WithdrawalEvent) EventType() string { return TypeWithdrawal }

func (e WithdrawalEvent) Attributes() map[string]string {
	return map[string]string{
		"account": e.Account.Hex(),
		"asset":   e.Asset.Hex(),
		"amount":  formatAmount(e.Amount),
		"legacy":  strconv.FormatBool(e.Legacy),
	}
}

// SlippageUpdatedEvent records an admin change of the slippage tolerance.
type SlippageUpdatedEvent struct {
	OldBps uint32
	NewBps uint32
}

func (SlippageUpdatedEvent) EventType() string { return TypeSlippageUpdated }

func (e SlippageUpdatedEvent) Attributes() map[string]string {
	return map[string]string{
		"oldBps": strconv.FormatUint(uint64(e.OldBps), 10),
		"newBps": strconv.FormatUint(uint64(e.NewBps), 10),
	}
}

func formatAmount(amount *big.Int) string {
	if amount == nil {
		return "0"
	}
	return amount.String()
}
