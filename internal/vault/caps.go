package vault

import (
	"fmt"
	"math/big"
)

// CapPolicy validates amounts against the per-user cap, the global bank cap
// and the per-operation withdrawal limit. All three are fixed at
// construction, denominated in settlement micro-units, and ordered
// withdrawLimit <= perUserCap <= bankCap.
type CapPolicy struct {
	withdrawLimit *big.Int
	perUserCap    *big.Int
	bankCap       *big.Int
}

func NewCapPolicy(withdrawLimit, perUserCap, bankCap *big.Int) (*CapPolicy, error) {
	if withdrawLimit == nil || perUserCap == nil || bankCap == nil {
		return nil, fmt.Errorf("cap policy: all limits are required")
	}
	if withdrawLimit.Sign() <= 0 {
		return nil, fmt.Errorf("cap policy: withdraw limit must be positive")
	}
	if withdrawLimit.Cmp(perUserCap) > 0 {
		return nil, fmt.Errorf("cap policy: withdraw limit %s exceeds per-user cap %s", withdrawLimit, perUserCap)
	}
	if perUserCap.Cmp(bankCap) > 0 {
		return nil, fmt.Errorf("cap policy: per-user cap %s exceeds bank cap %s", perUserCap, bankCap)
	}
	return &CapPolicy{
		withdrawLimit: new(big.Int).Set(withdrawLimit),
		perUserCap:    new(big.Int).Set(perUserCap),
		bankCap:       new(big.Int).Set(bankCap),
	}, nil
}

// CheckDeposit validates crediting amount on top of the supplied
// pre-operation balances. It is evaluated before committing and re-evaluated
// after any external call returned a value (the swap output).
func (p *CapPolicy) CheckDeposit(balance, total, amount *big.Int) error {
	if p == nil {
		return ErrNotConfigured
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	projected := new(big.Int).Add(balance, amount)
	if projected.Cmp(p.perUserCap) > 0 {
		return fmt.Errorf("%w: balance %s + %s exceeds per-user cap %s", ErrAboveLimit, balance, amount, p.perUserCap)
	}
	projectedTotal := new(big.Int).Add(total, amount)
	if projectedTotal.Cmp(p.bankCap) > 0 {
		return fmt.Errorf("%w: total %s + %s exceeds bank cap %s", ErrBankCapExceeded, total, amount, p.bankCap)
	}
	return nil
}

// CheckWithdrawal validates debiting amount from the supplied pre-operation
// balance. The per-operation limit applies independently of the balance
// size.
func (p *CapPolicy) CheckWithdrawal(balance, amount *big.Int) error {
	if p == nil {
		return ErrNotConfigured
	}
	if balance == nil || balance.Sign() == 0 {
		return ErrNoFund
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: withdrawal amount must be positive", ErrAboveLimit)
	}
	if amount.Cmp(balance) > 0 {
		return fmt.Errorf("%w: amount %s exceeds balance %s", ErrAboveLimit, amount, balance)
	}
	if amount.Cmp(p.withdrawLimit) > 0 {
		return fmt.Errorf("%w: amount %s exceeds withdraw limit %s", ErrAboveLimit, amount, p.withdrawLimit)
	}
	return nil
}

// WithdrawLimit returns a copy of the per-operation withdrawal limit.
func (p *CapPolicy) WithdrawLimit() *big.Int { return new(big.Int).Set(p.withdrawLimit) }

// PerUserCap returns a copy of the per-user cap.
func (p *CapPolicy) PerUserCap() *big.Int { return new(big.Int).Set(p.perUserCap) }

// BankCap returns a copy of the global cap.
func (p *CapPolicy) BankCap() *big.Int { return new(big.Int).Set(p.bankCap) }

// RemainingUserCapacity reports how much the account can still deposit.
func (p *CapPolicy) RemainingUserCapacity(balance *big.Int) *big.Int {
	remaining := new(big.Int).Sub(p.perUserCap, balance)
	if remaining.Sign() < 0 {
		return big.NewInt(0)
	}
	return remaining
}

// RemainingBankCapacity reports how much the vault as a whole can still
// accept.
func (p *CapPolicy) RemainingBankCapacity(total *big.Int) *big.Int {
	remaining := new(big.Int).Sub(p.bankCap, total)
	if remaining.Sign() < 0 {
		return big.NewInt(0)
	}
	return remaining
}
