package vault

import (
	"context"
	"fmt"
	"math/big"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Slippage tolerance is expressed in basis points of the caller-supplied
// quote and bounded to [5000, 10000].
const (
	SlippageFloorBps   uint32 = 5000
	SlippageCeilBps    uint32 = 10000
	DefaultSlippageBps uint32 = 9500

	bpsDenominator = 10000

	defaultSwapDeadline = 2 * time.Minute
)

// SwapRequest describes one single-hop conversion into the settlement asset.
// It is ephemeral: built per deposit, never persisted.
type SwapRequest struct {
	AssetIn      common.Address
	AmountIn     *big.Int
	MinAmountOut *big.Int
	PoolFee      uint32
	TickSpacing  int32
	Deadline     time.Time
}

// Native reports whether the request spends attached native value rather
// than a pulled asset.
func (r SwapRequest) Native() bool { return r.AssetIn == NativeAsset }

// SwapAdapter converts an arbitrary asset into the settlement asset through
// the external exchange protocol. Swap returns the actual settlement output
// measured by balance difference; it fails with ErrInsufficientOutput below
// MinAmountOut and wraps ErrSwapFailed when the exchange call itself aborts.
// The call runs untrusted external code and may reenter the vault.
type SwapAdapter interface {
	Swap(ctx context.Context, req SwapRequest) (*big.Int, error)
	// GrantApproval pre-approves the delegated-approval relay for asset so
	// that per-swap bounded allowances can be granted on top of it.
	GrantApproval(ctx context.Context, asset common.Address) error
}

// AssetTransferer is the fungible-asset transfer capability: pull from a
// depositor, push to a withdrawer, and release native value. Like the swap,
// these calls run external code and may reenter.
type AssetTransferer interface {
	Pull(ctx context.Context, asset, from common.Address, amount *big.Int) error
	Push(ctx context.Context, asset, to common.Address, amount *big.Int) error
	PushNative(ctx context.Context, to common.Address, amount *big.Int) error
}

// Params carries the construction-time configuration. The three caps are
// immutable after construction; only the slippage tolerance is
// admin-adjustable at runtime.
type Params struct {
	Settlement    common.Address
	WithdrawLimit *big.Int
	PerUserCap    *big.Int
	BankCap       *big.Int
	SlippageBps   uint32
	SwapDeadline  time.Duration
}

// Vault orchestrates receive -> (optional swap) -> cap check -> ledger
// commit -> stats for deposits, and the mirrored guard/validate/commit shape
// for withdrawals. Every mutating entry point holds the reentrancy guard for
// its full duration; every failure path undoes all effects performed within
// the operation, including asset pulls that already happened.
type Vault struct {
	guard    ReentrancyGuard
	ledger   *Ledger
	caps     *CapPolicy
	stats    *StatsRecorder
	swapper  SwapAdapter
	transfer AssetTransferer
	emitter  Emitter

	slippageBps  atomic.Uint32
	swapDeadline time.Duration
	nowFn        func() time.Time
}

func New(params Params, swapper SwapAdapter, transfer AssetTransferer) (*Vault, error) {
	if params.Settlement == (common.Address{}) {
		return nil, fmt.Errorf("vault: settlement asset required")
	}
	if swapper == nil || transfer == nil {
		return nil, ErrNotConfigured
	}
	caps, err := NewCapPolicy(params.WithdrawLimit, params.PerUserCap, params.BankCap)
	if err != nil {
		return nil, err
	}
	slippage := params.SlippageBps
	if slippage == 0 {
		slippage = DefaultSlippageBps
	}
	if slippage < SlippageFloorBps || slippage > SlippageCeilBps {
		return nil, ErrInvalidSlippage
	}
	deadline := params.SwapDeadline
	if deadline <= 0 {
		deadline = defaultSwapDeadline
	}
	v := &Vault{
		ledger:       NewLedger(params.Settlement),
		caps:         caps,
		stats:        NewStatsRecorder(),
		swapper:      swapper,
		transfer:     transfer,
		emitter:      NoopEmitter{},
		swapDeadline: deadline,
		nowFn:        time.Now,
	}
	v.slippageBps.Store(slippage)
	return v, nil
}

// SetEmitter wires the event sink. Passing nil resets to a no-op.
func (v *Vault) SetEmitter(emitter Emitter) {
	if emitter == nil {
		v.emitter = NoopEmitter{}
		return
	}
	v.emitter = emitter
}

// SetNowFunc overrides the time source for deterministic tests.
func (v *Vault) SetNowFunc(now func() time.Time) {
	if now == nil {
		v.nowFn = time.Now
		return
	}
	v.nowFn = now
}

// Deposit credits amount of the settlement asset pulled from account. No
// swap is involved; the amount is taken at face value.
func (v *Vault) Deposit(ctx context.Context, account common.Address, amount *big.Int) error {
	if err := v.guard.Enter(); err != nil {
		return err
	}
	defer v.guard.Exit()

	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	settlement := v.ledger.SettlementAsset()
	if err := v.transfer.Pull(ctx, settlement, account, amount); err != nil {
		return fmt.Errorf("vault: pull settlement asset: %w", err)
	}
	// Pull runs external code; caps are checked against post-pull state
	// before anything is committed.
	if err := v.caps.CheckDeposit(v.ledger.SettlementBalance(account), v.ledger.Total(), amount); err != nil {
		return v.refundAsset(ctx, settlement, account, amount, err)
	}
	v.commitDeposit(account, settlement, amount, amount, false)
	return nil
}

// DepositAsset pulls amountIn of an arbitrary asset from account, converts
// it into the settlement asset and credits the swap output. quoted is the
// caller-supplied off-chain estimate the slippage tolerance is applied to;
// an inflated quote weakens the caller's own protection.
func (v *Vault) DepositAsset(ctx context.Context, account, assetIn common.Address, amountIn, quoted *big.Int, poolFee uint32, tickSpacing int32) (*big.Int, error) {
	if err := v.guard.Enter(); err != nil {
		return nil, err
	}
	defer v.guard.Exit()

	if amountIn == nil || amountIn.Sign() <= 0 || quoted == nil || quoted.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	if assetIn == (common.Address{}) || assetIn == v.ledger.SettlementAsset() || assetIn == NativeAsset {
		return nil, ErrInvalidAsset
	}
	if err := v.transfer.Pull(ctx, assetIn, account, amountIn); err != nil {
		return nil, fmt.Errorf("vault: pull %s: %w", assetIn.Hex(), err)
	}
	out, err := v.swapIn(ctx, assetIn, amountIn, quoted, poolFee, tickSpacing)
	if err != nil {
		return nil, v.refundAsset(ctx, assetIn, account, amountIn, err)
	}
	// The swap returned a value from external code: re-validate caps with
	// the actual output before committing.
	if err := v.caps.CheckDeposit(v.ledger.SettlementBalance(account), v.ledger.Total(), out); err != nil {
		return nil, v.refundAsset(ctx, v.ledger.SettlementAsset(), account, out, err)
	}
	v.commitDeposit(account, assetIn, amountIn, out, true)
	return out, nil
}

// DepositNative converts attached native value into the settlement asset
// and credits the swap output. The value is already held by the vault when
// this runs; failure refunds it.
func (v *Vault) DepositNative(ctx context.Context, account common.Address, value, quoted *big.Int, poolFee uint32, tickSpacing int32) (*big.Int, error) {
	if err := v.guard.Enter(); err != nil {
		return nil, err
	}
	defer v.guard.Exit()

	if value == nil || value.Sign() <= 0 || quoted == nil || quoted.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	out, err := v.swapIn(ctx, NativeAsset, value, quoted, poolFee, tickSpacing)
	if err != nil {
		return nil, v.refundNative(ctx, account, value, err)
	}
	if err := v.caps.CheckDeposit(v.ledger.SettlementBalance(account), v.ledger.Total(), out); err != nil {
		return nil, v.refundAsset(ctx, v.ledger.SettlementAsset(), account, out, err)
	}
	v.commitDeposit(account, NativeAsset, value, out, true)
	return out, nil
}

// WithdrawSettlement debits the account's settlement balance and releases
// the settlement asset. Primary withdrawal path.
func (v *Vault) WithdrawSettlement(ctx context.Context, account common.Address, amount *big.Int) error {
	if err := v.guard.Enter(); err != nil {
		return err
	}
	defer v.guard.Exit()
	return v.withdraw(ctx, account, v.ledger.SettlementAsset(), amount, false)
}

// Withdraw is the legacy per-asset path, retained for assets credited
// before normalization. Withdrawing the settlement asset through it is
// equivalent to WithdrawSettlement.
func (v *Vault) Withdraw(ctx context.Context, account, asset common.Address, amount *big.Int) error {
	if err := v.guard.Enter(); err != nil {
		return err
	}
	defer v.guard.Exit()
	return v.withdraw(ctx, account, asset, amount, asset != v.ledger.SettlementAsset())
}

func (v *Vault) withdraw(ctx context.Context, account, asset common.Address, amount *big.Int, legacy bool) error {
	if err := v.caps.CheckWithdrawal(v.ledger.Balance(account, asset), amount); err != nil {
		return err
	}
	if err := v.ledger.Debit(account, asset, amount); err != nil {
		return err
	}
	var err error
	if asset == NativeAsset {
		err = v.transfer.PushNative(ctx, account, amount)
	} else {
		err = v.transfer.Push(ctx, asset, account, amount)
	}
	if err != nil {
		// Outbound transfer failed: roll the debit back so no partial
		// effect survives.
		if creditErr := v.ledger.Credit(account, asset, amount); creditErr != nil {
			return fmt.Errorf("vault: release %s failed (%v) and rollback failed: %w", asset.Hex(), err, creditErr)
		}
		return fmt.Errorf("vault: release %s: %w", asset.Hex(), err)
	}
	v.stats.RecordWithdrawal(account, asset)
	v.emitter.Emit(WithdrawalEvent{Account: account, Asset: asset, Amount: new(big.Int).Set(amount), Legacy: legacy})
	return nil
}

// SetSlippageTolerance adjusts the basis-point tolerance applied to
// caller-supplied quotes. Admin-only at the transport layer.
func (v *Vault) SetSlippageTolerance(bps uint32) error {
	if bps < SlippageFloorBps || bps > SlippageCeilBps {
		return ErrInvalidSlippage
	}
	old := v.slippageBps.Swap(bps)
	v.emitter.Emit(SlippageUpdatedEvent{OldBps: old, NewBps: bps})
	return nil
}

// SlippageToleranceBps returns the current tolerance.
func (v *Vault) SlippageToleranceBps() uint32 { return v.slippageBps.Load() }

// Sweep releases amount of an arbitrary asset held by the vault to an
// admin-chosen recipient. It does not touch the ledger; it exists to recover
// stray assets, not to move accounted balances.
func (v *Vault) Sweep(ctx context.Context, asset, to common.Address, amount *big.Int) error {
	if err := v.guard.Enter(); err != nil {
		return err
	}
	defer v.guard.Exit()
	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	if asset == NativeAsset {
		return v.transfer.PushNative(ctx, to, amount)
	}
	return v.transfer.Push(ctx, asset, to, amount)
}

// GrantApproval pre-approves the delegated-approval relay for asset.
func (v *Vault) GrantApproval(ctx context.Context, asset common.Address) error {
	if err := v.guard.Enter(); err != nil {
		return err
	}
	defer v.guard.Exit()
	if asset == (common.Address{}) || asset == NativeAsset {
		return ErrInvalidAsset
	}
	return v.swapper.GrantApproval(ctx, asset)
}

// BalanceOf returns the account's settlement balance.
func (v *Vault) BalanceOf(account common.Address) *big.Int {
	return v.ledger.SettlementBalance(account)
}

// LegacyBalanceOf returns the raw (account, asset) balance.
func (v *Vault) LegacyBalanceOf(account, asset common.Address) *big.Int {
	return v.ledger.Balance(account, asset)
}

// Total returns the global settlement balance.
func (v *Vault) Total() *big.Int { return v.ledger.Total() }

// RemainingUserCapacity reports how much the account can still deposit.
func (v *Vault) RemainingUserCapacity(account common.Address) *big.Int {
	return v.caps.RemainingUserCapacity(v.ledger.SettlementBalance(account))
}

// RemainingBankCapacity reports how much the vault can still accept.
func (v *Vault) RemainingBankCapacity() *big.Int {
	return v.caps.RemainingBankCapacity(v.ledger.Total())
}

// Stats returns the cumulative counters for (account, asset).
func (v *Vault) Stats(account, asset common.Address) StatsRecord {
	return v.stats.Get(account, asset)
}

// Caps exposes the immutable cap configuration.
func (v *Vault) Caps() *CapPolicy { return v.caps }

// SettlementAsset returns the asset all balances are normalized into.
func (v *Vault) SettlementAsset() common.Address { return v.ledger.SettlementAsset() }

// swapIn runs the adapter under the operation deadline with the
// tolerance-adjusted minimum output derived from the caller's quote.
func (v *Vault) swapIn(ctx context.Context, assetIn common.Address, amountIn, quoted *big.Int, poolFee uint32, tickSpacing int32) (*big.Int, error) {
	deadline := v.nowFn().Add(v.swapDeadline)
	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	minOut := new(big.Int).Mul(quoted, big.NewInt(int64(v.slippageBps.Load())))
	minOut.Quo(minOut, big.NewInt(bpsDenominator))

	out, err := v.swapper.Swap(ctx, SwapRequest{
		AssetIn:      assetIn,
		AmountIn:     new(big.Int).Set(amountIn),
		MinAmountOut: minOut,
		PoolFee:      poolFee,
		TickSpacing:  tickSpacing,
		Deadline:     deadline,
	})
	if err != nil {
		return nil, err
	}
	if out == nil || out.Sign() <= 0 {
		return nil, fmt.Errorf("%w: empty swap output", ErrInsufficientOutput)
	}
	return out, nil
}

// commitDeposit applies the ledger credit, stats and event as one unit. It
// runs only after every validation step succeeded; no external call happens
// between the ledger mutation and the total update.
func (v *Vault) commitDeposit(account, assetIn common.Address, amountIn, credited *big.Int, swapped bool) {
	// Credit cannot fail here: amounts were validated positive.
	_ = v.ledger.Credit(account, v.ledger.SettlementAsset(), credited)
	v.stats.RecordDeposit(account, assetIn, credited)
	v.emitter.Emit(DepositEvent{
		Account:  account,
		AssetIn:  assetIn,
		AmountIn: new(big.Int).Set(amountIn),
		Credited: new(big.Int).Set(credited),
		Swapped:  swapped,
	})
}

// refundAsset compensates a failed operation by pushing the held amount
// back to the account, preserving the original failure. Used both for
// returning pulled input assets and, after a cap failure post-swap, for
// returning the settlement output (the input cannot be un-swapped; the
// caller receives equivalent value and the vault state stays untouched).
func (v *Vault) refundAsset(ctx context.Context, asset, account common.Address, amount *big.Int, cause error) error {
	if err := v.transfer.Push(ctx, asset, account, amount); err != nil {
		return fmt.Errorf("%w (refund of %s %s failed: %v)", cause, amount, asset.Hex(), err)
	}
	return cause
}

func (v *Vault) refundNative(ctx context.Context, account common.Address, amount *big.Int, cause error) error {
	if err := v.transfer.PushNative(ctx, account, amount); err != nil {
		return fmt.Errorf("%w (native refund of %s failed: %v)", cause, amount, err)
	}
	return cause
}
