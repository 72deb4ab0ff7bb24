package vault

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type transferCall struct {
	op     string
	asset  common.Address
	addr   common.Address
	amount *big.Int
}

type fakeTransfer struct {
	calls         []transferCall
	pullErr       error
	pushErr       error
	pushNativeErr error
}

func (f *fakeTransfer) Pull(_ context.Context, asset, from common.Address, amount *big.Int) error {
	f.calls = append(f.calls, transferCall{op: "pull", asset: asset, addr: from, amount: new(big.Int).Set(amount)})
	return f.pullErr
}

func (f *fakeTransfer) Push(_ context.Context, asset, to common.Address, amount *big.Int) error {
	f.calls = append(f.calls, transferCall{op: "push", asset: asset, addr: to, amount: new(big.Int).Set(amount)})
	return f.pushErr
}

func (f *fakeTransfer) PushNative(_ context.Context, to common.Address, amount *big.Int) error {
	f.calls = append(f.calls, transferCall{op: "pushNative", asset: NativeAsset, addr: to, amount: new(big.Int).Set(amount)})
	return f.pushNativeErr
}

func (f *fakeTransfer) last() transferCall {
	return f.calls[len(f.calls)-1]
}

type fakeSwapper struct {
	out       *big.Int // nil echoes MinAmountOut
	err       error
	grantErr  error
	onSwap    func(ctx context.Context)
	reqs      []SwapRequest
	approvals []common.Address
}

func (f *fakeSwapper) Swap(ctx context.Context, req SwapRequest) (*big.Int, error) {
	f.reqs = append(f.reqs, req)
	if f.onSwap != nil {
		f.onSwap(ctx)
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.out == nil {
		return new(big.Int).Set(req.MinAmountOut), nil
	}
	if f.out.Cmp(req.MinAmountOut) < 0 {
		return nil, fmt.Errorf("%w: got %s want at least %s", ErrInsufficientOutput, f.out, req.MinAmountOut)
	}
	return new(big.Int).Set(f.out), nil
}

func (f *fakeSwapper) GrantApproval(_ context.Context, asset common.Address) error {
	f.approvals = append(f.approvals, asset)
	return f.grantErr
}

type recordingEmitter struct {
	events []Event
}

func (r *recordingEmitter) Emit(e Event) { r.events = append(r.events, e) }

var testNow = time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

func newTestVault(t *testing.T) (*Vault, *fakeSwapper, *fakeTransfer, *recordingEmitter) {
	t.Helper()
	swapper := &fakeSwapper{}
	transfer := &fakeTransfer{}
	v, err := New(Params{
		Settlement:    testSettlement,
		WithdrawLimit: units(1_000),
		PerUserCap:    units(10_000),
		BankCap:       units(100_000),
	}, swapper, transfer)
	require.NoError(t, err)
	emitter := &recordingEmitter{}
	v.SetEmitter(emitter)
	v.SetNowFunc(func() time.Time { return testNow })
	return v, swapper, transfer, emitter
}

func TestNewValidation(t *testing.T) {
	swapper := &fakeSwapper{}
	transfer := &fakeTransfer{}
	base := Params{
		Settlement:    testSettlement,
		WithdrawLimit: units(1),
		PerUserCap:    units(10),
		BankCap:       units(100),
	}

	_, err := New(Params{WithdrawLimit: units(1), PerUserCap: units(10), BankCap: units(100)}, swapper, transfer)
	require.Error(t, err, "missing settlement asset")

	_, err = New(base, nil, transfer)
	require.ErrorIs(t, err, ErrNotConfigured)

	bad := base
	bad.SlippageBps = 4_999
	_, err = New(bad, swapper, transfer)
	require.ErrorIs(t, err, ErrInvalidSlippage)

	v, err := New(base, swapper, transfer)
	require.NoError(t, err)
	assert.Equal(t, DefaultSlippageBps, v.SlippageToleranceBps())
}

func TestDepositCreditsSettlement(t *testing.T) {
	v, _, transfer, emitter := newTestVault(t)

	require.NoError(t, v.Deposit(context.Background(), alice, units(1_000)))

	assert.Equal(t, units(1_000), v.BalanceOf(alice))
	assert.Equal(t, units(1_000), v.Total())

	pull := transfer.last()
	assert.Equal(t, "pull", pull.op)
	assert.Equal(t, testSettlement, pull.asset)
	assert.Equal(t, alice, pull.addr)

	stats := v.Stats(alice, testSettlement)
	assert.Equal(t, units(1_000), stats.Deposited)
	assert.Equal(t, uint64(1), stats.Deposits)

	require.Len(t, emitter.events, 1)
	deposit, ok := emitter.events[0].(DepositEvent)
	require.True(t, ok)
	assert.False(t, deposit.Swapped)
	assert.Equal(t, units(1_000), deposit.Credited)
}

func TestDepositRejectsZeroAmount(t *testing.T) {
	v, _, transfer, _ := newTestVault(t)

	require.ErrorIs(t, v.Deposit(context.Background(), alice, big.NewInt(0)), ErrZeroAmount)
	require.ErrorIs(t, v.Deposit(context.Background(), alice, nil), ErrZeroAmount)
	assert.Empty(t, transfer.calls)

	// Guard was released on the failure path.
	require.NoError(t, v.Deposit(context.Background(), alice, units(1)))
}

func TestDepositRefundsOnCapFailure(t *testing.T) {
	v, _, transfer, emitter := newTestVault(t)

	err := v.Deposit(context.Background(), alice, units(10_001))
	require.ErrorIs(t, err, ErrAboveLimit)

	// Pulled then pushed back; nothing committed.
	require.Len(t, transfer.calls, 2)
	assert.Equal(t, "pull", transfer.calls[0].op)
	refund := transfer.calls[1]
	assert.Equal(t, "push", refund.op)
	assert.Equal(t, testSettlement, refund.asset)
	assert.Equal(t, alice, refund.addr)
	assert.Equal(t, units(10_001), refund.amount)

	assert.Equal(t, big.NewInt(0), v.BalanceOf(alice))
	assert.Equal(t, big.NewInt(0), v.Total())
	assert.Empty(t, emitter.events)
}

func TestDepositBankCapSharedAcrossAccounts(t *testing.T) {
	v, _, _, _ := newTestVault(t)
	ctx := context.Background()

	for _, account := range accounts(10) {
		require.NoError(t, v.Deposit(ctx, account, units(10_000)))
	}
	require.Equal(t, units(100_000), v.Total())

	err := v.Deposit(ctx, bob, units(1))
	require.ErrorIs(t, err, ErrBankCapExceeded)
	assert.Equal(t, big.NewInt(0), v.RemainingBankCapacity())
}

func accounts(n int) []common.Address {
	out := make([]common.Address, n)
	for i := range out {
		out[i] = common.BigToAddress(big.NewInt(int64(i + 0x1000)))
	}
	return out
}

func TestDepositAssetAppliesSlippageTolerance(t *testing.T) {
	v, swapper, _, _ := newTestVault(t)

	// quoted 950 at the default 9500 bps tolerance floors to 902.5 units.
	out, err := v.DepositAsset(context.Background(), alice, testToken, units(1_000), units(950), 3000, 60)
	require.NoError(t, err)

	wantMin := big.NewInt(902_500_000)
	require.Len(t, swapper.reqs, 1)
	req := swapper.reqs[0]
	assert.Equal(t, wantMin, req.MinAmountOut)
	assert.Equal(t, testToken, req.AssetIn)
	assert.Equal(t, units(1_000), req.AmountIn)
	assert.Equal(t, uint32(3000), req.PoolFee)
	assert.Equal(t, testNow.Add(defaultSwapDeadline), req.Deadline)
	assert.False(t, req.Native())

	// Output exactly at the minimum is accepted and credited as-is.
	assert.Equal(t, wantMin, out)
	assert.Equal(t, wantMin, v.BalanceOf(alice))
	assert.Equal(t, wantMin, v.Total())

	stats := v.Stats(alice, testToken)
	assert.Equal(t, wantMin, stats.Deposited)
	assert.Equal(t, uint64(1), stats.Deposits)
}

func TestDepositAssetRefundsOnInsufficientOutput(t *testing.T) {
	v, swapper, transfer, emitter := newTestVault(t)
	swapper.out = units(900) // below the 902.5 minimum for a 950 quote

	_, err := v.DepositAsset(context.Background(), alice, testToken, units(1_000), units(950), 3000, 60)
	require.ErrorIs(t, err, ErrInsufficientOutput)

	require.Len(t, transfer.calls, 2)
	refund := transfer.calls[1]
	assert.Equal(t, "push", refund.op)
	assert.Equal(t, testToken, refund.asset)
	assert.Equal(t, units(1_000), refund.amount)

	assert.Equal(t, big.NewInt(0), v.BalanceOf(alice))
	assert.Equal(t, big.NewInt(0), v.Total())
	assert.Empty(t, emitter.events)
}

func TestDepositAssetRefundsOnSwapFailure(t *testing.T) {
	v, swapper, transfer, _ := newTestVault(t)
	swapper.err = fmt.Errorf("%w: pool reverted", ErrSwapFailed)

	_, err := v.DepositAsset(context.Background(), alice, testToken, units(100), units(95), 3000, 60)
	require.ErrorIs(t, err, ErrSwapFailed)

	refund := transfer.last()
	assert.Equal(t, "push", refund.op)
	assert.Equal(t, testToken, refund.asset)
	assert.Equal(t, big.NewInt(0), v.Total())
}

func TestDepositAssetPushesOutputBackOnCapFailure(t *testing.T) {
	v, swapper, transfer, _ := newTestVault(t)
	swapper.out = units(10_500) // breaks the per-user cap after the swap

	_, err := v.DepositAsset(context.Background(), alice, testToken, units(11_000), units(10_500), 3000, 60)
	require.ErrorIs(t, err, ErrAboveLimit)

	// Input cannot be un-swapped: the settlement output goes back instead.
	refund := transfer.last()
	assert.Equal(t, "push", refund.op)
	assert.Equal(t, testSettlement, refund.asset)
	assert.Equal(t, units(10_500), refund.amount)

	assert.Equal(t, big.NewInt(0), v.BalanceOf(alice))
	assert.Equal(t, big.NewInt(0), v.Total())
}

func TestDepositAssetRejectsWrongEntryPoint(t *testing.T) {
	v, _, transfer, _ := newTestVault(t)
	ctx := context.Background()

	_, err := v.DepositAsset(ctx, alice, testSettlement, units(1), units(1), 3000, 60)
	require.ErrorIs(t, err, ErrInvalidAsset, "settlement asset must use Deposit")

	_, err = v.DepositAsset(ctx, alice, NativeAsset, units(1), units(1), 3000, 60)
	require.ErrorIs(t, err, ErrInvalidAsset, "native value must use DepositNative")

	_, err = v.DepositAsset(ctx, alice, common.Address{}, units(1), units(1), 3000, 60)
	require.ErrorIs(t, err, ErrInvalidAsset)

	assert.Empty(t, transfer.calls)
}

func TestDepositNative(t *testing.T) {
	v, swapper, transfer, _ := newTestVault(t)

	out, err := v.DepositNative(context.Background(), alice, units(5), units(4), 3000, 60)
	require.NoError(t, err)

	require.Len(t, swapper.reqs, 1)
	assert.True(t, swapper.reqs[0].Native())
	assert.Equal(t, out, v.BalanceOf(alice))

	// The value is already held by the vault; nothing was pulled.
	assert.Empty(t, transfer.calls)

	stats := v.Stats(alice, NativeAsset)
	assert.Equal(t, uint64(1), stats.Deposits)
}

func TestDepositNativeRefundsValueOnFailure(t *testing.T) {
	v, swapper, transfer, _ := newTestVault(t)
	swapper.err = fmt.Errorf("%w: pool reverted", ErrSwapFailed)

	_, err := v.DepositNative(context.Background(), alice, units(5), units(4), 3000, 60)
	require.ErrorIs(t, err, ErrSwapFailed)

	refund := transfer.last()
	assert.Equal(t, "pushNative", refund.op)
	assert.Equal(t, alice, refund.addr)
	assert.Equal(t, units(5), refund.amount)
	assert.Equal(t, big.NewInt(0), v.Total())
}

func TestReentrantSwapRejected(t *testing.T) {
	v, swapper, _, _ := newTestVault(t)

	var reentrantErr error
	swapper.onSwap = func(ctx context.Context) {
		reentrantErr = v.Deposit(ctx, bob, units(1))
	}

	out, err := v.DepositAsset(context.Background(), alice, testToken, units(100), units(95), 3000, 60)
	require.NoError(t, err, "outer operation proceeds")
	require.ErrorIs(t, reentrantErr, ErrReentrancyDetected)

	// Only the outer credit landed; the reentrant call had no effect.
	assert.Equal(t, big.NewInt(0), v.BalanceOf(bob))
	assert.Equal(t, out, v.Total())

	// Guard is free again after the outer operation returned.
	require.NoError(t, v.Deposit(context.Background(), bob, units(1)))
}

func TestWithdrawSettlement(t *testing.T) {
	v, _, transfer, emitter := newTestVault(t)
	ctx := context.Background()
	require.NoError(t, v.Deposit(ctx, alice, units(2_000)))

	require.NoError(t, v.WithdrawSettlement(ctx, alice, units(800)))

	assert.Equal(t, units(1_200), v.BalanceOf(alice))
	assert.Equal(t, units(1_200), v.Total())

	push := transfer.last()
	assert.Equal(t, "push", push.op)
	assert.Equal(t, testSettlement, push.asset)
	assert.Equal(t, units(800), push.amount)

	withdrawal, ok := emitter.events[len(emitter.events)-1].(WithdrawalEvent)
	require.True(t, ok)
	assert.False(t, withdrawal.Legacy)
	assert.Equal(t, uint64(1), v.Stats(alice, testSettlement).Withdrawals)
}

func TestWithdrawSettlementValidation(t *testing.T) {
	v, _, _, _ := newTestVault(t)
	ctx := context.Background()

	require.ErrorIs(t, v.WithdrawSettlement(ctx, alice, units(1)), ErrNoFund)

	require.NoError(t, v.Deposit(ctx, alice, units(2_000)))
	require.ErrorIs(t, v.WithdrawSettlement(ctx, alice, units(1_001)), ErrAboveLimit, "per-operation limit")
	require.ErrorIs(t, v.WithdrawSettlement(ctx, bob, units(1)), ErrNoFund)
	assert.Equal(t, units(2_000), v.Total())
}

func TestWithdrawRollsBackOnReleaseFailure(t *testing.T) {
	v, _, transfer, _ := newTestVault(t)
	ctx := context.Background()
	require.NoError(t, v.Deposit(ctx, alice, units(2_000)))

	transfer.pushErr = errors.New("transfer reverted")
	err := v.WithdrawSettlement(ctx, alice, units(500))
	require.Error(t, err)

	// Debit was undone; balance and total are as before the attempt.
	assert.Equal(t, units(2_000), v.BalanceOf(alice))
	assert.Equal(t, units(2_000), v.Total())
	assert.Equal(t, uint64(0), v.Stats(alice, testSettlement).Withdrawals)
}

func TestWithdrawLegacyAsset(t *testing.T) {
	v, _, transfer, emitter := newTestVault(t)
	ctx := context.Background()

	// Balances credited before normalization live under their own asset key.
	require.NoError(t, v.ledger.Credit(alice, NativeAsset, units(5)))
	require.NoError(t, v.ledger.Credit(alice, testToken, units(40)))

	require.NoError(t, v.Withdraw(ctx, alice, NativeAsset, units(2)))
	native := transfer.last()
	assert.Equal(t, "pushNative", native.op)
	assert.Equal(t, units(3), v.LegacyBalanceOf(alice, NativeAsset))

	require.NoError(t, v.Withdraw(ctx, alice, testToken, units(40)))
	assert.Equal(t, big.NewInt(0), v.LegacyBalanceOf(alice, testToken))

	// Legacy withdrawals never touch the settlement total.
	assert.Equal(t, big.NewInt(0), v.Total())

	withdrawal, ok := emitter.events[len(emitter.events)-1].(WithdrawalEvent)
	require.True(t, ok)
	assert.True(t, withdrawal.Legacy)
}

func TestWithdrawSettlementAssetViaLegacyPath(t *testing.T) {
	v, _, _, _ := newTestVault(t)
	ctx := context.Background()
	require.NoError(t, v.Deposit(ctx, alice, units(1_000)))

	require.NoError(t, v.Withdraw(ctx, alice, testSettlement, units(400)))

	assert.Equal(t, units(600), v.BalanceOf(alice))
	assert.Equal(t, units(600), v.Total())
}

func TestSetSlippageTolerance(t *testing.T) {
	v, _, _, emitter := newTestVault(t)

	require.ErrorIs(t, v.SetSlippageTolerance(4_999), ErrInvalidSlippage)
	require.ErrorIs(t, v.SetSlippageTolerance(10_001), ErrInvalidSlippage)

	require.NoError(t, v.SetSlippageTolerance(5_000))
	assert.Equal(t, uint32(5_000), v.SlippageToleranceBps())
	require.NoError(t, v.SetSlippageTolerance(10_000))

	updated, ok := emitter.events[len(emitter.events)-1].(SlippageUpdatedEvent)
	require.True(t, ok)
	assert.Equal(t, uint32(5_000), updated.OldBps)
	assert.Equal(t, uint32(10_000), updated.NewBps)
}

func TestSweep(t *testing.T) {
	v, _, transfer, _ := newTestVault(t)
	ctx := context.Background()

	require.NoError(t, v.Sweep(ctx, testToken, bob, units(10)))
	push := transfer.last()
	assert.Equal(t, "push", push.op)
	assert.Equal(t, bob, push.addr)

	require.NoError(t, v.Sweep(ctx, NativeAsset, bob, units(1)))
	assert.Equal(t, "pushNative", transfer.last().op)

	require.ErrorIs(t, v.Sweep(ctx, testToken, bob, big.NewInt(0)), ErrZeroAmount)
}

func TestGrantApproval(t *testing.T) {
	v, swapper, _, _ := newTestVault(t)
	ctx := context.Background()

	require.NoError(t, v.GrantApproval(ctx, testToken))
	assert.Equal(t, []common.Address{testToken}, swapper.approvals)

	require.ErrorIs(t, v.GrantApproval(ctx, NativeAsset), ErrInvalidAsset)
	require.ErrorIs(t, v.GrantApproval(ctx, common.Address{}), ErrInvalidAsset)
}
