package swap

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/GoVaultGate/vaultgate/internal/pkg/logger"
	"github.com/GoVaultGate/vaultgate/internal/pkg/metrics"
	"github.com/GoVaultGate/vaultgate/internal/vault"
)

// Price-limit bounds of the concentrated-liquidity exchange. Swapping with
// the limit pinned one tick inside the bound disables the price check and
// leaves output protection to the adapter's own minimum-output comparison.
var (
	minSqrtRatio = big.NewInt(4295128739)
	maxSqrtRatio = mustBig("1461446703485210103287273052203988822378723970342")
)

func mustBig(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("swap: bad constant " + s)
	}
	return v
}

// PoolKey identifies a pool by its canonically ordered currency pair.
// Native value is currency zero and always sorts first.
type PoolKey struct {
	Currency0   common.Address
	Currency1   common.Address
	Fee         uint32
	TickSpacing int32
}

// NewPoolKey orders the pair by byte comparison, the exchange's canonical
// pool identity.
func NewPoolKey(a, b common.Address, fee uint32, tickSpacing int32) PoolKey {
	if bytes.Compare(a.Bytes(), b.Bytes()) > 0 {
		a, b = b, a
	}
	return PoolKey{Currency0: a, Currency1: b, Fee: fee, TickSpacing: tickSpacing}
}

// Exchange executes a single-hop exact-input swap against the pool.
// amountIn is attached as native value when the input currency is zero.
type Exchange interface {
	Swap(ctx context.Context, key PoolKey, zeroForOne bool, amountIn, sqrtPriceLimit *big.Int, deadline time.Time) error
}

// ApprovalRelay grants the exchange spending rights through the delegated
// approval contract: a one-time unbounded base approval per asset, then a
// bounded, expiring allowance per swap.
type ApprovalRelay interface {
	Approve(ctx context.Context, token, spender common.Address, amount *big.Int, expiry time.Time) error
	ApproveBase(ctx context.Context, token common.Address) error
}

// BalanceReader reports the vault's holding of a token. Output accounting
// relies on it rather than on anything the exchange returns.
type BalanceReader interface {
	Balance(ctx context.Context, token, account common.Address) (*big.Int, error)
}

// Adapter converts arbitrary assets into the settlement asset through the
// external exchange, measuring output by settlement balance difference.
type Adapter struct {
	exchange Exchange
	relay    ApprovalRelay
	balances BalanceReader

	settlement   common.Address
	exchangeAddr common.Address
	vaultAddr    common.Address
}

func NewAdapter(exchange Exchange, relay ApprovalRelay, balances BalanceReader, settlement, exchangeAddr, vaultAddr common.Address) (*Adapter, error) {
	if exchange == nil || relay == nil || balances == nil {
		return nil, fmt.Errorf("swap: exchange, relay and balance reader are required")
	}
	if settlement == (common.Address{}) {
		return nil, fmt.Errorf("swap: settlement asset required")
	}
	return &Adapter{
		exchange:     exchange,
		relay:        relay,
		balances:     balances,
		settlement:   settlement,
		exchangeAddr: exchangeAddr,
		vaultAddr:    vaultAddr,
	}, nil
}

// Swap implements vault.SwapAdapter.
func (a *Adapter) Swap(ctx context.Context, req vault.SwapRequest) (*big.Int, error) {
	if req.AmountIn == nil || req.AmountIn.Sign() <= 0 {
		return nil, vault.ErrZeroAmount
	}
	if req.AssetIn == a.settlement {
		return nil, vault.ErrInvalidAsset
	}
	start := time.Now()
	out, err := a.swap(ctx, req)
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.SwapDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	return out, err
}

func (a *Adapter) swap(ctx context.Context, req vault.SwapRequest) (*big.Int, error) {
	currencyIn := currency(req.AssetIn)
	key := NewPoolKey(currencyIn, a.settlement, req.PoolFee, req.TickSpacing)
	zeroForOne := key.Currency0 == currencyIn

	limit := new(big.Int)
	if zeroForOne {
		limit.Add(minSqrtRatio, big.NewInt(1))
	} else {
		limit.Sub(maxSqrtRatio, big.NewInt(1))
	}

	// Native input needs no allowance; it rides along as call value.
	if !req.Native() {
		if err := a.relay.Approve(ctx, req.AssetIn, a.exchangeAddr, req.AmountIn, req.Deadline); err != nil {
			return nil, fmt.Errorf("%w: relay approval: %v", vault.ErrSwapFailed, err)
		}
	}

	before, err := a.balances.Balance(ctx, a.settlement, a.vaultAddr)
	if err != nil {
		return nil, fmt.Errorf("%w: pre-swap balance: %v", vault.ErrSwapFailed, err)
	}
	if err := a.exchange.Swap(ctx, key, zeroForOne, req.AmountIn, limit, req.Deadline); err != nil {
		return nil, fmt.Errorf("%w: %v", vault.ErrSwapFailed, err)
	}
	after, err := a.balances.Balance(ctx, a.settlement, a.vaultAddr)
	if err != nil {
		return nil, fmt.Errorf("%w: post-swap balance: %v", vault.ErrSwapFailed, err)
	}

	out := new(big.Int).Sub(after, before)
	if req.MinAmountOut != nil && out.Cmp(req.MinAmountOut) < 0 {
		return nil, fmt.Errorf("%w: got %s want at least %s", vault.ErrInsufficientOutput, out, req.MinAmountOut)
	}
	if out.Sign() <= 0 {
		return nil, fmt.Errorf("%w: no settlement output measured", vault.ErrInsufficientOutput)
	}
	logger.Debug("Swap executed", "assetIn", req.AssetIn.Hex(), "amountIn", req.AmountIn.String(), "out", out.String())
	return out, nil
}

// GrantApproval implements vault.SwapAdapter: the one-time base approval
// the per-swap bounded allowances stack on.
func (a *Adapter) GrantApproval(ctx context.Context, asset common.Address) error {
	if asset == (common.Address{}) || asset == vault.NativeAsset {
		return vault.ErrInvalidAsset
	}
	if err := a.relay.ApproveBase(ctx, asset); err != nil {
		return fmt.Errorf("%w: base approval: %v", vault.ErrSwapFailed, err)
	}
	logger.Info("Base approval granted", "asset", asset.Hex())
	return nil
}

// currency maps the vault's native sentinel to the exchange's currency
// zero.
func currency(asset common.Address) common.Address {
	if asset == vault.NativeAsset {
		return common.Address{}
	}
	return asset
}
