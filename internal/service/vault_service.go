package service

import (
	"context"
	"errors"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/GoVaultGate/vaultgate/internal/model"
	"github.com/GoVaultGate/vaultgate/internal/pkg/apperrors"
	"github.com/GoVaultGate/vaultgate/internal/pkg/logger"
	"github.com/GoVaultGate/vaultgate/internal/pkg/metrics"
	"github.com/GoVaultGate/vaultgate/internal/vault"
)

const (
	defaultPoolFee     uint32 = 3000
	defaultTickSpacing int32  = 60
)

// StatsSink mirrors committed operation counters to durable storage.
// Best effort; sink failures never fail the operation.
type StatsSink interface {
	AddDeposit(ctx context.Context, account, asset string, amount *big.Int) error
	AddWithdrawal(ctx context.Context, account, asset string) error
}

// VaultService sits between the HTTP layer and the engine: it parses DTOs,
// resolves the caller's bound address, maps engine errors onto transport
// errors and records metrics.
type VaultService struct {
	vault *vault.Vault
	sink  StatsSink
	log   *slog.Logger
}

func NewVaultService(v *vault.Vault, sink StatsSink) *VaultService {
	return &VaultService{
		vault: v,
		sink:  sink,
		log:   logger.Component("vault"),
	}
}

func (s *VaultService) Deposit(ctx context.Context, account *model.Account, req model.DepositRequest) (*model.DepositResponse, error) {
	addr, err := parseAccountAddress(account)
	if err != nil {
		return nil, err
	}
	amount, err := model.ParseAmount(req.Amount)
	if err != nil {
		metrics.DepositsTotal.WithLabelValues("settlement", "rejected").Inc()
		return nil, apperrors.NewInvalidRequest(err.Error())
	}
	if err := s.vault.Deposit(ctx, addr, amount); err != nil {
		metrics.DepositsTotal.WithLabelValues("settlement", "failed").Inc()
		return nil, mapVaultError(err)
	}
	metrics.DepositsTotal.WithLabelValues("settlement", "ok").Inc()
	s.mirrorDeposit(ctx, addr, s.vault.SettlementAsset(), amount)

	s.log.Info("Deposit committed", "account", addr.Hex(), "amount", req.Amount)
	return &model.DepositResponse{
		Account:  addr.Hex(),
		AssetIn:  s.vault.SettlementAsset().Hex(),
		AmountIn: req.Amount,
		Credited: req.Amount,
		Swapped:  false,
	}, nil
}

func (s *VaultService) DepositAsset(ctx context.Context, account *model.Account, req model.DepositAssetRequest) (*model.DepositResponse, error) {
	addr, err := parseAccountAddress(account)
	if err != nil {
		return nil, err
	}
	asset, err := parseAssetAddress(req.Asset)
	if err != nil {
		return nil, err
	}
	amountIn, err := model.ParseAmount(req.Amount)
	if err != nil {
		return nil, apperrors.NewInvalidRequest(err.Error())
	}
	quoted, err := model.ParseAmount(req.Quoted)
	if err != nil {
		return nil, apperrors.NewInvalidRequest(err.Error())
	}
	fee, tick := poolParams(req.PoolFee, req.TickSpacing)

	credited, err := s.vault.DepositAsset(ctx, addr, asset, amountIn, quoted, fee, tick)
	if err != nil {
		metrics.DepositsTotal.WithLabelValues("asset", "failed").Inc()
		return nil, mapVaultError(err)
	}
	metrics.DepositsTotal.WithLabelValues("asset", "ok").Inc()
	s.mirrorDeposit(ctx, addr, asset, credited)

	s.log.Info("Asset deposit committed", "account", addr.Hex(), "asset", asset.Hex(),
		"amountIn", req.Amount, "credited", model.FormatAmount(credited))
	return &model.DepositResponse{
		Account:  addr.Hex(),
		AssetIn:  asset.Hex(),
		AmountIn: req.Amount,
		Credited: model.FormatAmount(credited),
		Swapped:  true,
	}, nil
}

func (s *VaultService) DepositNative(ctx context.Context, account *model.Account, req model.DepositNativeRequest) (*model.DepositResponse, error) {
	addr, err := parseAccountAddress(account)
	if err != nil {
		return nil, err
	}
	value, err := model.ParseAmount(req.Value)
	if err != nil {
		return nil, apperrors.NewInvalidRequest(err.Error())
	}
	quoted, err := model.ParseAmount(req.Quoted)
	if err != nil {
		return nil, apperrors.NewInvalidRequest(err.Error())
	}
	fee, tick := poolParams(req.PoolFee, req.TickSpacing)

	credited, err := s.vault.DepositNative(ctx, addr, value, quoted, fee, tick)
	if err != nil {
		metrics.DepositsTotal.WithLabelValues("native", "failed").Inc()
		return nil, mapVaultError(err)
	}
	metrics.DepositsTotal.WithLabelValues("native", "ok").Inc()
	s.mirrorDeposit(ctx, addr, vault.NativeAsset, credited)

	s.log.Info("Native deposit committed", "account", addr.Hex(), "value", req.Value,
		"credited", model.FormatAmount(credited))
	return &model.DepositResponse{
		Account:  addr.Hex(),
		AssetIn:  vault.NativeAsset.Hex(),
		AmountIn: req.Value,
		Credited: model.FormatAmount(credited),
		Swapped:  true,
	}, nil
}

func (s *VaultService) Withdraw(ctx context.Context, account *model.Account, req model.WithdrawRequest) (*model.WithdrawResponse, error) {
	addr, err := parseAccountAddress(account)
	if err != nil {
		return nil, err
	}
	amount, err := model.ParseAmount(req.Amount)
	if err != nil {
		return nil, apperrors.NewInvalidRequest(err.Error())
	}
	if err := s.vault.WithdrawSettlement(ctx, addr, amount); err != nil {
		metrics.WithdrawalsTotal.WithLabelValues("settlement", "failed").Inc()
		return nil, mapVaultError(err)
	}
	metrics.WithdrawalsTotal.WithLabelValues("settlement", "ok").Inc()
	s.mirrorWithdrawal(ctx, addr, s.vault.SettlementAsset())

	s.log.Info("Withdrawal committed", "account", addr.Hex(), "amount", req.Amount)
	return &model.WithdrawResponse{
		Account: addr.Hex(),
		Asset:   s.vault.SettlementAsset().Hex(),
		Amount:  req.Amount,
		Legacy:  false,
	}, nil
}

func (s *VaultService) WithdrawAsset(ctx context.Context, account *model.Account, req model.WithdrawAssetRequest) (*model.WithdrawResponse, error) {
	addr, err := parseAccountAddress(account)
	if err != nil {
		return nil, err
	}
	asset, err := parseAssetAddress(req.Asset)
	if err != nil {
		return nil, err
	}
	amount, err := model.ParseAmount(req.Amount)
	if err != nil {
		return nil, apperrors.NewInvalidRequest(err.Error())
	}
	if err := s.vault.Withdraw(ctx, addr, asset, amount); err != nil {
		metrics.WithdrawalsTotal.WithLabelValues("legacy", "failed").Inc()
		return nil, mapVaultError(err)
	}
	metrics.WithdrawalsTotal.WithLabelValues("legacy", "ok").Inc()
	s.mirrorWithdrawal(ctx, addr, asset)

	legacy := asset != s.vault.SettlementAsset()
	s.log.Info("Legacy withdrawal committed", "account", addr.Hex(), "asset", asset.Hex(), "amount", req.Amount)
	return &model.WithdrawResponse{
		Account: addr.Hex(),
		Asset:   asset.Hex(),
		Amount:  req.Amount,
		Legacy:  legacy,
	}, nil
}

func (s *VaultService) Balance(account *model.Account) (*model.BalanceResponse, error) {
	addr, err := parseAccountAddress(account)
	if err != nil {
		return nil, err
	}
	return &model.BalanceResponse{
		Account: addr.Hex(),
		Asset:   s.vault.SettlementAsset().Hex(),
		Balance: model.FormatAmount(s.vault.BalanceOf(addr)),
	}, nil
}

func (s *VaultService) LegacyBalance(account *model.Account, assetHex string) (*model.BalanceResponse, error) {
	addr, err := parseAccountAddress(account)
	if err != nil {
		return nil, err
	}
	asset, err := parseAssetAddress(assetHex)
	if err != nil {
		return nil, err
	}
	return &model.BalanceResponse{
		Account: addr.Hex(),
		Asset:   asset.Hex(),
		Balance: model.FormatAmount(s.vault.LegacyBalanceOf(addr, asset)),
	}, nil
}

func (s *VaultService) Capacity(account *model.Account) (*model.CapacityResponse, error) {
	addr, err := parseAccountAddress(account)
	if err != nil {
		return nil, err
	}
	return &model.CapacityResponse{
		Account:       addr.Hex(),
		User:          model.FormatAmount(s.vault.RemainingUserCapacity(addr)),
		Bank:          model.FormatAmount(s.vault.RemainingBankCapacity()),
		WithdrawLimit: model.FormatAmount(s.vault.Caps().WithdrawLimit()),
		Total:         model.FormatAmount(s.vault.Total()),
	}, nil
}

func (s *VaultService) Stats(account *model.Account, assetHex string) (*model.StatsResponse, error) {
	addr, err := parseAccountAddress(account)
	if err != nil {
		return nil, err
	}
	asset := s.vault.SettlementAsset()
	if assetHex != "" {
		asset, err = parseAssetAddress(assetHex)
		if err != nil {
			return nil, err
		}
	}
	stats := s.vault.Stats(addr, asset)
	return &model.StatsResponse{
		Account:     addr.Hex(),
		Asset:       asset.Hex(),
		Deposited:   model.FormatAmount(stats.Deposited),
		Deposits:    stats.Deposits,
		Withdrawals: stats.Withdrawals,
	}, nil
}

func (s *VaultService) SetSlippage(bps uint32) (*model.SlippageResponse, error) {
	if err := s.vault.SetSlippageTolerance(bps); err != nil {
		return nil, mapVaultError(err)
	}
	s.log.Info("Slippage tolerance updated", "bps", bps)
	return &model.SlippageResponse{Bps: bps}, nil
}

func (s *VaultService) Slippage() *model.SlippageResponse {
	return &model.SlippageResponse{Bps: s.vault.SlippageToleranceBps()}
}

func (s *VaultService) Sweep(ctx context.Context, req model.SweepRequest) error {
	asset, err := parseAssetAddress(req.Asset)
	if err != nil {
		return err
	}
	if !common.IsHexAddress(req.To) {
		return apperrors.NewInvalidRequest("invalid recipient address")
	}
	amount, err := model.ParseAmount(req.Amount)
	if err != nil {
		return apperrors.NewInvalidRequest(err.Error())
	}
	if err := s.vault.Sweep(ctx, asset, common.HexToAddress(req.To), amount); err != nil {
		return mapVaultError(err)
	}
	s.log.Warn("Sweep executed", "asset", asset.Hex(), "to", req.To, "amount", req.Amount)
	return nil
}

func (s *VaultService) GrantApproval(ctx context.Context, assetHex string) error {
	asset, err := parseAssetAddress(assetHex)
	if err != nil {
		return err
	}
	if err := s.vault.GrantApproval(ctx, asset); err != nil {
		return mapVaultError(err)
	}
	return nil
}

func (s *VaultService) mirrorDeposit(ctx context.Context, account, asset common.Address, amount *big.Int) {
	if s.sink == nil {
		return
	}
	if err := s.sink.AddDeposit(ctx, account.Hex(), asset.Hex(), amount); err != nil {
		s.log.Warn("Stats mirror failed", "error", err)
	}
}

func (s *VaultService) mirrorWithdrawal(ctx context.Context, account, asset common.Address) {
	if s.sink == nil {
		return
	}
	if err := s.sink.AddWithdrawal(ctx, account.Hex(), asset.Hex()); err != nil {
		s.log.Warn("Stats mirror failed", "error", err)
	}
}

func parseAccountAddress(account *model.Account) (common.Address, error) {
	if account == nil || !common.IsHexAddress(account.Address) {
		return common.Address{}, apperrors.New(apperrors.ErrAuthFailed, "account has no valid on-chain address", nil)
	}
	return common.HexToAddress(account.Address), nil
}

func parseAssetAddress(hex string) (common.Address, error) {
	if hex == "native" {
		return vault.NativeAsset, nil
	}
	if !common.IsHexAddress(hex) {
		return common.Address{}, apperrors.NewInvalidRequest("invalid asset address")
	}
	return common.HexToAddress(hex), nil
}

func poolParams(fee uint32, tick int32) (uint32, int32) {
	if fee == 0 {
		fee = defaultPoolFee
	}
	if tick == 0 {
		tick = defaultTickSpacing
	}
	return fee, tick
}

// mapVaultError translates engine sentinels into transport errors and
// counts cap and guard rejections.
func mapVaultError(err error) *apperrors.AppError {
	switch {
	case errors.Is(err, vault.ErrZeroAmount):
		return apperrors.New(apperrors.ErrZeroAmount, "amount must be positive", err)
	case errors.Is(err, vault.ErrInvalidAsset):
		return apperrors.New(apperrors.ErrInvalidAsset, "asset not valid for this entry point", err)
	case errors.Is(err, vault.ErrAboveLimit):
		metrics.CapRejects.WithLabelValues("above_limit").Inc()
		return apperrors.New(apperrors.ErrAboveLimit, err.Error(), err)
	case errors.Is(err, vault.ErrBankCapExceeded):
		metrics.CapRejects.WithLabelValues("bank_cap").Inc()
		return apperrors.New(apperrors.ErrBankCapExceeded, err.Error(), err)
	case errors.Is(err, vault.ErrInsufficientOutput):
		return apperrors.New(apperrors.ErrInsufficientOutput, err.Error(), err)
	case errors.Is(err, vault.ErrSwapFailed):
		return apperrors.New(apperrors.ErrSwapFailed, err.Error(), err)
	case errors.Is(err, vault.ErrReentrancyDetected):
		metrics.CapRejects.WithLabelValues("reentrancy").Inc()
		return apperrors.New(apperrors.ErrReentrancy, "another vault operation is in flight", err)
	case errors.Is(err, vault.ErrInvalidSlippage):
		return apperrors.New(apperrors.ErrInvalidSlippage, "slippage tolerance out of bounds", err)
	case errors.Is(err, vault.ErrNoFund), errors.Is(err, vault.ErrInsufficientBalance):
		return apperrors.New(apperrors.ErrNoFund, "no balance to withdraw", err)
	default:
		return apperrors.New(apperrors.ErrUpstream, err.Error(), err)
	}
}
