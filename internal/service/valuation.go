package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/GoVaultGate/vaultgate/internal/model"
	"github.com/GoVaultGate/vaultgate/internal/oracle"
	"github.com/GoVaultGate/vaultgate/internal/pkg/logger"
	"github.com/GoVaultGate/vaultgate/internal/vault"
)

// ValuationService answers advisory price questions from the oracle
// registry. A missing or failing feed produces an unavailable valuation,
// never an operation-blocking error.
type ValuationService struct {
	registry *oracle.Registry
	log      *slog.Logger
}

func NewValuationService(registry *oracle.Registry) *ValuationService {
	return &ValuationService{
		registry: registry,
		log:      logger.Component("oracle"),
	}
}

func (s *ValuationService) Valuation(ctx context.Context, assetHex string) (*model.ValuationResponse, error) {
	asset, err := parseAssetAddress(assetHex)
	if err != nil {
		return nil, err
	}
	resp := &model.ValuationResponse{Asset: asset.Hex()}
	if asset == vault.NativeAsset {
		resp.Asset = "native"
	}
	if s.registry == nil {
		return resp, nil
	}
	quote, found, err := s.registry.Quote(ctx, asset)
	if err != nil {
		s.log.Warn("Price feed unavailable", "asset", resp.Asset, "error", err)
		return resp, nil
	}
	if !found {
		return resp, nil
	}
	resp.Available = true
	resp.Price = quote.Price.String()
	resp.UpdatedAt = quote.UpdatedAt.UTC().Format(time.RFC3339)
	return resp, nil
}
