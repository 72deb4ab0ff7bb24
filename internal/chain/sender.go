package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/GoVaultGate/vaultgate/internal/pkg/logger"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

const gasLimitMargin = 120 // percent

// Sender broadcasts contract calls from the operator account and waits for
// them to be mined. Nonce assignment and gas estimation are handled here so
// callers deal only in (to, value, calldata).
type Sender struct {
	backend Backend
	signer  *TxSigner
	nonces  *NonceManager
}

func NewSender(backend Backend, signer *TxSigner) *Sender {
	return &Sender{
		backend: backend,
		signer:  signer,
		nonces:  NewNonceManager(backend),
	}
}

// Operator returns the sending address.
func (s *Sender) Operator() common.Address { return s.signer.Address() }

// Execute signs and broadcasts a call to the contract and blocks until the
// receipt is available or ctx expires. A reverted transaction is an error.
func (s *Sender) Execute(ctx context.Context, to common.Address, value *big.Int, data []byte) (*types.Receipt, error) {
	from := s.signer.Address()
	nonce, err := s.nonces.Next(ctx, from)
	if err != nil {
		return nil, err
	}
	gasPrice, err := s.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch gas price: %w", err)
	}
	msg := ethereum.CallMsg{From: from, To: &to, Value: value, Data: data}
	gasLimit, err := s.backend.EstimateGas(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("gas estimation failed: %w", err)
	}
	gasLimit = gasLimit * gasLimitMargin / 100

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := s.signer.SignTx(tx)
	if err != nil {
		return nil, err
	}
	if err := s.backend.SendTransaction(ctx, signed); err != nil {
		// Resync on the next attempt rather than guessing what went wrong.
		if resetErr := s.nonces.Reset(ctx, from); resetErr != nil {
			logger.Warn("Nonce resync failed after broadcast error", "error", resetErr)
		}
		return nil, fmt.Errorf("broadcast failed: %w", err)
	}
	s.nonces.Increment(from)

	logger.Debug("Transaction broadcast", "hash", signed.Hash().Hex(), "to", to.Hex(), "nonce", nonce)
	return WaitMined(ctx, s.backend, signed.Hash())
}
