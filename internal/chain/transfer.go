package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const transferABI = `[{"name":"transfer","type":"function","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},{"name":"transferFrom","type":"function","stateMutability":"nonpayable","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}]`

// TokenTransferer moves fungible assets between depositors and the vault's
// custody account via signed operator transactions. Pull requires the
// depositor's prior allowance to the operator.
type TokenTransferer struct {
	sender  *Sender
	custody common.Address
	erc20   abi.ABI
}

func NewTokenTransferer(sender *Sender) (*TokenTransferer, error) {
	parsed, err := abi.JSON(strings.NewReader(transferABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse erc20 abi: %w", err)
	}
	return &TokenTransferer{
		sender:  sender,
		custody: sender.Operator(),
		erc20:   parsed,
	}, nil
}

// Pull moves amount of asset from the depositor into custody.
func (t *TokenTransferer) Pull(ctx context.Context, asset, from common.Address, amount *big.Int) error {
	data, err := t.erc20.Pack("transferFrom", from, t.custody, amount)
	if err != nil {
		return fmt.Errorf("failed to pack transferFrom: %w", err)
	}
	_, err = t.sender.Execute(ctx, asset, big.NewInt(0), data)
	return err
}

// Push releases amount of asset from custody to the recipient.
func (t *TokenTransferer) Push(ctx context.Context, asset, to common.Address, amount *big.Int) error {
	data, err := t.erc20.Pack("transfer", to, amount)
	if err != nil {
		return fmt.Errorf("failed to pack transfer: %w", err)
	}
	_, err = t.sender.Execute(ctx, asset, big.NewInt(0), data)
	return err
}

// PushNative releases native value from custody to the recipient.
func (t *TokenTransferer) PushNative(ctx context.Context, to common.Address, amount *big.Int) error {
	_, err := t.sender.Execute(ctx, to, amount, nil)
	return err
}
