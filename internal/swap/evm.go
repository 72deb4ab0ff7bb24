package swap

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/GoVaultGate/vaultgate/internal/chain"
)

const exchangeABI = `[{"name":"swap","type":"function","stateMutability":"payable","inputs":[{"name":"key","type":"tuple","components":[{"name":"currency0","type":"address"},{"name":"currency1","type":"address"},{"name":"fee","type":"uint24"},{"name":"tickSpacing","type":"int24"}]},{"name":"zeroForOne","type":"bool"},{"name":"amountIn","type":"uint256"},{"name":"sqrtPriceLimitX96","type":"uint160"},{"name":"deadline","type":"uint256"}],"outputs":[]}]`

const relayABI = `[{"name":"approve","type":"function","stateMutability":"nonpayable","inputs":[{"name":"token","type":"address"},{"name":"spender","type":"address"},{"name":"amount","type":"uint160"},{"name":"expiration","type":"uint48"}],"outputs":[]}]`

const erc20ABI = `[{"name":"approve","type":"function","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},{"name":"balanceOf","type":"function","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}]`

var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

type poolKeyTuple struct {
	Currency0   common.Address
	Currency1   common.Address
	Fee         *big.Int
	TickSpacing *big.Int
}

// EVMExchange drives the on-chain exchange router through signed operator
// transactions.
type EVMExchange struct {
	sender *chain.Sender
	router common.Address
	abi    abi.ABI
}

func NewEVMExchange(sender *chain.Sender, router common.Address) (*EVMExchange, error) {
	parsed, err := abi.JSON(strings.NewReader(exchangeABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse exchange abi: %w", err)
	}
	return &EVMExchange{sender: sender, router: router, abi: parsed}, nil
}

func (e *EVMExchange) Swap(ctx context.Context, key PoolKey, zeroForOne bool, amountIn, sqrtPriceLimit *big.Int, deadline time.Time) error {
	data, err := e.abi.Pack("swap", poolKeyTuple{
		Currency0:   key.Currency0,
		Currency1:   key.Currency1,
		Fee:         big.NewInt(int64(key.Fee)),
		TickSpacing: big.NewInt(int64(key.TickSpacing)),
	}, zeroForOne, amountIn, sqrtPriceLimit, big.NewInt(deadline.Unix()))
	if err != nil {
		return fmt.Errorf("failed to pack swap call: %w", err)
	}
	// Native input rides along as call value.
	value := big.NewInt(0)
	if zeroForOne && key.Currency0 == (common.Address{}) {
		value = amountIn
	}
	_, err = e.sender.Execute(ctx, e.router, value, data)
	return err
}

// EVMApprovalRelay manages exchange spending rights through the delegated
// approval contract: an unbounded ERC-20 base approval to the relay once per
// asset, then bounded expiring allowances relayed per swap.
type EVMApprovalRelay struct {
	sender *chain.Sender
	relay  common.Address
	relayA abi.ABI
	erc20  abi.ABI
}

func NewEVMApprovalRelay(sender *chain.Sender, relay common.Address) (*EVMApprovalRelay, error) {
	relayParsed, err := abi.JSON(strings.NewReader(relayABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse relay abi: %w", err)
	}
	erc20Parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse erc20 abi: %w", err)
	}
	return &EVMApprovalRelay{sender: sender, relay: relay, relayA: relayParsed, erc20: erc20Parsed}, nil
}

func (r *EVMApprovalRelay) Approve(ctx context.Context, token, spender common.Address, amount *big.Int, expiry time.Time) error {
	data, err := r.relayA.Pack("approve", token, spender, amount, big.NewInt(expiry.Unix()))
	if err != nil {
		return fmt.Errorf("failed to pack relay approval: %w", err)
	}
	_, err = r.sender.Execute(ctx, r.relay, big.NewInt(0), data)
	return err
}

func (r *EVMApprovalRelay) ApproveBase(ctx context.Context, token common.Address) error {
	data, err := r.erc20.Pack("approve", r.relay, maxUint256)
	if err != nil {
		return fmt.Errorf("failed to pack base approval: %w", err)
	}
	_, err = r.sender.Execute(ctx, token, big.NewInt(0), data)
	return err
}

// EVMBalanceReader reads token and native holdings through the RPC backend.
type EVMBalanceReader struct {
	backend chain.Backend
	erc20   abi.ABI
}

func NewEVMBalanceReader(backend chain.Backend) (*EVMBalanceReader, error) {
	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse erc20 abi: %w", err)
	}
	return &EVMBalanceReader{backend: backend, erc20: parsed}, nil
}

func (b *EVMBalanceReader) Balance(ctx context.Context, token, account common.Address) (*big.Int, error) {
	if token == (common.Address{}) {
		return b.backend.BalanceAt(ctx, account, nil)
	}
	data, err := b.erc20.Pack("balanceOf", account)
	if err != nil {
		return nil, fmt.Errorf("failed to pack balanceOf: %w", err)
	}
	output, err := b.backend.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("rpc call failed: %w", err)
	}
	results, err := b.erc20.Unpack("balanceOf", output)
	if err != nil || len(results) != 1 {
		return nil, fmt.Errorf("failed to decode balanceOf output")
	}
	balance, ok := results[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected balanceOf output type")
	}
	return balance, nil
}
