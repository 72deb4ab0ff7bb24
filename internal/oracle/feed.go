package oracle

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// ErrPriceFeed marks any valuation failure: RPC errors, non-positive
// answers, stale rounds. Valuation is advisory; callers surface the error
// without blocking vault operations on it.
var ErrPriceFeed = errors.New("oracle: price feed unavailable")

const aggregatorABI = `[{"name":"latestRoundData","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"roundId","type":"uint80"},{"name":"answer","type":"int256"},{"name":"startedAt","type":"uint256"},{"name":"updatedAt","type":"uint256"},{"name":"answeredInRound","type":"uint80"}]},{"name":"decimals","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]}]`

// ContractCaller is the read-only RPC surface the feed needs.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Quote is one oracle reading, the answer scaled by the feed's decimals.
type Quote struct {
	Price     decimal.Decimal
	UpdatedAt time.Time
}

// Feed reads an on-chain aggregator and rejects stale or non-positive
// answers.
type Feed struct {
	caller     ContractCaller
	aggregator common.Address
	abi        abi.ABI
	staleAfter time.Duration
	nowFn      func() time.Time

	mu       sync.Mutex
	decimals int32
	fetched  bool
}

func NewFeed(caller ContractCaller, aggregator common.Address, staleAfter time.Duration) (*Feed, error) {
	if caller == nil {
		return nil, fmt.Errorf("oracle: contract caller is required")
	}
	if staleAfter <= 0 {
		staleAfter = time.Hour
	}
	parsed, err := abi.JSON(strings.NewReader(aggregatorABI))
	if err != nil {
		return nil, fmt.Errorf("oracle: failed to parse aggregator abi: %w", err)
	}
	return &Feed{
		caller:     caller,
		aggregator: aggregator,
		abi:        parsed,
		staleAfter: staleAfter,
		nowFn:      time.Now,
	}, nil
}

// SetNowFunc overrides the time source for deterministic tests.
func (f *Feed) SetNowFunc(now func() time.Time) {
	if now == nil {
		f.nowFn = time.Now
		return
	}
	f.nowFn = now
}

// Latest returns the current reading or ErrPriceFeed.
func (f *Feed) Latest(ctx context.Context) (Quote, error) {
	scale, err := f.fetchDecimals(ctx)
	if err != nil {
		return Quote{}, err
	}
	results, err := f.call(ctx, "latestRoundData")
	if err != nil {
		return Quote{}, err
	}
	if len(results) != 5 {
		return Quote{}, fmt.Errorf("%w: unexpected round data shape", ErrPriceFeed)
	}
	answer, ok := results[1].(*big.Int)
	if !ok || answer.Sign() <= 0 {
		return Quote{}, fmt.Errorf("%w: non-positive answer", ErrPriceFeed)
	}
	updatedRaw, ok := results[3].(*big.Int)
	if !ok || !updatedRaw.IsInt64() {
		return Quote{}, fmt.Errorf("%w: bad update timestamp", ErrPriceFeed)
	}
	updatedAt := time.Unix(updatedRaw.Int64(), 0)
	if f.nowFn().Sub(updatedAt) > f.staleAfter {
		return Quote{}, fmt.Errorf("%w: round stale since %s", ErrPriceFeed, updatedAt.UTC().Format(time.RFC3339))
	}
	return Quote{
		Price:     decimal.NewFromBigInt(answer, -scale),
		UpdatedAt: updatedAt,
	}, nil
}

func (f *Feed) fetchDecimals(ctx context.Context) (int32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetched {
		return f.decimals, nil
	}
	results, err := f.call(ctx, "decimals")
	if err != nil {
		return 0, err
	}
	if len(results) != 1 {
		return 0, fmt.Errorf("%w: unexpected decimals output", ErrPriceFeed)
	}
	value, ok := results[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("%w: unexpected decimals type", ErrPriceFeed)
	}
	f.decimals = int32(value)
	f.fetched = true
	return f.decimals, nil
}

func (f *Feed) call(ctx context.Context, method string) ([]interface{}, error) {
	data, err := f.abi.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to pack %s", ErrPriceFeed, method)
	}
	output, err := f.caller.CallContract(ctx, ethereum.CallMsg{To: &f.aggregator, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrPriceFeed, method, err)
	}
	results, err := f.abi.Unpack(method, output)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode %s output", ErrPriceFeed, method)
	}
	return results, nil
}

// Registry maps assets to their feeds. Assets without a feed value at zero
// rather than erroring the whole valuation.
type Registry struct {
	feeds map[common.Address]*Feed
}

func NewRegistry() *Registry {
	return &Registry{feeds: make(map[common.Address]*Feed)}
}

// Register binds a feed to an asset, replacing any previous binding.
func (r *Registry) Register(asset common.Address, feed *Feed) {
	r.feeds[asset] = feed
}

// Quote returns the latest reading for asset; (quote, false, nil) when no
// feed is registered.
func (r *Registry) Quote(ctx context.Context, asset common.Address) (Quote, bool, error) {
	feed, ok := r.feeds[asset]
	if !ok {
		return Quote{}, false, nil
	}
	quote, err := feed.Latest(ctx)
	if err != nil {
		return Quote{}, true, err
	}
	return quote, true, nil
}
