package repository

import (
	"context"
	"fmt"
	"math/big"
)

// RedisStatsRepo mirrors the in-memory operation counters into redis hashes
// so they survive restarts. Best effort: the engine's counters stay
// authoritative within a process lifetime.
type RedisStatsRepo struct {
	client *RedisClient
	prefix string
}

func NewRedisStatsRepo(client *RedisClient) *RedisStatsRepo {
	return &RedisStatsRepo{client: client, prefix: "stats"}
}

func (r *RedisStatsRepo) AddDeposit(ctx context.Context, account, asset string, amount *big.Int) error {
	key := r.makeKey(account, asset)
	pipe := r.client.Client.Pipeline()
	pipe.HIncrBy(ctx, key, "deposited", amount.Int64())
	pipe.HIncrBy(ctx, key, "deposits", 1)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisStatsRepo) AddWithdrawal(ctx context.Context, account, asset string) error {
	return r.client.Client.HIncrBy(ctx, r.makeKey(account, asset), "withdrawals", 1).Err()
}

func (r *RedisStatsRepo) Get(ctx context.Context, account, asset string) (deposited *big.Int, deposits, withdrawals uint64, err error) {
	values, err := r.client.Client.HGetAll(ctx, r.makeKey(account, asset)).Result()
	if err != nil {
		return nil, 0, 0, err
	}
	deposited = big.NewInt(0)
	if raw, ok := values["deposited"]; ok {
		if _, ok := deposited.SetString(raw, 10); !ok {
			deposited = big.NewInt(0)
		}
	}
	deposits = parseCounter(values["deposits"])
	withdrawals = parseCounter(values["withdrawals"])
	return deposited, deposits, withdrawals, nil
}

func parseCounter(raw string) uint64 {
	var n uint64
	_, _ = fmt.Sscanf(raw, "%d", &n)
	return n
}

func (r *RedisStatsRepo) makeKey(account, asset string) string {
	return fmt.Sprintf("%s:%s:%s", r.prefix, account, asset)
}
