package vault

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// StatsRecord aggregates the per-(account, asset) counters. Deposited is
// denominated in settlement micro-units. Counters are monotonic and never
// consulted for cap or balance decisions.
type StatsRecord struct {
	Deposited   *big.Int
	Deposits    uint64
	Withdrawals uint64
}

type statsKey struct {
	account common.Address
	asset   common.Address
}

// StatsRecorder keeps the cumulative operation counters in memory. A service
// level sink mirrors them to durable storage after commit.
type StatsRecorder struct {
	records map[statsKey]*StatsRecord
}

func NewStatsRecorder() *StatsRecorder {
	return &StatsRecorder{records: make(map[statsKey]*StatsRecord)}
}

// RecordDeposit increments the deposit counters. Called only after the
// enclosing operation committed.
func (s *StatsRecorder) RecordDeposit(account, asset common.Address, amount *big.Int) {
	if s == nil || amount == nil {
		return
	}
	record := s.ensure(account, asset)
	record.Deposited = new(big.Int).Add(record.Deposited, amount)
	record.Deposits++
}

// RecordWithdrawal increments the withdrawal counter.
func (s *StatsRecorder) RecordWithdrawal(account, asset common.Address) {
	if s == nil {
		return
	}
	s.ensure(account, asset).Withdrawals++
}

// Get returns a copy of the counters for (account, asset).
func (s *StatsRecorder) Get(account, asset common.Address) StatsRecord {
	if s == nil {
		return StatsRecord{Deposited: big.NewInt(0)}
	}
	record, ok := s.records[statsKey{account: account, asset: asset}]
	if !ok {
		return StatsRecord{Deposited: big.NewInt(0)}
	}
	return StatsRecord{
		Deposited:   new(big.Int).Set(record.Deposited),
		Deposits:    record.Deposits,
		Withdrawals: record.Withdrawals,
	}
}

func (s *StatsRecorder) ensure(account, asset common.Address) *StatsRecord {
	key := statsKey{account: account, asset: asset}
	record, ok := s.records[key]
	if !ok {
		record = &StatsRecord{Deposited: big.NewInt(0)}
		s.records[key] = record
	}
	return record
}
