package vault

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCaps(t *testing.T) *CapPolicy {
	t.Helper()
	caps, err := NewCapPolicy(units(1_000), units(10_000), units(100_000))
	require.NoError(t, err)
	return caps
}

func TestNewCapPolicyOrdering(t *testing.T) {
	_, err := NewCapPolicy(units(10), units(5), units(100))
	require.Error(t, err, "withdraw limit above per-user cap")

	_, err = NewCapPolicy(units(10), units(100), units(50))
	require.Error(t, err, "per-user cap above bank cap")

	_, err = NewCapPolicy(big.NewInt(0), units(100), units(1_000))
	require.Error(t, err, "zero withdraw limit")

	_, err = NewCapPolicy(units(10), nil, units(1_000))
	require.Error(t, err, "missing cap")

	// Equal bounds are allowed.
	_, err = NewCapPolicy(units(10), units(10), units(10))
	require.NoError(t, err)
}

func TestCheckDeposit(t *testing.T) {
	caps := testCaps(t)

	require.NoError(t, caps.CheckDeposit(units(9_000), units(50_000), units(1_000)))

	err := caps.CheckDeposit(units(9_000), units(50_000), units(1_001))
	require.ErrorIs(t, err, ErrAboveLimit)

	err = caps.CheckDeposit(big.NewInt(0), units(99_500), units(1_000))
	require.ErrorIs(t, err, ErrBankCapExceeded)

	require.ErrorIs(t, caps.CheckDeposit(big.NewInt(0), big.NewInt(0), big.NewInt(0)), ErrZeroAmount)
}

func TestCheckWithdrawal(t *testing.T) {
	caps := testCaps(t)

	require.NoError(t, caps.CheckWithdrawal(units(5_000), units(1_000)))

	require.ErrorIs(t, caps.CheckWithdrawal(big.NewInt(0), units(1)), ErrNoFund)
	require.ErrorIs(t, caps.CheckWithdrawal(nil, units(1)), ErrNoFund)

	err := caps.CheckWithdrawal(units(500), units(501))
	require.ErrorIs(t, err, ErrAboveLimit, "amount above balance")

	err = caps.CheckWithdrawal(units(5_000), units(1_001))
	require.ErrorIs(t, err, ErrAboveLimit, "amount above per-operation limit")

	err = caps.CheckWithdrawal(units(5_000), big.NewInt(0))
	require.ErrorIs(t, err, ErrAboveLimit, "non-positive amount")
}

func TestRemainingCapacity(t *testing.T) {
	caps := testCaps(t)

	assert.Equal(t, units(4_000), caps.RemainingUserCapacity(units(6_000)))
	assert.Equal(t, big.NewInt(0), caps.RemainingUserCapacity(units(12_000)))
	assert.Equal(t, units(40_000), caps.RemainingBankCapacity(units(60_000)))
	assert.Equal(t, big.NewInt(0), caps.RemainingBankCapacity(units(100_000)))
}
