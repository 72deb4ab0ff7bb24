package vault

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testSettlement = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	testToken      = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	alice          = common.HexToAddress("0x0000000000000000000000000000000000000a11")
	bob            = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

// units converts whole settlement units into micro-units.
func units(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000))
}

func TestLedgerCreditDebit(t *testing.T) {
	l := NewLedger(testSettlement)

	require.NoError(t, l.Credit(alice, testSettlement, units(100)))
	require.NoError(t, l.Credit(alice, testSettlement, units(50)))
	require.NoError(t, l.Debit(alice, testSettlement, units(30)))

	assert.Equal(t, units(120), l.SettlementBalance(alice))
	assert.Equal(t, units(120), l.Total())
}

func TestLedgerTotalTracksOnlySettlement(t *testing.T) {
	l := NewLedger(testSettlement)

	require.NoError(t, l.Credit(alice, testSettlement, units(100)))
	require.NoError(t, l.Credit(alice, testToken, units(500)))
	require.NoError(t, l.Credit(bob, NativeAsset, units(7)))

	assert.Equal(t, units(100), l.Total())
	assert.Equal(t, units(500), l.Balance(alice, testToken))
	assert.Equal(t, units(7), l.Balance(bob, NativeAsset))
}

func TestLedgerTotalMatchesSettlementSum(t *testing.T) {
	l := NewLedger(testSettlement)

	require.NoError(t, l.Credit(alice, testSettlement, units(100)))
	require.NoError(t, l.Credit(bob, testSettlement, units(40)))
	require.NoError(t, l.Credit(bob, testToken, units(9)))
	require.NoError(t, l.Debit(alice, testSettlement, units(25)))

	assert.Equal(t, l.SettlementSum(), l.Total())
}

func TestLedgerDebitUnderflow(t *testing.T) {
	l := NewLedger(testSettlement)
	require.NoError(t, l.Credit(alice, testSettlement, units(10)))

	err := l.Debit(alice, testSettlement, units(11))
	require.ErrorIs(t, err, ErrInsufficientBalance)

	// Failed debit leaves everything untouched.
	assert.Equal(t, units(10), l.SettlementBalance(alice))
	assert.Equal(t, units(10), l.Total())

	require.ErrorIs(t, l.Debit(bob, testSettlement, units(1)), ErrInsufficientBalance)
}

func TestLedgerRejectsNonPositiveAmounts(t *testing.T) {
	l := NewLedger(testSettlement)

	require.ErrorIs(t, l.Credit(alice, testSettlement, big.NewInt(0)), ErrZeroAmount)
	require.ErrorIs(t, l.Credit(alice, testSettlement, big.NewInt(-5)), ErrZeroAmount)
	require.ErrorIs(t, l.Credit(alice, testSettlement, nil), ErrZeroAmount)
	require.ErrorIs(t, l.Debit(alice, testSettlement, big.NewInt(0)), ErrZeroAmount)
}

func TestLedgerBalanceReturnsCopy(t *testing.T) {
	l := NewLedger(testSettlement)
	require.NoError(t, l.Credit(alice, testSettlement, units(10)))

	l.SettlementBalance(alice).SetInt64(999)
	l.Total().SetInt64(999)

	assert.Equal(t, units(10), l.SettlementBalance(alice))
	assert.Equal(t, units(10), l.Total())
}
