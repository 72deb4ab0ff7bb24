package model

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	got, err := ParseAmount("1250.5")
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1_250_500_000), got)

	got, err = ParseAmount("0.000001")
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1), got)

	_, err = ParseAmount("0.0000001")
	require.Error(t, err, "finer than micro-units")

	_, err = ParseAmount("abc")
	require.Error(t, err)
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "1250.5", FormatAmount(big.NewInt(1_250_500_000)))
	assert.Equal(t, "0", FormatAmount(nil))
	assert.Equal(t, "-3", FormatAmount(big.NewInt(-3_000_000)))
}
