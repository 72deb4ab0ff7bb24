package vault

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReentrancyGuard(t *testing.T) {
	var g ReentrancyGuard

	require.NoError(t, g.Enter())
	require.ErrorIs(t, g.Enter(), ErrReentrancyDetected)

	g.Exit()
	require.NoError(t, g.Enter())
	g.Exit()
}
