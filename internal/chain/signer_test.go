package chain

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKeyHex(t *testing.T) string {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return hexutil.Encode(crypto.FromECDSA(key))[2:] // strip 0x
}

func TestTxSigner_SignTx(t *testing.T) {
	signer, err := NewTxSigner(newTestKeyHex(t), 137)
	require.NoError(t, err)
	assert.NotEqual(t, common.Address{}, signer.Address())
	assert.Equal(t, int64(137), signer.ChainID().Int64())

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    1,
		To:       &common.Address{0x01},
		Value:    big.NewInt(0),
		Gas:      21000,
		GasPrice: big.NewInt(1),
	})
	signed, err := signer.SignTx(tx)
	require.NoError(t, err)

	from, err := types.Sender(types.LatestSignerForChainID(big.NewInt(137)), signed)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), from)
}

func TestTxSigner_InvalidKey(t *testing.T) {
	_, err := NewTxSigner("", 1)
	assert.Error(t, err)

	_, err = NewTxSigner("not-hex", 1)
	assert.Error(t, err)
}
