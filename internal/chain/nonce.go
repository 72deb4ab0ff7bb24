package chain

import (
	"context"
	"fmt"
	"sync"

	"github.com/GoVaultGate/vaultgate/internal/pkg/logger"
	"github.com/ethereum/go-ethereum/common"
)

// NonceManager tracks transaction nonces optimistically: fetched from the
// chain once, incremented locally after each broadcast, resynced on demand.
type NonceManager struct {
	backend Backend

	mu     sync.Mutex
	nonces map[common.Address]uint64
}

func NewNonceManager(backend Backend) *NonceManager {
	return &NonceManager{
		backend: backend,
		nonces:  make(map[common.Address]uint64),
	}
}

// Next returns the next expected nonce for addr, fetching the pending nonce
// from the chain on first use.
func (m *NonceManager) Next(ctx context.Context, addr common.Address) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	nonce, ok := m.nonces[addr]
	if ok {
		return nonce, nil
	}
	fetched, err := m.backend.PendingNonceAt(ctx, addr)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch pending nonce: %w", err)
	}
	m.nonces[addr] = fetched
	return fetched, nil
}

// Increment advances the local nonce after a successful broadcast.
func (m *NonceManager) Increment(addr common.Address) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.nonces[addr]; ok {
		m.nonces[addr]++
	}
}

// Reset forces a resync from the chain. Call on "nonce too low" or
// "replacement transaction underpriced".
func (m *NonceManager) Reset(ctx context.Context, addr common.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	fetched, err := m.backend.PendingNonceAt(ctx, addr)
	if err != nil {
		return err
	}
	m.nonces[addr] = fetched
	logger.Info("Reset TX nonce", "address", addr.Hex(), "nonce", fetched)
	return nil
}
