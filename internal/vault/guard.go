package vault

import "sync/atomic"

// ReentrancyGuard is the single binary lock shared by every mutating entry
// point. The swap adapter and the asset transfer calls run untrusted external
// code synchronously; if that code calls back into the vault before the
// original operation finished, Enter fails instead of nesting. The same
// mechanism serializes concurrent callers: exactly one mutating operation is
// in flight per vault instance.
type ReentrancyGuard struct {
	locked atomic.Bool
}

// Enter acquires the guard, failing with ErrReentrancyDetected when another
// mutating operation is already in flight. It never blocks.
func (g *ReentrancyGuard) Enter() error {
	if !g.locked.CompareAndSwap(false, true) {
		return ErrReentrancyDetected
	}
	return nil
}

// Exit releases the guard. Must run on every path out of a mutating
// operation, success or failure.
func (g *ReentrancyGuard) Exit() {
	g.locked.Store(false)
}
