package vault

import "errors"

// Sentinel errors surfaced by the vault engine. The service layer maps these
// onto transport-level error codes; callers inside the module match with
// errors.Is.
var (
	ErrZeroAmount          = errors.New("vault: amount must be positive")
	ErrInvalidAsset        = errors.New("vault: asset not valid for this entry point")
	ErrAboveLimit          = errors.New("vault: amount exceeds limit")
	ErrBankCapExceeded     = errors.New("vault: global cap exceeded")
	ErrInsufficientOutput  = errors.New("vault: swap output below tolerance-adjusted quote")
	ErrSwapFailed          = errors.New("vault: exchange call aborted")
	ErrReentrancyDetected  = errors.New("vault: reentrant call")
	ErrInvalidSlippage     = errors.New("vault: slippage tolerance out of bounds")
	ErrNoFund              = errors.New("vault: no balance to withdraw")
	ErrInsufficientBalance = errors.New("vault: balance underflow")
	ErrNotConfigured       = errors.New("vault: engine not configured")
)
