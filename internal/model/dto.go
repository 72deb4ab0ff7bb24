package model

// DepositRequest credits the settlement asset pulled from the caller's
// account. Amounts are decimal strings in settlement units.
type DepositRequest struct {
	Amount string `json:"amount" binding:"required"`
}

// DepositAssetRequest normalizes an arbitrary asset into the settlement
// asset. Quoted is the caller's off-chain estimate of the settlement output.
type DepositAssetRequest struct {
	Asset       string `json:"asset" binding:"required"`
	Amount      string `json:"amount" binding:"required"`
	Quoted      string `json:"quoted" binding:"required"`
	PoolFee     uint32 `json:"pool_fee,omitempty"`     // defaults to 3000 (0.30%)
	TickSpacing int32  `json:"tick_spacing,omitempty"` // defaults to 60
}

// DepositNativeRequest normalizes native value referenced by a confirmed
// inbound transfer.
type DepositNativeRequest struct {
	Value       string `json:"value" binding:"required"`
	Quoted      string `json:"quoted" binding:"required"`
	PoolFee     uint32 `json:"pool_fee,omitempty"`
	TickSpacing int32  `json:"tick_spacing,omitempty"`
}

// WithdrawRequest releases settlement balance back to the caller.
type WithdrawRequest struct {
	Amount string `json:"amount" binding:"required"`
}

// WithdrawAssetRequest is the legacy per-asset withdrawal.
type WithdrawAssetRequest struct {
	Asset  string `json:"asset" binding:"required"`
	Amount string `json:"amount" binding:"required"`
}

// SlippageRequest adjusts the tolerance applied to deposit quotes.
type SlippageRequest struct {
	Bps uint32 `json:"bps" binding:"required"`
}

// SweepRequest releases stray vault holdings to a recovery address.
type SweepRequest struct {
	Asset  string `json:"asset" binding:"required"`
	To     string `json:"to" binding:"required"`
	Amount string `json:"amount" binding:"required"`
}

type DepositResponse struct {
	Account  string `json:"account"`
	AssetIn  string `json:"asset_in"`
	AmountIn string `json:"amount_in"`
	Credited string `json:"credited"`
	Swapped  bool   `json:"swapped"`
}

type WithdrawResponse struct {
	Account string `json:"account"`
	Asset   string `json:"asset"`
	Amount  string `json:"amount"`
	Legacy  bool   `json:"legacy"`
}

type BalanceResponse struct {
	Account string `json:"account"`
	Asset   string `json:"asset"`
	Balance string `json:"balance"`
}

type CapacityResponse struct {
	Account       string `json:"account"`
	User          string `json:"user_capacity"`
	Bank          string `json:"bank_capacity"`
	WithdrawLimit string `json:"withdraw_limit"`
	Total         string `json:"total"`
}

type StatsResponse struct {
	Account     string `json:"account"`
	Asset       string `json:"asset"`
	Deposited   string `json:"deposited"`
	Deposits    uint64 `json:"deposits"`
	Withdrawals uint64 `json:"withdrawals"`
}

// ValuationResponse reports the oracle reading for an asset. Available is
// false when no feed is registered or the feed is stale; valuation never
// blocks vault operations.
type ValuationResponse struct {
	Asset     string `json:"asset"`
	Price     string `json:"price,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
	Available bool   `json:"available"`
}

type SlippageResponse struct {
	Bps uint32 `json:"bps"`
}
