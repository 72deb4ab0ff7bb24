package model

// RateLimitConfig defines per-account request throttling.
type RateLimitConfig struct {
	QPS   float64 `json:"qps"`
	Burst int     `json:"burst"`
}

// Account represents an API client bound to one on-chain address. The
// gateway issues the key; every vault operation runs against the bound
// address, never against caller-supplied addresses.
type Account struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	APIKey  string          `json:"api_key"`
	Address string          `json:"address"`
	Rate    RateLimitConfig `json:"rate_limit"`
}
