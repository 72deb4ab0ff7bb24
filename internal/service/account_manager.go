package service

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"github.com/GoVaultGate/vaultgate/internal/config"
	"github.com/GoVaultGate/vaultgate/internal/model"
)

// AccountManager resolves API keys to accounts and keeps the per-account
// limiters. Config-declared accounts load at startup; unknown keys fall
// back to the repository.
type AccountManager struct {
	mu             sync.RWMutex
	accounts       map[string]*model.Account // Key: Gateway ApiKey
	limiters       map[string]*rate.Limiter  // Key: AccountID
	config         *config.Config
	defaultAccount *model.Account
	repo           AccountRepo
}

type AccountRepo interface {
	GetByAPIKey(ctx context.Context, apiKey string) (*model.Account, error)
}

func NewAccountManager(cfg *config.Config, repo AccountRepo) *AccountManager {
	am := &AccountManager{
		accounts: make(map[string]*model.Account),
		limiters: make(map[string]*rate.Limiter),
		config:   cfg,
		repo:     repo,
	}

	if len(cfg.Accounts) > 0 {
		for _, accountCfg := range cfg.Accounts {
			account := &model.Account{
				ID:      accountCfg.ID,
				Name:    accountCfg.Name,
				APIKey:  accountCfg.APIKey,
				Address: accountCfg.Address,
				Rate: model.RateLimitConfig{
					QPS:   chooseFloat(cfg.RateLimit.QPS, accountCfg.QPS),
					Burst: chooseInt(cfg.RateLimit.Burst, accountCfg.Burst),
				},
			}
			am.RegisterAccount(account)
		}
		return am
	}

	// Single-account mode for local development.
	if cfg.Auth.APIKey != "" || cfg.Vault.DevAccountAddress != "" {
		defaultAccount := &model.Account{
			ID:      "default-account",
			Name:    "Default User",
			APIKey:  cfg.Auth.APIKey,
			Address: cfg.Vault.DevAccountAddress,
			Rate: model.RateLimitConfig{
				QPS:   10,
				Burst: 20,
			},
		}
		if defaultAccount.APIKey == "" {
			defaultAccount.APIKey = "sk-default-12345"
		}
		am.RegisterAccount(defaultAccount)
		am.defaultAccount = defaultAccount
	}

	return am
}

func (am *AccountManager) RegisterAccount(a *model.Account) {
	am.mu.Lock()
	defer am.mu.Unlock()
	if a == nil {
		return
	}
	am.accounts[a.APIKey] = a

	limit := rate.Limit(a.Rate.QPS)
	if limit == 0 {
		limit = rate.Inf
	}
	burst := a.Rate.Burst
	if burst == 0 {
		burst = 1
	}
	am.limiters[a.ID] = rate.NewLimiter(limit, burst)
}

func (am *AccountManager) RemoveAccountByID(id string) {
	am.mu.Lock()
	defer am.mu.Unlock()
	for key, account := range am.accounts {
		if account != nil && account.ID == id {
			delete(am.accounts, key)
			delete(am.limiters, account.ID)
		}
	}
}

func (am *AccountManager) GetByAPIKey(apiKey string) (*model.Account, bool) {
	am.mu.RLock()
	defer am.mu.RUnlock()
	account, ok := am.accounts[apiKey]
	return account, ok
}

// GetByAPIKeyWithFallback checks memory first, then the repository, caching
// repository hits for subsequent requests.
func (am *AccountManager) GetByAPIKeyWithFallback(ctx context.Context, apiKey string) (*model.Account, bool) {
	if account, ok := am.GetByAPIKey(apiKey); ok {
		return account, true
	}
	if am.repo == nil {
		return nil, false
	}
	account, err := am.repo.GetByAPIKey(ctx, apiKey)
	if err != nil || account == nil {
		return nil, false
	}
	am.RegisterAccount(account)
	return account, true
}

func (am *AccountManager) GetAccountByID(id string) (*model.Account, bool) {
	am.mu.RLock()
	defer am.mu.RUnlock()
	for _, account := range am.accounts {
		if account != nil && account.ID == id {
			return account, true
		}
	}
	return nil, false
}

func (am *AccountManager) ListAccounts() []*model.Account {
	am.mu.RLock()
	defer am.mu.RUnlock()
	out := make([]*model.Account, 0, len(am.accounts))
	for _, account := range am.accounts {
		out = append(out, account)
	}
	return out
}

func (am *AccountManager) DefaultAccount() *model.Account {
	am.mu.RLock()
	defer am.mu.RUnlock()
	return am.defaultAccount
}

func (am *AccountManager) GetLimiterForAccount(id string) *rate.Limiter {
	am.mu.RLock()
	defer am.mu.RUnlock()
	return am.limiters[id]
}

func chooseFloat(global, specific float64) float64 {
	if specific != 0 {
		return specific
	}
	return global
}

func chooseInt(global, specific int) int {
	if specific != 0 {
		return specific
	}
	return global
}
