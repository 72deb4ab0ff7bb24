package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Chain     ChainConfig     `mapstructure:"chain"`
	Vault     VaultConfig     `mapstructure:"vault"`
	Swap      SwapConfig      `mapstructure:"swap"`
	Oracle    OracleConfig    `mapstructure:"oracle"`
	Audit     AuditConfig     `mapstructure:"audit"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Accounts  []AccountConfig `mapstructure:"accounts"`
}

type ServerConfig struct {
	Port     string `mapstructure:"port"`
	ReadOnly bool   `mapstructure:"read_only"`
	LogLevel string `mapstructure:"log_level"`
}

type AuthConfig struct {
	RequireAPIKey  bool   `mapstructure:"require_api_key"`
	APIKey         string `mapstructure:"api_key"`
	AdminKey       string `mapstructure:"admin_key"`
	AdminSecretKey string `mapstructure:"admin_secret_key"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr                  string `mapstructure:"addr"`
	Password              string `mapstructure:"password"`
	DB                    int    `mapstructure:"db"`
	IdempotencyTTLSeconds int    `mapstructure:"idempotency_ttl_seconds"`
}

type ChainConfig struct {
	RPCURL       string `mapstructure:"rpc_url"`
	ChainID      int64  `mapstructure:"chain_id"`
	PrivateKey   string `mapstructure:"private_key"`
	DialRetries  int    `mapstructure:"dial_retries"`
	CallTimeoutS int    `mapstructure:"call_timeout_seconds"`
}

type VaultConfig struct {
	// Addresses are hex; amounts are decimal strings in settlement units.
	SettlementAsset   string `mapstructure:"settlement_asset"`
	WithdrawLimit     string `mapstructure:"withdraw_limit"`
	PerUserCap        string `mapstructure:"per_user_cap"`
	BankCap           string `mapstructure:"bank_cap"`
	SlippageBps       uint32 `mapstructure:"slippage_bps"`
	SwapDeadlineS     int    `mapstructure:"swap_deadline_seconds"`
	DevAccountAddress string `mapstructure:"dev_account_address"`
}

type SwapConfig struct {
	RouterAddress string `mapstructure:"router_address"`
	RelayAddress  string `mapstructure:"relay_address"`
}

type OracleConfig struct {
	StaleAfterS int               `mapstructure:"stale_after_seconds"`
	Feeds       map[string]string `mapstructure:"feeds"` // asset hex -> aggregator hex
}

type AuditConfig struct {
	LogDir string `mapstructure:"log_dir"`
}

type RateLimitConfig struct {
	QPS   float64 `mapstructure:"qps"`
	Burst int     `mapstructure:"burst"`
}

type AccountConfig struct {
	ID      string  `mapstructure:"id"`
	Name    string  `mapstructure:"name"`
	APIKey  string  `mapstructure:"api_key"`
	Address string  `mapstructure:"address"`
	QPS     float64 `mapstructure:"qps"`
	Burst   int     `mapstructure:"burst"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")

	// Environment variables support
	// e.g. VAULTGATE_CHAIN_RPC_URL
	viper.SetEnvPrefix("vaultgate")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.read_only", false)
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("auth.require_api_key", false)
	viper.SetDefault("auth.admin_key", "")
	viper.SetDefault("auth.admin_secret_key", "")
	viper.SetDefault("redis.idempotency_ttl_seconds", 86400)
	viper.SetDefault("chain.chain_id", 1)
	viper.SetDefault("chain.dial_retries", 1)
	viper.SetDefault("chain.call_timeout_seconds", 5)
	viper.SetDefault("vault.withdraw_limit", "10000")
	viper.SetDefault("vault.per_user_cap", "100000")
	viper.SetDefault("vault.bank_cap", "10000000")
	viper.SetDefault("vault.slippage_bps", 9500)
	viper.SetDefault("vault.swap_deadline_seconds", 120)
	viper.SetDefault("oracle.stale_after_seconds", 3600)
	viper.SetDefault("audit.log_dir", "./logs")
	viper.SetDefault("rate_limit.qps", 10)
	viper.SetDefault("rate_limit.burst", 20)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found, using defaults and env vars")
		} else {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Vault.SettlementAsset == "" {
		return fmt.Errorf("vault.settlement_asset is required")
	}
	if c.Vault.SlippageBps < 5000 || c.Vault.SlippageBps > 10000 {
		return fmt.Errorf("vault.slippage_bps must be within [5000, 10000]")
	}
	return nil
}
