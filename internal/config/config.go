// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/viper"
)

// Config is the bot's file-backed configuration. The wallet private key
// deliberately comes from the environment, not this file.
type Config struct {
	RPCURL       string `mapstructure:"rpc_url"`
	WebSocketURL string `mapstructure:"websocket_url"`
	AmmProgramID string `mapstructure:"amm_program_id"`

	BuyAmountSOL        float64 `mapstructure:"buy_amount_sol"`
	SellTargetPercent   float64 `mapstructure:"sell_target_percent"`
	MaxWatchDurationSec int     `mapstructure:"max_watch_duration_sec"`

	ComputeUnitLimit uint32 `mapstructure:"compute_unit_limit"`
	ComputeUnitPrice uint64 `mapstructure:"compute_unit_price"`

	PostgresURL  string `mapstructure:"postgres_url"`
	DebugLogging bool   `mapstructure:"debug_logging"`
}

const (
	DefaultAmmProgramID      = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"
	DefaultBuyAmountSOL      = 0.1
	DefaultSellTargetPercent = 50.0
	DefaultComputeUnitLimit  = 400_000
	DefaultComputeUnitPrice  = 100_000
)

// Load reads and validates the configuration file.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"amm_program_id":      DefaultAmmProgramID,
		"buy_amount_sol":      DefaultBuyAmountSOL,
		"sell_target_percent": DefaultSellTargetPercent,
		"compute_unit_limit":  DefaultComputeUnitLimit,
		"compute_unit_price":  DefaultComputeUnitPrice,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, validate(&cfg)
}

func validate(cfg *Config) error {
	if cfg.RPCURL == "" {
		return errors.New("rpc_url is required")
	}
	if err := validateURL(cfg.RPCURL, "http"); err != nil {
		return fmt.Errorf("invalid rpc_url: %w", err)
	}
	if cfg.WebSocketURL == "" {
		return errors.New("websocket_url is required")
	}
	if err := validateURL(cfg.WebSocketURL, "ws"); err != nil {
		return fmt.Errorf("invalid websocket_url: %w", err)
	}
	if _, err := solana.PublicKeyFromBase58(cfg.AmmProgramID); err != nil {
		return fmt.Errorf("invalid amm_program_id: %w", err)
	}
	if cfg.BuyAmountSOL <= 0 {
		return errors.New("buy_amount_sol must be positive")
	}
	if cfg.SellTargetPercent <= 0 {
		return errors.New("sell_target_percent must be positive")
	}
	if cfg.MaxWatchDurationSec < 0 {
		return errors.New("max_watch_duration_sec must not be negative")
	}
	return nil
}

func validateURL(rawURL, protocol string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return fmt.Errorf("scheme %q, want %s(s)", parsed.Scheme, protocol)
	}
	return nil
}

// AmmProgram returns the parsed AMM program id. Valid after Load.
func (c *Config) AmmProgram() solana.PublicKey {
	return solana.MustPublicKeyFromBase58(c.AmmProgramID)
}
