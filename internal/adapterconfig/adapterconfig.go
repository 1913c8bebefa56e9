// Package adapterconfig loads the operational configuration for the live
// chain, DexScreener, and pricing adapters, grounded in config.Load's
// YAML-plus-env-override pattern.
package adapterconfig

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/example/valueflow-tracer/internal/addr"
)

type Config struct {
	Etherscan   EtherscanConfig   `yaml:"etherscan"`
	DexScreener DexScreenerConfig `yaml:"dexscreener"`
	Pricing     PricingConfig     `yaml:"pricing"`
}

type EtherscanConfig struct {
	BaseURL           string  `yaml:"base_url"`
	APIKey            string  `yaml:"api_key"`
	ChainID           int     `yaml:"chain_id"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	TimeoutSeconds    int     `yaml:"timeout_seconds"`
	MaxRetries        int     `yaml:"max_retries"`
	PageSize          int     `yaml:"page_size"`
}

type DexScreenerConfig struct {
	BaseURL           string  `yaml:"base_url"`
	ChainID           string  `yaml:"chain_id"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	MinLiquidityUSD   string  `yaml:"min_liquidity_usd"`
	NewPairHours      int     `yaml:"new_pair_hours"`
}

type PricingConfig struct {
	NativeUSDFallback string            `yaml:"native_usd_fallback"`
	Stablecoins       []string          `yaml:"stablecoins"`
	FixedTokenUSD     map[string]string `yaml:"fixed_token_usd"`
}

// Load reads configPath as YAML, applies environment-variable overrides for
// secrets that shouldn't live in a checked-in file, and validates the result.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read adapter config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse adapter config: %w", err)
	}

	if key := os.Getenv("ETHERSCAN_API_KEY"); key != "" {
		cfg.Etherscan.APIKey = key
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate adapter config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Etherscan.RequestsPerSecond <= 0 {
		c.Etherscan.RequestsPerSecond = 5
	}
	if c.Etherscan.TimeoutSeconds <= 0 {
		c.Etherscan.TimeoutSeconds = 15
	}
	if c.Etherscan.MaxRetries <= 0 {
		c.Etherscan.MaxRetries = 5
	}
	if c.Etherscan.PageSize <= 0 {
		c.Etherscan.PageSize = 1000
	}
	if c.DexScreener.RequestsPerSecond <= 0 {
		c.DexScreener.RequestsPerSecond = 1
	}
	if c.DexScreener.MinLiquidityUSD == "" {
		c.DexScreener.MinLiquidityUSD = "10000"
	}
	if c.DexScreener.NewPairHours <= 0 {
		c.DexScreener.NewPairHours = 72
	}
	if c.Pricing.NativeUSDFallback == "" {
		c.Pricing.NativeUSDFallback = "3000"
	}
}

func (c *Config) Validate() error {
	if c.Etherscan.BaseURL == "" {
		return fmt.Errorf("etherscan.base_url is required")
	}
	if c.Etherscan.APIKey == "" {
		return fmt.Errorf("etherscan.api_key is required (set etherscan.api_key or ETHERSCAN_API_KEY)")
	}
	if _, err := decimal.NewFromString(c.Pricing.NativeUSDFallback); err != nil {
		return fmt.Errorf("pricing.native_usd_fallback: %w", err)
	}
	for token, price := range c.Pricing.FixedTokenUSD {
		if _, err := decimal.NewFromString(price); err != nil {
			return fmt.Errorf("pricing.fixed_token_usd[%s]: %w", token, err)
		}
	}
	return nil
}

// NativeUSDFallback parses the configured fallback price.
func (c *Config) NativeUSDFallback() decimal.Decimal {
	d, _ := decimal.NewFromString(c.Pricing.NativeUSDFallback)
	return d
}

// StablecoinSet lowercases the configured stablecoin addresses into a
// lookup set.
func (c *Config) StablecoinSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.Pricing.Stablecoins))
	for _, a := range c.Pricing.Stablecoins {
		set[addr.Canonicalize(a)] = struct{}{}
	}
	return set
}

// FixedTokenUSDSet parses the configured fixed-price overrides.
func (c *Config) FixedTokenUSDSet() map[string]decimal.Decimal {
	set := make(map[string]decimal.Decimal, len(c.Pricing.FixedTokenUSD))
	for token, price := range c.Pricing.FixedTokenUSD {
		d, err := decimal.NewFromString(price)
		if err != nil {
			continue
		}
		set[addr.Canonicalize(token)] = d
	}
	return set
}

// MinLiquidityUSD parses the configured DexScreener thin-liquidity threshold.
func (c *Config) MinLiquidityUSD() decimal.Decimal {
	d, err := decimal.NewFromString(c.DexScreener.MinLiquidityUSD)
	if err != nil {
		return decimal.NewFromInt(10_000)
	}
	return d
}
