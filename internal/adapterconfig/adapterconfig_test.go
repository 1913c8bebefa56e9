package adapterconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeTempConfig(t, `
etherscan:
  base_url: "https://api.etherscan.io/api"
  api_key: "test-key"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Etherscan.RequestsPerSecond != 5 {
		t.Errorf("expected default 5 requests/sec, got %v", cfg.Etherscan.RequestsPerSecond)
	}
	if cfg.Etherscan.PageSize != 1000 {
		t.Errorf("expected default page size 1000, got %d", cfg.Etherscan.PageSize)
	}
	if cfg.Pricing.NativeUSDFallback != "3000" {
		t.Errorf("expected default native fallback 3000, got %s", cfg.Pricing.NativeUSDFallback)
	}
}

func TestLoad_EnvOverridesAPIKey(t *testing.T) {
	path := writeTempConfig(t, `
etherscan:
  base_url: "https://api.etherscan.io/api"
  api_key: "from-file"
`)
	t.Setenv("ETHERSCAN_API_KEY", "from-env")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Etherscan.APIKey != "from-env" {
		t.Errorf("expected env override to win, got %q", cfg.Etherscan.APIKey)
	}
}

func TestLoad_MissingAPIKeyFailsValidation(t *testing.T) {
	path := writeTempConfig(t, `
etherscan:
  base_url: "https://api.etherscan.io/api"
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for missing api_key")
	}
}

func TestStablecoinSet_Canonicalizes(t *testing.T) {
	cfg := &Config{Pricing: PricingConfig{Stablecoins: []string{"0xABCD"}}}
	set := cfg.StablecoinSet()
	if _, ok := set["0xabcd"]; !ok {
		t.Errorf("expected lowercase key in stablecoin set, got %v", set)
	}
}

func TestFixedTokenUSDSet_ParsesDecimals(t *testing.T) {
	cfg := &Config{Pricing: PricingConfig{FixedTokenUSD: map[string]string{"0xTOKEN": "1.23"}}}
	set := cfg.FixedTokenUSDSet()
	price, ok := set["0xtoken"]
	if !ok || !price.Equal(decimal.RequireFromString("1.23")) {
		t.Errorf("expected 1.23 for 0xtoken, got %v ok=%v", price, ok)
	}
}
