// Package pricing resolves USD values for native currency and token
// transfers, ported from price_adapter.py. Resolution order for a token is
// fixed overrides, then the stablecoin set, then a process-local cache
// populated by a liquidity-pool lookup, falling through to unknown.
package pricing

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/example/valueflow-tracer/internal/addr"
	"github.com/example/valueflow-tracer/internal/dexscreener"
)

// Resolver is the pluggable seam the tracer engine consumes for USD pricing.
type Resolver interface {
	GetNativeUSDPrice(ctx context.Context, timestamp int64) decimal.Decimal
	GetTokenUSDPrice(ctx context.Context, tokenAddress string, timestamp int64) *decimal.Decimal
}

// Config carries the demo-grade fixed pricing inputs: a flat native-currency
// fallback, a set of 1:1 stablecoins, and a handful of fixed token overrides.
type Config struct {
	NativeUSDFallback decimal.Decimal
	Stablecoins       map[string]struct{}
	FixedTokenUSD     map[string]decimal.Decimal
}

// Resolve is the default Resolver. A DexScreener client is optional; when
// nil, lookups beyond the fixed overrides and stablecoin set return unknown,
// matching price_adapter.py's behavior (no live lookup at all).
type Resolve struct {
	cfg         Config
	dexscreener *dexscreener.Client

	mu    sync.Mutex
	cache map[string]*decimal.Decimal
}

func New(cfg Config, dsClient *dexscreener.Client) *Resolve {
	if cfg.Stablecoins == nil {
		cfg.Stablecoins = map[string]struct{}{}
	}
	if cfg.FixedTokenUSD == nil {
		cfg.FixedTokenUSD = map[string]decimal.Decimal{}
	}
	return &Resolve{
		cfg:         cfg,
		dexscreener: dsClient,
		cache:       make(map[string]*decimal.Decimal),
	}
}

func (r *Resolve) GetNativeUSDPrice(ctx context.Context, timestamp int64) decimal.Decimal {
	return r.cfg.NativeUSDFallback
}

// GetTokenUSDPrice returns nil when no price can be determined.
func (r *Resolve) GetTokenUSDPrice(ctx context.Context, tokenAddress string, timestamp int64) *decimal.Decimal {
	ta := addr.Canonicalize(tokenAddress)

	if price, ok := r.cfg.FixedTokenUSD[ta]; ok {
		return &price
	}
	if _, ok := r.cfg.Stablecoins[ta]; ok {
		one := decimal.NewFromInt(1)
		return &one
	}

	r.mu.Lock()
	if cached, ok := r.cache[ta]; ok {
		r.mu.Unlock()
		return cached
	}
	r.mu.Unlock()

	price := r.lookupFromDexscreener(ctx, ta)

	r.mu.Lock()
	r.cache[ta] = price
	r.mu.Unlock()
	return price
}

// lookupFromDexscreener picks the price reported by the pair with the
// highest liquidity, a simple anti-manipulation heuristic — a thin pair
// is easy to move the quoted price on.
func (r *Resolve) lookupFromDexscreener(ctx context.Context, tokenAddress string) *decimal.Decimal {
	if r.dexscreener == nil {
		return nil
	}
	pairs, err := r.dexscreener.GetPairs(ctx, tokenAddress)
	if err != nil || len(pairs) == 0 {
		return nil
	}

	var best *dexscreener.Pair
	bestLiquidity := decimal.Zero
	for i := range pairs {
		p := &pairs[i]
		if p.PriceUSD == nil {
			continue
		}
		liquidity := decimal.Zero
		if p.LiquidityUSD != nil {
			liquidity = *p.LiquidityUSD
		}
		if best == nil || liquidity.GreaterThanOrEqual(bestLiquidity) {
			best = p
			bestLiquidity = liquidity
		}
	}
	if best == nil {
		return nil
	}
	price := *best.PriceUSD
	return &price
}
