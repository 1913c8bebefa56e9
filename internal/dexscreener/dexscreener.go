// Package dexscreener is the shared liquidity-pool HTTP client, ported from
// dexscreener_adapter.py. internal/pricing and internal/risk both consume it,
// but the client itself carries no pricing or risk-scoring knowledge — it
// just reports pairs.
package dexscreener

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/example/valueflow-tracer/internal/addr"
	"github.com/example/valueflow-tracer/internal/transport"
)

// Pair is one liquidity pool reported for a token.
type Pair struct {
	ChainID       string
	DexID         string
	PairAddress   string
	BaseToken     string
	QuoteToken    string
	PriceUSD      *decimal.Decimal
	LiquidityUSD  *decimal.Decimal
	Volume24h     *decimal.Decimal
	FDV           *decimal.Decimal
	MarketCap     *decimal.Decimal
	PairCreatedAt *int64 // unix seconds
}

// Config configures the client's target API and its outbound discipline.
type Config struct {
	BaseURL           string
	ChainID           string // filter; empty means accept all chains
	RequestsPerSecond float64
}

// Client fetches liquidity-pool data for a token address. Pacing and retry
// are delegated to transport.Client, the same machinery the live chain
// adapter uses.
type Client struct {
	cfg    Config
	client *transport.Client
}

func NewClient(cfg Config, logger zerolog.Logger) *Client {
	return &Client{
		cfg:    cfg,
		client: transport.NewClient("dexscreener", cfg.RequestsPerSecond, logger),
	}
}

type pairsResponse struct {
	Pairs []rawPair `json:"pairs"`
}

type rawPair struct {
	ChainID     string         `json:"chainId"`
	DexID       string         `json:"dexId"`
	PairAddress string         `json:"pairAddress"`
	BaseToken   tokenRef       `json:"baseToken"`
	QuoteToken  tokenRef       `json:"quoteToken"`
	PriceUSD    string         `json:"priceUsd"`
	Liquidity   liquidityBlock `json:"liquidity"`
	Volume      volumeBlock    `json:"volume"`
	FDV         json.Number    `json:"fdv"`
	MarketCap   json.Number    `json:"marketCap"`
	PairCreated json.Number    `json:"pairCreatedAt"`
}

type tokenRef struct {
	Address string `json:"address"`
}

type liquidityBlock struct {
	USD json.Number `json:"usd"`
}

type volumeBlock struct {
	H24 json.Number `json:"h24"`
}

// GetPairs returns every liquidity pool DexScreener reports for
// tokenAddress, filtered to cfg.ChainID when that filter is set.
func (c *Client) GetPairs(ctx context.Context, tokenAddress string) ([]Pair, error) {
	ta := addr.Canonicalize(tokenAddress)
	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/tokens/" + ta

	var resp pairsResponse
	newRequest := func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	}
	decode := func(body []byte) (bool, error) {
		if err := json.Unmarshal(body, &resp); err != nil {
			return false, fmt.Errorf("dexscreener: decode response: %w", err)
		}
		return false, nil
	}
	if err := c.client.Get(ctx, newRequest, decode); err != nil {
		return nil, err
	}

	out := make([]Pair, 0, len(resp.Pairs))
	for _, p := range resp.Pairs {
		if c.cfg.ChainID != "" && p.ChainID != c.cfg.ChainID {
			continue
		}
		out = append(out, Pair{
			ChainID:       p.ChainID,
			DexID:         p.DexID,
			PairAddress:   p.PairAddress,
			BaseToken:     p.BaseToken.Address,
			QuoteToken:    p.QuoteToken.Address,
			PriceUSD:      decOrNil(p.PriceUSD),
			LiquidityUSD:  decOrNilNum(p.Liquidity.USD),
			Volume24h:     decOrNilNum(p.Volume.H24),
			FDV:           decOrNilNum(p.FDV),
			MarketCap:     decOrNilNum(p.MarketCap),
			PairCreatedAt: pairCreatedAtSeconds(p.PairCreated),
		})
	}
	return out, nil
}

func decOrNil(s string) *decimal.Decimal {
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	return &d
}

func decOrNilNum(n json.Number) *decimal.Decimal {
	if n == "" {
		return nil
	}
	return decOrNil(n.String())
}

// pairCreatedAtSeconds normalizes DexScreener's millisecond timestamps down
// to seconds, same heuristic as _pair_created_at_seconds.
func pairCreatedAtSeconds(n json.Number) *int64 {
	if n == "" {
		return nil
	}
	v, err := strconv.ParseInt(n.String(), 10, 64)
	if err != nil {
		return nil
	}
	if v > 10_000_000_000 {
		v /= 1000
	}
	return &v
}

// Analysis summarizes a token's pairs the way risk scoring consumes them.
type Analysis struct {
	Pairs              []Pair
	TotalLiquidityUSD  decimal.Decimal
	MaxLiquidityUSD    decimal.Decimal
	MaxVolume24hUSD    decimal.Decimal
	PairCount          int
	NewestPairAgeHours *decimal.Decimal
	OldestPairAgeHours *decimal.Decimal
}

// AnalyzeToken fetches and summarizes tokenAddress's liquidity pools. now is
// injected rather than read from the clock, matching the module-wide
// ban on non-deterministic time sources mid-trace.
func (c *Client) AnalyzeToken(ctx context.Context, tokenAddress string, now time.Time) (Analysis, error) {
	pairs, err := c.GetPairs(ctx, tokenAddress)
	if err != nil {
		return Analysis{}, err
	}

	totalLiquidity := decimal.Zero
	maxLiquidity := decimal.Zero
	maxVolume := decimal.Zero
	var created []int64
	for _, p := range pairs {
		if p.LiquidityUSD != nil {
			totalLiquidity = totalLiquidity.Add(*p.LiquidityUSD)
			if p.LiquidityUSD.GreaterThan(maxLiquidity) {
				maxLiquidity = *p.LiquidityUSD
			}
		}
		if p.Volume24h != nil && p.Volume24h.GreaterThan(maxVolume) {
			maxVolume = *p.Volume24h
		}
		if p.PairCreatedAt != nil {
			created = append(created, *p.PairCreatedAt)
		}
	}

	nowTS := now.Unix()
	var newest, oldest *int64
	for _, ts := range created {
		t := ts
		if newest == nil || t > *newest {
			newest = &t
		}
		if oldest == nil || t < *oldest {
			oldest = &t
		}
	}

	return Analysis{
		Pairs:              pairs,
		TotalLiquidityUSD:  totalLiquidity,
		MaxLiquidityUSD:    maxLiquidity,
		MaxVolume24hUSD:    maxVolume,
		PairCount:          len(pairs),
		NewestPairAgeHours: ageHours(nowTS, newest),
		OldestPairAgeHours: ageHours(nowTS, oldest),
	}, nil
}

func ageHours(nowTS int64, createdTS *int64) *decimal.Decimal {
	if createdTS == nil {
		return nil
	}
	seconds := nowTS - *createdTS
	if seconds < 0 {
		seconds = 0
	}
	hours := decimal.NewFromInt(seconds).Div(decimal.NewFromInt(3600))
	return &hours
}
