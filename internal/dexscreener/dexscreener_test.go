package dexscreener

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func TestClient_GetPairs_FiltersByChainAndParsesFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"pairs":[
			{"chainId":"ethereum","dexId":"uniswap","pairAddress":"0xP1","baseToken":{"address":"0xT"},"quoteToken":{"address":"0xQ"},"priceUsd":"1.5","liquidity":{"usd":"50000"},"volume":{"h24":"1000"},"fdv":"2000000","marketCap":"1900000","pairCreatedAt":1700000000000},
			{"chainId":"bsc","dexId":"pancake","pairAddress":"0xP2","baseToken":{"address":"0xT"},"quoteToken":{"address":"0xQ"},"priceUsd":"1.4","liquidity":{"usd":"1000"}}
		]}`)
	}))
	defer server.Close()

	c := NewClient(Config{BaseURL: server.URL, ChainID: "ethereum", RequestsPerSecond: 1000}, zerolog.Nop())
	pairs, err := c.GetPairs(context.Background(), "0xT")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pairs) != 1 {
		t.Fatalf("expected 1 pair after chain filter, got %d", len(pairs))
	}
	p := pairs[0]
	if p.PriceUSD == nil || p.PriceUSD.String() != "1.5" {
		t.Errorf("expected price 1.5, got %v", p.PriceUSD)
	}
	if p.LiquidityUSD == nil || p.LiquidityUSD.String() != "50000" {
		t.Errorf("expected liquidity 50000, got %v", p.LiquidityUSD)
	}
	if p.PairCreatedAt == nil || *p.PairCreatedAt != 1700000000 {
		t.Errorf("expected ms timestamp normalized to seconds, got %v", p.PairCreatedAt)
	}
}

func TestClient_AnalyzeToken_SummarizesAcrossPairs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"pairs":[
			{"chainId":"ethereum","dexId":"a","pairAddress":"0xP1","baseToken":{"address":"0xT"},"quoteToken":{"address":"0xQ"},"priceUsd":"1","liquidity":{"usd":"10000"},"volume":{"h24":"5000"},"pairCreatedAt":1000},
			{"chainId":"ethereum","dexId":"b","pairAddress":"0xP2","baseToken":{"address":"0xT"},"quoteToken":{"address":"0xQ"},"priceUsd":"1","liquidity":{"usd":"30000"},"volume":{"h24":"200000"},"pairCreatedAt":500}
		]}`)
	}))
	defer server.Close()

	c := NewClient(Config{BaseURL: server.URL, RequestsPerSecond: 1000}, zerolog.Nop())
	now := time.Unix(1000+3600, 0)
	a, err := c.AnalyzeToken(context.Background(), "0xT", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.PairCount != 2 {
		t.Errorf("expected 2 pairs, got %d", a.PairCount)
	}
	if !a.TotalLiquidityUSD.Equal(decimal.RequireFromString("40000")) {
		t.Errorf("expected total liquidity 40000, got %s", a.TotalLiquidityUSD)
	}
	if !a.MaxLiquidityUSD.Equal(decimal.RequireFromString("30000")) {
		t.Errorf("expected max liquidity 30000, got %s", a.MaxLiquidityUSD)
	}
	if !a.MaxVolume24hUSD.Equal(decimal.RequireFromString("200000")) {
		t.Errorf("expected max 24h volume 200000, got %s", a.MaxVolume24hUSD)
	}
	if a.NewestPairAgeHours == nil {
		t.Fatal("expected newest pair age to be set")
	}
}
