package risk

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/valueflow-tracer/internal/dexscreener"
)

func TestDexScreenerPort_FlagsThinLiquidityAndSinglePair(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"pairs":[
			{"chainId":"ethereum","dexId":"a","pairAddress":"0xP","baseToken":{"address":"0xT"},"quoteToken":{"address":"0xQ"},"priceUsd":"1","liquidity":{"usd":"500"},"pairCreatedAt":1000}
		]}`)
	}))
	defer server.Close()

	dsClient := dexscreener.NewClient(dexscreener.Config{BaseURL: server.URL, RequestsPerSecond: 1000}, zerolog.Nop())
	fixedNow := time.Unix(1000+3600, 0)
	port := NewDexScreenerPort(dsClient, DefaultThresholds(), func() time.Time { return fixedNow })

	risk := port.GetTokenRisk(context.Background(), "0xT", 1000)
	if risk.Label == LabelUnknown {
		t.Fatalf("expected a non-unknown label, got unknown with signals %v", risk.Signals)
	}
	hasThin, hasSingle, hasRecent := false, false, false
	for _, f := range risk.Flags {
		switch f {
		case FlagLiquidityThin:
			hasThin = true
		case FlagSingleDexPairOnly:
			hasSingle = true
		case FlagPairCreatedRecently:
			hasRecent = true
		}
	}
	if !hasThin || !hasSingle || !hasRecent {
		t.Errorf("expected all three flags, got %v", risk.Flags)
	}
	if risk.Score != 35 {
		t.Errorf("expected score 35 (15+10+10), got %d", risk.Score)
	}
}

func TestDexScreenerPort_FlagsVolumeSpikeAsThinLiquidity(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"pairs":[
			{"chainId":"ethereum","dexId":"a","pairAddress":"0xP1","baseToken":{"address":"0xT"},"quoteToken":{"address":"0xQ"},"priceUsd":"1","liquidity":{"usd":"20000"},"volume":{"h24":"200000"},"pairCreatedAt":1000},
			{"chainId":"ethereum","dexId":"b","pairAddress":"0xP2","baseToken":{"address":"0xT"},"quoteToken":{"address":"0xQ"},"priceUsd":"1","liquidity":{"usd":"20000"},"volume":{"h24":"1000"},"pairCreatedAt":1000}
		]}`)
	}))
	defer server.Close()

	dsClient := dexscreener.NewClient(dexscreener.Config{BaseURL: server.URL, RequestsPerSecond: 1000}, zerolog.Nop())
	fixedNow := time.Unix(1000+1_000_000, 0)
	port := NewDexScreenerPort(dsClient, DefaultThresholds(), func() time.Time { return fixedNow })

	risk := port.GetTokenRisk(context.Background(), "0xT", 1000)
	count := 0
	for _, f := range risk.Flags {
		if f == FlagLiquidityThin {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one LIQUIDITY_THIN flag from the 24h volume exceeding 5x max liquidity, got %d in %v", count, risk.Flags)
	}
}

func TestDexScreenerPort_NoPairsFlagsOnlyThinLiquidity(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"pairs":[]}`)
	}))
	defer server.Close()

	dsClient := dexscreener.NewClient(dexscreener.Config{BaseURL: server.URL, RequestsPerSecond: 1000}, zerolog.Nop())
	port := NewDexScreenerPort(dsClient, DefaultThresholds(), nil)

	risk := port.GetTokenRisk(context.Background(), "0xT", 1000)
	if len(risk.Flags) != 1 || risk.Flags[0] != FlagLiquidityThin {
		t.Errorf("expected only LIQUIDITY_THIN for an empty pair set, got %v", risk.Flags)
	}
}

func TestLabelFromScore(t *testing.T) {
	cases := []struct {
		score int
		want  Label
	}{
		{0, LabelUnknown},
		{10, LabelLowRisk},
		{30, LabelMediumRisk},
		{60, LabelHighRisk},
		{90, LabelScamConfirmed},
	}
	for _, c := range cases {
		if got := labelFromScore(c.score); got != c.want {
			t.Errorf("labelFromScore(%d) = %s, want %s", c.score, got, c.want)
		}
	}
}
