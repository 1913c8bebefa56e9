// Package risk defines the token-risk Port and its DexScreener-backed
// implementation, ported from token_risk_adapter.py / dexscreener_adapter.py.
package risk

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/valueflow-tracer/internal/addr"
	"github.com/example/valueflow-tracer/internal/dexscreener"
	"github.com/example/valueflow-tracer/internal/transport"
)

type Flag string

const (
	FlagLiquidityThin       Flag = "LIQUIDITY_THIN"
	FlagSingleDexPairOnly   Flag = "SINGLE_DEX_PAIR_ONLY"
	FlagPairCreatedRecently Flag = "PAIR_CREATED_RECENTLY"
)

type Label string

const (
	LabelUnknown       Label = "UNKNOWN"
	LabelLowRisk       Label = "LOW_RISK"
	LabelMediumRisk    Label = "MEDIUM_RISK"
	LabelHighRisk      Label = "HIGH_RISK"
	LabelScamConfirmed Label = "SCAM_CONFIRMED"
)

// TokenRisk is the verdict returned for one token at one point in time.
type TokenRisk struct {
	TokenAddress string
	Label        Label
	Score        int
	Flags        []Flag
	Signals      map[string]any
}

// Port is the pluggable seam for token risk. The tracer engine does not call
// it; callers score tokens from a finished graph (see cmd/tracer).
type Port interface {
	GetTokenRisk(ctx context.Context, tokenAddress string, timestamp int64) TokenRisk
}

// Thresholds configure when pools are flagged thin or freshly created.
type Thresholds struct {
	MinLiquidityUSD decimal.Decimal
	NewPairHours    int
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		MinLiquidityUSD: decimal.NewFromInt(10_000),
		NewPairHours:    72,
	}
}

// DexScreenerPort scores token risk from liquidity-pool shape: thin
// liquidity, a single pair, or a pool created very recently are each
// treated as a risk signal and weighted into a 0-100 score.
type DexScreenerPort struct {
	client     *dexscreener.Client
	thresholds Thresholds
	now        func() time.Time
}

func NewDexScreenerPort(client *dexscreener.Client, thresholds Thresholds, now func() time.Time) *DexScreenerPort {
	if now == nil {
		now = time.Now
	}
	return &DexScreenerPort{client: client, thresholds: thresholds, now: now}
}

func (p *DexScreenerPort) GetTokenRisk(ctx context.Context, tokenAddress string, timestamp int64) TokenRisk {
	ta := addr.Canonicalize(tokenAddress)

	analysis, err := p.client.AnalyzeToken(ctx, ta, p.now())
	if err != nil {
		return TokenRisk{
			TokenAddress: ta,
			Label:        LabelUnknown,
			Score:        0,
			Signals:      map[string]any{"dexscreener_error": dataSourceMessage(err)},
		}
	}

	flags := flagsFromAnalysis(analysis, p.thresholds)
	score := scoreFromFlags(flags)

	signals := map[string]any{
		"dexscreener": map[string]any{
			"pair_count":            analysis.PairCount,
			"total_liquidity_usd":   analysis.TotalLiquidityUSD.String(),
			"max_liquidity_usd":     analysis.MaxLiquidityUSD.String(),
			"max_volume_24h_usd":    analysis.MaxVolume24hUSD.String(),
			"newest_pair_age_hours": decStringOrNil(analysis.NewestPairAgeHours),
			"oldest_pair_age_hours": decStringOrNil(analysis.OldestPairAgeHours),
		},
	}

	return TokenRisk{
		TokenAddress: ta,
		Label:        labelFromScore(score),
		Score:        score,
		Flags:        flags,
		Signals:      signals,
	}
}

func flagsFromAnalysis(a dexscreener.Analysis, t Thresholds) []Flag {
	var flags []Flag
	if a.TotalLiquidityUSD.GreaterThan(decimal.Zero) && a.TotalLiquidityUSD.LessThan(t.MinLiquidityUSD) {
		flags = append(flags, FlagLiquidityThin)
	}
	if a.TotalLiquidityUSD.Equal(decimal.Zero) || a.PairCount == 0 {
		flags = append(flags, FlagLiquidityThin)
	}
	if a.PairCount == 1 {
		flags = append(flags, FlagSingleDexPairOnly)
	}
	if a.NewestPairAgeHours != nil && a.NewestPairAgeHours.LessThanOrEqual(decimal.NewFromInt(int64(t.NewPairHours))) {
		flags = append(flags, FlagPairCreatedRecently)
	}
	if a.MaxLiquidityUSD.GreaterThan(decimal.Zero) && a.MaxVolume24hUSD.GreaterThan(a.MaxLiquidityUSD.Mul(decimal.NewFromInt(5))) {
		flags = append(flags, FlagLiquidityThin)
	}
	return flags
}

var flagWeights = map[Flag]int{
	FlagLiquidityThin:       15,
	FlagPairCreatedRecently: 10,
	FlagSingleDexPairOnly:   10,
}

func scoreFromFlags(flags []Flag) int {
	total := 0
	for _, f := range flags {
		total += flagWeights[f]
	}
	if total > 100 {
		total = 100
	}
	return total
}

func labelFromScore(score int) Label {
	switch {
	case score >= 80:
		return LabelScamConfirmed
	case score >= 50:
		return LabelHighRisk
	case score >= 25:
		return LabelMediumRisk
	case score > 0:
		return LabelLowRisk
	default:
		return LabelUnknown
	}
}

func decStringOrNil(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func dataSourceMessage(err error) string {
	var dsErr *transport.DataSourceError
	if errors.As(err, &dsErr) {
		return dsErr.Error()
	}
	return err.Error()
}
