// Command tracer runs one value-flow trace from a seed address and writes
// the resulting graph as JSON to stdout. It is a demo harness, not a CLI
// framework: flags cover the knobs of tracer.Config except NowTS (which is
// left at wall-clock), plus the adapter config path, the metrics address
// and the log level. A /metrics endpoint stays up for the duration of the run so a
// scraper can observe it even for a single one-shot invocation.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/example/valueflow-tracer/internal/adapterconfig"
	"github.com/example/valueflow-tracer/internal/chain"
	"github.com/example/valueflow-tracer/internal/dexscreener"
	"github.com/example/valueflow-tracer/internal/graph"
	"github.com/example/valueflow-tracer/internal/metrics"
	"github.com/example/valueflow-tracer/internal/pricing"
	"github.com/example/valueflow-tracer/internal/risk"
	"github.com/example/valueflow-tracer/internal/tracer"
)

func main() {
	seed := flag.String("seed", "", "seed address to trace from")
	days := flag.Int("days", 7, "lookback window in days")
	hops := flag.Int("hops", 2, "maximum BFS hop depth")
	minUSD := flag.String("min-usd", "0", "drop edges below this USD value (unknown-priced edges are always kept)")
	maxEdgesPerAddress := flag.Int("max-edges-per-address", 0, "0 = unlimited")
	maxTotalEdges := flag.Int("max-total-edges", 0, "0 = unlimited")
	ignoreUnknownPrice := flag.Bool("ignore-unknown-price", false, "drop edges whose USD value could not be resolved")
	skipContractCheck := flag.Bool("skip-contract-check", false, "tag every address as a non-contract without looking it up")
	configPath := flag.String("config", "", "adapter config YAML; empty runs against an empty static source")
	metricsAddr := flag.String("metrics-addr", ":9090", "address to serve /metrics on")
	logLevel := flag.String("log-level", "info", "zerolog level")
	flag.Parse()

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger().Level(level)

	if *seed == "" {
		logger.Fatal().Msg("-seed is required")
	}
	minUSDDec, err := decimal.NewFromString(*minUSD)
	if err != nil {
		logger.Fatal().Err(err).Str("min_usd", *minUSD).Msg("invalid -min-usd")
	}

	reg := prometheus.NewRegistry()
	m := metrics.New()
	m.MustRegister(reg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: *metricsAddr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("metrics server failed")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source, priceResolver, riskPort := buildAdapters(ctx, *configPath, logger)

	eng := tracer.New(source, priceResolver)
	eng.Logger = logger

	cfg := tracer.Config{
		SeedAddress:        *seed,
		Days:               *days,
		Hops:               *hops,
		MinUSD:             minUSDDec,
		MaxEdgesPerAddress: *maxEdgesPerAddress,
		MaxTotalEdges:      *maxTotalEdges,
		IgnoreUnknownPrice: *ignoreUnknownPrice,
		SkipContractCheck:  *skipContractCheck,
	}

	progress := tracer.ProgressFunc(func(e tracer.Event) {
		logger.Debug().Str("run_id", e.RunID).Str("kind", string(e.Kind)).Msg("progress")
	})
	sink := combineSinks(progress, m.ProgressSink())

	g, err := eng.Trace(ctx, cfg, sink)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	if err != nil {
		logger.Fatal().Err(err).Msg("trace failed")
	}

	out := output{Graph: g.ToWire()}
	if riskPort != nil {
		out.TokenRisk = tokenRiskSummary(ctx, riskPort, g, cfg.NowTS)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		logger.Fatal().Err(err).Msg("failed to encode graph")
	}
}

// output is the top-level JSON document this binary writes to stdout: the
// graph itself plus a risk verdict for every distinct token observed in it.
type output struct {
	Graph     graph.Wire                `json:"graph"`
	TokenRisk map[string]risk.TokenRisk `json:"token_risk,omitempty"`
}

// tokenRiskSummary scores every distinct token address that appears on a
// TOKEN edge in g, so the printed output carries the same risk signal the
// engine itself never reads back.
func tokenRiskSummary(ctx context.Context, port risk.Port, g *graph.Graph, nowTS int64) map[string]risk.TokenRisk {
	seen := make(map[string]struct{})
	out := make(map[string]risk.TokenRisk)
	for _, e := range g.Edges() {
		if e.AssetType != graph.AssetToken || e.TokenAddress == "" {
			continue
		}
		if _, ok := seen[e.TokenAddress]; ok {
			continue
		}
		seen[e.TokenAddress] = struct{}{}
		out[e.TokenAddress] = port.GetTokenRisk(ctx, e.TokenAddress, nowTS)
	}
	return out
}

// combineSinks fans one event out to every sink in order. A panicking or
// nil sink is handled by tracer.emit itself at the call site, not here.
func combineSinks(sinks ...tracer.ProgressSink) tracer.ProgressSink {
	return tracer.ProgressFunc(func(e tracer.Event) {
		for _, s := range sinks {
			s.OnEvent(e)
		}
	})
}

// buildAdapters wires the live Etherscan-shaped source and DexScreener-backed
// pricing/risk adapters from YAML config, or falls back to an empty static
// source (and a nil risk port) so the binary still runs without credentials
// for a smoke test.
func buildAdapters(ctx context.Context, configPath string, logger zerolog.Logger) (chain.Source, pricing.Resolver, risk.Port) {
	if configPath == "" {
		logger.Warn().Msg("no -config given, tracing against an empty static source")
		return chain.NewStatic(nil, nil, nil, nil, map[int64]uint64{}), pricing.New(pricing.Config{
			NativeUSDFallback: decimal.NewFromInt(0),
		}, nil), nil
	}

	cfg, err := adapterconfig.Load(configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load adapter config")
	}

	live := chain.NewLive(chain.LiveConfig{
		BaseURL:           cfg.Etherscan.BaseURL,
		APIKey:            cfg.Etherscan.APIKey,
		ChainID:           cfg.Etherscan.ChainID,
		RequestsPerSecond: cfg.Etherscan.RequestsPerSecond,
		PageSize:          cfg.Etherscan.PageSize,
	}, logger)

	dsClient := dexscreener.NewClient(dexscreener.Config{
		BaseURL:           cfg.DexScreener.BaseURL,
		ChainID:           cfg.DexScreener.ChainID,
		RequestsPerSecond: cfg.DexScreener.RequestsPerSecond,
	}, logger)

	priceResolver := pricing.New(pricing.Config{
		NativeUSDFallback: cfg.NativeUSDFallback(),
		Stablecoins:       cfg.StablecoinSet(),
		FixedTokenUSD:     cfg.FixedTokenUSDSet(),
	}, dsClient)

	riskPort := risk.NewDexScreenerPort(dsClient, risk.Thresholds{
		MinLiquidityUSD: cfg.MinLiquidityUSD(),
		NewPairHours:    cfg.DexScreener.NewPairHours,
	}, nil)

	return live, priceResolver, riskPort
}
