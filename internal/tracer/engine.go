// Package tracer is the core BFS value-flow engine, ported from
// services/tracer_service.py. It is the only component that mutates a
// Graph; chain and pricing are consumed purely through their ports, and
// token risk is not consulted during traversal.
package tracer

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/example/valueflow-tracer/internal/addr"
	"github.com/example/valueflow-tracer/internal/chain"
	"github.com/example/valueflow-tracer/internal/graph"
	"github.com/example/valueflow-tracer/internal/moneyx"
	"github.com/example/valueflow-tracer/internal/pricing"
)

const unknownUSDRank = -1

// Engine builds investigator-friendly value-flow graphs from a seed
// address by walking native and token transfers outward in hops.
type Engine struct {
	Chain   chain.Source
	Pricing pricing.Resolver
	Logger  zerolog.Logger
}

func New(source chain.Source, priceResolver pricing.Resolver) *Engine {
	return &Engine{Chain: source, Pricing: priceResolver, Logger: zerolog.Nop()}
}

type hopItem struct {
	address string
	depth   int
}

// Trace runs one full BFS trace. progress may be nil. A cancelled ctx
// aborts between hops (and between pages within a hop, since each port
// call is itself ctx-aware) — an explicit answer to the cancellation
// open question the source left unresolved. Every log line and progress
// event for this invocation carries the same run_id, so concurrent traces
// in one process stay distinguishable.
func (e *Engine) Trace(ctx context.Context, cfg Config, progress ProgressSink) (*graph.Graph, error) {
	runID := uuid.NewString()
	logger := e.Logger.With().Str("run_id", runID).Logger()

	nowTS := cfg.NowTS
	if nowTS <= 0 {
		nowTS = time.Now().Unix()
	}
	startTS := nowTS - int64(cfg.Days)*86400

	startBlock, err := e.Chain.BlockAtTime(ctx, startTS, chain.ClosestAfter)
	if err != nil {
		return nil, err
	}
	endBlock, err := e.Chain.BlockAtTime(ctx, nowTS, chain.ClosestBefore)
	if err != nil {
		return nil, err
	}

	seed := addr.Canonicalize(cfg.SeedAddress)
	logger.Info().Str("seed", seed).Int("hops", cfg.Hops).Int("days", cfg.Days).Msg("trace starting")

	emit(progress, Event{
		RunID:   runID,
		Kind:    EventStart,
		Seed:    seed,
		Days:    cfg.Days,
		Hops:    cfg.Hops,
		MinUSD:  cfg.MinUSD.String(),
		StartTS: startTS,
		NowTS:   nowTS,
	})

	g := graph.New()
	queue := []hopItem{{address: seed, depth: 0}}
	seenAddrDepth := make(map[hopItem]struct{})

	contractChecked := 0
	contractErrors := 0
	processed := 0
	totalEdgesAdded := 0
	globalEdgeKeys := make(map[graph.EdgeKey]struct{})

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, wrap(err)
		}

		item := queue[0]
		queue = queue[1:]

		if item.depth > cfg.Hops {
			continue
		}
		if _, ok := seenAddrDepth[item]; ok {
			continue
		}
		seenAddrDepth[item] = struct{}{}

		e.ensureNode(ctx, logger, runID, g, item.address, cfg.SkipContractCheck, &contractChecked, &contractErrors, progress)

		candidates, err := e.candidateEdges(ctx, logger, runID, item.address, startBlock, endBlock, cfg, progress, item.depth)
		if err != nil {
			return nil, err
		}

		accepted, budgetExhausted := applyEdgePipeline(candidates, cfg, &totalEdgesAdded, globalEdgeKeys)

		for _, ed := range accepted {
			g.AppendEdge(ed)
			e.ensureNode(ctx, logger, runID, g, ed.From, cfg.SkipContractCheck, &contractChecked, &contractErrors, progress)
			e.ensureNode(ctx, logger, runID, g, ed.To, cfg.SkipContractCheck, &contractChecked, &contractErrors, progress)
		}

		processed++
		logger.Debug().Str("address", item.address).Int("depth", item.depth).Int("edges_so_far", g.EdgeCount()).Msg("visited address")
		emit(progress, Event{
			RunID:      runID,
			Kind:       EventVisit,
			Address:    item.address,
			Depth:      item.depth,
			QueueLen:   len(queue),
			Processed:  processed,
			EdgesSoFar: g.EdgeCount(),
		})

		if budgetExhausted {
			break
		}

		if item.depth < cfg.Hops {
			for _, n := range neighborAddresses(item.address, accepted) {
				queue = append(queue, hopItem{address: n, depth: item.depth + 1})
			}
		}
	}

	logger.Info().Int("nodes", g.NodeCount()).Int("edges", g.EdgeCount()).Msg("trace done")
	emit(progress, Event{
		RunID:           runID,
		Kind:            EventDone,
		Processed:       processed,
		Nodes:           g.NodeCount(),
		Edges:           g.EdgeCount(),
		ContractChecked: contractChecked,
		ContractErrors:  contractErrors,
	})

	return g, nil
}

// ensureNode applies the contract-tagging policy (§4.5.6): the first
// ensure for an address decides its tag permanently for this run.
func (e *Engine) ensureNode(ctx context.Context, logger zerolog.Logger, runID string, g *graph.Graph, address string, skipCheck bool, checked, errs *int, progress ProgressSink) {
	if g.HasNode(address) {
		return
	}

	isContract := false
	if skipCheck {
		g.EnsureNode(address, false)
		return
	}

	var err error
	isContract, err = e.Chain.IsContract(ctx, address)
	*checked++
	if err != nil {
		isContract = false
		*errs++
		logger.Warn().Err(err).Str("address", address).Msg("contract check failed, defaulting to non-contract")
	}
	if *checked%25 == 0 {
		emit(progress, Event{RunID: runID, Kind: EventContractProgress, Checked: *checked, Errors: *errs})
	}
	g.EnsureNode(address, isContract)
}

// candidateEdges builds the native + token phase edges for one address,
// per §4.5.4.
func (e *Engine) candidateEdges(ctx context.Context, logger zerolog.Logger, runID string, address string, startBlock, endBlock uint64, cfg Config, progress ProgressSink, depth int) ([]graph.Edge, error) {
	var edges []graph.Edge

	emit(progress, Event{RunID: runID, Kind: EventFetch, Phase: PhaseNative, Address: address, Depth: depth})
	nativeCount := 0
	nativeIter := e.Chain.IterNativeTransfers(ctx, address, startBlock, endBlock, chain.SortAsc)
	for {
		t, ok, err := nativeIter.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if t.ValueMinorUnits == nil || t.ValueMinorUnits.Sign() <= 0 {
			continue
		}
		amount := moneyx.NativeAmount(t.ValueMinorUnits)
		usd := moneyx.USDValue(amount, e.Pricing.GetNativeUSDPrice(ctx, t.Timestamp))
		edges = append(edges, graph.Edge{
			From:      addr.Canonicalize(t.From),
			To:        addr.Canonicalize(t.To),
			TxHash:    t.TxHash,
			Timestamp: t.Timestamp,
			AssetType: graph.AssetNative,
			Symbol:    "NATIVE",
			Amount:    amount,
			USDValue:  &usd,
		})
		nativeCount++
	}
	logger.Debug().Str("address", address).Int("count", nativeCount).Msg("fetched native transfers")
	emit(progress, Event{RunID: runID, Kind: EventFetchDone, Phase: PhaseNative, Address: address, Count: nativeCount})

	emit(progress, Event{RunID: runID, Kind: EventFetch, Phase: PhaseToken, Address: address, Depth: depth})
	tokenCount := 0
	tokenIter := e.Chain.IterTokenTransfers(ctx, address, startBlock, endBlock, chain.SortAsc, "")
	for {
		t, ok, err := tokenIter.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}

		amount := moneyx.TokenAmount(t.ValueRaw, t.Decimals)
		tokenAddress := addr.Canonicalize(t.TokenAddress)
		price := e.Pricing.GetTokenUSDPrice(ctx, tokenAddress, t.Timestamp)
		if price == nil && cfg.IgnoreUnknownPrice {
			continue
		}
		if price == nil {
			logger.Warn().Str("token", tokenAddress).Msg("no usd price available, keeping edge with unknown value")
		}

		ed := graph.Edge{
			From:         addr.Canonicalize(t.From),
			To:           addr.Canonicalize(t.To),
			TxHash:       t.TxHash,
			Timestamp:    t.Timestamp,
			AssetType:    graph.AssetToken,
			TokenAddress: tokenAddress,
			Symbol:       t.Symbol,
			Amount:       amount,
		}
		if price != nil {
			usd := moneyx.USDValue(amount, *price)
			ed.USDValue = &usd
		}
		edges = append(edges, ed)
		tokenCount++
	}
	logger.Debug().Str("address", address).Int("count", tokenCount).Msg("fetched token transfers")
	emit(progress, Event{RunID: runID, Kind: EventFetchDone, Phase: PhaseToken, Address: address, Count: tokenCount})

	return edges, nil
}

// applyEdgePipeline runs steps 1-6 of §4.5.5 over one address's candidate
// batch and mutates totalEdgesAdded/globalEdgeKeys as a side effect. The
// second return value reports whether the total-edges budget was hit,
// per the "truncate this batch and break the outer loop" semantics §9
// pins down against the source's ambiguous behavior.
func applyEdgePipeline(candidates []graph.Edge, cfg Config, totalEdgesAdded *int, globalEdgeKeys map[graph.EdgeKey]struct{}) ([]graph.Edge, bool) {
	filtered := applyMinUSD(candidates, cfg.MinUSD)
	deduped := dedupeLocal(filtered)
	ranked := rankByUSDDesc(deduped)

	if cfg.MaxEdgesPerAddress > 0 && len(ranked) > cfg.MaxEdgesPerAddress {
		ranked = ranked[:cfg.MaxEdgesPerAddress]
	}

	budgetExhausted := false
	if cfg.MaxTotalEdges > 0 {
		remaining := cfg.MaxTotalEdges - *totalEdgesAdded
		if remaining <= 0 {
			return nil, true
		}
		if len(ranked) > remaining {
			ranked = ranked[:remaining]
			budgetExhausted = true
		}
	}

	out := make([]graph.Edge, 0, len(ranked))
	for _, ed := range ranked {
		key := ed.Key()
		if _, seen := globalEdgeKeys[key]; seen {
			continue
		}
		globalEdgeKeys[key] = struct{}{}
		out = append(out, ed)
		*totalEdgesAdded++
	}
	return out, budgetExhausted
}

func applyMinUSD(edges []graph.Edge, minUSD decimal.Decimal) []graph.Edge {
	if minUSD.Sign() <= 0 {
		return edges
	}
	kept := make([]graph.Edge, 0, len(edges))
	for _, e := range edges {
		if e.USDValue == nil || e.USDValue.GreaterThanOrEqual(minUSD) {
			kept = append(kept, e)
		}
	}
	return kept
}

func dedupeLocal(edges []graph.Edge) []graph.Edge {
	seen := make(map[graph.EdgeKey]struct{}, len(edges))
	out := make([]graph.Edge, 0, len(edges))
	for _, e := range edges {
		k := e.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, e)
	}
	return out
}

func rankByUSDDesc(edges []graph.Edge) []graph.Edge {
	out := append([]graph.Edge(nil), edges...)
	sort.SliceStable(out, func(i, j int) bool {
		return usdRank(out[i]).GreaterThan(usdRank(out[j]))
	})
	return out
}

func usdRank(e graph.Edge) decimal.Decimal {
	if e.USDValue == nil {
		return decimal.NewFromInt(unknownUSDRank)
	}
	return *e.USDValue
}

func neighborAddresses(focus string, edges []graph.Edge) []string {
	set := make(map[string]struct{})
	for _, e := range edges {
		set[e.From] = struct{}{}
		set[e.To] = struct{}{}
	}
	delete(set, focus)
	out := make([]string, 0, len(set))
	for a := range set {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}
