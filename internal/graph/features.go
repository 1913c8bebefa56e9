package graph

import (
	"github.com/shopspring/decimal"
)

// WalletFeatures is a read-only summary of one address's activity within a
// finished Graph — ported from ml/wallet_features.py. It is a pure function
// over already-public Edge data, not a traversal input: nothing in the
// engine reads it back. A downstream wallet-risk scorer (out of scope here)
// is the intended consumer.
type WalletFeatures struct {
	InTxCount            int
	OutTxCount           int
	UniqueCounterparties int
	TotalInUSD           decimal.Decimal
	TotalOutUSD          decimal.Decimal
	AvgInUSD             decimal.Decimal
	AvgOutUSD            decimal.Decimal
	ActiveSpanSeconds    int64
	NativeRatio          decimal.Decimal
	TokenRatio           decimal.Decimal
}

// ComputeWalletFeatures summarizes address's edges within g.
func ComputeWalletFeatures(address string, g *Graph) WalletFeatures {
	var in, out []Edge
	for _, e := range g.edges {
		switch address {
		case e.To:
			in = append(in, e)
		case e.From:
			out = append(out, e)
		}
	}
	inTotal, inCount := sumUSD(in)
	outTotal, outCount := sumUSD(out)

	uniq := make(map[string]struct{})
	var minTS, maxTS int64
	first := true
	nativeCount, tokenCount := 0, 0
	for _, e := range append(append([]Edge{}, in...), out...) {
		if e.From != address {
			uniq[e.From] = struct{}{}
		}
		if e.To != address {
			uniq[e.To] = struct{}{}
		}
		if first || e.Timestamp < minTS {
			minTS = e.Timestamp
		}
		if first || e.Timestamp > maxTS {
			maxTS = e.Timestamp
		}
		first = false
		if e.AssetType == AssetNative {
			nativeCount++
		} else {
			tokenCount++
		}
	}

	total := nativeCount + tokenCount
	f := WalletFeatures{
		InTxCount:            len(in),
		OutTxCount:           len(out),
		UniqueCounterparties: len(uniq),
		TotalInUSD:           inTotal,
		TotalOutUSD:          outTotal,
		ActiveSpanSeconds:    maxTS - minTS,
	}
	if inCount > 0 {
		f.AvgInUSD = inTotal.Div(decimal.NewFromInt(int64(inCount)))
	}
	if outCount > 0 {
		f.AvgOutUSD = outTotal.Div(decimal.NewFromInt(int64(outCount)))
	}
	if total > 0 {
		f.NativeRatio = decimal.NewFromInt(int64(nativeCount)).Div(decimal.NewFromInt(int64(total)))
		f.TokenRatio = decimal.NewFromInt(int64(tokenCount)).Div(decimal.NewFromInt(int64(total)))
	}
	return f
}

func sumUSD(edges []Edge) (decimal.Decimal, int) {
	total := decimal.Zero
	count := 0
	for _, e := range edges {
		if e.USDValue == nil {
			continue
		}
		total = total.Add(*e.USDValue)
		count++
	}
	return total, count
}
