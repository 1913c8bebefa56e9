package tracer

import "github.com/shopspring/decimal"

// Config is one trace request, immutable for the run's duration, ported
// from core.dto.TraceConfig.
type Config struct {
	SeedAddress        string
	Days               int
	Hops               int
	MinUSD             decimal.Decimal
	NowTS              int64 // 0 = wall-clock
	MaxEdgesPerAddress int   // 0 = unlimited
	MaxTotalEdges      int   // 0 = unlimited
	IgnoreUnknownPrice bool
	SkipContractCheck  bool
}
