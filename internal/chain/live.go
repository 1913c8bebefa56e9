package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/example/valueflow-tracer/internal/addr"
	"github.com/example/valueflow-tracer/internal/transport"
)

// LiveConfig carries everything live.go needs to talk to an
// Etherscan-shaped explorer API, ported from settings.ETHERSCAN_*.
type LiveConfig struct {
	BaseURL           string
	APIKey            string
	ChainID           int
	RequestsPerSecond float64
	PageSize          int
}

// Live is the Etherscan-shaped REST ChainDataSource, ported from
// etherscan_chain_adapter.py. Pagination, contract-code lookups and token
// metadata all go through the shared transport.Client for pacing, backoff
// and the rate-limit-signal retry envelope.
type Live struct {
	cfg    LiveConfig
	client *transport.Client

	mu              sync.Mutex
	isContractCache map[string]bool
	tokenMetaCache  map[string]TokenMeta
}

// NewLive builds a Live adapter. logger is threaded into the transport
// client so every retry/backoff event carries the adapter's identity.
func NewLive(cfg LiveConfig, logger zerolog.Logger) *Live {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 1000
	}
	return &Live{
		cfg:             cfg,
		client:          transport.NewClient("etherscan", cfg.RequestsPerSecond, logger),
		isContractCache: make(map[string]bool),
		tokenMetaCache:  make(map[string]TokenMeta),
	}
}

type explorerEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// call performs one explorer API request and decodes its envelope,
// surfacing the provider's rate-limit signal to transport.Client's retry
// loop via the Decoder contract (status="0" + "rate" in message).
func (l *Live) call(ctx context.Context, params url.Values, out *explorerEnvelope) error {
	params.Set("apikey", l.cfg.APIKey)
	if l.cfg.ChainID != 0 {
		params.Set("chainid", strconv.Itoa(l.cfg.ChainID))
	}

	newRequest := func(ctx context.Context) (*http.Request, error) {
		u := l.cfg.BaseURL + "?" + params.Encode()
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}

	decode := func(body []byte) (bool, error) {
		var env explorerEnvelope
		if err := json.Unmarshal(body, &env); err != nil {
			return false, fmt.Errorf("chain: decode explorer response: %w", err)
		}
		if env.Status == "" {
			env.Status = "1"
		}
		if env.Status == "0" && strings.Contains(strings.ToLower(env.Message), "rate") {
			return true, fmt.Errorf("chain: rate limited: %s", env.Message)
		}
		*out = env
		return false, nil
	}

	return l.client.Get(ctx, newRequest, decode)
}

func (l *Live) listResult(env explorerEnvelope) []map[string]any {
	var rows []map[string]any
	_ = json.Unmarshal(env.Result, &rows)
	return rows
}

func (l *Live) BlockAtTime(ctx context.Context, unixTS int64, closest Closest) (uint64, error) {
	params := url.Values{}
	params.Set("module", "block")
	params.Set("action", "getblocknobytime")
	params.Set("timestamp", strconv.FormatInt(unixTS, 10))
	params.Set("closest", string(closest))

	var env explorerEnvelope
	if err := l.call(ctx, params, &env); err != nil {
		return 0, err
	}
	var blockStr string
	if err := json.Unmarshal(env.Result, &blockStr); err != nil {
		return 0, transport.NewDataSourceError("etherscan", fmt.Errorf("invalid block result: %s", env.Result))
	}
	n, err := strconv.ParseUint(blockStr, 10, 64)
	if err != nil {
		return 0, transport.NewDataSourceError("etherscan", fmt.Errorf("invalid block number %q: %w", blockStr, err))
	}
	return n, nil
}

func (l *Live) IsContract(ctx context.Context, address string) (bool, error) {
	a := addr.Canonicalize(address)

	l.mu.Lock()
	if v, ok := l.isContractCache[a]; ok {
		l.mu.Unlock()
		return v, nil
	}
	l.mu.Unlock()

	params := url.Values{}
	params.Set("module", "proxy")
	params.Set("action", "eth_getCode")
	params.Set("address", a)
	params.Set("tag", "latest")

	var env explorerEnvelope
	if err := l.call(ctx, params, &env); err != nil {
		return false, err
	}
	var code string
	_ = json.Unmarshal(env.Result, &code)
	if code == "" {
		code = "0x"
	}
	isContract := code != "0x" && code != "0x0"

	l.mu.Lock()
	l.isContractCache[a] = isContract
	l.mu.Unlock()
	return isContract, nil
}

func (l *Live) GetTokenMeta(ctx context.Context, tokenAddress string) TokenMeta {
	a := addr.Canonicalize(tokenAddress)
	l.mu.Lock()
	defer l.mu.Unlock()
	if m, ok := l.tokenMetaCache[a]; ok {
		return m
	}
	return TokenMeta{TokenAddress: a}
}

func (l *Live) rememberTokenMeta(m TokenMeta) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.tokenMetaCache[m.TokenAddress]; !ok {
		l.tokenMetaCache[m.TokenAddress] = m
	}
}

func (l *Live) IterNativeTransfers(ctx context.Context, address string, startBlock, endBlock uint64, order SortOrder) NativeTransferIter {
	return &liveNativeIter{l: l, ctx: ctx, address: addr.Canonicalize(address), startBlock: startBlock, endBlock: endBlock, order: order, page: 1}
}

func (l *Live) IterTokenTransfers(ctx context.Context, address string, startBlock, endBlock uint64, order SortOrder, tokenAddress string) TokenTransferIter {
	return &liveTokenIter{l: l, ctx: ctx, address: addr.Canonicalize(address), startBlock: startBlock, endBlock: endBlock, order: order, token: addr.Canonicalize(tokenAddress), page: 1}
}

// liveNativeIter pages through account/txlist one page at a time, buffering
// the current page and re-fetching when exhausted, per iter_normal_txs.
type liveNativeIter struct {
	l          *Live
	ctx        context.Context
	address    string
	startBlock uint64
	endBlock   uint64
	order      SortOrder
	page       int
	buf        []map[string]any
	pos        int
	done       bool
}

func (it *liveNativeIter) fetchPage() error {
	params := url.Values{}
	params.Set("module", "account")
	params.Set("action", "txlist")
	params.Set("address", it.address)
	params.Set("startblock", strconv.FormatUint(it.startBlock, 10))
	params.Set("endblock", strconv.FormatUint(it.endBlock, 10))
	params.Set("page", strconv.Itoa(it.page))
	params.Set("offset", strconv.Itoa(it.l.cfg.PageSize))
	params.Set("sort", string(it.order))

	var env explorerEnvelope
	if err := it.l.call(it.ctx, params, &env); err != nil {
		return err
	}
	rows := it.l.listResult(env)
	it.buf = rows
	it.pos = 0
	if len(rows) < it.l.cfg.PageSize {
		it.done = true
	}
	it.page++
	return nil
}

func (it *liveNativeIter) Next() (RawNativeTransfer, bool, error) {
	for it.pos >= len(it.buf) {
		if it.done && it.page > 1 {
			return RawNativeTransfer{}, false, nil
		}
		if err := it.fetchPage(); err != nil {
			return RawNativeTransfer{}, false, err
		}
		if len(it.buf) == 0 {
			return RawNativeTransfer{}, false, nil
		}
	}
	r := it.buf[it.pos]
	it.pos++
	return rowToNativeTransfer(r), true, nil
}

func rowToNativeTransfer(r map[string]any) RawNativeTransfer {
	return RawNativeTransfer{
		TxHash:          stringField(r, "hash"),
		BlockNumber:     uintField(r, "blockNumber"),
		Timestamp:       int64(uintField(r, "timeStamp")),
		From:            strings.ToLower(stringField(r, "from")),
		To:              strings.ToLower(stringField(r, "to")),
		ValueMinorUnits: bigIntField(r, "value"),
	}
}

// liveTokenIter pages through account/tokentx, mirroring iter_erc20_transfers
// including its as-you-go token metadata cache population.
type liveTokenIter struct {
	l          *Live
	ctx        context.Context
	address    string
	startBlock uint64
	endBlock   uint64
	order      SortOrder
	token      string
	page       int
	buf        []map[string]any
	pos        int
	done       bool
}

func (it *liveTokenIter) fetchPage() error {
	params := url.Values{}
	params.Set("module", "account")
	params.Set("action", "tokentx")
	params.Set("address", it.address)
	params.Set("startblock", strconv.FormatUint(it.startBlock, 10))
	params.Set("endblock", strconv.FormatUint(it.endBlock, 10))
	params.Set("page", strconv.Itoa(it.page))
	params.Set("offset", strconv.Itoa(it.l.cfg.PageSize))
	params.Set("sort", string(it.order))
	if it.token != "" {
		params.Set("contractaddress", it.token)
	}

	var env explorerEnvelope
	if err := it.l.call(it.ctx, params, &env); err != nil {
		return err
	}
	rows := it.l.listResult(env)
	it.buf = rows
	it.pos = 0
	if len(rows) < it.l.cfg.PageSize {
		it.done = true
	}
	it.page++
	return nil
}

func (it *liveTokenIter) Next() (RawTokenTransfer, bool, error) {
	for it.pos >= len(it.buf) {
		if it.done && it.page > 1 {
			return RawTokenTransfer{}, false, nil
		}
		if err := it.fetchPage(); err != nil {
			return RawTokenTransfer{}, false, err
		}
		if len(it.buf) == 0 {
			return RawTokenTransfer{}, false, nil
		}
	}
	r := it.buf[it.pos]
	it.pos++
	t := rowToTokenTransfer(r)
	it.l.rememberTokenMeta(TokenMeta{TokenAddress: t.TokenAddress, Symbol: t.Symbol, Decimals: t.Decimals})
	return t, true, nil
}

func rowToTokenTransfer(r map[string]any) RawTokenTransfer {
	ta := strings.ToLower(stringField(r, "contractAddress"))
	sym := stringField(r, "tokenSymbol")
	var decimals *int
	if d := stringField(r, "tokenDecimal"); d != "" {
		if n, err := strconv.Atoi(d); err == nil {
			decimals = &n
		}
	}
	return RawTokenTransfer{
		TxHash:       stringField(r, "hash"),
		BlockNumber:  uintField(r, "blockNumber"),
		Timestamp:    int64(uintField(r, "timeStamp")),
		From:         strings.ToLower(stringField(r, "from")),
		To:           strings.ToLower(stringField(r, "to")),
		TokenAddress: ta,
		ValueRaw:     bigIntField(r, "value"),
		Symbol:       sym,
		Decimals:     decimals,
	}
}

func stringField(r map[string]any, key string) string {
	if v, ok := r[key].(string); ok {
		return v
	}
	return ""
}

func uintField(r map[string]any, key string) uint64 {
	s := stringField(r, key)
	if s == "" {
		return 0
	}
	n, _ := strconv.ParseUint(s, 10, 64)
	return n
}

func bigIntField(r map[string]any, key string) *big.Int {
	s := stringField(r, key)
	n := new(big.Int)
	if s == "" {
		return n
	}
	n.SetString(s, 10)
	return n
}
