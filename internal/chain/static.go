package chain

import (
	"context"
	"sort"
	"strings"

	"github.com/example/valueflow-tracer/internal/addr"
)

// Static is the in-memory test double, ported from static_chain_adapter.py:
// pre-baked transfer lists and lookup maps, in-memory filtering by address
// membership and block range, sorted as requested with timestamp as the
// secondary key.
type Static struct {
	Native    []RawNativeTransfer
	Token     []RawTokenTransfer
	Meta      map[string]TokenMeta // keyed by canonical token address
	Contracts map[string]bool      // keyed by canonical address
	TSToBlock map[int64]uint64
}

// NewStatic builds a Static adapter, canonicalizing all map keys.
func NewStatic(native []RawNativeTransfer, token []RawTokenTransfer, meta map[string]TokenMeta, contracts map[string]bool, tsToBlock map[int64]uint64) *Static {
	s := &Static{
		Native:    native,
		Token:     token,
		Meta:      make(map[string]TokenMeta, len(meta)),
		Contracts: make(map[string]bool, len(contracts)),
		TSToBlock: tsToBlock,
	}
	for k, v := range meta {
		s.Meta[addr.Canonicalize(k)] = v
	}
	for k, v := range contracts {
		s.Contracts[addr.Canonicalize(k)] = v
	}
	if s.TSToBlock == nil {
		s.TSToBlock = make(map[int64]uint64)
	}
	return s
}

func (s *Static) BlockAtTime(ctx context.Context, unixTS int64, closest Closest) (uint64, error) {
	return s.TSToBlock[unixTS], nil
}

func (s *Static) IsContract(ctx context.Context, address string) (bool, error) {
	return s.Contracts[addr.Canonicalize(address)], nil
}

func (s *Static) GetTokenMeta(ctx context.Context, tokenAddress string) TokenMeta {
	ta := addr.Canonicalize(tokenAddress)
	if m, ok := s.Meta[ta]; ok {
		return m
	}
	return TokenMeta{TokenAddress: ta}
}

func (s *Static) IterNativeTransfers(ctx context.Context, address string, startBlock, endBlock uint64, order SortOrder) NativeTransferIter {
	ad := addr.Canonicalize(address)
	var rows []RawNativeTransfer
	for _, t := range s.Native {
		if t.BlockNumber < startBlock || t.BlockNumber > endBlock {
			continue
		}
		if strings.EqualFold(t.From, ad) || strings.EqualFold(t.To, ad) {
			rows = append(rows, t)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].BlockNumber != rows[j].BlockNumber {
			if order == SortDesc {
				return rows[i].BlockNumber > rows[j].BlockNumber
			}
			return rows[i].BlockNumber < rows[j].BlockNumber
		}
		if order == SortDesc {
			return rows[i].Timestamp > rows[j].Timestamp
		}
		return rows[i].Timestamp < rows[j].Timestamp
	})
	return &staticNativeIter{rows: rows}
}

func (s *Static) IterTokenTransfers(ctx context.Context, address string, startBlock, endBlock uint64, order SortOrder, tokenAddress string) TokenTransferIter {
	ad := addr.Canonicalize(address)
	tok := addr.Canonicalize(tokenAddress)
	var rows []RawTokenTransfer
	for _, t := range s.Token {
		if t.BlockNumber < startBlock || t.BlockNumber > endBlock {
			continue
		}
		if tok != "" && !strings.EqualFold(t.TokenAddress, tok) {
			continue
		}
		if strings.EqualFold(t.From, ad) || strings.EqualFold(t.To, ad) {
			rows = append(rows, t)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].BlockNumber != rows[j].BlockNumber {
			if order == SortDesc {
				return rows[i].BlockNumber > rows[j].BlockNumber
			}
			return rows[i].BlockNumber < rows[j].BlockNumber
		}
		if order == SortDesc {
			return rows[i].Timestamp > rows[j].Timestamp
		}
		return rows[i].Timestamp < rows[j].Timestamp
	})
	return &staticTokenIter{rows: rows}
}

type staticNativeIter struct {
	rows []RawNativeTransfer
	pos  int
}

func (it *staticNativeIter) Next() (RawNativeTransfer, bool, error) {
	if it.pos >= len(it.rows) {
		return RawNativeTransfer{}, false, nil
	}
	r := it.rows[it.pos]
	it.pos++
	return r, true, nil
}

type staticTokenIter struct {
	rows []RawTokenTransfer
	pos  int
}

func (it *staticTokenIter) Next() (RawTokenTransfer, bool, error) {
	if it.pos >= len(it.rows) {
		return RawTokenTransfer{}, false, nil
	}
	r := it.rows[it.pos]
	it.pos++
	return r, true, nil
}
