package chain

import (
	"context"
	"math/big"
	"testing"
)

func TestStatic_IterNativeTransfers_FiltersByAddressAndBlockRange(t *testing.T) {
	s := NewStatic(
		[]RawNativeTransfer{
			{TxHash: "0x1", BlockNumber: 5, Timestamp: 100, From: "0xAAAA", To: "0xbbbb"},
			{TxHash: "0x2", BlockNumber: 10, Timestamp: 200, From: "0xcccc", To: "0xdddd"},
			{TxHash: "0x3", BlockNumber: 15, Timestamp: 300, From: "0xbbbb", To: "0xaaaa"},
			{TxHash: "0x4", BlockNumber: 25, Timestamp: 400, From: "0xaaaa", To: "0xeeee"},
		},
		nil, nil, nil, nil,
	)

	it := s.IterNativeTransfers(context.Background(), "0xAAAA", 0, 20, SortAsc)
	var got []string
	for {
		row, ok, err := it.Next()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !ok {
			break
		}
		got = append(got, row.TxHash)
	}
	if len(got) != 2 || got[0] != "0x1" || got[1] != "0x3" {
		t.Fatalf("expected [0x1 0x3] in block order, got %v", got)
	}
}

func TestStatic_IterNativeTransfers_DescOrder(t *testing.T) {
	s := NewStatic(
		[]RawNativeTransfer{
			{TxHash: "0x1", BlockNumber: 5, Timestamp: 100, From: "0xaaaa", To: "0xbbbb"},
			{TxHash: "0x2", BlockNumber: 10, Timestamp: 200, From: "0xaaaa", To: "0xbbbb"},
		},
		nil, nil, nil, nil,
	)
	it := s.IterNativeTransfers(context.Background(), "0xaaaa", 0, 20, SortDesc)
	first, ok, err := it.Next()
	if err != nil || !ok {
		t.Fatalf("expected a row, err=%v ok=%v", err, ok)
	}
	if first.TxHash != "0x2" {
		t.Errorf("expected 0x2 first in desc order, got %s", first.TxHash)
	}
}

func TestStatic_IterTokenTransfers_FiltersByTokenAddress(t *testing.T) {
	s := NewStatic(nil,
		[]RawTokenTransfer{
			{TxHash: "0x1", BlockNumber: 5, Timestamp: 100, From: "0xaaaa", To: "0xbbbb", TokenAddress: "0xT1", ValueRaw: big.NewInt(1)},
			{TxHash: "0x2", BlockNumber: 6, Timestamp: 101, From: "0xaaaa", To: "0xbbbb", TokenAddress: "0xT2", ValueRaw: big.NewInt(2)},
		},
		nil, nil, nil,
	)
	it := s.IterTokenTransfers(context.Background(), "0xaaaa", 0, 20, SortAsc, "0xt1")
	row, ok, err := it.Next()
	if err != nil || !ok {
		t.Fatalf("expected a row, err=%v ok=%v", err, ok)
	}
	if row.TxHash != "0x1" {
		t.Errorf("expected 0x1, got %s", row.TxHash)
	}
	_, ok, _ = it.Next()
	if ok {
		t.Errorf("expected no second row for token filter")
	}
}

func TestStatic_IsContract_And_GetTokenMeta(t *testing.T) {
	s := NewStatic(nil, nil,
		map[string]TokenMeta{"0xTOKEN": {TokenAddress: "0xtoken", Symbol: "USDX"}},
		map[string]bool{"0xCONTRACT": true},
		nil,
	)

	isC, err := s.IsContract(context.Background(), "0xContract")
	if err != nil || !isC {
		t.Fatalf("expected contract=true, got %v err=%v", isC, err)
	}

	meta := s.GetTokenMeta(context.Background(), "0xToken")
	if meta.Symbol != "USDX" {
		t.Errorf("expected symbol USDX, got %q", meta.Symbol)
	}

	unknown := s.GetTokenMeta(context.Background(), "0xUnknown")
	if unknown.Symbol != "" {
		t.Errorf("expected empty symbol for unknown token, got %q", unknown.Symbol)
	}
}

func TestStatic_BlockAtTime(t *testing.T) {
	s := NewStatic(nil, nil, nil, nil, map[int64]uint64{1000: 42})
	b, err := s.BlockAtTime(context.Background(), 1000, ClosestBefore)
	if err != nil || b != 42 {
		t.Fatalf("expected block 42, got %d err=%v", b, err)
	}
	b, err = s.BlockAtTime(context.Background(), 9999, ClosestBefore)
	if err != nil || b != 0 {
		t.Fatalf("expected zero-value block for unmapped timestamp, got %d err=%v", b, err)
	}
}
