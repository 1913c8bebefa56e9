package graph

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestEnsureNode_FirstObservationWins(t *testing.T) {
	g := New()
	g.EnsureNode("0xaaaa", true)
	g.EnsureNode("0xaaaa", false)

	n := g.Nodes()["0xaaaa"]
	if !n.IsContract {
		t.Errorf("expected first observation (true) to win, got IsContract=%v", n.IsContract)
	}
}

func TestAppendEdge_PreservesInsertionOrder(t *testing.T) {
	g := New()
	g.AppendEdge(Edge{TxHash: "0x1", From: "a", To: "b"})
	g.AppendEdge(Edge{TxHash: "0x2", From: "b", To: "c"})

	edges := g.Edges()
	if len(edges) != 2 || edges[0].TxHash != "0x1" || edges[1].TxHash != "0x2" {
		t.Fatalf("unexpected edge order: %+v", edges)
	}
}

func TestToWire_NullsForAbsentOptionalFields(t *testing.T) {
	g := New()
	g.EnsureNode("0xaaaa", false)
	g.EnsureNode("0xbbbb", false)
	g.AppendEdge(Edge{
		From:      "0xaaaa",
		To:        "0xbbbb",
		TxHash:    "0xE",
		Timestamp: 900,
		AssetType: AssetNative,
		Amount:    decimal.RequireFromString("1"),
	})

	wire := g.ToWire()
	if len(wire.Edges) != 1 {
		t.Fatalf("expected 1 wire edge, got %d", len(wire.Edges))
	}
	e := wire.Edges[0]
	if e.TokenAddress != nil {
		t.Errorf("expected nil token address for native edge")
	}
	if e.USDValue != nil {
		t.Errorf("expected nil usd_value when unset")
	}
	if e.Amount != "1" {
		t.Errorf("expected amount '1', got %q", e.Amount)
	}
}

func TestComputeWalletFeatures_InOutSplit(t *testing.T) {
	g := New()
	usd100 := decimal.RequireFromString("100")
	usd50 := decimal.RequireFromString("50")
	g.AppendEdge(Edge{From: "0xaaaa", To: "0xbbbb", TxHash: "0x1", Timestamp: 100, AssetType: AssetNative, Amount: decimal.RequireFromString("1"), USDValue: &usd100})
	g.AppendEdge(Edge{From: "0xcccc", To: "0xaaaa", TxHash: "0x2", Timestamp: 200, AssetType: AssetToken, Amount: decimal.RequireFromString("2"), USDValue: &usd50})

	f := ComputeWalletFeatures("0xaaaa", g)
	if f.OutTxCount != 1 || f.InTxCount != 1 {
		t.Fatalf("expected 1 in / 1 out, got in=%d out=%d", f.InTxCount, f.OutTxCount)
	}
	if !f.TotalOutUSD.Equal(usd100) {
		t.Errorf("expected total out 100, got %s", f.TotalOutUSD)
	}
	if !f.TotalInUSD.Equal(usd50) {
		t.Errorf("expected total in 50, got %s", f.TotalInUSD)
	}
	if f.UniqueCounterparties != 2 {
		t.Errorf("expected 2 unique counterparties, got %d", f.UniqueCounterparties)
	}
	if f.ActiveSpanSeconds != 100 {
		t.Errorf("expected active span 100, got %d", f.ActiveSpanSeconds)
	}
}
