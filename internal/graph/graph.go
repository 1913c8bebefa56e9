// Package graph holds the in-memory directed multigraph the tracer engine
// builds: nodes keyed by canonical address, edges as immutable value-flow
// records. It has no knowledge of BFS, pricing, or chain data — it keeps
// stable insertion order and first-observation-wins node tagging; keeping
// edge keys unique is left to the caller that appends edges.
package graph

import (
	"github.com/shopspring/decimal"
)

// AssetType distinguishes the native currency from fungible tokens.
type AssetType string

const (
	AssetNative AssetType = "NATIVE"
	AssetToken  AssetType = "TOKEN"
)

// Node is a wallet or contract address observed during a trace.
type Node struct {
	Address    string
	IsContract bool
}

// EdgeKey is the 5-tuple used for deduplication throughout the pipeline.
type EdgeKey struct {
	TxHash       string
	From         string
	To           string
	AssetType    AssetType
	TokenAddress string // empty for native edges
}

// Edge is an immutable record of one significant transfer. USDValue is a
// pointer so "unknown" is representable without a sentinel decimal value.
type Edge struct {
	From         string
	To           string
	TxHash       string
	Timestamp    int64
	AssetType    AssetType
	TokenAddress string // empty for native edges
	Symbol       string // may be empty
	Amount       decimal.Decimal
	USDValue     *decimal.Decimal
}

// Key returns the deduplication key for this edge.
func (e Edge) Key() EdgeKey {
	return EdgeKey{
		TxHash:       e.TxHash,
		From:         e.From,
		To:           e.To,
		AssetType:    e.AssetType,
		TokenAddress: e.TokenAddress,
	}
}

// Graph is the directed multigraph produced by one trace() invocation.
// Edges preserve insertion order; nodes are looked up by canonical address,
// but nodeOrder tracks first-observation order separately since Go map
// iteration order is randomized and the wire format must serialize
// byte-identically across runs.
type Graph struct {
	nodes     map[string]*Node
	nodeOrder []string
	edges     []Edge
}

// New returns an empty Graph.
func New() *Graph {
	return &Graph{nodes: make(map[string]*Node)}
}

// EnsureNode inserts a node if absent. It never overwrites an existing
// node's IsContract flag — the first observation wins, because contract
// tagging may be skipped (SkipContractCheck) on later observations of the
// same address.
func (g *Graph) EnsureNode(address string, isContract bool) *Node {
	if n, ok := g.nodes[address]; ok {
		return n
	}
	n := &Node{Address: address, IsContract: isContract}
	g.nodes[address] = n
	g.nodeOrder = append(g.nodeOrder, address)
	return n
}

// HasNode reports whether address has already been observed.
func (g *Graph) HasNode(address string) bool {
	_, ok := g.nodes[address]
	return ok
}

// AppendEdge appends e to the ordered edge list. Callers are responsible for
// deduplication and budget checks before calling this — Graph itself does
// not enforce uniqueness, it only preserves insertion order.
func (g *Graph) AppendEdge(e Edge) {
	g.edges = append(g.edges, e)
}

// Nodes returns the node set. The returned map must not be mutated by callers.
func (g *Graph) Nodes() map[string]*Node {
	return g.nodes
}

// NodesOrdered returns every node in first-observation order, the order
// ToWire relies on for deterministic serialization.
func (g *Graph) NodesOrdered() []*Node {
	out := make([]*Node, 0, len(g.nodeOrder))
	for _, a := range g.nodeOrder {
		out = append(out, g.nodes[a])
	}
	return out
}

// Edges returns the edge list in insertion order. The returned slice must
// not be mutated by callers.
func (g *Graph) Edges() []Edge {
	return g.edges
}

// NodeCount and EdgeCount are convenience accessors used by progress events
// and summaries.
func (g *Graph) NodeCount() int { return len(g.nodes) }
func (g *Graph) EdgeCount() int { return len(g.edges) }
