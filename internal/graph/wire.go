package graph

// WireNode and WireEdge mirror the canonical JSON shape a downstream writer
// (out of scope here) would serialize, per the wire contract this module
// treats as data-model output, not CLI/file-writer glue — ported from
// io/schemas.py's graph_to_dict.
type WireNode struct {
	Address    string `json:"address"`
	IsContract bool   `json:"is_contract"`
}

type WireEdge struct {
	From         string  `json:"from"`
	To           string  `json:"to"`
	TxHash       string  `json:"tx_hash"`
	Timestamp    int64   `json:"timestamp"`
	AssetType    string  `json:"asset_type"`
	TokenAddress *string `json:"token_address"`
	Symbol       *string `json:"symbol"`
	Amount       string  `json:"amount"`
	USDValue     *string `json:"usd_value"`
}

type Wire struct {
	Nodes []WireNode `json:"nodes"`
	Edges []WireEdge `json:"edges"`
}

// ToWire renders the graph into the canonical JSON-ready shape. Decimal
// fields serialize as fixed-point strings to preserve precision across the
// boundary, per the wire contract.
func (g *Graph) ToWire() Wire {
	w := Wire{
		Nodes: make([]WireNode, 0, len(g.nodes)),
		Edges: make([]WireEdge, 0, len(g.edges)),
	}
	for _, n := range g.NodesOrdered() {
		w.Nodes = append(w.Nodes, WireNode{Address: n.Address, IsContract: n.IsContract})
	}
	for _, e := range g.edges {
		we := WireEdge{
			From:      e.From,
			To:        e.To,
			TxHash:    e.TxHash,
			Timestamp: e.Timestamp,
			AssetType: string(e.AssetType),
			Amount:    e.Amount.String(),
		}
		if e.TokenAddress != "" {
			ta := e.TokenAddress
			we.TokenAddress = &ta
		}
		if e.Symbol != "" {
			sym := e.Symbol
			we.Symbol = &sym
		}
		if e.USDValue != nil {
			usd := e.USDValue.String()
			we.USDValue = &usd
		}
		w.Edges = append(w.Edges, we)
	}
	return w
}
