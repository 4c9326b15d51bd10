package engine

// NodeInfo is static reference data for one node in the network: name, token
// capacity, security tier, and adjacency. The catalog is never mutated;
// per-game node state lives in the Topology overlay.
type NodeInfo struct {
	ID       int
	Name     string
	Tokens   int
	Tier     int
	Adjacent []int
}

var NodeCatalog = []NodeInfo{
	{ID: 1, Name: "Workstation", Tokens: 2, Tier: 1, Adjacent: []int{2, 3}},
	{ID: 2, Name: "Mail Server", Tokens: 3, Tier: 1, Adjacent: []int{1, 4}},
	{ID: 3, Name: "Web Server", Tokens: 3, Tier: 2, Adjacent: []int{1, 4}},
	{ID: 4, Name: "File Server", Tokens: 4, Tier: 2, Adjacent: []int{2, 3, 5}},
	{ID: 5, Name: "Database", Tokens: 5, Tier: 3, Adjacent: []int{4, 6}},
	{ID: 6, Name: "Domain Controller", Tokens: 4, Tier: 3, Adjacent: []int{5}},
}

func NodeByID(id int) (NodeInfo, bool) {
	for _, n := range NodeCatalog {
		if n.ID == id {
			return n, true
		}
	}
	return NodeInfo{}, false
}

func nodeName(id int) string {
	if n, ok := NodeByID(id); ok {
		return n.Name
	}
	return "unknown node"
}
