package engine

// Defense is one installed defense on a node. Unrevealed defenses exist in
// the defender's view only until an attack runs into them.
type Defense struct {
	ID       int  `json:"id"`
	Revealed bool `json:"revealed"`
}

// NodeState is the mutable per-game overlay for one catalog node.
type NodeState struct {
	ID          int       `json:"id"`
	StolenToken int       `json:"stolenToken"`
	Revealed    bool      `json:"revealed"`
	Defenses    []Defense `json:"defenses"`
}

// Topology is the per-game overlay across the whole node catalog. The graph
// itself (names, capacities, adjacency) lives in NodeCatalog and is never
// structurally mutated.
type Topology struct {
	Nodes []NodeState `json:"nodes"`
}

// MaxDefenses caps how many defenses one node can hold.
const MaxDefenses = 3

// NewTopology builds a fresh overlay: no tokens stolen, nothing revealed,
// starting defenses seeded from each node's security tier minus one.
func NewTopology() Topology {
	t := Topology{Nodes: make([]NodeState, 0, len(NodeCatalog))}
	defenseID := 1
	for _, info := range NodeCatalog {
		node := NodeState{ID: info.ID, Defenses: []Defense{}}
		for i := 0; i < info.Tier-1; i++ {
			node.Defenses = append(node.Defenses, Defense{ID: defenseID})
			defenseID++
		}
		t.Nodes = append(t.Nodes, node)
	}
	return t
}

// Clone deep-copies the overlay so resolution never aliases its input.
func (t Topology) Clone() Topology {
	out := Topology{Nodes: make([]NodeState, len(t.Nodes))}
	for i, n := range t.Nodes {
		cp := n
		cp.Defenses = make([]Defense, len(n.Defenses))
		copy(cp.Defenses, n.Defenses)
		out.Nodes[i] = cp
	}
	return out
}

// Node returns a pointer into the overlay for in-place mutation.
func (t *Topology) Node(id int) *NodeState {
	for i := range t.Nodes {
		if t.Nodes[i].ID == id {
			return &t.Nodes[i]
		}
	}
	return nil
}

// TotalStolen sums stolen tokens across all nodes.
func (t Topology) TotalStolen() int {
	total := 0
	for _, n := range t.Nodes {
		total += n.StolenToken
	}
	return total
}

func (t Topology) nextDefenseID() int {
	next := 1
	for _, n := range t.Nodes {
		for _, d := range n.Defenses {
			if d.ID >= next {
				next = d.ID + 1
			}
		}
	}
	return next
}
