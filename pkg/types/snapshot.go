package types

import "github.com/breachlab/breach-backend/internal/engine"

// CardRef is one card slot in a player's hand.
type CardRef struct {
	ID       int  `json:"id"`
	Selected bool `json:"selected"`
}

// NodeRef is one node slot in a player's target list.
type NodeRef struct {
	ID       int  `json:"id"`
	Selected bool `json:"selected"`
}

// PlayerState is the per-role state carried on the attackerState and
// defenderState channels. At most one card or one node is selected at a
// time within a submission phase.
type PlayerState struct {
	Cards          []CardRef `json:"cards"`
	Nodes          []NodeRef `json:"nodes"`
	UsedCardID     int       `json:"usedCardId,omitempty"`
	TargetNodeID   int       `json:"targetNodeId,omitempty"`
	ReshuffleCount int       `json:"reshuffleCount"`
}

// RoundSnapshot is one entry of the shared history channel: the topology and
// score captured for one round index. The history is append-only except for
// the in-place update of the latest entry during resolution.
type RoundSnapshot struct {
	Round        int             `json:"round"`
	Topology     engine.Topology `json:"topology"`
	StolenTokens int             `json:"stolenTokens"`
	IsCalculated bool            `json:"isCalculated"`
}
