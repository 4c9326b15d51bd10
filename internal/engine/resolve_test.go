package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bareTopology returns an overlay with no defenses anywhere, so tests can
// seed exactly the defenses they need.
func bareTopology() Topology {
	t := NewTopology()
	for i := range t.Nodes {
		t.Nodes[i].Defenses = []Defense{}
	}
	return t
}

func TestStealAgainstUndefendedNode(t *testing.T) {
	topo := bareTopology()

	// Brute Force: steal 2, no defenses ignored. Workstation holds 2 tokens.
	res := Resolve(Action{CardID: 108, TargetNodeID: 1}, Action{CardID: 201, TargetNodeID: 5}, topo)

	node := res.Topology.Node(1)
	require.NotNil(t, node)
	assert.Equal(t, 2, node.StolenToken)
	assert.True(t, node.Revealed)
	assert.Equal(t, 2, res.StolenTokens)
	require.Len(t, res.AttackerMessages, 1)
	assert.Contains(t, res.AttackerMessages[0], "You stole 2 token(s) from Workstation")
	assert.Contains(t, res.DefenderMessages[0], "You lost 2 token(s) from Workstation")

	// Input snapshot is untouched.
	assert.Equal(t, 0, topo.Node(1).StolenToken)
}

func TestStealBlockedByDefense(t *testing.T) {
	topo := bareTopology()
	topo.Node(1).Defenses = []Defense{{ID: 7}}

	res := Resolve(Action{CardID: 108, TargetNodeID: 1}, Action{CardID: 201, TargetNodeID: 5}, topo)

	node := res.Topology.Node(1)
	assert.Equal(t, 0, node.StolenToken)
	assert.Empty(t, node.Defenses, "blocking defense is consumed")
	assert.Contains(t, res.AttackerMessages[0], "blocked")
	assert.Contains(t, res.DefenderMessages[0], "blocked")
}

func TestBlockConsumesOldestRemainingDefense(t *testing.T) {
	topo := bareTopology()
	topo.Node(1).Defenses = []Defense{{ID: 1}, {ID: 2}, {ID: 3}}

	// Credential Stuffing ignores one defense; the next one blocks and is
	// consumed.
	res := Resolve(Action{CardID: 102, TargetNodeID: 1}, Action{CardID: 201, TargetNodeID: 5}, topo)

	node := res.Topology.Node(1)
	require.Len(t, node.Defenses, 2)
	assert.Equal(t, []int{1, 3}, []int{node.Defenses[0].ID, node.Defenses[1].ID})
	assert.Equal(t, 0, node.StolenToken)
	assert.Contains(t, res.AttackerMessages[0], "slipped past 1 defense(s)")
}

func TestStealIgnoringAllDefenses(t *testing.T) {
	topo := bareTopology()
	topo.Node(2).Defenses = []Defense{{ID: 1}, {ID: 2}}

	// Insider Threat: steal 2, ignore 2, applicable to Mail Server.
	res := Resolve(Action{CardID: 106, TargetNodeID: 2}, Action{CardID: 201, TargetNodeID: 5}, topo)

	node := res.Topology.Node(2)
	assert.Equal(t, 2, node.StolenToken)
	assert.Len(t, node.Defenses, 2, "ignored defenses are bypassed, not removed")
	assert.Contains(t, res.AttackerMessages[0], "ignored 2 defense(s)")
}

func TestStealNeverExceedsCapacity(t *testing.T) {
	topo := bareTopology()
	topo.Node(1).StolenToken = 1 // Workstation capacity 2, one token left

	res := Resolve(Action{CardID: 108, TargetNodeID: 1}, Action{CardID: 201, TargetNodeID: 5}, topo)

	assert.Equal(t, 2, res.Topology.Node(1).StolenToken)
	assert.Contains(t, res.AttackerMessages[0], "Only 1 token(s) remained")
}

func TestStealFromEmptiedNode(t *testing.T) {
	topo := bareTopology()
	topo.Node(1).StolenToken = 2

	res := Resolve(Action{CardID: 101, TargetNodeID: 1}, Action{CardID: 201, TargetNodeID: 5}, topo)

	assert.Equal(t, 2, res.Topology.Node(1).StolenToken)
	assert.Contains(t, res.AttackerMessages[0], "No tokens remain")
	assert.Contains(t, res.DefenderMessages[0], "found no tokens")
}

func TestIgnoreAttackNegatesSameNodeSteal(t *testing.T) {
	topo := bareTopology()

	// Incident Response on the attacked node fully negates the steal.
	res := Resolve(Action{CardID: 105, TargetNodeID: 5}, Action{CardID: 204, TargetNodeID: 5}, topo)

	node := res.Topology.Node(5)
	assert.Equal(t, 0, node.StolenToken)
	assert.False(t, node.Revealed, "negated attack never touches the node")
	assert.Contains(t, res.AttackerMessages[0], "intercepted and ignored")
	assert.Contains(t, res.DefenderMessages[0], "You intercepted the attack")
}

func TestIgnoreAttackOnWrongNode(t *testing.T) {
	topo := bareTopology()

	res := Resolve(Action{CardID: 101, TargetNodeID: 1}, Action{CardID: 204, TargetNodeID: 5}, topo)

	assert.Equal(t, 1, res.Topology.Node(1).StolenToken, "attack lands unhindered")
	require.Len(t, res.DefenderMessages, 2)
	assert.Contains(t, res.DefenderMessages[1], "Nothing to ignore on Database")
}

func TestAddDefense(t *testing.T) {
	topo := bareTopology()

	res := Resolve(Action{CardID: 101, TargetNodeID: 1}, Action{CardID: 202, TargetNodeID: 5}, topo)

	node := res.Topology.Node(5)
	require.Len(t, node.Defenses, 1)
	assert.False(t, node.Defenses[0].Revealed, "new defenses start unrevealed")
	assert.Contains(t, res.DefenderMessages[1], "installed a new defense on Database")
}

func TestAddDefenseRespectsCap(t *testing.T) {
	topo := bareTopology()
	topo.Node(5).Defenses = []Defense{{ID: 1}, {ID: 2}, {ID: 3}}

	res := Resolve(Action{CardID: 101, TargetNodeID: 1}, Action{CardID: 202, TargetNodeID: 5}, topo)

	assert.Len(t, res.Topology.Node(5).Defenses, MaxDefenses)
	assert.Contains(t, res.DefenderMessages[1], "already at maximum")
}

func TestDefenseAddedAfterStealDoesNotBlockIt(t *testing.T) {
	topo := bareTopology()

	// Both sides target the Database: the steal applies before the new
	// defense is installed.
	res := Resolve(Action{CardID: 103, TargetNodeID: 5}, Action{CardID: 202, TargetNodeID: 5}, topo)

	node := res.Topology.Node(5)
	assert.Equal(t, 2, node.StolenToken)
	assert.Len(t, node.Defenses, 1)
}

func TestResolveIsDeterministic(t *testing.T) {
	topo := NewTopology()
	atk := Action{CardID: 104, TargetNodeID: 5}
	def := Action{CardID: 206, TargetNodeID: 6}

	first, err := json.Marshal(Resolve(atk, def, topo))
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := json.Marshal(Resolve(atk, def, topo))
		require.NoError(t, err)
		assert.Equal(t, string(first), string(again))
	}
}

func TestNewTopologySeedsDefensesByTier(t *testing.T) {
	topo := NewTopology()
	assert.Empty(t, topo.Node(1).Defenses)  // tier 1
	assert.Len(t, topo.Node(3).Defenses, 1) // tier 2
	assert.Len(t, topo.Node(5).Defenses, 2) // tier 3
	assert.Equal(t, 0, topo.TotalStolen())
}
