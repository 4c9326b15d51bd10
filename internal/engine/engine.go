// Package engine resolves one round of play: two submitted actions plus a
// topology snapshot in, a new snapshot plus per-side messages out. Everything
// in this package is pure; the same inputs always produce the same outputs.
package engine

type Role string

const (
	RoleAttacker Role = "attacker"
	RoleDefender Role = "defender"
)

func ParseRole(s string) (Role, bool) {
	switch s {
	case "attacker":
		return RoleAttacker, true
	case "defender":
		return RoleDefender, true
	default:
		return "", false
	}
}

// Action is one side's submission for a round: the card played and, when the
// card targets a node, the chosen node.
type Action struct {
	CardID       int
	TargetNodeID int
}
