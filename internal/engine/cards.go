package engine

// CardEffect is the static definition of one playing card. ApplicableNodes
// nil means the card may target any node. Exactly one of the capability
// fields is meaningful per card: StealTokens for attacks, AddDefense and
// IgnoreAttack for defensive plays.
type CardEffect struct {
	ID              int
	Name            string
	Role            Role
	ApplicableNodes []int
	StealTokens     int
	IgnoredDefenses int
	AddDefense      bool
	IgnoreAttack    bool
}

// TargetsNode reports whether playing the card requires choosing a node.
func (c CardEffect) TargetsNode() bool {
	return c.StealTokens > 0 || c.AddDefense || c.IgnoreAttack
}

// Applicable reports whether the card may be played against the given node.
func (c CardEffect) Applicable(nodeID int) bool {
	if c.ApplicableNodes == nil {
		return true
	}
	for _, id := range c.ApplicableNodes {
		if id == nodeID {
			return true
		}
	}
	return false
}

var CardCatalog = []CardEffect{
	// Attacker cards.
	{ID: 101, Name: "Phishing Campaign", Role: RoleAttacker, StealTokens: 1},
	{ID: 102, Name: "Credential Stuffing", Role: RoleAttacker, StealTokens: 1, IgnoredDefenses: 1},
	{ID: 103, Name: "SQL Injection", Role: RoleAttacker, StealTokens: 2, ApplicableNodes: []int{3, 5}},
	{ID: 104, Name: "Zero-Day Exploit", Role: RoleAttacker, StealTokens: 2, IgnoredDefenses: 1},
	{ID: 105, Name: "Ransomware Drop", Role: RoleAttacker, StealTokens: 3, ApplicableNodes: []int{4, 5}},
	{ID: 106, Name: "Insider Threat", Role: RoleAttacker, StealTokens: 2, IgnoredDefenses: 2, ApplicableNodes: []int{1, 2}},
	{ID: 107, Name: "Watering Hole", Role: RoleAttacker, StealTokens: 1, ApplicableNodes: []int{1, 3}},
	{ID: 108, Name: "Brute Force", Role: RoleAttacker, StealTokens: 2},

	// Defender cards.
	{ID: 201, Name: "Perimeter Firewall", Role: RoleDefender, AddDefense: true},
	{ID: 202, Name: "Intrusion Detection", Role: RoleDefender, AddDefense: true, ApplicableNodes: []int{3, 5, 6}},
	{ID: 203, Name: "Endpoint Hardening", Role: RoleDefender, AddDefense: true, ApplicableNodes: []int{1, 2, 4}},
	{ID: 204, Name: "Incident Response", Role: RoleDefender, IgnoreAttack: true},
	{ID: 205, Name: "Honeypot Redirect", Role: RoleDefender, IgnoreAttack: true},
	{ID: 206, Name: "Network Segmentation", Role: RoleDefender, AddDefense: true},
	{ID: 207, Name: "Patch Rollout", Role: RoleDefender, AddDefense: true},
	{ID: 208, Name: "Threat Hunting", Role: RoleDefender, IgnoreAttack: true},
}

func CardByID(id int) (CardEffect, bool) {
	for _, c := range CardCatalog {
		if c.ID == id {
			return c, true
		}
	}
	return CardEffect{}, false
}

// CardsFor returns the catalog slice for one role, in catalog order.
func CardsFor(role Role) []CardEffect {
	out := make([]CardEffect, 0, len(CardCatalog)/2)
	for _, c := range CardCatalog {
		if c.Role == role {
			out = append(out, c)
		}
	}
	return out
}
