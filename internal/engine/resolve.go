package engine

import "fmt"

// Result is the outcome of resolving one round.
type Result struct {
	AttackerMessages []string `json:"attackerMessages"`
	DefenderMessages []string `json:"defenderMessages"`
	StolenTokens     int      `json:"stolenTokens"`
	Topology         Topology `json:"topology"`
}

// Resolve applies both submitted actions to a topology snapshot. The
// attacker's effect is applied fully before the defender's; within one side
// the handler order is steal, then add-defense, then ignore-attack. Resolve
// never mutates its input and contains no randomness: identical inputs yield
// identical results.
func Resolve(attacker, defender Action, topo Topology) Result {
	res := Result{
		AttackerMessages: []string{},
		DefenderMessages: []string{},
		Topology:         topo.Clone(),
	}

	atkCard, atkOK := CardByID(attacker.CardID)
	defCard, defOK := CardByID(defender.CardID)

	if atkOK {
		resolveSteal(&res, atkCard, attacker, defCard, defender)
	}
	if defOK {
		resolveAddDefense(&res, defCard, defender)
		resolveIgnore(&res, defCard, defender, atkCard, attacker)
	}

	res.StolenTokens = res.Topology.TotalStolen()
	return res
}

func resolveSteal(res *Result, card CardEffect, action Action, defCard CardEffect, defAction Action) {
	if card.StealTokens == 0 {
		return
	}
	node := res.Topology.Node(action.TargetNodeID)
	if node == nil {
		return
	}
	name := nodeName(node.ID)

	// A same-node ignore-attack fully negates the steal before it touches
	// the node.
	if defCard.IgnoreAttack && defAction.TargetNodeID == action.TargetNodeID {
		res.AttackerMessages = append(res.AttackerMessages,
			fmt.Sprintf("Your attack on %s was intercepted and ignored.", name))
		res.DefenderMessages = append(res.DefenderMessages,
			fmt.Sprintf("You intercepted the attack on %s.", name))
		return
	}

	node.Revealed = true
	info, _ := NodeByID(node.ID)
	currentTokens := info.Tokens - node.StolenToken
	toSteal := min(currentTokens, card.StealTokens)
	remaining := max(0, len(node.Defenses)-card.IgnoredDefenses)

	if remaining > 0 {
		// Blocked: the first defense past the ignored prefix is consumed.
		consumed := card.IgnoredDefenses
		for i := 0; i <= consumed; i++ {
			node.Defenses[i].Revealed = true
		}
		node.Defenses = append(node.Defenses[:consumed], node.Defenses[consumed+1:]...)

		if card.IgnoredDefenses > 0 {
			res.AttackerMessages = append(res.AttackerMessages,
				fmt.Sprintf("You slipped past %d defense(s) on %s, but another blocked the attack.", card.IgnoredDefenses, name))
		} else {
			res.AttackerMessages = append(res.AttackerMessages,
				fmt.Sprintf("Your attack on %s was blocked by a defense.", name))
		}
		res.DefenderMessages = append(res.DefenderMessages,
			fmt.Sprintf("A defense on %s blocked the attack and was consumed.", name))
		return
	}

	if toSteal == 0 {
		res.AttackerMessages = append(res.AttackerMessages,
			fmt.Sprintf("No tokens remain to steal on %s.", name))
		res.DefenderMessages = append(res.DefenderMessages,
			fmt.Sprintf("An attack hit %s but found no tokens.", name))
		return
	}

	node.StolenToken += toSteal
	switch {
	case card.IgnoredDefenses > 0:
		res.AttackerMessages = append(res.AttackerMessages,
			fmt.Sprintf("You ignored %d defense(s) and stole %d token(s) from %s.", card.IgnoredDefenses, toSteal, name))
	case toSteal < card.StealTokens:
		res.AttackerMessages = append(res.AttackerMessages,
			fmt.Sprintf("Only %d token(s) remained on %s; you stole them all.", toSteal, name))
	default:
		res.AttackerMessages = append(res.AttackerMessages,
			fmt.Sprintf("You stole %d token(s) from %s.", toSteal, name))
	}
	res.DefenderMessages = append(res.DefenderMessages,
		fmt.Sprintf("You lost %d token(s) from %s.", toSteal, name))
}

func resolveAddDefense(res *Result, card CardEffect, action Action) {
	if !card.AddDefense {
		return
	}
	node := res.Topology.Node(action.TargetNodeID)
	if node == nil {
		return
	}
	name := nodeName(node.ID)

	if len(node.Defenses) >= MaxDefenses {
		res.DefenderMessages = append(res.DefenderMessages,
			fmt.Sprintf("Defenses on %s are already at maximum.", name))
		return
	}
	node.Defenses = append(node.Defenses, Defense{ID: res.Topology.nextDefenseID()})
	res.DefenderMessages = append(res.DefenderMessages,
		fmt.Sprintf("You installed a new defense on %s.", name))
}

func resolveIgnore(res *Result, card CardEffect, action Action, atkCard CardEffect, atkAction Action) {
	if !card.IgnoreAttack {
		return
	}
	// The same-node case was already settled during the steal handler.
	if atkCard.StealTokens > 0 && atkAction.TargetNodeID == action.TargetNodeID {
		return
	}
	res.DefenderMessages = append(res.DefenderMessages,
		fmt.Sprintf("Nothing to ignore on %s: no attack targeted it.", nodeName(action.TargetNodeID)))
}
