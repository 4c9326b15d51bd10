package turn

import (
	"errors"
	"math/rand"

	"github.com/breachlab/breach-backend/internal/engine"
	"github.com/breachlab/breach-backend/pkg/types"
)

// HandSize is how many cards a player holds at any time.
const HandSize = 5

// ErrReshuffleUsed rejects a second reshuffle in the same game.
var ErrReshuffleUsed = errors.New("reshuffle already used")

// NewPlayerState deals a fresh hand and the full node list for one role.
func NewPlayerState(role engine.Role, rng *rand.Rand) types.PlayerState {
	st := types.PlayerState{
		Cards: DealHand(role, rng),
		Nodes: make([]types.NodeRef, 0, len(engine.NodeCatalog)),
	}
	for _, n := range engine.NodeCatalog {
		st.Nodes = append(st.Nodes, types.NodeRef{ID: n.ID})
	}
	return st
}

// DealHand draws HandSize distinct cards from the role's catalog.
func DealHand(role engine.Role, rng *rand.Rand) []types.CardRef {
	catalog := engine.CardsFor(role)
	hand := make([]types.CardRef, 0, HandSize)
	for _, i := range rng.Perm(len(catalog))[:HandSize] {
		hand = append(hand, types.CardRef{ID: catalog[i].ID})
	}
	return hand
}

// ReplaceUsed swaps the played card out of the hand for a fresh draw that is
// not already held. When the catalog has no unheld card left, the played card
// simply stays.
func ReplaceUsed(st *types.PlayerState, role engine.Role, rng *rand.Rand) {
	if st.UsedCardID == 0 {
		return
	}
	for i, c := range st.Cards {
		if c.ID != st.UsedCardID {
			continue
		}
		if id, ok := drawUnheld(st.Cards, role, rng); ok {
			st.Cards[i] = types.CardRef{ID: id}
		}
		return
	}
}

// Reshuffle replaces the whole hand, once per game.
func Reshuffle(st *types.PlayerState, role engine.Role, rng *rand.Rand) error {
	if st.ReshuffleCount >= 1 {
		return ErrReshuffleUsed
	}
	st.Cards = DealHand(role, rng)
	st.ReshuffleCount++
	return nil
}

// ClearRound resets per-round action fields after a round advances.
func ClearRound(st *types.PlayerState) {
	st.UsedCardID = 0
	st.TargetNodeID = 0
	for i := range st.Cards {
		st.Cards[i].Selected = false
	}
	for i := range st.Nodes {
		st.Nodes[i].Selected = false
	}
}

func drawUnheld(hand []types.CardRef, role engine.Role, rng *rand.Rand) (int, bool) {
	held := make(map[int]bool, len(hand))
	for _, c := range hand {
		held[c.ID] = true
	}
	pool := []int{}
	for _, c := range engine.CardsFor(role) {
		if !held[c.ID] {
			pool = append(pool, c.ID)
		}
	}
	if len(pool) == 0 {
		return 0, false
	}
	return pool[rng.Intn(len(pool))], true
}
