// Package turn drives the lockstep round machine. Each client walks its own
// per-round phase automaton and publishes the phase it is in; the host
// controller in this package watches the two phase channels and performs the
// barrier transitions that need both players to agree.
package turn

// Phase is one position in the per-player turn automaton.
type Phase string

const (
	PhaseWaitGame   Phase = "WaitGame"
	PhaseSelectCard Phase = "SelectCard"
	PhaseSelectNode Phase = "SelectNode"
	PhaseWaitTurn   Phase = "WaitTurn"
	PhaseWaitResult Phase = "WaitResult"
	PhaseEndRound   Phase = "EndRound"
	PhaseEndGame    Phase = "EndGame"
)

func ParsePhase(s string) (Phase, bool) {
	switch Phase(s) {
	case PhaseWaitGame, PhaseSelectCard, PhaseSelectNode, PhaseWaitTurn,
		PhaseWaitResult, PhaseEndRound, PhaseEndGame:
		return Phase(s), true
	default:
		return "", false
	}
}
