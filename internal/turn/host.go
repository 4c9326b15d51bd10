package turn

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/breachlab/breach-backend/internal/codec"
	"github.com/breachlab/breach-backend/internal/engine"
	"github.com/breachlab/breach-backend/pkg/types"
)

// RoomView is what the host controller needs from a room. Both methods are
// only called from inside the room's actor loop, so no locking is required.
type RoomView interface {
	Code() string
	Roles() (attackerID, defenderID string)
	ChannelValue(name string) (string, bool)
	// PublishLocal stores, broadcasts, and schedules persistence like a
	// client publish, but never re-enters the host controller.
	PublishLocal(name, value string)
}

// Recorder receives durable per-round history entries and discrete action
// log rows. Calls are made off the actor goroutine and failures only log.
type Recorder interface {
	AppendRound(ctx context.Context, code string, round int, snapshot string) error
	LogAction(ctx context.Context, code, userID, action string) error
}

// Config bounds a game.
type Config struct {
	WinThreshold int // stolen tokens that end the game in the attacker's favor
	MaxRounds    int // rounds played before the defender wins by survival
}

func (c Config) withDefaults() Config {
	if c.WinThreshold == 0 {
		c.WinThreshold = 8
	}
	if c.MaxRounds == 0 {
		c.MaxRounds = 10
	}
	return c
}

// Host performs the round-level transitions on behalf of the host role (the
// first role assigned in the room). It holds no room state of its own; every
// decision reads the channel map through the RoomView.
type Host struct {
	cdc      *codec.Codec
	rec      Recorder
	log      *zap.Logger
	rng      *rand.Rand
	cfg      Config
	hostRole engine.Role
}

func NewHost(cdc *codec.Codec, rec Recorder, log *zap.Logger, rng *rand.Rand, cfg Config) *Host {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Host{cdc: cdc, rec: rec, log: log, rng: rng, cfg: cfg.withDefaults()}
}

// BindHostRole fixes the host authority to the first role assigned. Later
// assignments never move it; if the host slot empties mid-round the machine
// stalls until the same role is reoccupied.
func (h *Host) BindHostRole(role engine.Role) {
	if h.hostRole == "" {
		h.hostRole = role
	}
}

func (h *Host) HostRole() engine.Role { return h.hostRole }

// Step inspects the two phase channels and applies whichever barrier
// transition both players have reached, if any. It is called by the room
// after every client publish and role change.
func (h *Host) Step(rv RoomView) {
	if h.hostRole == "" {
		return
	}
	attackerID, defenderID := rv.Roles()
	if attackerID == "" || defenderID == "" {
		return
	}

	atk, ok := h.phase(rv, types.ChannelAttackerPhase)
	if !ok {
		return
	}
	def, ok := h.phase(rv, types.ChannelDefenderPhase)
	if !ok {
		return
	}

	switch {
	case atk == PhaseWaitGame && def == PhaseWaitGame:
		h.startGame(rv)
	case atk == PhaseWaitTurn && def == PhaseWaitTurn:
		h.resolveRound(rv)
	case atk == PhaseEndRound && def == PhaseEndRound:
		h.advanceRound(rv)
	}
}

// HandleReshuffle replaces one role's whole hand, bounded to one use per
// game. The player's phase does not change.
func (h *Host) HandleReshuffle(rv RoomView, role engine.Role, userID string) {
	channel := stateChannel(role)
	var st types.PlayerState
	if !h.getJSON(rv, channel, &st) {
		return
	}
	if err := Reshuffle(&st, role, h.rng); err != nil {
		h.log.Info("reshuffle rejected",
			zap.String("code", rv.Code()), zap.String("role", string(role)), zap.Error(err))
		return
	}
	h.putJSON(rv, channel, st)
	h.record(rv.Code(), func(ctx context.Context, rec Recorder) error {
		return rec.LogAction(ctx, rv.Code(), userID, "reshuffle")
	})
}

func (h *Host) startGame(rv RoomView) {
	h.putJSON(rv, types.ChannelAttackerState, NewPlayerState(engine.RoleAttacker, h.rng))
	h.putJSON(rv, types.ChannelDefenderState, NewPlayerState(engine.RoleDefender, h.rng))
	h.putJSON(rv, types.ChannelRound, 0)
	h.putJSON(rv, types.ChannelHistory, []types.RoundSnapshot{
		{Round: 0, Topology: engine.NewTopology()},
	})
	h.setPhases(rv, PhaseSelectCard)
}

func (h *Host) resolveRound(rv RoomView) {
	var history []types.RoundSnapshot
	if !h.getJSON(rv, types.ChannelHistory, &history) || len(history) == 0 {
		return
	}
	last := &history[len(history)-1]
	if last.IsCalculated {
		// Both phase channels can read WaitTurn again after a refresh
		// replay; the round is only ever resolved once.
		return
	}

	var atkState, defState types.PlayerState
	if !h.getJSON(rv, types.ChannelAttackerState, &atkState) ||
		!h.getJSON(rv, types.ChannelDefenderState, &defState) {
		return
	}

	res := engine.Resolve(
		engine.Action{CardID: atkState.UsedCardID, TargetNodeID: atkState.TargetNodeID},
		engine.Action{CardID: defState.UsedCardID, TargetNodeID: defState.TargetNodeID},
		last.Topology,
	)
	last.Topology = res.Topology
	last.StolenTokens = res.StolenTokens
	last.IsCalculated = true

	h.putJSON(rv, types.ChannelHistory, history)
	h.putJSON(rv, types.ChannelAttackerMessages, res.AttackerMessages)
	h.putJSON(rv, types.ChannelDefenderMessages, res.DefenderMessages)
	h.setPhases(rv, PhaseWaitResult)

	round := last.Round
	snap, err := json.Marshal(*last)
	if err == nil {
		h.record(rv.Code(), func(ctx context.Context, rec Recorder) error {
			return rec.AppendRound(ctx, rv.Code(), round, string(snap))
		})
	}
}

func (h *Host) advanceRound(rv RoomView) {
	var history []types.RoundSnapshot
	if !h.getJSON(rv, types.ChannelHistory, &history) || len(history) == 0 {
		return
	}
	last := history[len(history)-1]

	next := last.Round + 1
	if last.StolenTokens >= h.cfg.WinThreshold || next >= h.cfg.MaxRounds {
		h.setPhases(rv, PhaseEndGame)
		return
	}

	var atkState, defState types.PlayerState
	if !h.getJSON(rv, types.ChannelAttackerState, &atkState) ||
		!h.getJSON(rv, types.ChannelDefenderState, &defState) {
		return
	}
	ReplaceUsed(&atkState, engine.RoleAttacker, h.rng)
	ReplaceUsed(&defState, engine.RoleDefender, h.rng)
	ClearRound(&atkState)
	ClearRound(&defState)
	h.putJSON(rv, types.ChannelAttackerState, atkState)
	h.putJSON(rv, types.ChannelDefenderState, defState)

	history = append(history, types.RoundSnapshot{
		Round:        next,
		Topology:     last.Topology.Clone(),
		StolenTokens: last.StolenTokens,
	})
	h.putJSON(rv, types.ChannelRound, next)
	h.putJSON(rv, types.ChannelHistory, history)
	h.setPhases(rv, PhaseSelectCard)
}

func (h *Host) setPhases(rv RoomView, p Phase) {
	h.putJSON(rv, types.ChannelAttackerPhase, string(p))
	h.putJSON(rv, types.ChannelDefenderPhase, string(p))
}

func (h *Host) phase(rv RoomView, channel string) (Phase, bool) {
	var s string
	if !h.getJSON(rv, channel, &s) {
		return "", false
	}
	return ParsePhase(s)
}

func (h *Host) getJSON(rv RoomView, channel string, v any) bool {
	sealed, ok := rv.ChannelValue(channel)
	if !ok {
		return false
	}
	plain, err := h.cdc.Decrypt(sealed)
	if err != nil {
		h.log.Warn("undecryptable channel value",
			zap.String("code", rv.Code()), zap.String("channel", channel), zap.Error(err))
		return false
	}
	if err := json.Unmarshal([]byte(plain), v); err != nil {
		h.log.Warn("malformed channel value",
			zap.String("code", rv.Code()), zap.String("channel", channel), zap.Error(err))
		return false
	}
	return true
}

func (h *Host) putJSON(rv RoomView, channel string, v any) {
	plain, err := json.Marshal(v)
	if err != nil {
		h.log.Error("marshal channel value", zap.String("channel", channel), zap.Error(err))
		return
	}
	sealed, err := h.cdc.Encrypt(string(plain))
	if err != nil {
		h.log.Error("seal channel value", zap.String("channel", channel), zap.Error(err))
		return
	}
	rv.PublishLocal(channel, sealed)
}

func (h *Host) record(code string, fn func(context.Context, Recorder) error) {
	if h.rec == nil {
		return
	}
	rec := h.rec
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := fn(ctx, rec); err != nil {
			h.log.Warn("record game event", zap.String("code", code), zap.Error(err))
		}
	}()
}

func stateChannel(role engine.Role) string {
	if role == engine.RoleAttacker {
		return types.ChannelAttackerState
	}
	return types.ChannelDefenderState
}
