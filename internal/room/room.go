// Package room implements the per-game session: player slots, the named
// channel map, broadcast, and the debounced persistence writes. Each room is
// one goroutine consuming a typed-message inbox, so all mutation of the
// slots and channel map is serialized without locks.
package room

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/breachlab/breach-backend/internal/engine"
	"github.com/breachlab/breach-backend/internal/turn"
	"github.com/breachlab/breach-backend/pkg/types"
)

// ErrRoleTaken rejects a join for a role slot already held by another user.
var ErrRoleTaken = errors.New("role already taken")

// Saver persists a room's channel map. Save calls happen off the actor
// goroutine; failures only log and the next debounce cycle retries.
type Saver interface {
	SaveChannels(ctx context.Context, code string, channels map[string]string) error
}

type Msg interface{ isRoomMsg() }

// Join claims a role slot and registers the client's outbox. Reply receives
// nil on success or ErrRoleTaken.
type Join struct {
	UserID string
	Role   engine.Role
	Outbox chan types.WireMessage
	Reply  chan error
}

func (Join) isRoomMsg() {}

// Leave clears whatever role slot the user holds and drops their outbox.
// When Outbox is set and a different outbox has since been registered for
// the user, the leave is a no-op, so a superseded connection's teardown
// cannot evict the reconnect that replaced it. A user whose outbox was
// already dropped (a slow client evicted mid-broadcast) still falls through
// to role clearing.
type Leave struct {
	UserID string
	Outbox chan types.WireMessage
}

func (Leave) isRoomMsg() {}

// Publish is one inbound wire message from a client.
type Publish struct {
	UserID  string
	Channel string
	Data    string
}

func (Publish) isRoomMsg() {}

// GetView reflects internal state without data races (test and debug only).
type GetView struct{ Reply chan View }

func (GetView) isRoomMsg() {}

type Shutdown struct{}

func (Shutdown) isRoomMsg() {}

type persistFire struct{}

func (persistFire) isRoomMsg() {}

type View struct {
	AttackerID string
	DefenderID string
	Channels   map[string]string
	NumClients int
}

type Room struct {
	code     string
	inbox    chan Msg
	channels map[string]string

	attackerID string
	defenderID string
	outboxes   map[string]chan types.WireMessage

	host  *turn.Host
	saver Saver
	log   *zap.Logger

	persistWindow time.Duration
	persistTimer  *time.Timer

	// onEmpty tells the registry to forget this room once both slots clear.
	onEmpty func(code string)

	closed bool
	ctx    context.Context
	cancel context.CancelFunc
}

// New starts a room actor. hydrated may be nil (fresh room) or a channel map
// loaded from the store.
func New(parent context.Context, code string, hydrated map[string]string, host *turn.Host,
	saver Saver, log *zap.Logger, persistWindow time.Duration, onEmpty func(code string)) *Room {

	ctx, cancel := context.WithCancel(parent)
	channels := make(map[string]string)
	for k, v := range hydrated {
		channels[k] = v
	}
	r := &Room{
		code:          code,
		inbox:         make(chan Msg, 64),
		channels:      channels,
		outboxes:      make(map[string]chan types.WireMessage),
		host:          host,
		saver:         saver,
		log:           log.With(zap.String("code", code)),
		persistWindow: persistWindow,
		onEmpty:       onEmpty,
		ctx:           ctx,
		cancel:        cancel,
	}
	go r.loop()
	return r
}

func (r *Room) Inbox() chan<- Msg { return r.inbox }

// Done closes once the room has shut down; senders use it to avoid blocking
// on a dead inbox.
func (r *Room) Done() <-chan struct{} { return r.ctx.Done() }

func (r *Room) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Join:
				msg.Reply <- r.join(msg)

			case Leave:
				r.leave(msg)

			case Publish:
				r.publish(msg)

			case persistFire:
				r.persistTimer = nil
				r.flush()

			case GetView:
				channels := make(map[string]string, len(r.channels))
				for k, v := range r.channels {
					channels[k] = v
				}
				msg.Reply <- View{
					AttackerID: r.attackerID,
					DefenderID: r.defenderID,
					Channels:   channels,
					NumClients: len(r.outboxes),
				}

			case Shutdown:
				r.shutdown()
				return
			}
		}
	}
}

func (r *Room) join(msg Join) error {
	switch msg.Role {
	case engine.RoleAttacker:
		if r.attackerID != "" && r.attackerID != msg.UserID {
			return ErrRoleTaken
		}
		if r.defenderID == msg.UserID {
			// One user cannot hold both sides of the game.
			return ErrRoleTaken
		}
		r.attackerID = msg.UserID
	case engine.RoleDefender:
		if r.defenderID != "" && r.defenderID != msg.UserID {
			return ErrRoleTaken
		}
		if r.attackerID == msg.UserID {
			return ErrRoleTaken
		}
		r.defenderID = msg.UserID
	default:
		return ErrRoleTaken
	}

	// A reconnect replaces the prior outbox for the same user id.
	if old, ok := r.outboxes[msg.UserID]; ok && old != msg.Outbox {
		close(old)
	}
	r.outboxes[msg.UserID] = msg.Outbox

	r.host.BindHostRole(msg.Role)
	r.replayAll(msg.UserID)
	r.broadcastPlayers()
	r.host.Step(r)
	return nil
}

func (r *Room) leave(msg Leave) {
	userID := msg.UserID
	cur, ok := r.outboxes[userID]
	if msg.Outbox != nil && ok && cur != msg.Outbox {
		return // superseded connection; the replacement owns the slot now
	}
	if ok {
		close(cur)
		delete(r.outboxes, userID)
	}
	changed := false
	if r.attackerID == userID {
		r.attackerID = ""
		changed = true
	}
	if r.defenderID == userID {
		r.defenderID = ""
		changed = true
	}
	if !changed {
		return
	}
	if r.attackerID == "" && r.defenderID == "" {
		r.destroy()
		return
	}
	r.broadcastPlayers()
}

// publish applies one client update. Channels are last-write-wins with no
// version token: two near-simultaneous writes from opposite roles to the
// same channel can shadow each other, matching the protocol's contract.
func (r *Room) publish(msg Publish) {
	switch msg.Channel {
	case types.ChannelRefresh:
		// Control signal: replay every stored channel to the requester only.
		r.replayAll(msg.UserID)
		return

	case types.ChannelReshuffle:
		role, ok := r.roleOf(msg.UserID)
		if !ok {
			return
		}
		r.host.HandleReshuffle(r, role, msg.UserID)
		return
	}

	r.channels[msg.Channel] = msg.Data
	r.broadcast(types.WireMessage{State: msg.Channel, Data: msg.Data})
	r.schedulePersist()
	r.host.Step(r)
}

// RoomView implementation for the host controller. Only invoked from the
// actor goroutine.

func (r *Room) Code() string { return r.code }

func (r *Room) Roles() (string, string) { return r.attackerID, r.defenderID }

func (r *Room) ChannelValue(name string) (string, bool) {
	v, ok := r.channels[name]
	return v, ok
}

func (r *Room) PublishLocal(name, value string) {
	r.channels[name] = value
	r.broadcast(types.WireMessage{State: name, Data: value})
	r.schedulePersist()
}

func (r *Room) roleOf(userID string) (engine.Role, bool) {
	switch userID {
	case "":
		return "", false
	case r.attackerID:
		return engine.RoleAttacker, true
	case r.defenderID:
		return engine.RoleDefender, true
	default:
		return "", false
	}
}

func (r *Room) replayAll(userID string) {
	out, ok := r.outboxes[userID]
	if !ok {
		return
	}
	for name, value := range r.channels {
		select {
		case out <- types.WireMessage{State: name, Data: value}:
		default:
			return // slow client; the regular broadcast path will drop it
		}
	}
}

func (r *Room) broadcastPlayers() {
	payload, err := json.Marshal(types.Players{Attacker: r.attackerID, Defender: r.defenderID})
	if err != nil {
		return
	}
	r.channels[types.ChannelPlayers] = string(payload)
	r.broadcast(types.WireMessage{State: types.ChannelPlayers, Data: string(payload)})
	r.schedulePersist()
}

func (r *Room) broadcast(msg types.WireMessage) {
	for id, out := range r.outboxes {
		select {
		case out <- msg:
		default:
			// Client is slow or gone; treat like a disconnect.
			close(out)
			delete(r.outboxes, id)
			r.log.Warn("dropped slow client", zap.String("user", id))
		}
	}
}

// schedulePersist restarts the debounce timer. Only the timer that survives
// the window uninterrupted fires, and the flush reads the channel map as it
// is at fire time.
func (r *Room) schedulePersist() {
	if r.persistTimer != nil {
		r.persistTimer.Stop()
	}
	r.persistTimer = time.AfterFunc(r.persistWindow, func() {
		select {
		case r.inbox <- persistFire{}:
		case <-r.ctx.Done():
		}
	})
}

func (r *Room) flush() {
	if r.saver == nil || len(r.channels) == 0 {
		return
	}
	snapshot := make(map[string]string, len(r.channels))
	for k, v := range r.channels {
		snapshot[k] = v
	}
	code, saver, log := r.code, r.saver, r.log
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := saver.SaveChannels(ctx, code, snapshot); err != nil {
			log.Warn("persist room state", zap.Error(err))
		}
	}()
}

func (r *Room) destroy() {
	r.log.Info("room empty, destroying")
	if r.onEmpty != nil {
		r.onEmpty(r.code)
	}
	r.shutdown()
}

func (r *Room) shutdown() {
	if r.closed {
		return
	}
	r.closed = true
	if r.persistTimer != nil {
		r.persistTimer.Stop()
		r.persistTimer = nil
	}
	r.flush() // best-effort final snapshot
	for id, out := range r.outboxes {
		close(out)
		delete(r.outboxes, id)
	}
	r.cancel()
}
