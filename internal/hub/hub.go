// Package hub is the rooms-by-code registry. A single actor goroutine owns
// the map, so concurrent first-access for one code resolves to exactly one
// room creation.
package hub

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/breachlab/breach-backend/internal/codec"
	"github.com/breachlab/breach-backend/internal/room"
	"github.com/breachlab/breach-backend/internal/store"
	"github.com/breachlab/breach-backend/internal/turn"
)

type HubMsg interface{ isHubMsg() }

// EnsureRoom returns the live room for a code, creating it (hydrated from
// the store when prior state exists) if needed.
type EnsureRoom struct {
	Code  string
	Reply chan *room.Room
}

// GetRoom returns the live room for a code, or nil.
type GetRoom struct {
	Code  string
	Reply chan *room.Room
}

type RemoveRoom struct {
	Code string
}

type ShutdownHub struct{}

func (EnsureRoom) isHubMsg()  {}
func (GetRoom) isHubMsg()     {}
func (RemoveRoom) isHubMsg()  {}
func (ShutdownHub) isHubMsg() {}

// Deps is everything a new room needs wired in.
type Deps struct {
	Store          store.Store
	Codec          *codec.Codec
	Log            *zap.Logger
	PersistWindow  time.Duration
	TurnConfig     turn.Config
	Rand           *rand.Rand // test seam; nil means time-seeded per room
	HydrateTimeout time.Duration
}

type Hub struct {
	inbox  chan HubMsg
	rooms  map[string]*room.Room
	deps   Deps
	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(parent context.Context, deps Deps) *Hub {
	ctx, cancel := context.WithCancel(parent)
	if deps.PersistWindow == 0 {
		deps.PersistWindow = time.Second
	}
	if deps.HydrateTimeout == 0 {
		deps.HydrateTimeout = 3 * time.Second
	}
	h := &Hub{
		inbox:  make(chan HubMsg, 64),
		rooms:  make(map[string]*room.Room),
		deps:   deps,
		ctx:    ctx,
		cancel: cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Done is closed once the hub has shut down and will no longer answer
// inbox messages; senders select on it to avoid blocking forever.
func (h *Hub) Done() <-chan struct{} { return h.ctx.Done() }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case EnsureRoom:
				if r := h.rooms[msg.Code]; r != nil {
					msg.Reply <- r
					break
				}
				r := h.create(msg.Code)
				h.rooms[msg.Code] = r
				msg.Reply <- r

			case GetRoom:
				msg.Reply <- h.rooms[msg.Code] // may be nil

			case RemoveRoom:
				delete(h.rooms, msg.Code)

			case ShutdownHub:
				for _, r := range h.rooms {
					r.Inbox() <- room.Shutdown{}
				}
				clear(h.rooms)
				h.cancel()
			}
		}
	}
}

func (h *Hub) create(code string) *room.Room {
	hydrated := h.hydrate(code)
	host := turn.NewHost(h.deps.Codec, h.deps.Store, h.deps.Log, h.deps.Rand, h.deps.TurnConfig)
	onEmpty := func(code string) {
		select {
		case h.inbox <- RemoveRoom{Code: code}:
		case <-h.ctx.Done():
		}
	}
	return room.New(h.ctx, code, hydrated, host, h.deps.Store, h.deps.Log, h.deps.PersistWindow, onEmpty)
}

// hydrate loads prior channel state, if any. Load failure is non-fatal and
// yields an empty room.
func (h *Hub) hydrate(code string) map[string]string {
	if h.deps.Store == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(h.ctx, h.deps.HydrateTimeout)
	defer cancel()
	channels, err := h.deps.Store.LoadChannels(ctx, code)
	if err != nil {
		if err != store.ErrNotFound {
			h.deps.Log.Warn("hydrate room", zap.String("code", code), zap.Error(err))
		}
		return nil
	}
	return channels
}
