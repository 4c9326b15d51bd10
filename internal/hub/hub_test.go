package hub

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/breachlab/breach-backend/internal/codec"
	"github.com/breachlab/breach-backend/internal/room"
	"github.com/breachlab/breach-backend/internal/store"
)

func newTestHub(t *testing.T, mem *store.Memory) *Hub {
	t.Helper()
	cdc, err := codec.New("hub-test-secret")
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return NewHub(ctx, Deps{Store: mem, Codec: cdc, Log: zap.NewNop()})
}

func ensure(t *testing.T, h *Hub, code string) *room.Room {
	t.Helper()
	reply := make(chan *room.Room, 1)
	h.Inbox() <- EnsureRoom{Code: code, Reply: reply}
	select {
	case r := <-reply:
		return r
	case <-time.After(time.Second):
		t.Fatalf("timed out ensuring room %s", code)
		return nil // unreachable
	}
}

func TestEnsureRoomIsIdempotent(t *testing.T) {
	h := newTestHub(t, store.NewMemory())

	first := ensure(t, h, "AAAAAA")
	second := ensure(t, h, "AAAAAA")
	if first != second {
		t.Fatal("two rooms created for one code")
	}
}

func TestGetRoomReturnsNilForUnknownCode(t *testing.T) {
	h := newTestHub(t, store.NewMemory())

	reply := make(chan *room.Room, 1)
	h.Inbox() <- GetRoom{Code: "NOPE00", Reply: reply}
	if r := <-reply; r != nil {
		t.Fatalf("expected nil, got %v", r)
	}
}

func TestEnsureRoomHydratesFromStore(t *testing.T) {
	mem := store.NewMemory()
	if err := mem.SaveChannels(context.Background(), "SAVED1", map[string]string{"chat": "old"}); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	h := newTestHub(t, mem)

	r := ensure(t, h, "SAVED1")
	reply := make(chan room.View, 1)
	r.Inbox() <- room.GetView{Reply: reply}
	select {
	case view := <-reply:
		if view.Channels["chat"] != "old" {
			t.Fatalf("room not hydrated: %+v", view.Channels)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out reading view")
	}
}

func TestRemoveRoomForgetsCode(t *testing.T) {
	h := newTestHub(t, store.NewMemory())
	first := ensure(t, h, "BBBBBB")

	h.Inbox() <- RemoveRoom{Code: "BBBBBB"}
	second := ensure(t, h, "BBBBBB")
	if first == second {
		t.Fatal("removed room still registered")
	}
}
