package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/breachlab/breach-backend/internal/codec"
	"github.com/breachlab/breach-backend/internal/conn"
	"github.com/breachlab/breach-backend/internal/hub"
	"github.com/breachlab/breach-backend/internal/store"
	"github.com/breachlab/breach-backend/pkg/types"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cdc, err := codec.New("ws-test-secret")
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	h := hub.NewHub(ctx, hub.Deps{Store: store.NewMemory(), Codec: cdc, Log: zap.NewNop()})
	mgr := conn.NewManager(zap.NewNop(), 30*time.Second, 60*time.Second)

	srv := httptest.NewServer(Handler(h, mgr, zap.NewNop(), time.Minute))
	t.Cleanup(srv.Close)
	return srv
}

// newHeartbeatServer shrinks the ping and reap timings so a client that
// stops answering pings is reaped within the test's patience.
func newHeartbeatServer(t *testing.T, ping, reapEvery, threshold time.Duration) *httptest.Server {
	t.Helper()
	cdc, err := codec.New("ws-test-secret")
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	h := hub.NewHub(ctx, hub.Deps{Store: store.NewMemory(), Codec: cdc, Log: zap.NewNop()})
	mgr := conn.NewManager(zap.NewNop(), reapEvery, threshold)
	mgr.Start(ctx)

	srv := httptest.NewServer(Handler(h, mgr, zap.NewNop(), ping))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server, query string) string {
	return strings.Replace(srv.URL, "http", "ws", 1) + "/?" + query
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	c, _, err := websocket.Dial(ctx, wsURL(srv, query), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return c
}

// readUntil drains frames until one for the named channel arrives.
func readUntil(t *testing.T, c *websocket.Conn, channel string) types.WireMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	for {
		_, data, err := c.Read(ctx)
		if err != nil {
			t.Fatalf("read while waiting for %q: %v", channel, err)
		}
		var msg types.WireMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("bad frame: %v", err)
		}
		if msg.State == channel {
			return msg
		}
	}
}

func expectClose(t *testing.T, c *websocket.Conn, want websocket.StatusCode) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_, _, err := c.Read(ctx)
	if err == nil {
		t.Fatal("expected the connection to be closed")
	}
	if got := websocket.CloseStatus(err); got != want {
		t.Fatalf("close status %d, want %d", got, want)
	}
}

func TestRejectsBadJoinParams(t *testing.T) {
	srv := newTestServer(t)

	cases := []struct {
		name  string
		query string
		want  websocket.StatusCode
	}{
		{"no code", "user=u1&role=attacker", StatusMissingCode},
		{"no user", "code=ABC123&role=attacker", StatusMissingUser},
		{"no role", "code=ABC123&user=u1", StatusMissingRole},
		{"bad role", "code=ABC123&user=u1&role=spectator", StatusInvalidRole},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := dial(t, srv, tc.query)
			expectClose(t, c, tc.want)
		})
	}
}

func TestJoinReceivesPresence(t *testing.T) {
	srv := newTestServer(t)

	c := dial(t, srv, "code=ABC123&user=u1&role=attacker")
	defer c.Close(websocket.StatusNormalClosure, "bye")

	msg := readUntil(t, c, types.ChannelPlayers)
	var players types.Players
	if err := json.Unmarshal([]byte(msg.Data), &players); err != nil {
		t.Fatalf("players payload: %v", err)
	}
	if players.Attacker != "u1" || players.Defender != "" {
		t.Fatalf("unexpected presence: %+v", players)
	}
}

func TestRoleConflictClosesNewClaimant(t *testing.T) {
	srv := newTestServer(t)

	first := dial(t, srv, "code=ABC123&user=u1&role=attacker")
	defer first.Close(websocket.StatusNormalClosure, "bye")
	readUntil(t, first, types.ChannelPlayers)

	second := dial(t, srv, "code=ABC123&user=u2&role=attacker")
	expectClose(t, second, StatusRoleConflict)
}

func TestDialAfterHubShutdownCloses(t *testing.T) {
	cdc, err := codec.New("ws-test-secret")
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	h := hub.NewHub(context.Background(), hub.Deps{Store: store.NewMemory(), Codec: cdc, Log: zap.NewNop()})
	h.Inbox() <- hub.ShutdownHub{}
	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("hub never shut down")
	}
	mgr := conn.NewManager(zap.NewNop(), 30*time.Second, 60*time.Second)
	srv := httptest.NewServer(Handler(h, mgr, zap.NewNop(), time.Minute))
	t.Cleanup(srv.Close)

	// The handler must not park on the dead hub's inbox.
	c := dial(t, srv, "code=ABC123&user=u1&role=attacker")
	expectClose(t, c, websocket.StatusTryAgainLater)
}

func TestReapedConnectionClearsPresence(t *testing.T) {
	srv := newHeartbeatServer(t, 50*time.Millisecond, 50*time.Millisecond, 250*time.Millisecond)

	attacker := dial(t, srv, "code=ABC123&user=u1&role=attacker")
	readUntil(t, attacker, types.ChannelPlayers)

	defender := dial(t, srv, "code=ABC123&user=u2&role=defender")
	defer defender.Close(websocket.StatusNormalClosure, "bye")
	for {
		msg := readUntil(t, defender, types.ChannelPlayers)
		var players types.Players
		if err := json.Unmarshal([]byte(msg.Data), &players); err != nil {
			t.Fatalf("players payload: %v", err)
		}
		if players.Attacker == "u1" && players.Defender == "u2" {
			break
		}
	}

	// The attacker stops reading, so it stops answering pings. The reap
	// sweep closes it, the relay clears the slot, and the survivor sees
	// the updated presence. The defender keeps reading here, which keeps
	// its own heartbeat fresh.
	start := time.Now()
	for {
		msg := readUntil(t, defender, types.ChannelPlayers)
		var players types.Players
		if err := json.Unmarshal([]byte(msg.Data), &players); err != nil {
			t.Fatalf("players payload: %v", err)
		}
		if players.Attacker == "" && players.Defender == "u2" {
			break
		}
		if time.Since(start) > 5*time.Second {
			t.Fatalf("attacker slot never cleared: %+v", players)
		}
	}

	// The reaped side observes the heartbeat close code once it drains
	// the frames buffered before the close.
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	for {
		_, _, err := attacker.Read(ctx)
		if err == nil {
			continue
		}
		if got := websocket.CloseStatus(err); got != conn.StatusHeartbeatTimeout {
			t.Fatalf("close status %d, want %d", got, conn.StatusHeartbeatTimeout)
		}
		break
	}
}

func TestMalformedFrameIsDroppedNotFatal(t *testing.T) {
	srv := newTestServer(t)

	c := dial(t, srv, "code=ABC123&user=u1&role=attacker")
	defer c.Close(websocket.StatusNormalClosure, "bye")
	readUntil(t, c, types.ChannelPlayers)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := c.Write(ctx, websocket.MessageText, []byte("not json")); err != nil {
		t.Fatalf("write garbage: %v", err)
	}

	// The connection survives and a valid publish still round-trips.
	valid, _ := json.Marshal(types.WireMessage{State: "chat", Data: "sealed"})
	if err := c.Write(ctx, websocket.MessageText, valid); err != nil {
		t.Fatalf("write valid: %v", err)
	}
	msg := readUntil(t, c, "chat")
	if msg.Data != "sealed" {
		t.Fatalf("broadcast payload %q", msg.Data)
	}
}
