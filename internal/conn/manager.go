// Package conn tracks live websocket connections by user id, stamps
// heartbeats, and reaps connections that stop answering pings.
package conn

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"
)

// Close codes used when the manager tears a connection down.
const (
	StatusReplaced         websocket.StatusCode = 4006
	StatusHeartbeatTimeout websocket.StatusCode = 4008
)

// Socket is the slice of *websocket.Conn the manager needs; the indirection
// keeps the reap sweep testable without live sockets.
type Socket interface {
	Close(code websocket.StatusCode, reason string) error
}

type entry struct {
	socket        Socket
	lastHeartbeat time.Time
}

// Manager owns the sockets-by-user table. The reap sweep iterates the table
// while connection handlers mutate it, so every access holds the mutex.
type Manager struct {
	mu        sync.Mutex
	conns     map[string]*entry
	threshold time.Duration
	interval  time.Duration
	log       *zap.Logger
	now       func() time.Time // test seam
}

func NewManager(log *zap.Logger, interval, threshold time.Duration) *Manager {
	return &Manager{
		conns:     make(map[string]*entry),
		threshold: threshold,
		interval:  interval,
		log:       log,
		now:       time.Now,
	}
}

// Start runs the reap sweep until ctx is cancelled.
func (m *Manager) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Reap(m.now())
			}
		}
	}()
}

// Register tracks a socket for a user. A prior socket for the same user is
// silently replaced, last-writer-wins, with no handoff.
func (m *Manager) Register(userID string, socket Socket) {
	m.mu.Lock()
	old := m.conns[userID]
	m.conns[userID] = &entry{socket: socket, lastHeartbeat: m.now()}
	m.mu.Unlock()

	if old != nil && old.socket != socket {
		_ = old.socket.Close(StatusReplaced, "connection replaced")
	}
}

// Unregister forgets a socket, but only if it is still the current one for
// the user; a reconnect that already replaced it is left alone.
func (m *Manager) Unregister(userID string, socket Socket) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.conns[userID]; ok && cur.socket == socket {
		delete(m.conns, userID)
	}
}

// Heartbeat stamps the user's connection as alive.
func (m *Manager) Heartbeat(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.conns[userID]; ok {
		cur.lastHeartbeat = m.now()
	}
}

// IsAlive reports whether the user's connection heartbeated within threshold
// of now.
func (m *Manager) IsAlive(userID string, now time.Time, threshold time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.conns[userID]
	return ok && now.Sub(cur.lastHeartbeat) <= threshold
}

// Reap force-closes every connection whose last heartbeat is older than the
// threshold. The owning room observes the close through its read loop and
// clears the role slot.
func (m *Manager) Reap(now time.Time) {
	m.mu.Lock()
	var stale []*entry
	for userID, cur := range m.conns {
		if now.Sub(cur.lastHeartbeat) > m.threshold {
			stale = append(stale, cur)
			delete(m.conns, userID)
			m.log.Info("reaping stale connection", zap.String("user", userID))
		}
	}
	m.mu.Unlock()

	for _, cur := range stale {
		_ = cur.socket.Close(StatusHeartbeatTimeout, "heartbeat timeout")
	}
}

// NumConns returns the current table size (test helper).
func (m *Manager) NumConns() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.conns)
}
