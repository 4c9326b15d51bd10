package store

import (
	"context"
	"sync"
)

// Memory is the in-memory Store used by tests and secretless dev runs.
type Memory struct {
	mu       sync.Mutex
	games    map[string]*memGame
	rounds   map[string][]GameRound
	actions  map[string][]GameAction
	saveHook func(code string) // test seam, called after each SaveChannels
}

type memGame struct {
	attackerID string
	defenderID string
	channels   map[string]string
}

func NewMemory() *Memory {
	return &Memory{
		games:   make(map[string]*memGame),
		rounds:  make(map[string][]GameRound),
		actions: make(map[string][]GameAction),
	}
}

// OnSave registers a callback invoked after every SaveChannels. Tests use it
// to observe debounced flushes.
func (m *Memory) OnSave(fn func(code string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveHook = fn
}

func (m *Memory) LoadChannels(_ context.Context, code string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	game, ok := m.games[code]
	if !ok {
		return nil, ErrNotFound
	}
	out := make(map[string]string, len(game.channels))
	for k, v := range game.channels {
		out[k] = v
	}
	return out, nil
}

func (m *Memory) SaveChannels(_ context.Context, code string, channels map[string]string) error {
	m.mu.Lock()
	game, ok := m.games[code]
	if !ok {
		game = &memGame{}
		m.games[code] = game
	}
	game.channels = make(map[string]string, len(channels))
	for k, v := range channels {
		game.channels[k] = v
	}
	hook := m.saveHook
	m.mu.Unlock()
	if hook != nil {
		hook(code)
	}
	return nil
}

func (m *Memory) CreateGame(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[code]; !ok {
		m.games[code] = &memGame{}
	}
	return nil
}

func (m *Memory) JoinGame(_ context.Context, code, userID, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	game, ok := m.games[code]
	if !ok {
		return ErrNotFound
	}
	if role == "defender" {
		game.defenderID = userID
	} else {
		game.attackerID = userID
	}
	return nil
}

func (m *Memory) LeaveGame(_ context.Context, code, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	game, ok := m.games[code]
	if !ok {
		return ErrNotFound
	}
	if game.attackerID == userID {
		game.attackerID = ""
	}
	if game.defenderID == userID {
		game.defenderID = ""
	}
	return nil
}

func (m *Memory) AppendRound(_ context.Context, code string, round int, snapshot string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rounds[code] = append(m.rounds[code], GameRound{GameCode: code, Round: round, Snapshot: snapshot})
	return nil
}

func (m *Memory) LogAction(_ context.Context, code, userID, action string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actions[code] = append(m.actions[code], GameAction{GameCode: code, UserID: userID, Action: action})
	return nil
}

// Rounds returns the recorded history rows for a code (test helper).
func (m *Memory) Rounds(code string) []GameRound {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]GameRound, len(m.rounds[code]))
	copy(out, m.rounds[code])
	return out
}

// Actions returns the recorded action rows for a code (test helper).
func (m *Memory) Actions(code string) []GameAction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]GameAction, len(m.actions[code]))
	copy(out, m.actions[code])
	return out
}
