// Package store is the persistence collaborator: channel-state blobs keyed
// by game code, plus the durable game rows, per-round history entries, and
// the discrete user action log.
package store

import (
	"context"
	"errors"
)

// ErrNotFound reports a game code with no stored row.
var ErrNotFound = errors.New("game not found")

type Store interface {
	// LoadChannels and SaveChannels back room hydration and the debounced
	// flush. Failures are logged by callers and never crash the relay.
	LoadChannels(ctx context.Context, code string) (map[string]string, error)
	SaveChannels(ctx context.Context, code string, channels map[string]string) error

	CreateGame(ctx context.Context, code string) error
	JoinGame(ctx context.Context, code, userID, role string) error
	LeaveGame(ctx context.Context, code, userID string) error

	AppendRound(ctx context.Context, code string, round int, snapshot string) error
	LogAction(ctx context.Context, code, userID, action string) error
}
