// Package ws accepts the persistent game connections and bridges them to
// the room actors.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/breachlab/breach-backend/internal/conn"
	"github.com/breachlab/breach-backend/internal/engine"
	"github.com/breachlab/breach-backend/internal/hub"
	"github.com/breachlab/breach-backend/internal/room"
	"github.com/breachlab/breach-backend/pkg/types"
)

// Distinct close codes per join failure, so clients can tell them apart.
const (
	StatusMissingCode  websocket.StatusCode = 4000
	StatusMissingUser  websocket.StatusCode = 4001
	StatusMissingRole  websocket.StatusCode = 4002
	StatusInvalidRole  websocket.StatusCode = 4003
	StatusRoleConflict websocket.StatusCode = 4005
)

const writeTimeout = 3 * time.Second

// Handler upgrades /ws?code=&user=&role= connections and runs the relay
// loop for each.
func Handler(h *hub.Hub, mgr *conn.Manager, log *zap.Logger, pingInterval time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}

		code := r.URL.Query().Get("code")
		if code == "" {
			_ = c.Close(StatusMissingCode, "missing code")
			return
		}
		userID := r.URL.Query().Get("user")
		if userID == "" {
			_ = c.Close(StatusMissingUser, "missing user")
			return
		}
		roleParam := r.URL.Query().Get("role")
		if roleParam == "" {
			_ = c.Close(StatusMissingRole, "missing role")
			return
		}
		role, ok := engine.ParseRole(roleParam)
		if !ok {
			_ = c.Close(StatusInvalidRole, "invalid role")
			return
		}

		reply := make(chan *room.Room, 1)
		select {
		case h.Inbox() <- hub.EnsureRoom{Code: code, Reply: reply}:
		case <-h.Done():
			_ = c.Close(websocket.StatusTryAgainLater, "server shutting down")
			return
		}
		var rm *room.Room
		select {
		case rm = <-reply:
		case <-h.Done():
			_ = c.Close(websocket.StatusTryAgainLater, "server shutting down")
			return
		}

		out := make(chan types.WireMessage, 64)
		joinErr := make(chan error, 1)
		select {
		case rm.Inbox() <- room.Join{UserID: userID, Role: role, Outbox: out, Reply: joinErr}:
		case <-rm.Done():
			_ = c.Close(websocket.StatusTryAgainLater, "room closed")
			return
		}
		select {
		case err := <-joinErr:
			if err != nil {
				_ = c.Close(StatusRoleConflict, "role already taken")
				return
			}
		case <-rm.Done():
			_ = c.Close(websocket.StatusTryAgainLater, "room closed")
			return
		}
		defer func() {
			select {
			case rm.Inbox() <- room.Leave{UserID: userID, Outbox: out}:
			case <-rm.Done():
			}
		}()

		mgr.Register(userID, c)
		defer mgr.Unregister(userID, c)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer: drain the room outbox until the room closes it.
		go func() {
			defer cancel()
			for msg := range out {
				payload, err := json.Marshal(msg)
				if err != nil {
					continue
				}
				wctx, wcancel := context.WithTimeout(ctx, writeTimeout)
				err = c.Write(wctx, websocket.MessageText, payload)
				wcancel()
				if err != nil {
					return
				}
			}
		}()

		// Pinger: each answered ping stamps the heartbeat. The reap sweep
		// closes connections that stop answering.
		go func() {
			ticker := time.NewTicker(pingInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					pctx, pcancel := context.WithTimeout(ctx, writeTimeout)
					err := c.Ping(pctx)
					pcancel()
					if err == nil {
						mgr.Heartbeat(userID)
					}
				}
			}
		}()

		// Reader.
		for {
			_, data, err := c.Read(ctx)
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					log.Debug("connection closed",
						zap.String("code", code), zap.String("user", userID), zap.Error(err))
				}
				return
			}

			var msg types.WireMessage
			if err := json.Unmarshal(data, &msg); err != nil || msg.State == "" {
				// Malformed frame: drop the message, keep the connection.
				continue
			}
			select {
			case rm.Inbox() <- room.Publish{UserID: userID, Channel: msg.State, Data: msg.Data}:
			case <-rm.Done():
				return
			}
		}
	}
}
