package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/breachlab/breach-backend/internal/conn"
	"github.com/breachlab/breach-backend/internal/hub"
	"github.com/breachlab/breach-backend/internal/store"
	"github.com/breachlab/breach-backend/internal/ws"
)

func SetupRoutes(h *hub.Hub, mgr *conn.Manager, st store.Store, log *zap.Logger, pingInterval time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Post("/games", CreateGame(st, log))
	r.Post("/games/{code}/join", JoinGame(st, log))
	r.Post("/games/{code}/leave", LeaveGame(st, log))
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(h, mgr, log, pingInterval))
	return r
}
