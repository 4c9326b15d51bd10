package httpapi

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/breachlab/breach-backend/internal/engine"
	"github.com/breachlab/breach-backend/internal/store"
)

// GenerateCode returns a random 6-character game code.
func GenerateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, 6)
	for i := 0; i < 6; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

// CreateGame mints a fresh code, regenerating on the rare collision, and
// creates the durable game row.
func CreateGame(st store.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var code string
		for {
			c, err := GenerateCode()
			if err != nil {
				http.Error(w, "failed to generate code", http.StatusInternalServerError)
				return
			}
			if _, err := st.LoadChannels(r.Context(), c); errors.Is(err, store.ErrNotFound) {
				code = c
				break
			}
			log.Info("collision on code, regenerating", zap.String("code", c))
		}

		if err := st.CreateGame(r.Context(), code); err != nil {
			log.Error("create game", zap.Error(err))
			http.Error(w, "failed to create game", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(struct {
			Code string `json:"code"`
		}{Code: code})
	}
}

type joinRequest struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

// JoinGame records a user on a game row. A missing userId gets a freshly
// minted uuid, echoed back so the client can present it on the websocket.
func JoinGame(st store.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")

		var req joinRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		role, ok := engine.ParseRole(req.Role)
		if !ok {
			http.Error(w, "invalid role", http.StatusBadRequest)
			return
		}
		if req.UserID == "" {
			req.UserID = uuid.NewString()
		}

		if err := st.JoinGame(r.Context(), code, req.UserID, string(role)); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				http.Error(w, "game not found", http.StatusNotFound)
				return
			}
			log.Error("join game", zap.String("code", code), zap.Error(err))
			http.Error(w, "failed to join game", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(struct {
			Code   string `json:"code"`
			UserID string `json:"userId"`
			Role   string `json:"role"`
		}{Code: code, UserID: req.UserID, Role: string(role)})
	}
}

type leaveRequest struct {
	UserID string `json:"userId"`
}

// LeaveGame clears a user from a game row.
func LeaveGame(st store.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")

		var req leaveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}

		if err := st.LeaveGame(r.Context(), code, req.UserID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				http.Error(w, "game not found", http.StatusNotFound)
				return
			}
			log.Error("leave game", zap.String("code", code), zap.Error(err))
			http.Error(w, "failed to leave game", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
