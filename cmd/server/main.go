package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/breachlab/breach-backend/internal/codec"
	"github.com/breachlab/breach-backend/internal/config"
	"github.com/breachlab/breach-backend/internal/conn"
	"github.com/breachlab/breach-backend/internal/httpapi"
	"github.com/breachlab/breach-backend/internal/hub"
	"github.com/breachlab/breach-backend/internal/store"
	"github.com/breachlab/breach-backend/internal/turn"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(log *zap.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var st store.Store
	if cfg.DatabaseURL != "" {
		pg, err := store.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		st = pg
	} else {
		log.Warn("DATABASE_URL not set, using in-memory store")
		st = store.NewMemory()
	}

	cdc, err := codec.New(cfg.SharedSecret)
	if err != nil {
		return err
	}

	h := hub.NewHub(ctx, hub.Deps{
		Store:         st,
		Codec:         cdc,
		Log:           log,
		PersistWindow: cfg.PersistDebounce,
		TurnConfig:    turn.Config{WinThreshold: cfg.WinThreshold, MaxRounds: cfg.MaxRounds},
	})

	mgr := conn.NewManager(log, cfg.ReapInterval, cfg.HeartbeatThreshold)
	mgr.Start(ctx)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: httpapi.SetupRoutes(h, mgr, st, log, cfg.PingInterval),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		h.Inbox() <- hub.ShutdownHub{}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
