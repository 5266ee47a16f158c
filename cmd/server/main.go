package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/tomasstrnad1997/sweeper/config"
	"github.com/tomasstrnad1997/sweeper/db"
	"github.com/tomasstrnad1997/sweeper/server"
	"github.com/tomasstrnad1997/sweeper/sessions"
)

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger, err := newLogger(cfg.Debug)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	var store sessions.SessionStore = sessions.NewMemoryStore()
	if cfg.DBPath != "" {
		sqlStore, err := db.OpenStore(cfg.DBPath, logger.Named("db"))
		if err != nil {
			logger.Fatal("Failed to open database", zap.String("path", cfg.DBPath), zap.Error(err))
		}
		defer sqlStore.Close()
		if err := sqlStore.InitializeTables(); err != nil {
			logger.Fatal("Failed to create tables", zap.Error(err))
		}
		store = sqlStore
		logger.Info("using sqlite store", zap.String("path", cfg.DBPath))
	}

	service := sessions.NewService(store, logger.Named("sessions"))
	srv := server.CreateServer(cfg.Name, service, logger.Named("server"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errs := make(chan error, 1)
	go func() {
		errs <- srv.ListenAndServe(cfg.Addr)
	}()

	select {
	case err := <-errs:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", zap.Error(err))
		}
	}
}
