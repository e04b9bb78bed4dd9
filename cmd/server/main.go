// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/uno/internal/cache"
	"github.com/jason-s-yu/uno/internal/config"
	"github.com/jason-s-yu/uno/internal/game"
	"github.com/jason-s-yu/uno/internal/handlers"
	"github.com/jason-s-yu/uno/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}

	logger, logCloser, err := logging.Setup(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		logrus.Fatalf("logging: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, logger)
	stop()
	if err != nil {
		logger.Errorf("%v", err)
	}
	logger.Info("Server stopped.")
	logCloser.Close()
	if err != nil {
		os.Exit(1)
	}
}

// run serves until ctx is cancelled or the listener fails. Every resource it
// opens is released before it returns, including queued action records.
func run(ctx context.Context, cfg config.Config, logger *logrus.Logger) error {
	// the action log is optional; the game runs the same without it
	var actionLog game.ActionLogger
	if cfg.RedisAddr != "" {
		rdb, err := cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			logger.Warnf("Action log disabled: %v", err)
		} else {
			defer rdb.Close()
			pub := cache.NewPublisher(rdb, cfg.QueueName, 0, logger)
			defer pub.Close()
			actionLog = pub
			logger.Infof("Publishing room actions to Redis %s, queue %s.", cfg.RedisAddr, cfg.QueueName)
		}
	}

	store := game.NewRoomStore(cfg.DefaultRoomID, game.DeckOptions{IncludeWilds: cfg.IncludeWilds})
	hub := handlers.NewHub(logger, cfg.SendQueueSize)
	actions := handlers.NewActionHandler(logger, store, hub, cfg.DefaultHandSize, actionLog)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handlers.NewRouter(logger, actions, cfg.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Running on %s (default room %q, wild cards: %v)", srv.Addr, cfg.DefaultRoomID, cfg.IncludeWilds)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server exited: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Shutdown signal received.")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}
	return nil
}
