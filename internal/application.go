package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rocketscienceinc/tictactoe-peer/internal/config"
	"github.com/rocketscienceinc/tictactoe-peer/internal/entity"
	"github.com/rocketscienceinc/tictactoe-peer/internal/queue"
	"github.com/rocketscienceinc/tictactoe-peer/internal/repository"
	"github.com/rocketscienceinc/tictactoe-peer/internal/repository/storage"
	"github.com/rocketscienceinc/tictactoe-peer/internal/telemetry"
	"github.com/rocketscienceinc/tictactoe-peer/internal/usecase"
	"github.com/rocketscienceinc/tictactoe-peer/transport/peer"
	"github.com/rocketscienceinc/tictactoe-peer/transport/rest"
)

const telemetryFlushTimeout = 5 * time.Second

var (
	ErrAddrNotFound        = errors.New("redis address string is empty")
	ErrInvalidTickInterval = errors.New("tick interval must be positive")
)

// RunApp - runs one peer: the session worker, the foreground loop and the HTTP API.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	role, err := entity.ParseRole(conf.Peer.Role)
	if err != nil {
		return fmt.Errorf("invalid peer role: %w", err)
	}

	if conf.Peer.TickInterval <= 0 {
		return ErrInvalidTickInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		select {
		case sig := <-sigs:
			log.Info("Received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	shutdownTelemetry, err := telemetry.Setup(ctx, conf.Telemetry)
	if err != nil {
		return fmt.Errorf("could not set up telemetry: %w", err)
	}

	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), telemetryFlushTimeout)
		defer flushCancel()

		if err := shutdownTelemetry(flushCtx); err != nil {
			log.Error("could not flush telemetry", "error", err)
		}
	}()

	var workers sync.WaitGroup
	defer workers.Wait()
	defer cancel()

	inbound := queue.New[entity.Move]()
	outbound := queue.New[entity.Move]()

	// left nil when redis is disabled so the manager skips recording
	var history interface{ Push(record entity.MatchRecord) }

	if conf.Redis.Enabled {
		redisAddr := conf.Redis.GetRedisAddr()
		if redisAddr == "" {
			return ErrAddrNotFound
		}

		redisStorage, err := storage.New(ctx, redisAddr)
		if err != nil {
			return fmt.Errorf("could not connect to redis storage: %w", err)
		}

		records := queue.New[entity.MatchRecord]()
		history = records
		recorder := usecase.NewHistoryRecorder(logger, records, repository.NewMatchRepository(redisStorage))

		workers.Add(1)
		go func() {
			defer workers.Done()
			defer func() {
				if err := redisStorage.Close(); err != nil {
					log.Error("could not close redis storage", "error", err)
				}
			}()

			_ = recorder.Run(ctx)
		}()
	}

	session := peer.New(logger, peer.Config{
		Role:         role,
		Addr:         conf.Peer.Addr,
		MaxFrameSize: conf.Peer.MaxFrameSize,
	}, inbound, outbound)

	manager := usecase.NewMatchManager(logger, role, inbound, outbound, history)
	foreground := usecase.NewForeground(logger, manager, conf.Peer.TickInterval)

	// a failed session ends networking only; the match stays viewable
	workers.Add(1)
	go func() {
		defer workers.Done()

		log.Info("Starting peer session", "role", role.String(), "addr", conf.Peer.Addr)
		if sessionErr := session.Run(ctx); sessionErr != nil && !errors.Is(sessionErr, context.Canceled) {
			log.Error("peer session ended", "error", sessionErr)
		}
	}()

	workers.Add(1)
	go func() {
		defer workers.Done()
		_ = foreground.Run(ctx)
	}()

	// run HTTP server
	httpErrCh := make(chan error, 1)
	workers.Add(1)
	go func() {
		defer workers.Done()

		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		if httpErr := rest.Start(ctx, conf.HTTPPort, rest.NewHandler(logger, foreground, session)); httpErr != nil {
			log.Error("HTTP server error", "error", httpErr)
			httpErrCh <- httpErr
		}
	}()

	select {
	case err = <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}
