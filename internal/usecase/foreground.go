package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

var ErrForegroundStopped = errors.New("foreground loop is not running")

// Foreground runs the interactive cycle. The match manager is touched only from Run's
// goroutine: periodic ticks and collaborator commands are serialized through one select.
type Foreground struct {
	logger  *slog.Logger
	manager *MatchManager
	tick    time.Duration

	commands chan func(*MatchManager)
	stopped  chan struct{}
}

func NewForeground(logger *slog.Logger, manager *MatchManager, tick time.Duration) *Foreground {
	return &Foreground{
		logger:  logger.With("component", "foreground"),
		manager: manager,
		tick:    tick,

		commands: make(chan func(*MatchManager)),
		stopped:  make(chan struct{}),
	}
}

// Run - polls the inbound queue once per tick and executes commands until ctx ends.
func (that *Foreground) Run(ctx context.Context) error {
	defer close(that.stopped)

	ticker := time.NewTicker(that.tick)
	defer ticker.Stop()

	that.logger.Info("foreground loop started", "tick", that.tick.String())

	for {
		select {
		case <-ctx.Done():
			that.logger.Info("foreground loop stopped")
			return nil
		case command := <-that.commands:
			command(that.manager)
		case <-ticker.C:
			that.manager.Tick()
		}
	}
}

// Do - runs fn on the foreground goroutine and waits for it to finish.
func (that *Foreground) Do(ctx context.Context, fn func(manager *MatchManager)) error {
	done := make(chan struct{})
	command := func(manager *MatchManager) {
		defer close(done)
		fn(manager)
	}

	select {
	case that.commands <- command:
	case <-that.stopped:
		return ErrForegroundStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
