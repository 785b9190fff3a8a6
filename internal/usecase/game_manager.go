package usecase

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/tictactoe-peer/internal/entity"
	"github.com/rocketscienceinc/tictactoe-peer/internal/tictactoe"
)

type moveSource interface {
	TryPop() (entity.Move, bool)
}

type moveSink interface {
	Push(move entity.Move)
}

type recordSink interface {
	Push(record entity.MatchRecord)
}

// MatchManager is the foreground side of a match. It owns the current game and is driven by a
// single goroutine; the session worker is reached only through the inbound and outbound queues.
type MatchManager struct {
	logger *slog.Logger

	role     entity.Role
	inbound  moveSource
	outbound moveSink
	history  recordSink

	matchID string
	game    *tictactoe.Game

	now func() time.Time
}

// NewMatchManager - creates the manager with a fresh game in Waiting. history may be nil.
func NewMatchManager(logger *slog.Logger, role entity.Role, inbound moveSource, outbound moveSink, history recordSink) *MatchManager {
	manager := &MatchManager{
		logger: logger.With("component", "match"),

		role:     role,
		inbound:  inbound,
		outbound: outbound,
		history:  history,

		now: time.Now,
	}

	manager.newGame()

	return manager
}

// ApplyLocalMove - validates and applies this peer's move, then queues it for the peer.
// A nil error means the move was accepted; a rejected move leaves everything untouched.
func (that *MatchManager) ApplyLocalMove(col, row int) error {
	log := that.logger.With("method", "ApplyLocalMove")

	move := entity.Move{Col: col, Row: row}
	if err := that.game.ApplyLocalMove(move); err != nil {
		log.Debug("move rejected", "move", move.String(), "error", err)
		return fmt.Errorf("failed make turn: %w", err)
	}

	that.outbound.Push(move)
	that.afterMove(log, move)

	return nil
}

// PollRemoteEvent - takes at most one item from the inbound queue without blocking.
func (that *MatchManager) PollRemoteEvent() (entity.Move, bool) {
	return that.inbound.TryPop()
}

// Tick - one foreground cycle. The inbound queue is only read while waiting for the peer or
// when it is the opponent's turn, and then at most one item is taken.
func (that *MatchManager) Tick() {
	status := that.game.Status()

	opponentsTurn := status.IsPlaying() && that.game.Turn() != that.game.Me()
	if !status.IsWaiting() && !opponentsTurn {
		return
	}

	move, ok := that.PollRemoteEvent()
	if !ok {
		return
	}

	log := that.logger.With("method", "Tick")

	if move.IsPeerReady() {
		if that.game.Start() {
			log.Info("opponent ready, match started", "match_id", that.matchID, "mark", that.game.Me().String())
			that.record()
		}
		return
	}

	if err := that.game.ApplyRemoteMove(move); err != nil {
		log.Error("dropped remote move", "move", move.String(), "error", err)
		return
	}

	that.afterMove(log, move)
}

// CurrentSnapshot - a copy of the board, turn and status for display.
func (that *MatchManager) CurrentSnapshot() entity.Snapshot {
	return that.game.Snapshot()
}

// Restart - discards the current game for a fresh one in Waiting. The peer is not told.
func (that *MatchManager) Restart() {
	previous := that.matchID

	that.newGame()

	that.logger.Info("match restarted", "previous_match_id", previous, "match_id", that.matchID)
}

func (that *MatchManager) MatchID() string {
	return that.matchID
}

func (that *MatchManager) Role() entity.Role {
	return that.role
}

func (that *MatchManager) newGame() {
	that.matchID = uuid.NewString()
	that.game = tictactoe.NewGame(that.role.Mark())
	that.record()
}

func (that *MatchManager) afterMove(log *slog.Logger, move entity.Move) {
	status := that.game.Status()

	log.Debug("move applied", "move", move.String(), "status", status.String())

	if status.IsComplete() {
		log.Info("match complete", "match_id", that.matchID, "result", status.String())
	}

	that.record()
}

func (that *MatchManager) record() {
	if that.history == nil {
		return
	}

	that.history.Push(entity.MatchRecord{
		ID:        that.matchID,
		Role:      that.role,
		Mark:      that.game.Me(),
		Snapshot:  that.game.Snapshot(),
		UpdatedAt: that.now(),
	})
}
