package tictactoe

import (
	"github.com/rocketscienceinc/tictactoe-peer/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-peer/internal/entity"
)

// Game is one match as seen by one peer. It is not safe for concurrent use: a single
// goroutine owns it for its whole life.
type Game struct {
	me     entity.Mark
	board  entity.Board
	turn   entity.Mark
	status entity.MatchStatus
}

// NewGame - creates a match waiting for the peer, with the first mover to play.
func NewGame(me entity.Mark) *Game {
	return &Game{
		me:     me,
		turn:   entity.FirstMover,
		status: entity.Waiting(),
	}
}

// Start - moves a waiting match to playing. Any other phase is left alone.
func (that *Game) Start() bool {
	if !that.status.IsWaiting() {
		return false
	}

	that.status = entity.Playing()

	return true
}

// ApplyLocalMove - places this peer's mark. A rejected move changes nothing.
func (that *Game) ApplyLocalMove(move entity.Move) error {
	return that.makeTurn(that.me, move)
}

// ApplyRemoteMove - places the opponent's mark. A rejected move changes nothing.
func (that *Game) ApplyRemoteMove(move entity.Move) error {
	return that.makeTurn(entity.Toggle(that.me), move)
}

func (that *Game) makeTurn(mark entity.Mark, move entity.Move) error {
	if err := that.validateMove(mark, move); err != nil {
		return apperror.Validation(err)
	}

	that.board.Place(move, mark)
	that.status = Evaluate(that.board, move, mark)
	that.turn = entity.Toggle(mark)

	return nil
}

// validateMove - checks if the move is valid.
func (that *Game) validateMove(mark entity.Mark, move entity.Move) error {
	switch {
	case that.status.IsWaiting():
		return apperror.ErrGameIsNotStarted
	case that.status.IsComplete():
		return apperror.ErrGameFinished
	}

	if that.turn != mark {
		return apperror.ErrNotYourTurn
	}

	if !move.InBounds() {
		return apperror.ErrInvalidCell
	}

	if !that.board.At(move).IsEmpty() {
		return apperror.ErrCellOccupied
	}

	return nil
}

func (that *Game) Me() entity.Mark {
	return that.me
}

func (that *Game) Turn() entity.Mark {
	return that.turn
}

func (that *Game) Status() entity.MatchStatus {
	return that.status
}

// Snapshot - returns a copy of the match state; the board array is copied with it.
func (that *Game) Snapshot() entity.Snapshot {
	return entity.Snapshot{
		Board:  that.board,
		Turn:   that.turn,
		Status: that.status,
	}
}
