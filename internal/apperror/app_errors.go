package apperror

import (
	"errors"
	"fmt"
)

// Error kinds. Every error raised by the game or the peer session wraps exactly one of them.
var (
	ErrProtocol   = errors.New("protocol error")
	ErrConnection = errors.New("connection error")
	ErrValidation = errors.New("validation error")
)

var (
	ErrGameFinished     = errors.New("game is already finished")
	ErrGameIsNotStarted = errors.New("game is not started")
	ErrNotYourTurn      = errors.New("it's not your turn")
	ErrCellOccupied     = errors.New("cell is already occupied")
	ErrInvalidCell      = errors.New("invalid cell")

	ErrBadHandshake  = errors.New("unexpected handshake payload")
	ErrMalformedMove = errors.New("malformed move payload")
	ErrFrameTooLarge = errors.New("frame exceeds maximum size")
)

// Validation - wraps a move rejection reason with ErrValidation.
func Validation(reason error) error {
	return fmt.Errorf("%w: %w", ErrValidation, reason)
}
