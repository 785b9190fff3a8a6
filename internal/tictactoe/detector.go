package tictactoe

import "github.com/rocketscienceinc/tictactoe-peer/internal/entity"

// Evaluate - computes the match status right after mover placed last.
//
// Only the lines through last can have been completed by it: its row, its column, and the
// diagonals it lies on. Every candidate line is checked even after one is found won, so the
// result stays well-defined on a board that could not arise from legal play. A last move off
// the board completes no line, so only the tie check applies.
func Evaluate(board entity.Board, last entity.Move, mover entity.Mark) entity.MatchStatus {
	if !last.InBounds() {
		return fullOrPlaying(board)
	}

	row := lineHolds(board, mover, func(i int) entity.Move { return entity.Move{Col: i, Row: last.Row} })
	col := lineHolds(board, mover, func(i int) entity.Move { return entity.Move{Col: last.Col, Row: i} })

	diagonal := last.Col == last.Row &&
		lineHolds(board, mover, func(i int) entity.Move { return entity.Move{Col: i, Row: i} })
	antiDiagonal := last.Col == entity.BoardSize-1-last.Row &&
		lineHolds(board, mover, func(i int) entity.Move { return entity.Move{Col: entity.BoardSize - 1 - i, Row: i} })

	if row || col || diagonal || antiDiagonal {
		return entity.Won(mover)
	}

	return fullOrPlaying(board)
}

// the game will continue until all the squares are full
func fullOrPlaying(board entity.Board) entity.MatchStatus {
	if board.Full() {
		return entity.Tie()
	}

	return entity.Playing()
}

func lineHolds(board entity.Board, mark entity.Mark, cellAt func(i int) entity.Move) bool {
	for i := range entity.BoardSize {
		if !board.At(cellAt(i)).Holds(mark) {
			return false
		}
	}
	return true
}
