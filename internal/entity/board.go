package entity

import "fmt"

const BoardSize = 3

// Cell is either empty or holds one mark.
type Cell uint8

const Empty Cell = 0

func CellOf(mark Mark) Cell {
	return Cell(mark)
}

func (that Cell) IsEmpty() bool {
	return that == Empty
}

func (that Cell) Mark() (Mark, bool) {
	if that == Empty {
		return 0, false
	}
	return Mark(that), true
}

func (that Cell) Holds(mark Mark) bool {
	return that != Empty && Mark(that) == mark
}

func (that Cell) MarshalText() ([]byte, error) {
	if that == Empty {
		return []byte{}, nil
	}
	return Mark(that).MarshalText()
}

func (that *Cell) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*that = Empty
		return nil
	}

	var mark Mark
	if err := mark.UnmarshalText(text); err != nil {
		return err
	}

	*that = CellOf(mark)

	return nil
}

// Board is indexed [row][col]. It is an array, so assignment copies it.
type Board [BoardSize][BoardSize]Cell

// At - returns the cell under the move. The move must be in bounds.
func (that *Board) At(move Move) Cell {
	return that[move.Row][move.Col]
}

// Place - writes the mark into an empty in-bounds cell and reports whether it did.
func (that *Board) Place(move Move, mark Mark) bool {
	if !move.InBounds() || !that.At(move).IsEmpty() {
		return false
	}

	that[move.Row][move.Col] = CellOf(mark)

	return true
}

// Full - reports whether no empty cell is left.
func (that *Board) Full() bool {
	for _, row := range that {
		for _, cell := range row {
			if cell.IsEmpty() {
				return false
			}
		}
	}
	return true
}

// Move identifies a cell by column and row. The mark is implied by whose turn it is.
type Move struct {
	Col int `json:"col"`
	Row int `json:"row"`
}

// PeerReady is never a legal move; the session delivers it once the handshake is done.
var PeerReady = Move{Col: -1, Row: -1}

func (that Move) InBounds() bool {
	return that.Col >= 0 && that.Col < BoardSize && that.Row >= 0 && that.Row < BoardSize
}

func (that Move) IsPeerReady() bool {
	return that == PeerReady
}

func (that Move) String() string {
	return fmt.Sprintf("(%d,%d)", that.Col, that.Row)
}
