package entity

import (
	"fmt"
	"strings"

	"github.com/rocketscienceinc/tictactoe-bot/internal/apperror"
)

const BoardSize = 3

type Cell string

const (
	EmptyCell Cell = ""
	PlayerX   Cell = "X"
	PlayerO   Cell = "O"
)

// IsSide reports whether the cell is one of the two player marks.
func (that Cell) IsSide() bool {
	return that == PlayerX || that == PlayerO
}

// Opponent returns the other side. EmptyCell has no opponent.
func Opponent(side Cell) Cell {
	switch side {
	case PlayerX:
		return PlayerO
	case PlayerO:
		return PlayerX
	default:
		return EmptyCell
	}
}

type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (that Position) InRange() bool {
	return that.Row >= 0 && that.Row < BoardSize && that.Col >= 0 && that.Col < BoardSize
}

func (that Position) String() string {
	return fmt.Sprintf("(%d,%d)", that.Row, that.Col)
}

// Board is a value type: assigning or passing it copies all nine cells.
type Board [BoardSize][BoardSize]Cell

func EmptyBoard() Board {
	return Board{}
}

// WithMove returns a copy of the board with side placed at (row, col).
func (that Board) WithMove(row, col int, side Cell) (Board, error) {
	pos := Position{Row: row, Col: col}

	if !side.IsSide() {
		return that, fmt.Errorf("%w: unknown side %q", apperror.ErrIllegalMove, side)
	}

	if !pos.InRange() {
		return that, fmt.Errorf("%w: cell %s is out of range", apperror.ErrIllegalMove, pos)
	}

	if that[row][col] != EmptyCell {
		return that, fmt.Errorf("%w: cell %s is already occupied", apperror.ErrIllegalMove, pos)
	}

	next := that
	next[row][col] = side

	return next, nil
}

func (that Board) At(pos Position) Cell {
	return that[pos.Row][pos.Col]
}

// EmptyCells lists the free cells in row-major order.
func (that Board) EmptyCells() []Position {
	cells := make([]Position, 0, BoardSize*BoardSize)
	for row := range BoardSize {
		for col := range BoardSize {
			if that[row][col] == EmptyCell {
				cells = append(cells, Position{Row: row, Col: col})
			}
		}
	}

	return cells
}

func (that Board) IsFull() bool {
	return that.Count(EmptyCell) == 0
}

func (that Board) Count(cell Cell) int {
	count := 0
	for _, row := range that {
		for _, c := range row {
			if c == cell {
				count++
			}
		}
	}

	return count
}

func (that Board) String() string {
	var builder strings.Builder
	for i, row := range that {
		if i > 0 {
			builder.WriteByte('\n')
		}
		for j, c := range row {
			if j > 0 {
				builder.WriteByte(' ')
			}
			if c == EmptyCell {
				builder.WriteByte('.')
				continue
			}
			builder.WriteString(string(c))
		}
	}

	return builder.String()
}
