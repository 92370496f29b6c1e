package tictactoe

import (
	"fmt"

	"github.com/rocketscienceinc/tictactoe-bot/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-bot/internal/entity"
)

// Rand is the random source used by the easy and medium policies.
// *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
}

type Selector struct {
	rnd Rand
}

func NewSelector(rnd Rand) *Selector {
	return &Selector{rnd: rnd}
}

// SelectMove picks the bot's (O) move for the given difficulty.
func (that *Selector) SelectMove(board entity.Board, difficulty entity.Difficulty) (entity.Position, error) {
	return that.SelectMoveFor(board, entity.BotMark, difficulty)
}

// SelectMoveFor picks a move for either side. It does not change the board.
func (that *Selector) SelectMoveFor(board entity.Board, side entity.Cell, difficulty entity.Difficulty) (entity.Position, error) {
	if !side.IsSide() {
		return entity.Position{}, fmt.Errorf("%w: unknown side %q", apperror.ErrIllegalMove, side)
	}

	if outcome := entity.Evaluate(board); outcome.IsTerminal() {
		return entity.Position{}, fmt.Errorf("%w: game is %s", apperror.ErrNoLegalMove, outcome)
	}

	switch difficulty {
	case entity.EasyDifficulty:
		return that.randomMove(board), nil
	case entity.MediumDifficulty:
		if that.rnd.IntN(2) == 0 {
			return that.randomMove(board), nil
		}
		return bestMove(board, side), nil
	case entity.HardDifficulty:
		return bestMove(board, side), nil
	default:
		return entity.Position{}, fmt.Errorf("%w: %q", apperror.ErrUnknownDifficulty, difficulty)
	}
}

func (that *Selector) randomMove(board entity.Board) entity.Position {
	cells := board.EmptyCells()
	if len(cells) == 1 {
		return cells[0]
	}

	return cells[that.rnd.IntN(len(cells))]
}

// bestMove takes an immediate win when there is one, otherwise the first
// cell in row-major order with the best minimax score for side.
func bestMove(board entity.Board, side entity.Cell) entity.Position {
	cells := board.EmptyCells()

	for _, pos := range cells {
		next := board
		next[pos.Row][pos.Col] = side
		if entity.Evaluate(next).IsWonBy(side) {
			return pos
		}
	}

	maximizing := side == entity.PlayerO
	best := cells[0]
	bestScore := 0

	for i, pos := range cells {
		next := board
		next[pos.Row][pos.Col] = side

		// the opponent moves next
		score := Score(next, !maximizing)
		if i == 0 || (maximizing && score > bestScore) || (!maximizing && score < bestScore) {
			best = pos
			bestScore = score
		}
	}

	return best
}
