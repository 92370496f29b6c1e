package tictactoe

import "github.com/rocketscienceinc/tictactoe-bot/internal/entity"

// Scores use one global convention no matter whose turn it is.
const (
	ScoreOWins = 1
	ScoreXWins = -1
	ScoreTie   = 0
)

// Score returns the minimax value of the board with O maximizing and X
// minimizing. maximizing tells whether O moves next.
func Score(board entity.Board, maximizing bool) int {
	return minimax(board, 0, maximizing)
}

func minimax(board entity.Board, depth int, maximizing bool) int {
	if outcome := entity.Evaluate(board); outcome.IsTerminal() {
		return terminalScore(outcome)
	}

	mover := entity.PlayerX
	best := ScoreOWins + 1
	if maximizing {
		mover = entity.PlayerO
		best = ScoreXWins - 1
	}

	for _, pos := range board.EmptyCells() {
		// board is a value, so the child never aliases the parent
		child := board
		child[pos.Row][pos.Col] = mover

		score := minimax(child, depth+1, !maximizing)
		if maximizing {
			best = max(best, score)
		} else {
			best = min(best, score)
		}
	}

	return best
}

func terminalScore(outcome entity.Outcome) int {
	switch {
	case outcome.IsWonBy(entity.PlayerO):
		return ScoreOWins
	case outcome.IsWonBy(entity.PlayerX):
		return ScoreXWins
	default:
		return ScoreTie
	}
}
