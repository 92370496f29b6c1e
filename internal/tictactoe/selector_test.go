package tictactoe

import (
	"testing"

	"github.com/rocketscienceinc/tictactoe-bot/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-bot/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelector_Hard(t *testing.T) {
	selector := NewSelector(&scriptedRand{})

	t.Run("Answers a corner opening with the center", func(t *testing.T) {
		// Given: X opened in the top-left corner
		board, err := entity.EmptyBoard().WithMove(0, 0, entity.PlayerX)
		require.NoError(t, err)

		// When: the hard bot selects a move
		pos, err := selector.SelectMove(board, entity.HardDifficulty)

		// Then: it takes the center
		require.NoError(t, err)
		assert.Equal(t, entity.Position{Row: 1, Col: 1}, pos)
	})

	t.Run("Prefers an immediate win over a block", func(t *testing.T) {
		// Given: X threatens the top row and O can complete the middle row
		board := entity.Board{
			{x, x, e},
			{o, o, e},
			{e, e, e},
		}

		// When: the hard bot selects a move
		pos, err := selector.SelectMove(board, entity.HardDifficulty)

		// Then: it completes its own row
		require.NoError(t, err)
		assert.Equal(t, entity.Position{Row: 1, Col: 2}, pos)
	})

	t.Run("Blocks when it cannot win", func(t *testing.T) {
		// Given: X threatens the left column
		board := entity.Board{
			{x, e, e},
			{x, o, e},
			{e, e, e},
		}

		pos, err := selector.SelectMove(board, entity.HardDifficulty)

		require.NoError(t, err)
		assert.Equal(t, entity.Position{Row: 2, Col: 0}, pos)
	})

	t.Run("Keeps the first of equally scored cells", func(t *testing.T) {
		// Given: X took the center, so the top-left corner already reaches the best score
		board, err := entity.EmptyBoard().WithMove(1, 1, entity.PlayerX)
		require.NoError(t, err)

		// When: selecting
		pos, err := selector.SelectMove(board, entity.HardDifficulty)

		// Then: the first drawing cell in row-major order is chosen
		require.NoError(t, err)
		assert.Equal(t, entity.Position{Row: 0, Col: 0}, pos)
	})

	t.Run("Is deterministic", func(t *testing.T) {
		board := entity.Board{
			{x, e, e},
			{e, e, e},
			{e, e, x},
		}
		board[1][1] = o

		first, err := selector.SelectMove(board, entity.HardDifficulty)
		require.NoError(t, err)
		second, err := selector.SelectMove(board, entity.HardDifficulty)
		require.NoError(t, err)

		assert.Equal(t, first, second)
	})
}

func TestSelector_Easy(t *testing.T) {
	t.Run("Uses the random source over free cells", func(t *testing.T) {
		// Given: a random source that answers 2
		rnd := &scriptedRand{values: []int{2}}
		selector := NewSelector(rnd)

		board := entity.Board{
			{x, e, e},
			{e, o, e},
			{e, e, e},
		}

		// When: the easy bot selects a move
		pos, err := selector.SelectMove(board, entity.EasyDifficulty)

		// Then: it returns the third free cell in row-major order
		require.NoError(t, err)
		assert.Equal(t, entity.Position{Row: 1, Col: 0}, pos)
		assert.Equal(t, 1, rnd.calls)
	})

	t.Run("Returns the sole free cell without randomness", func(t *testing.T) {
		// Given: exactly one free cell
		board := entity.Board{
			{x, o, x},
			{x, o, o},
			{o, x, e},
		}

		for _, value := range []int{0, 1, 5, 99} {
			rnd := &scriptedRand{values: []int{value}}

			pos, err := NewSelector(rnd).SelectMove(board, entity.EasyDifficulty)

			require.NoError(t, err)
			assert.Equal(t, entity.Position{Row: 2, Col: 2}, pos)
			assert.Zero(t, rnd.calls)
		}
	})
}

func TestSelector_Medium(t *testing.T) {
	// Given: X opened in a corner, so the only non-losing reply is the center
	board, err := entity.EmptyBoard().WithMove(0, 0, entity.PlayerX)
	require.NoError(t, err)

	t.Run("Heads plays randomly", func(t *testing.T) {
		// When: the coin lands on 0 and the pick lands on 0
		rnd := &scriptedRand{values: []int{0, 0}}

		pos, err := NewSelector(rnd).SelectMove(board, entity.MediumDifficulty)

		// Then: the first free cell is picked at random
		require.NoError(t, err)
		assert.Equal(t, entity.Position{Row: 0, Col: 1}, pos)
		assert.Equal(t, 2, rnd.calls)
	})

	t.Run("Tails plays optimally", func(t *testing.T) {
		// When: the coin lands on 1
		rnd := &scriptedRand{values: []int{1}}

		pos, err := NewSelector(rnd).SelectMove(board, entity.MediumDifficulty)

		// Then: the coin is flipped once and the hard policy picks the center
		require.NoError(t, err)
		assert.Equal(t, entity.Position{Row: 1, Col: 1}, pos)
		assert.Equal(t, 1, rnd.calls)
	})
}

func TestSelector_Errors(t *testing.T) {
	selector := NewSelector(&scriptedRand{})

	t.Run("Full board has no legal move", func(t *testing.T) {
		board := entity.Board{
			{x, o, x},
			{x, o, o},
			{o, x, x},
		}

		for _, difficulty := range []entity.Difficulty{entity.EasyDifficulty, entity.MediumDifficulty, entity.HardDifficulty} {
			_, err := selector.SelectMove(board, difficulty)
			assert.ErrorIs(t, err, apperror.ErrNoLegalMove)
		}
	})

	t.Run("Won board has no legal move", func(t *testing.T) {
		board := entity.Board{
			{x, x, x},
			{o, o, e},
			{e, e, e},
		}

		_, err := selector.SelectMove(board, entity.EasyDifficulty)

		assert.ErrorIs(t, err, apperror.ErrNoLegalMove)
	})

	t.Run("Unknown difficulty is rejected", func(t *testing.T) {
		_, err := selector.SelectMove(entity.EmptyBoard(), entity.Difficulty("godlike"))

		assert.ErrorIs(t, err, apperror.ErrUnknownDifficulty)
	})
}

func TestSelector_HardNeverLoses(t *testing.T) {
	selector := NewSelector(&scriptedRand{})

	t.Run("Hard against hard always ties", func(t *testing.T) {
		// Given: both sides use the hard policy
		board := entity.EmptyBoard()
		mover := entity.PlayerX

		// When: playing until the game ends
		for !entity.Evaluate(board).IsTerminal() {
			pos, err := selector.SelectMoveFor(board, mover, entity.HardDifficulty)
			require.NoError(t, err)

			board, err = board.WithMove(pos.Row, pos.Col, mover)
			require.NoError(t, err)

			mover = entity.Opponent(mover)
		}

		// Then: the game is tied
		assert.Equal(t, entity.Tied(), entity.Evaluate(board))
	})

	t.Run("Hard bot never loses to any sequence of human moves", func(t *testing.T) {
		games := 0

		var play func(board entity.Board)
		play = func(board entity.Board) {
			for _, human := range board.EmptyCells() {
				afterHuman, err := board.WithMove(human.Row, human.Col, entity.PlayerX)
				require.NoError(t, err)

				outcome := entity.Evaluate(afterHuman)
				if outcome.IsTerminal() {
					games++
					require.False(t, outcome.IsWonBy(entity.PlayerX), "X won:\n%s", afterHuman)
					continue
				}

				bot, err := selector.SelectMove(afterHuman, entity.HardDifficulty)
				require.NoError(t, err)

				afterBot, err := afterHuman.WithMove(bot.Row, bot.Col, entity.PlayerO)
				require.NoError(t, err)

				if entity.Evaluate(afterBot).IsTerminal() {
					games++
					continue
				}

				play(afterBot)
			}
		}

		play(entity.EmptyBoard())

		assert.Positive(t, games)
	})
}
