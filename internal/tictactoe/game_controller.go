package tictactoe

import (
	"errors"
	"fmt"
	"time"

	"github.com/rocketscienceinc/tictactoe-bot/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-bot/internal/entity"
)

var ErrBrokenTurnOrder = errors.New("mark counts do not match the turn")

type MoveSelector interface {
	SelectMove(board entity.Board, difficulty entity.Difficulty) (entity.Position, error)
}

// now is replaced in tests.
var now = time.Now

func NewGame(id string, difficulty entity.Difficulty) entity.GameState {
	createdAt := now()

	return entity.GameState{
		ID:         id,
		Board:      entity.EmptyBoard(),
		Turn:       entity.WaitingForHuman,
		Outcome:    entity.Ongoing(),
		Difficulty: difficulty,
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}
}

// ApplyHumanMove places X at (row, col). On failure the input state is
// returned unchanged together with the error.
func ApplyHumanMove(state entity.GameState, row, col int) (entity.GameState, error) {
	if err := confirmTurn(state, entity.WaitingForHuman); err != nil {
		return state, err
	}

	board, err := state.Board.WithMove(row, col, entity.HumanMark)
	if err != nil {
		return state, fmt.Errorf("invalid turn: %w", err)
	}

	return advance(state, board, entity.WaitingForBot), nil
}

// ApplyBotMove asks the selector for O's move using the state's current difficulty.
func ApplyBotMove(state entity.GameState, selector MoveSelector) (entity.GameState, error) {
	if err := confirmTurn(state, entity.WaitingForBot); err != nil {
		return state, err
	}

	pos, err := selector.SelectMove(state.Board, state.Difficulty)
	if err != nil {
		return state, fmt.Errorf("bot failed to select move: %w", err)
	}

	board, err := state.Board.WithMove(pos.Row, pos.Col, entity.BotMark)
	if err != nil {
		return state, fmt.Errorf("bot failed to make turn: %w", err)
	}

	return advance(state, board, entity.WaitingForHuman), nil
}

// SetDifficulty never touches the board; the next bot move uses the new value.
func SetDifficulty(state entity.GameState, difficulty entity.Difficulty) entity.GameState {
	state.Difficulty = difficulty
	state.UpdatedAt = now()

	return state
}

// Reset clears the board, keeps the difficulty and bumps the generation so
// pending bot moves for the old board are ignored.
func Reset(state entity.GameState) entity.GameState {
	state.Board = entity.EmptyBoard()
	state.Turn = entity.WaitingForHuman
	state.Outcome = entity.Ongoing()
	state.Generation++
	state.UpdatedAt = now()

	return state
}

// CheckTurnOrder verifies X moves first and the sides alternate.
func CheckTurnOrder(state entity.GameState) error {
	xCount, oCount := state.Board.Count(entity.PlayerX), state.Board.Count(entity.PlayerO)

	var ok bool
	switch state.Turn {
	case entity.WaitingForHuman:
		ok = xCount == oCount
	case entity.WaitingForBot:
		ok = xCount == oCount+1
	case entity.GameOver:
		ok = xCount == oCount || xCount == oCount+1
	}

	if !ok {
		return fmt.Errorf("%w: %d X, %d O while %s", ErrBrokenTurnOrder, xCount, oCount, state.Turn)
	}

	return nil
}

func confirmTurn(state entity.GameState, expected entity.TurnState) error {
	if state.Outcome.IsTerminal() || state.IsFinished() {
		return fmt.Errorf("%w: game is over (%s)", apperror.ErrInvalidState, state.Outcome)
	}

	if state.Turn != expected {
		return fmt.Errorf("%w: waiting for %s", apperror.ErrInvalidState, state.Turn)
	}

	return nil
}

func advance(state entity.GameState, board entity.Board, next entity.TurnState) entity.GameState {
	state.Board = board
	state.Outcome = entity.Evaluate(board)
	state.Turn = next
	if state.Outcome.IsTerminal() {
		state.Turn = entity.GameOver
	}
	state.UpdatedAt = now()

	return state
}
