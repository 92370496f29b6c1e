package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rocketscienceinc/tictactoe-bot/internal/entity"
	"github.com/rocketscienceinc/tictactoe-bot/internal/tictactoe"
)

const help = `commands:
  <row> <col>   place X, rows and columns are 0..2
  h             suggest a move
  d <level>     set difficulty (easy, medium, hard)
  r             start over
  q             quit`

type hinter interface {
	tictactoe.MoveSelector
	SelectMoveFor(board entity.Board, side entity.Cell, difficulty entity.Difficulty) (entity.Position, error)
}

// session plays one local game. The bot answers immediately.
type session struct {
	in       *bufio.Scanner
	out      io.Writer
	selector hinter

	interactive bool
	state       entity.GameState
}

func newSession(in io.Reader, out io.Writer, selector hinter, difficulty entity.Difficulty) *session {
	return &session{
		in:       bufio.NewScanner(in),
		out:      out,
		selector: selector,
		state:    tictactoe.NewGame("local", difficulty),
	}
}

// Run reads commands until q or end of input.
func (that *session) Run() error {
	if that.interactive {
		that.printf("%s\n\n", help)
	}
	that.printBoard()

	for {
		that.prompt()

		if !that.in.Scan() {
			if err := that.in.Err(); err != nil {
				return fmt.Errorf("failed to read command: %w", err)
			}
			return nil
		}

		if quit := that.handle(strings.Fields(that.in.Text())); quit {
			return nil
		}
	}
}

func (that *session) handle(fields []string) bool {
	if len(fields) == 0 {
		return false
	}

	switch fields[0] {
	case "q", "quit":
		return true
	case "r", "reset":
		that.state = tictactoe.Reset(that.state)
		that.printBoard()
	case "d", "difficulty":
		that.setDifficulty(fields[1:])
	case "h", "hint":
		that.hint()
	case "?", "help":
		that.printf("%s\n", help)
	default:
		that.move(fields)
	}

	return false
}

func (that *session) setDifficulty(args []string) {
	if len(args) != 1 {
		that.printf("usage: d <easy|medium|hard>\n")
		return
	}

	difficulty, err := entity.ParseDifficulty(args[0])
	if err != nil {
		that.printf("error: %v\n", err)
		return
	}

	that.state = tictactoe.SetDifficulty(that.state, difficulty)
	that.printf("difficulty: %s\n", difficulty)
}

func (that *session) hint() {
	pos, err := that.selector.SelectMoveFor(that.state.Board, entity.HumanMark, entity.HardDifficulty)
	if err != nil {
		that.printf("error: %v\n", err)
		return
	}

	that.printf("try %d %d\n", pos.Row, pos.Col)
}

func (that *session) move(fields []string) {
	if len(fields) != 2 {
		that.printf("unknown command, type ? for help\n")
		return
	}

	row, rowErr := strconv.Atoi(fields[0])
	col, colErr := strconv.Atoi(fields[1])
	if rowErr != nil || colErr != nil {
		that.printf("unknown command, type ? for help\n")
		return
	}

	next, err := tictactoe.ApplyHumanMove(that.state, row, col)
	if err != nil {
		that.printf("error: %v\n", err)
		return
	}

	if next.IsWaitingForBot() {
		next, err = tictactoe.ApplyBotMove(next, that.selector)
		if err != nil {
			that.printf("error: %v\n", err)
			return
		}
	}

	that.state = next
	that.printBoard()
}

func (that *session) printBoard() {
	that.printf("%s\n", that.state.Board)

	if that.state.Outcome.IsTerminal() {
		that.printf("game over: %s\n", that.state.Outcome)
		if that.interactive {
			that.printf("r to play again, q to quit\n")
		}
	}
}

func (that *session) prompt() {
	if that.interactive {
		that.printf("[%s] > ", that.state.Difficulty)
	}
}

func (that *session) printf(format string, args ...any) {
	fmt.Fprintf(that.out, format, args...)
}
