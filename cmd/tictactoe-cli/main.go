package main

import (
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/rocketscienceinc/tictactoe-bot/internal/entity"
	"github.com/rocketscienceinc/tictactoe-bot/internal/tictactoe"
)

func main() {
	level := flag.String("difficulty", string(entity.DefaultDifficulty), "bot difficulty: easy, medium or hard")
	flag.Parse()

	difficulty, err := entity.ParseDifficulty(*level)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	seed := uint64(time.Now().UnixNano())
	selector := tictactoe.NewSelector(rand.New(rand.NewPCG(seed, seed>>1)))

	session := newSession(os.Stdin, os.Stdout, selector, difficulty)
	session.interactive = term.IsTerminal(int(os.Stdin.Fd()))

	if err = session.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
