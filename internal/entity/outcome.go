package entity

const (
	StatusOngoing = "ongoing"
	StatusWon     = "won"
	StatusTied    = "tied"
)

var WinCombos = [8][3]Position{
	{{0, 0}, {0, 1}, {0, 2}},
	{{1, 0}, {1, 1}, {1, 2}},
	{{2, 0}, {2, 1}, {2, 2}},
	{{0, 0}, {1, 0}, {2, 0}},
	{{0, 1}, {1, 1}, {2, 1}},
	{{0, 2}, {1, 2}, {2, 2}},
	{{0, 0}, {1, 1}, {2, 2}},
	{{0, 2}, {1, 1}, {2, 0}},
}

// Outcome is always derived from a Board with Evaluate, never tracked by hand.
type Outcome struct {
	Status string `json:"status"`
	Winner Cell   `json:"winner,omitempty"`
}

func Ongoing() Outcome {
	return Outcome{Status: StatusOngoing}
}

func Won(side Cell) Outcome {
	return Outcome{Status: StatusWon, Winner: side}
}

func Tied() Outcome {
	return Outcome{Status: StatusTied}
}

func (that Outcome) IsTerminal() bool {
	return that.Status == StatusWon || that.Status == StatusTied
}

func (that Outcome) IsWonBy(side Cell) bool {
	return that.Status == StatusWon && that.Winner == side
}

func (that Outcome) String() string {
	if that.Status == StatusWon {
		return string(that.Winner) + " wins"
	}

	return that.Status
}

// Evaluate classifies the board as ongoing, won by one side or tied.
func Evaluate(board Board) Outcome {
	for _, combo := range WinCombos {
		a, b, c := board.At(combo[0]), board.At(combo[1]), board.At(combo[2])
		if a != EmptyCell && a == b && b == c {
			return Won(a)
		}
	}

	// the game will continue until all the squares are full
	if !board.IsFull() {
		return Ongoing()
	}

	return Tied()
}
