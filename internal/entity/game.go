package entity

import "time"

type TurnState string

const (
	WaitingForHuman TurnState = "waiting_for_human"
	WaitingForBot   TurnState = "waiting_for_bot"
	GameOver        TurnState = "game_over"
)

// The human always plays X and the bot always plays O.
const (
	HumanMark = PlayerX
	BotMark   = PlayerO
)

// GameState is a snapshot of one game. Operations take and return it by value.
type GameState struct {
	ID         string     `json:"id"`
	PlayerID   string     `json:"player_id,omitempty"`
	Board      Board      `json:"board"`
	Turn       TurnState  `json:"turn"`
	Outcome    Outcome    `json:"outcome"`
	Difficulty Difficulty `json:"difficulty"`
	// Generation changes on every reset so that a delayed bot move scheduled
	// for an earlier board can recognise it is stale.
	Generation uint64    `json:"generation"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (that GameState) IsFinished() bool {
	return that.Turn == GameOver
}

func (that GameState) IsWaitingForBot() bool {
	return that.Turn == WaitingForBot
}

func (that GameState) IsWaitingForHuman() bool {
	return that.Turn == WaitingForHuman
}
