package websocket

import (
	"encoding/json"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-bot/internal/entity"
)

const (
	actionConnect    = "connect"
	actionNewGame    = "game:new"
	actionTurn       = "game:turn"
	actionDifficulty = "game:difficulty"
	actionReset      = "game:reset"
	actionLeave      = "game:leave"
	actionGameUpdate = "game:update"
)

// Message represents a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Payload is shared by requests and responses; each action reads the fields it needs.
type Payload struct {
	Player     *entity.Player    `json:"player,omitempty"`
	Game       *entity.GameState `json:"game,omitempty"`
	Cell       *entity.Position  `json:"cell,omitempty"`
	Difficulty string            `json:"difficulty,omitempty"`
	Error      string            `json:"error,omitempty"`
}

func newMessage(action string, payload Payload) (Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("failed to marshal payload: %w", err)
	}

	return Message{Action: action, Payload: raw}, nil
}

func (that *Message) decodePayload() (Payload, error) {
	var payload Payload
	if len(that.Payload) == 0 {
		return payload, nil
	}

	if err := json.Unmarshal(that.Payload, &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	return payload, nil
}
