package websocket

import (
	"encoding/json"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-bot/internal/entity"
	"github.com/rocketscienceinc/tictactoe-bot/internal/repository"
	"github.com/rocketscienceinc/tictactoe-bot/internal/tictactoe"
	"github.com/rocketscienceinc/tictactoe-bot/internal/usecase"
)

const readTimeout = 2 * time.Second

type testClient struct {
	t  *testing.T
	ws *websocket.Conn
}

func newTestClient(t *testing.T, botDelay time.Duration) *testClient {
	t.Helper()

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	manager := usecase.NewGameManager(
		logger,
		repository.NewMemoryPlayerRepository(),
		repository.NewMemoryGameRepository(),
		tictactoe.NewSelector(rand.New(rand.NewPCG(1, 2))),
		botDelay,
		entity.HardDifficulty,
	)
	t.Cleanup(manager.Close)

	server := httptest.NewServer(New(logger, manager).Handler())
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	ws, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { ws.Close() })

	return &testClient{t: t, ws: ws}
}

func (that *testClient) send(action string, payload any) {
	that.t.Helper()

	raw, err := json.Marshal(payload)
	require.NoError(that.t, err)

	require.NoError(that.t, that.ws.WriteJSON(Message{Action: action, Payload: raw}))
}

// expect reads until a message with the action arrives and returns its payload.
func (that *testClient) expect(action string, match func(Payload) bool) Payload {
	that.t.Helper()

	deadline := time.Now().Add(readTimeout)
	require.NoError(that.t, that.ws.SetReadDeadline(deadline))

	for {
		var msg Message
		require.NoError(that.t, that.ws.ReadJSON(&msg), "waiting for %s", action)

		if msg.Action != action {
			continue
		}

		payload, err := msg.decodePayload()
		require.NoError(that.t, err)

		if match == nil || match(payload) {
			return payload
		}
	}
}

func (that *testClient) startGame() *entity.GameState {
	that.t.Helper()

	that.send(actionConnect, Payload{})
	connected := that.expect(actionConnect, nil)
	require.NotNil(that.t, connected.Player)
	require.Empty(that.t, connected.Error)

	that.send(actionNewGame, Payload{})
	created := that.expect(actionNewGame, nil)
	require.Empty(that.t, created.Error)
	require.NotNil(that.t, created.Game)

	return created.Game
}

func TestServer_DelayedBotMoveIsPushed(t *testing.T) {
	// Given: a connected player with a game and a delayed bot
	client := newTestClient(t, 20*time.Millisecond)
	game := client.startGame()
	assert.Equal(t, entity.WaitingForHuman, game.Turn)

	// When: the human plays a corner
	client.send(actionTurn, Payload{Cell: &entity.Position{Row: 0, Col: 0}})

	// Then: the answer shows the bot is thinking
	turn := client.expect(actionTurn, nil)
	require.Empty(t, turn.Error)
	assert.Equal(t, entity.WaitingForBot, turn.Game.Turn)

	// And: the bot's move is pushed as an update
	update := client.expect(actionGameUpdate, func(payload Payload) bool {
		return payload.Game != nil && payload.Game.IsWaitingForHuman()
	})
	assert.Equal(t, entity.PlayerO, update.Game.Board[1][1])
}

func TestServer_Refusals(t *testing.T) {
	t.Run("Turn without a game", func(t *testing.T) {
		client := newTestClient(t, 0)

		client.send(actionTurn, Payload{Cell: &entity.Position{Row: 0, Col: 0}})

		resp := client.expect(actionTurn, nil)
		assert.Equal(t, errNoActiveGame.Error(), resp.Error)
	})

	t.Run("Occupied cell", func(t *testing.T) {
		client := newTestClient(t, 0)
		client.startGame()

		client.send(actionTurn, Payload{Cell: &entity.Position{Row: 0, Col: 0}})
		client.expect(actionTurn, nil)

		client.send(actionTurn, Payload{Cell: &entity.Position{Row: 1, Col: 1}})
		resp := client.expect(actionTurn, nil)

		assert.Contains(t, resp.Error, "illegal move")
		require.NotNil(t, resp.Game)
		assert.Equal(t, entity.PlayerO, resp.Game.Board[1][1])
	})

	t.Run("Unknown action", func(t *testing.T) {
		client := newTestClient(t, 0)

		client.send("game:join", Payload{})

		resp := client.expect("game:join", nil)
		assert.Equal(t, "unknown action", resp.Error)
	})

	t.Run("Unknown difficulty", func(t *testing.T) {
		client := newTestClient(t, 0)
		client.startGame()

		client.send(actionDifficulty, Payload{Difficulty: "godlike"})

		resp := client.expect(actionDifficulty, nil)
		assert.Contains(t, resp.Error, "unknown difficulty")
	})
}

func TestServer_DifficultyResetAndLeave(t *testing.T) {
	client := newTestClient(t, 0)
	game := client.startGame()

	client.send(actionTurn, Payload{Cell: &entity.Position{Row: 2, Col: 2}})
	client.expect(actionTurn, nil)

	// difficulty change keeps the board
	client.send(actionDifficulty, Payload{Difficulty: "easy"})
	changed := client.expect(actionDifficulty, nil)
	require.Empty(t, changed.Error)
	assert.Equal(t, entity.EasyDifficulty, changed.Game.Difficulty)
	assert.Equal(t, entity.PlayerX, changed.Game.Board[2][2])

	// reset clears it
	client.send(actionReset, Payload{})
	reset := client.expect(actionReset, nil)
	require.Empty(t, reset.Error)
	assert.Equal(t, entity.EmptyBoard(), reset.Game.Board)
	assert.Equal(t, entity.EasyDifficulty, reset.Game.Difficulty)
	assert.Equal(t, game.ID, reset.Game.ID)

	// leaving ends the game and the next game starts on the remembered difficulty
	client.send(actionLeave, Payload{})
	left := client.expect(actionLeave, nil)
	assert.Empty(t, left.Error)

	client.send(actionNewGame, Payload{})
	next := client.expect(actionNewGame, nil)
	require.NotNil(t, next.Game)
	assert.NotEqual(t, game.ID, next.Game.ID)
	assert.Equal(t, entity.EasyDifficulty, next.Game.Difficulty)
}

func TestServer_ConnectAsAnotherPlayer(t *testing.T) {
	// Given: a connection whose first player has a game
	client := newTestClient(t, 0)
	client.startGame()

	// When: the connection switches to a new player without a game
	client.send(actionConnect, Payload{})
	switched := client.expect(actionConnect, nil)
	require.Empty(t, switched.Error)
	assert.Nil(t, switched.Game)

	// Then: moves no longer reach the first player's game
	client.send(actionTurn, Payload{Cell: &entity.Position{Row: 0, Col: 0}})
	resp := client.expect(actionTurn, nil)
	assert.Equal(t, errNoActiveGame.Error(), resp.Error)
}
