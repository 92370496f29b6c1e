package websocket

import (
	"context"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-bot/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-bot/internal/entity"
)

var (
	errNotConnected = errors.New("player is not connected")
	errNoActiveGame = errors.New("no active game")
)

func (that *Server) handleConnect(ctx context.Context, conn *connection, msg *Message) error {
	log := that.logger.With("method", "handleConnect")

	payloadReq, err := msg.decodePayload()
	if err != nil {
		conn.sendError(msg.Action, "malformed payload")
		return err
	}

	var playerID string
	if payloadReq.Player != nil {
		playerID = payloadReq.Player.ID
	}

	player, err := that.manager.GetOrCreatePlayer(ctx, playerID)
	if err != nil {
		return that.refuse(conn, msg.Action, nil, err)
	}

	conn.setPlayer(player.ID)

	payloadResp := Payload{Player: player}

	if player.GameID != "" {
		game, err := that.manager.GetOrCreateGame(ctx, player.ID)
		if err != nil {
			return that.refuse(conn, msg.Action, nil, err)
		}

		conn.watch(that.manager, game.ID)
		payloadResp.Game = game
	}

	conn.sendMessage(msg.Action, payloadResp)

	log.Info("successfully connected player", "playerID", player.ID)

	return nil
}

func (that *Server) handleNewGame(ctx context.Context, conn *connection, msg *Message) error {
	log := that.logger.With("method", "handleNewGame")

	payloadReq, err := msg.decodePayload()
	if err != nil {
		conn.sendError(msg.Action, "malformed payload")
		return err
	}

	playerID := conn.player()
	if playerID == "" {
		return that.refuse(conn, msg.Action, nil, errNotConnected)
	}

	if payloadReq.Difficulty != "" {
		difficulty, err := entity.ParseDifficulty(payloadReq.Difficulty)
		if err != nil {
			return that.refuse(conn, msg.Action, nil, err)
		}

		if _, err = that.manager.SetPreferredDifficulty(ctx, playerID, difficulty); err != nil {
			return that.refuse(conn, msg.Action, nil, err)
		}
	}

	game, err := that.manager.GetOrCreateGame(ctx, playerID)
	if err != nil {
		return that.refuse(conn, msg.Action, nil, err)
	}

	conn.watch(that.manager, game.ID)
	conn.sendMessage(msg.Action, Payload{Game: game})

	log.Info("player is in game", "playerID", playerID, "gameID", game.ID)

	return nil
}

func (that *Server) handleGameTurn(ctx context.Context, conn *connection, msg *Message) error {
	payloadReq, err := msg.decodePayload()
	if err != nil {
		conn.sendError(msg.Action, "malformed payload")
		return err
	}

	if payloadReq.Cell == nil {
		conn.sendError(msg.Action, "cell is required")
		return nil
	}

	gameID := conn.game()
	if gameID == "" {
		return that.refuse(conn, msg.Action, nil, errNoActiveGame)
	}

	game, err := that.manager.MakeTurn(ctx, gameID, payloadReq.Cell.Row, payloadReq.Cell.Col)
	if err != nil {
		return that.refuse(conn, msg.Action, game, err)
	}

	conn.sendMessage(msg.Action, Payload{Game: game})

	return nil
}

func (that *Server) handleDifficulty(ctx context.Context, conn *connection, msg *Message) error {
	payloadReq, err := msg.decodePayload()
	if err != nil {
		conn.sendError(msg.Action, "malformed payload")
		return err
	}

	difficulty, err := entity.ParseDifficulty(payloadReq.Difficulty)
	if err != nil {
		return that.refuse(conn, msg.Action, nil, err)
	}

	gameID := conn.game()
	if gameID == "" {
		playerID := conn.player()
		if playerID == "" {
			return that.refuse(conn, msg.Action, nil, errNotConnected)
		}

		// no game yet: remember the choice for the next one
		player, err := that.manager.SetPreferredDifficulty(ctx, playerID, difficulty)
		if err != nil {
			return that.refuse(conn, msg.Action, nil, err)
		}

		conn.sendMessage(msg.Action, Payload{Player: player})
		return nil
	}

	game, err := that.manager.SetDifficulty(ctx, gameID, difficulty)
	if err != nil {
		return that.refuse(conn, msg.Action, nil, err)
	}

	conn.sendMessage(msg.Action, Payload{Game: game})

	return nil
}

func (that *Server) handleReset(ctx context.Context, conn *connection, msg *Message) error {
	gameID := conn.game()
	if gameID == "" {
		return that.refuse(conn, msg.Action, nil, errNoActiveGame)
	}

	game, err := that.manager.Reset(ctx, gameID)
	if err != nil {
		return that.refuse(conn, msg.Action, nil, err)
	}

	conn.sendMessage(msg.Action, Payload{Game: game})

	return nil
}

func (that *Server) handleGameLeave(ctx context.Context, conn *connection, msg *Message) error {
	log := that.logger.With("method", "handleGameLeave")

	gameID := conn.game()
	if gameID == "" {
		return that.refuse(conn, msg.Action, nil, errNoActiveGame)
	}

	conn.unwatch()

	if err := that.manager.EndGame(ctx, gameID); err != nil {
		return that.refuse(conn, msg.Action, nil, err)
	}

	conn.sendMessage(msg.Action, Payload{})

	log.Info("player left the game", "gameID", gameID)

	return nil
}

// refuse answers with an error payload. Rule violations are only reported to
// the client; anything else is also returned for logging.
func (that *Server) refuse(conn *connection, action string, game *entity.GameState, err error) error {
	if isRefusal(err) {
		conn.sendMessage(action, Payload{Game: game, Error: err.Error()})
		return nil
	}

	conn.sendMessage(action, Payload{Game: game, Error: "internal error"})

	return fmt.Errorf("failed to handle %s: %w", action, err)
}

func isRefusal(err error) bool {
	refusals := []error{
		errNotConnected,
		errNoActiveGame,
		apperror.ErrIllegalMove,
		apperror.ErrInvalidState,
		apperror.ErrUnknownDifficulty,
		apperror.ErrGameNotFound,
		apperror.ErrPlayerNotFound,
	}

	for _, refusal := range refusals {
		if errors.Is(err, refusal) {
			return true
		}
	}

	return false
}
