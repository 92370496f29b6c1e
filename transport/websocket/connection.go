package websocket

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// connection is one client. Reads happen on the handler goroutine, all
// writes go through send and are done by writeLoop.
type connection struct {
	ctx  context.Context
	ws   *websocket.Conn
	send chan Message

	mu          sync.Mutex
	playerID    string
	gameID      string
	unsubscribe func()
	watchID     uint64
}

func newConnection(ctx context.Context, ws *websocket.Conn) *connection {
	return &connection{
		ctx:  ctx,
		ws:   ws,
		send: make(chan Message, sendBuffer),
	}
}

func (that *connection) writeLoop(logger *slog.Logger) {
	log := logger.With("method", "writeLoop")

	for {
		select {
		case <-that.ctx.Done():
			deadline := time.Now().Add(writeTimeout)
			closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			if err := that.ws.WriteControl(websocket.CloseMessage, closeMsg, deadline); err != nil {
				log.Debug("failed to send close message", "error", err)
			}

			// unblocks the reader when the server is shutting down
			_ = that.ws.Close()

			return
		case msg := <-that.send:
			if err := that.ws.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				log.Error("failed to set write deadline", "error", err)
				return
			}

			if err := that.ws.WriteJSON(msg); err != nil {
				log.Error("failed to write message", "action", msg.Action, "error", err)
				return
			}
		}
	}
}

func (that *connection) sendMessage(action string, payload Payload) {
	msg, err := newMessage(action, payload)
	if err != nil {
		return
	}

	select {
	case that.send <- msg:
	case <-that.ctx.Done():
	}
}

func (that *connection) sendError(action, errorMsg string) {
	that.sendMessage(action, Payload{Error: errorMsg})
}

func (that *connection) player() string {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.playerID
}

// setPlayer switches the connection to playerID. Switching to another
// player stops watching the previous player's game.
func (that *connection) setPlayer(playerID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.playerID != "" && that.playerID != playerID {
		that.unwatchLocked()
	}

	that.playerID = playerID
}

func (that *connection) game() string {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.gameID
}

// watch forwards every saved state of the game as game:update until the
// connection closes or another game is watched. A subscription the manager
// ended is replaced on the next call.
func (that *connection) watch(manager gameManager, gameID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.gameID == gameID && that.unsubscribe != nil {
		return
	}

	if that.unsubscribe != nil {
		that.unsubscribe()
	}

	updates, unsubscribe := manager.Subscribe(that.ctx, gameID)
	that.watchID++
	watchID := that.watchID
	that.gameID = gameID
	that.unsubscribe = unsubscribe

	go func() {
		for state := range updates {
			that.sendMessage(actionGameUpdate, Payload{Game: &state})
		}

		that.mu.Lock()
		defer that.mu.Unlock()

		if that.watchID == watchID {
			that.unsubscribe = nil
		}
	}()
}

func (that *connection) unwatch() {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.unwatchLocked()
}

func (that *connection) unwatchLocked() {
	if that.unsubscribe != nil {
		that.unsubscribe()
		that.unsubscribe = nil
	}

	that.gameID = ""
}
