package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-sessions/internal/entity"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/tictactoe"
)

const writeWait = 10 * time.Second

// client - presents one controller's output on its connection.
// Pushes come from the read loop and from sync goroutines, so writes are serialized.
type client struct {
	logger *slog.Logger
	conn   *websocket.Conn

	writeMu sync.Mutex
}

func newClient(logger *slog.Logger, conn *websocket.Conn) *client {
	return &client{
		logger: logger,
		conn:   conn,
	}
}

func (that *client) OnState(view tictactoe.View) {
	that.push(actionGameState, StatePayload{Game: view})
}

func (that *client) OnGameOver(outcome entity.Outcome) {
	that.push(actionGameOver, GameOverPayload{Outcome: outcome})
}

func (that *client) OnLobby(rooms []entity.Snapshot) {
	if rooms == nil {
		rooms = []entity.Snapshot{}
	}

	that.push(actionLobbyRooms, LobbyPayload{Rooms: rooms})
}

func (that *client) OnError(err error) {
	that.sendError("", err)
}

func (that *client) sendError(action string, err error) {
	that.push(actionError, ErrorPayload{Action: action, Error: err.Error()})
}

func (that *client) push(action string, payload any) {
	if err := that.sendMessage(action, payload); err != nil {
		that.logger.Error("failed to send message", "action", action, "error", err)
	}
}

func (that *client) sendMessage(action string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	that.writeMu.Lock()
	defer that.writeMu.Unlock()

	if err = that.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}

	if err = that.conn.WriteJSON(Message{Action: action, Payload: data}); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}
