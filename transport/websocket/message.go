package websocket

import (
	"encoding/json"

	"github.com/rocketscienceinc/tictactoe-sessions/internal/entity"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/tictactoe"
)

// client actions.
const (
	actionModeSelect    = "mode:select"
	actionLocalStart    = "local:start"
	actionLobbyOpen     = "lobby:open"
	actionIdentitySet   = "identity:set"
	actionSessionCreate = "session:create"
	actionSessionJoin   = "session:join"
	actionGameTurn      = "game:turn"
	actionGameUndo      = "game:undo"
	actionGameJump      = "game:jump"
	actionGameRematch   = "game:rematch"
	actionSessionLeave  = "session:leave"
)

// server pushes.
const (
	actionGameState  = "game:state"
	actionGameOver   = "game:over"
	actionLobbyRooms = "lobby:rooms"
	actionError      = "error"
)

// Message - a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Request - every field a client action may carry.
type Request struct {
	Mode     entity.Mode `json:"mode,omitempty"`
	PlayerX  string      `json:"player_x,omitempty"`
	PlayerO  string      `json:"player_o,omitempty"`
	Name     string      `json:"name,omitempty"`
	RoomName string      `json:"room_name,omitempty"`
	RoomID   string      `json:"room_id,omitempty"`
	Join     string      `json:"join,omitempty"`
	Cell     *int        `json:"cell,omitempty"`
	Step     *int        `json:"step,omitempty"`
}

type StatePayload struct {
	Game tictactoe.View `json:"game"`
}

type GameOverPayload struct {
	Outcome entity.Outcome `json:"outcome"`
}

type LobbyPayload struct {
	Rooms []entity.Snapshot `json:"rooms"`
}

type ErrorPayload struct {
	Action string `json:"action,omitempty"`
	Error  string `json:"error"`
}
