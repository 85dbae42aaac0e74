package entity

const (
	RoomStatusWaiting  = "waiting"
	RoomStatusPlaying  = "playing"
	RoomStatusFinished = "finished"
)

// Room - a row of the rooms table, the remote representation of a session.
// Player1 holds X, Player2 holds O.
type Room struct {
	ID          string `json:"id"`
	RoomName    string `json:"room_name"`
	Player1     string `json:"player1"`
	Player2     string `json:"player2,omitempty"`
	Board       Board  `json:"board"`
	Status      string `json:"status"`
	CurrentTurn Mark   `json:"current_turn"`
}

func NewRoom(id, roomName, host string) *Room {
	return &Room{
		ID:          id,
		RoomName:    roomName,
		Player1:     host,
		Board:       NewBoard(),
		Status:      RoomStatusWaiting,
		CurrentTurn: MarkX,
	}
}

func (that *Room) IsWaiting() bool {
	return that.Status == RoomStatusWaiting
}

// Snapshot - converts the row into the uniform snapshot form.
func (that *Room) Snapshot() Snapshot {
	turn := that.CurrentTurn
	if turn == MarkEmpty {
		turn = MarkX
	}

	phase := Phase(that.Status)
	switch phase {
	case PhaseWaiting, PhasePlaying, PhaseFinished:
	default:
		phase = PhaseWaiting
	}

	return Snapshot{
		Ref:     SessionRef{Mode: ModeRemote, ID: that.ID},
		Board:   that.Board,
		Turn:    turn,
		Phase:   phase,
		PlayerX: that.Player1,
		PlayerO: that.Player2,
		Name:    that.RoomName,
	}
}

// RoomPatch - partial update of a room; nil fields are left untouched.
type RoomPatch struct {
	Player2     *string `json:"player2,omitempty"`
	Board       *Board  `json:"board,omitempty"`
	Status      *string `json:"status,omitempty"`
	CurrentTurn *Mark   `json:"current_turn,omitempty"`
}

func (that RoomPatch) ApplyTo(room *Room) {
	if that.Player2 != nil {
		room.Player2 = *that.Player2
	}

	if that.Board != nil {
		room.Board = *that.Board
	}

	if that.Status != nil {
		room.Status = *that.Status
	}

	if that.CurrentTurn != nil {
		room.CurrentTurn = *that.CurrentTurn
	}
}

type RoomEventType string

const (
	RoomInserted RoomEventType = "INSERT"
	RoomUpdated  RoomEventType = "UPDATE"
	RoomDeleted  RoomEventType = "DELETE"
)

// RoomEvent - whole-row change notification.
type RoomEvent struct {
	Type RoomEventType `json:"type"`
	Room *Room         `json:"room"`
}
