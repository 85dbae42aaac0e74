package entity

type Mode string

const (
	ModeNone    Mode = ""
	ModeLocal   Mode = "local"
	ModeRemote  Mode = "remote"
	ModeOnChain Mode = "onchain"
)

func (that Mode) IsValid() bool {
	switch that {
	case ModeLocal, ModeRemote, ModeOnChain:
		return true
	default:
		return false
	}
}

// Status - lifecycle state of a session.
type Status string

const (
	StatusAwaitingSetup Status = "awaiting_setup"
	StatusInProgress    Status = "in_progress"
	StatusWon           Status = "won"
	StatusDrawn         Status = "drawn"
)

func (that Status) IsTerminal() bool {
	return that == StatusWon || that == StatusDrawn
}

// Phase - status of the external record a session mirrors.
type Phase string

const (
	PhaseWaiting  Phase = "waiting"
	PhasePlaying  Phase = "playing"
	PhaseFinished Phase = "finished"
)

// Outcome - result of evaluating a board.
type Outcome struct {
	Status Status `json:"status"`
	Winner Mark   `json:"winner,omitempty"`
}

func (that Outcome) IsTerminal() bool {
	return that.Status.IsTerminal()
}

// SessionRef - opaque handle of a session owned by a transport.
type SessionRef struct {
	Mode Mode   `json:"mode"`
	ID   string `json:"id"`
}

func (that SessionRef) IsZero() bool {
	return that.ID == ""
}

// Move - a placement together with the state it produces.
type Move struct {
	Cell     int    `json:"cell"`
	Mark     Mark   `json:"mark"`
	Actor    string `json:"actor,omitempty"`
	Board    Board  `json:"board"`
	NextTurn Mark   `json:"next_turn"`
}

// Snapshot - full replacement view of a remote record or chain object.
type Snapshot struct {
	Ref     SessionRef `json:"ref"`
	Board   Board      `json:"board"`
	Turn    Mark       `json:"turn"`
	Phase   Phase      `json:"phase"`
	PlayerX string     `json:"player_x"`
	PlayerO string     `json:"player_o,omitempty"`
	Name    string     `json:"name,omitempty"`

	// Result is set only when the record itself declares the outcome.
	Result *Outcome `json:"result,omitempty"`
}

// Equal - reports whether two snapshots carry the same content.
func (that Snapshot) Equal(other Snapshot) bool {
	if that.Ref != other.Ref ||
		that.Board != other.Board ||
		that.Turn != other.Turn ||
		that.Phase != other.Phase ||
		that.PlayerX != other.PlayerX ||
		that.PlayerO != other.PlayerO ||
		that.Name != other.Name {
		return false
	}

	switch {
	case that.Result == nil && other.Result == nil:
		return true
	case that.Result == nil || other.Result == nil:
		return false
	default:
		return *that.Result == *other.Result
	}
}
