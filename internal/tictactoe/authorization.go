package tictactoe

import (
	"strings"

	"github.com/rocketscienceinc/tictactoe-sessions/internal/entity"
)

// TurnState - who is seated and whose turn it is.
type TurnState struct {
	Turn    entity.Mark
	PlayerX string
	PlayerO string
}

// Holder - identity bound to the mark whose turn it is.
func (that TurnState) Holder() string {
	switch that.Turn {
	case entity.MarkX:
		return that.PlayerX
	case entity.MarkO:
		return that.PlayerO
	default:
		return ""
	}
}

// Authorizer - decides whether an actor may place the next mark.
type Authorizer interface {
	CanMove(actor string, state TurnState) bool
}

// NewAuthorizer - returns the authorizer a session of the given mode uses for its whole life.
func NewAuthorizer(mode entity.Mode) Authorizer {
	switch mode {
	case entity.ModeLocal:
		return localAuthorizer{}
	case entity.ModeOnChain:
		return seatAuthorizer{same: strings.EqualFold}
	default:
		return seatAuthorizer{same: func(a, b string) bool { return a == b }}
	}
}

// localAuthorizer - players share one input surface.
type localAuthorizer struct{}

func (localAuthorizer) CanMove(string, TurnState) bool {
	return true
}

type seatAuthorizer struct {
	same func(a, b string) bool
}

func (that seatAuthorizer) CanMove(actor string, state TurnState) bool {
	if actor == "" {
		return false
	}

	holder := state.Holder()
	if holder == "" {
		return false
	}

	return that.same(actor, holder)
}
