package transport

import (
	"context"
	"fmt"
	"strings"

	"github.com/rocketscienceinc/tictactoe-sessions/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/entity"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/pkg"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/tictactoe"
)

// Local - the in-process session is the whole state; nothing is synced.
type Local struct {
	session *tictactoe.Session
}

func NewLocal(session *tictactoe.Session) *Local {
	return &Local{session: session}
}

func (that *Local) Mode() entity.Mode {
	return entity.ModeLocal
}

func (that *Local) Create(_ context.Context, conf SessionConfig) (entity.Snapshot, error) {
	host, opponent := strings.TrimSpace(conf.Host), strings.TrimSpace(conf.Opponent)
	if host == "" || opponent == "" {
		return entity.Snapshot{}, fmt.Errorf("%w: both player names", apperror.ErrIdentityRequired)
	}

	that.session.SetRef(entity.SessionRef{Mode: entity.ModeLocal, ID: pkg.NewID()}, conf.RoomName)
	that.session.Bind(host, opponent)
	that.session.Rematch()

	return that.snapshot(), nil
}

// Join - only the session this transport already holds can be joined.
func (that *Local) Join(_ context.Context, ref entity.SessionRef, _ string) (entity.Snapshot, error) {
	if err := that.check(ref); err != nil {
		return entity.Snapshot{}, err
	}

	return that.snapshot(), nil
}

func (that *Local) SubmitMove(_ context.Context, ref entity.SessionRef, move entity.Move) error {
	if err := that.check(ref); err != nil {
		return err
	}

	return that.session.ApplyMove(move.Actor, move.Cell)
}

func (that *Local) Rematch(_ context.Context, ref entity.SessionRef) (entity.Snapshot, error) {
	if err := that.check(ref); err != nil {
		return entity.Snapshot{}, err
	}

	that.session.Rematch()

	return that.snapshot(), nil
}

func (that *Local) Subscribe(_ context.Context, ref entity.SessionRef, _ Observer) (Subscription, error) {
	if err := that.check(ref); err != nil {
		return nil, err
	}

	return noopSubscription{}, nil
}

func (that *Local) check(ref entity.SessionRef) error {
	if ref.IsZero() || ref != that.session.Ref() {
		return fmt.Errorf("local session %q: %w", ref.ID, apperror.ErrNotFound)
	}

	return nil
}

func (that *Local) snapshot() entity.Snapshot {
	view := that.session.View()

	phase := entity.PhasePlaying
	if view.Status.IsTerminal() {
		phase = entity.PhaseFinished
	}

	return entity.Snapshot{
		Ref:     view.Ref,
		Board:   view.Board,
		Turn:    view.Turn,
		Phase:   phase,
		PlayerX: view.PlayerX,
		PlayerO: view.PlayerO,
		Name:    view.Name,
	}
}
