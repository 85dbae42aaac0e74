package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/rocketscienceinc/tictactoe-sessions/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/entity"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/pkg"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/repository"
)

type roomStore interface {
	Insert(ctx context.Context, room *entity.Room) (*entity.Room, error)
	Update(ctx context.Context, id string, patch entity.RoomPatch) (*entity.Room, error)
	GetByID(ctx context.Context, id string) (*entity.Room, error)
	Subscribe(ctx context.Context, id string) (repository.RoomSubscription, error)
}

// Remote - sessions stored as rows of the rooms table, synced by push events.
// Writes are not version-checked: concurrent writers race and the last one wins.
type Remote struct {
	logger *slog.Logger
	rooms  roomStore
}

func NewRemote(logger *slog.Logger, rooms roomStore) *Remote {
	return &Remote{
		logger: logger.With("component", "remote_transport"),
		rooms:  rooms,
	}
}

func (that *Remote) Mode() entity.Mode {
	return entity.ModeRemote
}

func (that *Remote) Create(ctx context.Context, conf SessionConfig) (entity.Snapshot, error) {
	log := that.logger.With("method", "Create")

	host := strings.TrimSpace(conf.Host)
	if host == "" {
		return entity.Snapshot{}, apperror.ErrIdentityRequired
	}

	name := strings.TrimSpace(conf.RoomName)
	if name == "" {
		name = host + "'s room"
	}

	room, err := that.rooms.Insert(ctx, entity.NewRoom(pkg.NewID(), name, host))
	if err != nil {
		return entity.Snapshot{}, fmt.Errorf("%w: failed to create room: %w", apperror.ErrTransportFailure, err)
	}

	log.Info("room created", "room_id", room.ID, "host", host)

	return room.Snapshot(), nil
}

// Join - binds the actor as O on a waiting room. Two simultaneous joiners are not guarded against.
func (that *Remote) Join(ctx context.Context, ref entity.SessionRef, actor string) (entity.Snapshot, error) {
	log := that.logger.With("method", "Join", "room_id", ref.ID)

	if actor == "" {
		return entity.Snapshot{}, apperror.ErrIdentityRequired
	}

	room, err := that.rooms.GetByID(ctx, ref.ID)
	if errors.Is(err, apperror.ErrNotFound) {
		return entity.Snapshot{}, fmt.Errorf("%w: %w", apperror.ErrRoomUnavailable, err)
	}

	if err != nil {
		return entity.Snapshot{}, fmt.Errorf("%w: %w", apperror.ErrTransportFailure, err)
	}

	// the host and an already seated player re-enter without a write
	if room.Player1 == actor || (room.Player2 != "" && room.Player2 == actor) {
		return room.Snapshot(), nil
	}

	if !room.IsWaiting() || room.Player2 != "" {
		log.Info("room is not joinable", "status", room.Status)
		return entity.Snapshot{}, apperror.ErrRoomUnavailable
	}

	status := entity.RoomStatusPlaying
	room, err = that.rooms.Update(ctx, ref.ID, entity.RoomPatch{Player2: &actor, Status: &status})
	if err != nil {
		return entity.Snapshot{}, fmt.Errorf("%w: failed to join room: %w", apperror.ErrTransportFailure, err)
	}

	log.Info("room joined", "player", actor)

	return room.Snapshot(), nil
}

// SubmitMove - writes board and turn; the pushed row event brings the result back.
func (that *Remote) SubmitMove(ctx context.Context, ref entity.SessionRef, move entity.Move) error {
	board, turn := move.Board, move.NextTurn

	if _, err := that.rooms.Update(ctx, ref.ID, entity.RoomPatch{Board: &board, CurrentTurn: &turn}); err != nil {
		that.logger.Error("failed to submit move", "method", "SubmitMove", "room_id", ref.ID, "error", err)
		return fmt.Errorf("%w: failed to submit move: %w", apperror.ErrTransportFailure, err)
	}

	return nil
}

// Rematch - clears the board; a room with no O player stays open for joining.
func (that *Remote) Rematch(ctx context.Context, ref entity.SessionRef) (entity.Snapshot, error) {
	room, err := that.rooms.GetByID(ctx, ref.ID)
	if errors.Is(err, apperror.ErrNotFound) {
		return entity.Snapshot{}, fmt.Errorf("%w: %w", apperror.ErrRoomUnavailable, err)
	}

	if err != nil {
		return entity.Snapshot{}, fmt.Errorf("%w: %w", apperror.ErrTransportFailure, err)
	}

	board, turn, status := entity.NewBoard(), entity.MarkX, entity.RoomStatusPlaying
	if room.Player2 == "" {
		status = entity.RoomStatusWaiting
	}

	room, err = that.rooms.Update(ctx, ref.ID, entity.RoomPatch{Board: &board, CurrentTurn: &turn, Status: &status})
	if err != nil {
		return entity.Snapshot{}, fmt.Errorf("%w: failed to reset room: %w", apperror.ErrTransportFailure, err)
	}

	return room.Snapshot(), nil
}

// Subscribe - every change of the row, including this client's own writes, is delivered whole.
func (that *Remote) Subscribe(ctx context.Context, ref entity.SessionRef, observer Observer) (Subscription, error) {
	log := that.logger.With("method", "Subscribe", "room_id", ref.ID)

	events, err := that.rooms.Subscribe(ctx, ref.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperror.ErrTransportFailure, err)
	}

	sub := &roomFeed{
		events: events,
		closed: make(chan struct{}),
		done:   make(chan struct{}),
	}

	go sub.forward(log, observer)

	return sub, nil
}

type roomFeed struct {
	events repository.RoomSubscription
	closed chan struct{}
	done   chan struct{}
	once   sync.Once
}

func (that *roomFeed) forward(log *slog.Logger, observer Observer) {
	defer close(that.done)

	for event := range that.events.Events() {
		select {
		case <-that.closed:
			return
		default:
		}

		if event.Type == entity.RoomDeleted || event.Room == nil {
			continue
		}

		observer.OnSnapshot(event.Room.Snapshot())
	}

	select {
	case <-that.closed:
	default:
		log.Warn("room feed ended")
		observer.OnSyncError(fmt.Errorf("%w: room feed ended", apperror.ErrTransportFailure))
	}
}

// Close - detaches the observer; nothing is delivered once Close returns.
func (that *roomFeed) Close() error {
	var err error
	that.once.Do(func() {
		close(that.closed)
		err = that.events.Close()
		<-that.done
	})

	return err
}
