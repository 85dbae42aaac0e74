package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/rocketscienceinc/tictactoe-sessions/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/chain"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/entity"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/repository"
)

type roomLister interface {
	ListByStatus(ctx context.Context, status string) ([]*entity.Room, error)
	Subscribe(ctx context.Context, id string) (repository.RoomSubscription, error)
}

// OwnedObjects - chain objects listed by owner.
type OwnedObjects interface {
	GetOwnedObjects(ctx context.Context, owner, structType string) ([]chain.ObjectData, error)
}

// Lobby - lists sessions a player can enter.
type Lobby struct {
	logger   *slog.Logger
	rooms    roomLister
	objects  OwnedObjects
	contract chain.Contract
}

// NewLobby - rooms or objects may be nil when that backend is not configured.
func NewLobby(logger *slog.Logger, rooms roomLister, objects OwnedObjects, contract chain.Contract) *Lobby {
	return &Lobby{
		logger:   logger.With("component", "lobby"),
		rooms:    rooms,
		objects:  objects,
		contract: contract,
	}
}

// ListOpenRooms - rooms still waiting for a second player.
func (that *Lobby) ListOpenRooms(ctx context.Context) ([]entity.Snapshot, error) {
	if that.rooms == nil {
		return nil, apperror.ErrNotSupported
	}

	rooms, err := that.rooms.ListByStatus(ctx, entity.RoomStatusWaiting)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list rooms: %w", apperror.ErrTransportFailure, err)
	}

	snapshots := make([]entity.Snapshot, 0, len(rooms))
	for _, room := range rooms {
		snapshots = append(snapshots, room.Snapshot())
	}

	return snapshots, nil
}

// ListChainGames - game objects owned by an address. Undecodable objects are skipped.
func (that *Lobby) ListChainGames(ctx context.Context, owner string) ([]entity.Snapshot, error) {
	log := that.logger.With("method", "ListChainGames", "owner", owner)

	if that.objects == nil {
		return nil, apperror.ErrNotSupported
	}

	if owner == "" {
		return nil, apperror.ErrIdentityRequired
	}

	objects, err := that.objects.GetOwnedObjects(ctx, owner, that.contract.GameType())
	if err != nil {
		if chain.IsRPCError(err) {
			err = fmt.Errorf("%w: %w", apperror.ErrTransportFailure, err)
		}

		return nil, fmt.Errorf("failed to list games: %w", err)
	}

	snapshots := make([]entity.Snapshot, 0, len(objects))
	for i := range objects {
		game, err := chain.DecodeGame(&objects[i])
		if err != nil {
			log.Warn("skipping game object", "object_id", objects[i].ObjectID, "error", err)
			continue
		}

		snapshot, err := game.Snapshot()
		if err != nil {
			log.Warn("skipping game object", "object_id", objects[i].ObjectID, "error", err)
			continue
		}

		snapshots = append(snapshots, snapshot)
	}

	return snapshots, nil
}

// WatchRooms - calls onChange after every change of the rooms table until closed.
func (that *Lobby) WatchRooms(ctx context.Context, onChange func()) (io.Closer, error) {
	if that.rooms == nil {
		return nil, apperror.ErrNotSupported
	}

	sub, err := that.rooms.Subscribe(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperror.ErrTransportFailure, err)
	}

	watch := &roomsWatch{sub: sub, done: make(chan struct{})}

	go func() {
		defer close(watch.done)

		for range sub.Events() {
			onChange()
		}
	}()

	return watch, nil
}

type roomsWatch struct {
	sub  repository.RoomSubscription
	done chan struct{}
	once sync.Once
}

func (that *roomsWatch) Close() error {
	var err error
	that.once.Do(func() {
		err = that.sub.Close()
		<-that.done
	})

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to close rooms watch: %w", err)
	}

	return nil
}
