package service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-sessions/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/chain"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/entity"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/repository"
)

var testContract = chain.Contract{PackageID: "0xpkg", Module: "tictactoe", GasBudget: 1000}

type mockRooms struct {
	mock.Mock
}

func (that *mockRooms) ListByStatus(ctx context.Context, status string) ([]*entity.Room, error) {
	args := that.Called(ctx, status)

	rooms, _ := args.Get(0).([]*entity.Room)

	return rooms, args.Error(1)
}

func (that *mockRooms) Subscribe(ctx context.Context, id string) (repository.RoomSubscription, error) {
	args := that.Called(ctx, id)

	sub, _ := args.Get(0).(repository.RoomSubscription)

	return sub, args.Error(1)
}

type mockOwnedObjects struct {
	mock.Mock
}

func (that *mockOwnedObjects) GetOwnedObjects(ctx context.Context, owner, structType string) ([]chain.ObjectData, error) {
	args := that.Called(ctx, owner, structType)

	objects, _ := args.Get(0).([]chain.ObjectData)

	return objects, args.Error(1)
}

type fakeSubscription struct {
	events chan entity.RoomEvent
	once   sync.Once
}

func (that *fakeSubscription) Events() <-chan entity.RoomEvent {
	return that.events
}

func (that *fakeSubscription) Close() error {
	that.once.Do(func() { close(that.events) })

	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestLobby_ListOpenRooms(t *testing.T) {
	ctx := context.Background()

	t.Run("Waiting rooms become snapshots", func(t *testing.T) {
		rooms := &mockRooms{}
		rooms.On("ListByStatus", ctx, entity.RoomStatusWaiting).Return([]*entity.Room{
			entity.NewRoom("r1", "friday", "alice"),
			entity.NewRoom("r2", "monday", "bob"),
		}, nil)

		snapshots, err := NewLobby(discardLogger(), rooms, nil, testContract).ListOpenRooms(ctx)

		require.NoError(t, err)
		require.Len(t, snapshots, 2)
		assert.Equal(t, "friday", snapshots[0].Name)
		assert.Equal(t, entity.PhaseWaiting, snapshots[1].Phase)
		assert.Equal(t, entity.ModeRemote, snapshots[1].Ref.Mode)
	})

	t.Run("Store failure", func(t *testing.T) {
		rooms := &mockRooms{}
		rooms.On("ListByStatus", ctx, entity.RoomStatusWaiting).Return(nil, assert.AnError)

		_, err := NewLobby(discardLogger(), rooms, nil, testContract).ListOpenRooms(ctx)

		require.ErrorIs(t, err, apperror.ErrTransportFailure)
	})

	t.Run("No remote backend", func(t *testing.T) {
		_, err := NewLobby(discardLogger(), nil, nil, testContract).ListOpenRooms(ctx)

		require.ErrorIs(t, err, apperror.ErrNotSupported)
	})
}

func TestLobby_ListChainGames(t *testing.T) {
	ctx := context.Background()

	t.Run("Undecodable objects are skipped", func(t *testing.T) {
		// Given: one game object and one object without content
		fields, err := json.Marshal(map[string]any{
			"id":       map[string]string{"id": "0xgame"},
			"player_x": "0xaaa",
			"player_o": nil,
			"board":    [9]int{},
			"turn":     1,
			"status":   0,
			"result":   0,
		})
		require.NoError(t, err)

		objects := &mockOwnedObjects{}
		objects.On("GetOwnedObjects", ctx, "0xaaa", testContract.GameType()).Return([]chain.ObjectData{
			{ObjectID: "0xgame", Content: &chain.ObjectContent{DataType: "moveObject", Fields: fields}},
			{ObjectID: "0xbroken"},
		}, nil)

		// When: listing
		snapshots, err := NewLobby(discardLogger(), nil, objects, testContract).ListChainGames(ctx, "0xaaa")

		// Then: only the decodable game is listed
		require.NoError(t, err)
		require.Len(t, snapshots, 1)
		assert.Equal(t, "0xgame", snapshots[0].Ref.ID)
		assert.Equal(t, entity.PhaseWaiting, snapshots[0].Phase)
	})

	t.Run("Owner is required", func(t *testing.T) {
		objects := &mockOwnedObjects{}

		_, err := NewLobby(discardLogger(), nil, objects, testContract).ListChainGames(ctx, "")

		require.ErrorIs(t, err, apperror.ErrIdentityRequired)
		objects.AssertNotCalled(t, "GetOwnedObjects", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestLobby_WatchRooms(t *testing.T) {
	ctx := context.Background()

	// Given: a table subscription
	sub := &fakeSubscription{events: make(chan entity.RoomEvent, 4)}
	rooms := &mockRooms{}
	rooms.On("Subscribe", ctx, "").Return(sub, nil)

	var changes atomic.Int32
	watch, err := NewLobby(discardLogger(), rooms, nil, testContract).WatchRooms(ctx, func() { changes.Add(1) })
	require.NoError(t, err)

	// When: two rooms change
	sub.events <- entity.RoomEvent{Type: entity.RoomInserted, Room: entity.NewRoom("r1", "friday", "alice")}
	sub.events <- entity.RoomEvent{Type: entity.RoomUpdated, Room: entity.NewRoom("r1", "friday", "alice")}

	// Then: the callback runs for each, and stops after Close
	require.Eventually(t, func() bool { return changes.Load() == 2 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, watch.Close())
	require.NoError(t, watch.Close())
}
