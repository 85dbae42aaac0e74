package repository

import (
	"context"
	"testing"
	"time"

	"github.com/rocketscienceinc/tictactoe-sessions/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/entity"
	"github.com/rocketscienceinc/tictactoe-sessions/testing/suite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eventTimeout = 5 * time.Second

func TestRedisRoomRepository(t *testing.T) {
	runRoomRepositoryContract(t, func(t *testing.T) (context.Context, RoomRepository) {
		ctx, st := suite.New(t)

		return ctx, NewRoomRepository(st.Logger, st.Storage)
	})
}

func TestSQLiteRoomRepository(t *testing.T) {
	runRoomRepositoryContract(t, func(t *testing.T) (context.Context, RoomRepository) {
		ctx, st := suite.NewSQLite(t)

		return ctx, NewSQLiteRoomRepository(st.Logger, st.SQLite.Connection)
	})
}

func TestSQLiteRoomRepository_SlowSubscriber(t *testing.T) {
	ctx, st := suite.NewSQLite(t)
	repo := NewSQLiteRoomRepository(st.Logger, st.SQLite.Connection)

	_, err := repo.Insert(ctx, entity.NewRoom("room-1", "friday", "alice"))
	require.NoError(t, err)

	// Given: a subscriber that reads nothing while the row changes
	sub, err := repo.Subscribe(ctx, "room-1")
	require.NoError(t, err)
	defer sub.Close()

	names := "abcdefghijklmnopqrst"
	for _, name := range names {
		player2 := string(name)
		_, err = repo.Update(ctx, "room-1", entity.RoomPatch{Player2: &player2})
		require.NoError(t, err)
	}

	// When: it finally drains its queue
	var last entity.RoomEvent
	delivered := 0

	for {
		select {
		case last = <-sub.Events():
			delivered++
			continue
		case <-time.After(100 * time.Millisecond):
		}

		break
	}

	// Then: older events were dropped but the latest row arrived
	assert.Equal(t, subscriberBuffer, delivered)
	require.NotNil(t, last.Room)
	assert.Equal(t, "t", last.Room.Player2)

	stored, err := repo.GetByID(ctx, "room-1")
	require.NoError(t, err)
	assert.Equal(t, stored.Player2, last.Room.Player2)
}

func nextEvent(t *testing.T, sub RoomSubscription) entity.RoomEvent {
	t.Helper()

	select {
	case event, ok := <-sub.Events():
		require.True(t, ok, "subscription closed")
		return event
	case <-time.After(eventTimeout):
		t.Fatal("no room event received")
		return entity.RoomEvent{}
	}
}

func runRoomRepositoryContract(t *testing.T, setup func(t *testing.T) (context.Context, RoomRepository)) {
	t.Run("Insert and GetByID", func(t *testing.T) {
		ctx, repo := setup(t)

		// Given: a new waiting room
		room := entity.NewRoom("room-1", "friday", "alice")

		// When: it is inserted and read back
		_, err := repo.Insert(ctx, room)
		require.NoError(t, err)

		stored, err := repo.GetByID(ctx, room.ID)

		// Then: the stored row matches
		require.NoError(t, err)
		assert.Equal(t, room, stored)
		assert.Equal(t, entity.NewBoard(), stored.Board)
		assert.Equal(t, entity.RoomStatusWaiting, stored.Status)
		assert.Equal(t, entity.MarkX, stored.CurrentTurn)
	})

	t.Run("GetByID not found", func(t *testing.T) {
		ctx, repo := setup(t)

		_, err := repo.GetByID(ctx, "missing")

		require.ErrorIs(t, err, apperror.ErrNotFound)
	})

	t.Run("Update applies only the patched fields", func(t *testing.T) {
		ctx, repo := setup(t)

		_, err := repo.Insert(ctx, entity.NewRoom("room-1", "friday", "alice"))
		require.NoError(t, err)

		// When: the second player joins
		player2, status := "bob", entity.RoomStatusPlaying
		updated, err := repo.Update(ctx, "room-1", entity.RoomPatch{Player2: &player2, Status: &status})
		require.NoError(t, err)

		// Then: the board and turn are untouched
		stored, err := repo.GetByID(ctx, "room-1")
		require.NoError(t, err)
		assert.Equal(t, updated, stored)
		assert.Equal(t, "bob", stored.Player2)
		assert.Equal(t, entity.RoomStatusPlaying, stored.Status)
		assert.Equal(t, "alice", stored.Player1)
		assert.Equal(t, entity.NewBoard(), stored.Board)

		// When: a move is written
		board := entity.Board{entity.MarkX}
		turn := entity.MarkO
		_, err = repo.Update(ctx, "room-1", entity.RoomPatch{Board: &board, CurrentTurn: &turn})
		require.NoError(t, err)

		stored, err = repo.GetByID(ctx, "room-1")
		require.NoError(t, err)
		assert.Equal(t, board, stored.Board)
		assert.Equal(t, entity.MarkO, stored.CurrentTurn)
		assert.Equal(t, "bob", stored.Player2)
	})

	t.Run("Update of a missing room", func(t *testing.T) {
		ctx, repo := setup(t)

		status := entity.RoomStatusPlaying
		_, err := repo.Update(ctx, "missing", entity.RoomPatch{Status: &status})

		require.ErrorIs(t, err, apperror.ErrNotFound)
	})

	t.Run("ListByStatus", func(t *testing.T) {
		ctx, repo := setup(t)

		for _, room := range []*entity.Room{
			entity.NewRoom("room-2", "b", "carol"),
			entity.NewRoom("room-1", "a", "alice"),
			entity.NewRoom("room-3", "c", "dave"),
		} {
			_, err := repo.Insert(ctx, room)
			require.NoError(t, err)
		}

		status := entity.RoomStatusPlaying
		_, err := repo.Update(ctx, "room-3", entity.RoomPatch{Status: &status})
		require.NoError(t, err)

		waiting, err := repo.ListByStatus(ctx, entity.RoomStatusWaiting)
		require.NoError(t, err)
		require.Len(t, waiting, 2)
		assert.Equal(t, "room-1", waiting[0].ID)
		assert.Equal(t, "room-2", waiting[1].ID)

		all, err := repo.ListByStatus(ctx, "")
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})

	t.Run("Subscribe delivers whole rows", func(t *testing.T) {
		ctx, repo := setup(t)

		_, err := repo.Insert(ctx, entity.NewRoom("room-1", "friday", "alice"))
		require.NoError(t, err)

		// Given: a row subscription and a table subscription
		rowSub, err := repo.Subscribe(ctx, "room-1")
		require.NoError(t, err)
		defer rowSub.Close()

		tableSub, err := repo.Subscribe(ctx, "")
		require.NoError(t, err)
		defer tableSub.Close()

		// When: the row is updated
		player2 := "bob"
		_, err = repo.Update(ctx, "room-1", entity.RoomPatch{Player2: &player2})
		require.NoError(t, err)

		// Then: both receive the full row
		event := nextEvent(t, rowSub)
		assert.Equal(t, entity.RoomUpdated, event.Type)
		assert.Equal(t, "bob", event.Room.Player2)
		assert.Equal(t, "alice", event.Room.Player1)

		event = nextEvent(t, tableSub)
		assert.Equal(t, "room-1", event.Room.ID)

		// When: another room is inserted
		_, err = repo.Insert(ctx, entity.NewRoom("room-2", "monday", "carol"))
		require.NoError(t, err)

		// Then: only the table subscription sees it
		event = nextEvent(t, tableSub)
		assert.Equal(t, entity.RoomInserted, event.Type)
		assert.Equal(t, "room-2", event.Room.ID)

		select {
		case event := <-rowSub.Events():
			t.Fatalf("unexpected event for %s", event.Room.ID)
		case <-time.After(100 * time.Millisecond):
		}
	})

	t.Run("Closed subscription ends its stream", func(t *testing.T) {
		ctx, repo := setup(t)

		sub, err := repo.Subscribe(ctx, "room-1")
		require.NoError(t, err)

		require.NoError(t, sub.Close())
		require.NoError(t, sub.Close())

		select {
		case _, ok := <-sub.Events():
			assert.False(t, ok)
		case <-time.After(eventTimeout):
			t.Fatal("events channel was not closed")
		}
	})
}
