package transport

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"

	"github.com/rocketscienceinc/tictactoe-sessions/internal/chain"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/entity"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/repository"
	"github.com/stretchr/testify/mock"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

type mockRoomStore struct {
	mock.Mock
}

func (that *mockRoomStore) Insert(ctx context.Context, room *entity.Room) (*entity.Room, error) {
	args := that.Called(ctx, room)

	if fn, ok := args.Get(0).(func(context.Context, *entity.Room) *entity.Room); ok {
		return fn(ctx, room), args.Error(1)
	}

	stored, _ := args.Get(0).(*entity.Room)

	return stored, args.Error(1)
}

func (that *mockRoomStore) Update(ctx context.Context, id string, patch entity.RoomPatch) (*entity.Room, error) {
	args := that.Called(ctx, id, patch)

	room, _ := args.Get(0).(*entity.Room)

	return room, args.Error(1)
}

func (that *mockRoomStore) GetByID(ctx context.Context, id string) (*entity.Room, error) {
	args := that.Called(ctx, id)

	room, _ := args.Get(0).(*entity.Room)

	return room, args.Error(1)
}

func (that *mockRoomStore) Subscribe(ctx context.Context, id string) (repository.RoomSubscription, error) {
	args := that.Called(ctx, id)

	sub, _ := args.Get(0).(repository.RoomSubscription)

	return sub, args.Error(1)
}

type mockObjectReader struct {
	mock.Mock
}

func (that *mockObjectReader) GetObject(ctx context.Context, id string) (*chain.ObjectData, error) {
	args := that.Called(ctx, id)

	object, _ := args.Get(0).(*chain.ObjectData)

	return object, args.Error(1)
}

type mockSigner struct {
	mock.Mock
}

func (that *mockSigner) Address() string {
	return that.Called().String(0)
}

func (that *mockSigner) SignAndExecute(ctx context.Context, call chain.MoveCall) (*chain.TransactionResponse, error) {
	args := that.Called(ctx, call)

	response, _ := args.Get(0).(*chain.TransactionResponse)

	return response, args.Error(1)
}

// fakeRoomSubscription - a channel-backed room event stream.
type fakeRoomSubscription struct {
	events chan entity.RoomEvent
	once   sync.Once
}

func newFakeRoomSubscription() *fakeRoomSubscription {
	return &fakeRoomSubscription{events: make(chan entity.RoomEvent, 8)}
}

func (that *fakeRoomSubscription) Events() <-chan entity.RoomEvent {
	return that.events
}

func (that *fakeRoomSubscription) Close() error {
	that.once.Do(func() { close(that.events) })

	return nil
}

// recordingObserver - collects deliveries for assertions.
type recordingObserver struct {
	mu        sync.Mutex
	snapshots []entity.Snapshot
	errors    []error
	recovered int
	notify    chan struct{}
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{notify: make(chan struct{}, 64)}
}

func (that *recordingObserver) OnSnapshot(snapshot entity.Snapshot) {
	that.mu.Lock()
	that.snapshots = append(that.snapshots, snapshot)
	that.mu.Unlock()

	that.notify <- struct{}{}
}

func (that *recordingObserver) OnSyncError(err error) {
	that.mu.Lock()
	that.errors = append(that.errors, err)
	that.mu.Unlock()

	that.notify <- struct{}{}
}

func (that *recordingObserver) OnSyncRecovered() {
	that.mu.Lock()
	that.recovered++
	that.mu.Unlock()

	that.notify <- struct{}{}
}

func (that *recordingObserver) state() ([]entity.Snapshot, []error, int) {
	that.mu.Lock()
	defer that.mu.Unlock()

	return append([]entity.Snapshot(nil), that.snapshots...), append([]error(nil), that.errors...), that.recovered
}

func gameObjectData(id string, board [9]int, turn, status, result int, playerO string) *chain.ObjectData {
	fields := map[string]any{
		"id":       map[string]string{"id": id},
		"player_x": "0xaaa",
		"player_o": playerO,
		"board":    board,
		"turn":     turn,
		"status":   status,
		"result":   result,
	}
	if playerO == "" {
		fields["player_o"] = nil
	}

	return &chain.ObjectData{
		ObjectID: id,
		Content: &chain.ObjectContent{
			DataType: "moveObject",
			Fields:   mustMarshal(fields),
		},
	}
}

func mustMarshal(value any) json.RawMessage {
	data, err := json.Marshal(value)
	if err != nil {
		panic(err)
	}

	return data
}
