package usecase

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/rocketscienceinc/tictactoe-sessions/internal/chain"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/entity"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/repository"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/tictactoe"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/transport"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

type mockTransport struct {
	mock.Mock
	mode entity.Mode
}

func (that *mockTransport) Mode() entity.Mode {
	return that.mode
}

func (that *mockTransport) Create(ctx context.Context, conf transport.SessionConfig) (entity.Snapshot, error) {
	args := that.Called(ctx, conf)

	snapshot, _ := args.Get(0).(entity.Snapshot)

	return snapshot, args.Error(1)
}

func (that *mockTransport) Join(ctx context.Context, ref entity.SessionRef, actor string) (entity.Snapshot, error) {
	args := that.Called(ctx, ref, actor)

	snapshot, _ := args.Get(0).(entity.Snapshot)

	return snapshot, args.Error(1)
}

func (that *mockTransport) SubmitMove(ctx context.Context, ref entity.SessionRef, move entity.Move) error {
	return that.Called(ctx, ref, move).Error(0)
}

func (that *mockTransport) Rematch(ctx context.Context, ref entity.SessionRef) (entity.Snapshot, error) {
	args := that.Called(ctx, ref)

	snapshot, _ := args.Get(0).(entity.Snapshot)

	return snapshot, args.Error(1)
}

func (that *mockTransport) Subscribe(ctx context.Context, ref entity.SessionRef, observer transport.Observer) (transport.Subscription, error) {
	args := that.Called(ctx, ref, observer)

	sub, _ := args.Get(0).(transport.Subscription)

	return sub, args.Error(1)
}

type mockLobby struct {
	mock.Mock
}

func (that *mockLobby) ListOpenRooms(ctx context.Context) ([]entity.Snapshot, error) {
	args := that.Called(ctx)

	rooms, _ := args.Get(0).([]entity.Snapshot)

	return rooms, args.Error(1)
}

func (that *mockLobby) ListChainGames(ctx context.Context, owner string) ([]entity.Snapshot, error) {
	args := that.Called(ctx, owner)

	rooms, _ := args.Get(0).([]entity.Snapshot)

	return rooms, args.Error(1)
}

func (that *mockLobby) WatchRooms(ctx context.Context, onChange func()) (io.Closer, error) {
	args := that.Called(ctx, onChange)

	closer, _ := args.Get(0).(io.Closer)

	return closer, args.Error(1)
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

type staticWallet string

func (that staticWallet) Address() string {
	return string(that)
}

func (that staticWallet) SignAndExecute(context.Context, chain.MoveCall) (*chain.TransactionResponse, error) {
	return &chain.TransactionResponse{}, nil
}

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

type nopSubscription struct{}

func (nopSubscription) Close() error {
	return nil
}

// recordingPresenter - collects everything pushed to the UI.
type recordingPresenter struct {
	mu       sync.Mutex
	views    []tictactoe.View
	outcomes []entity.Outcome
	lobbies  [][]entity.Snapshot
	errors   []error
}

func (that *recordingPresenter) OnState(view tictactoe.View) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.views = append(that.views, view)
}

func (that *recordingPresenter) OnGameOver(outcome entity.Outcome) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.outcomes = append(that.outcomes, outcome)
}

func (that *recordingPresenter) OnLobby(rooms []entity.Snapshot) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.lobbies = append(that.lobbies, rooms)
}

func (that *recordingPresenter) OnError(err error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.errors = append(that.errors, err)
}

func (that *recordingPresenter) lastView() tictactoe.View {
	that.mu.Lock()
	defer that.mu.Unlock()

	if len(that.views) == 0 {
		return tictactoe.View{}
	}

	return that.views[len(that.views)-1]
}

func (that *recordingPresenter) viewCount() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return len(that.views)
}

func (that *recordingPresenter) allViews() []tictactoe.View {
	that.mu.Lock()
	defer that.mu.Unlock()

	return append([]tictactoe.View(nil), that.views...)
}

func (that *recordingPresenter) gameOvers() []entity.Outcome {
	that.mu.Lock()
	defer that.mu.Unlock()

	return append([]entity.Outcome(nil), that.outcomes...)
}

func (that *recordingPresenter) errorList() []error {
	that.mu.Lock()
	defer that.mu.Unlock()

	return append([]error(nil), that.errors...)
}

func (that *recordingPresenter) lobbyCount() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return len(that.lobbies)
}
