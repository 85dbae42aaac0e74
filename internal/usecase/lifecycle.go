package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/rocketscienceinc/tictactoe-sessions/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/entity"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/tictactoe"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/transport"
)

const localRoomName = "local"

// Presenter - receives everything the UI shows.
type Presenter interface {
	OnState(view tictactoe.View)
	OnGameOver(outcome entity.Outcome)
	OnLobby(rooms []entity.Snapshot)
	OnError(err error)
}

type lobbyService interface {
	ListOpenRooms(ctx context.Context) ([]entity.Snapshot, error)
	ListChainGames(ctx context.Context, owner string) ([]entity.Snapshot, error)
	WatchRooms(ctx context.Context, onChange func()) (io.Closer, error)
}

type addressProvider interface {
	Address() string
}

// Backends - shared transports; a nil transport disables its mode.
type Backends struct {
	Remote  transport.Transport
	OnChain transport.Transport
	Lobby   lobbyService
	Wallet  addressProvider
}

// Controller - owns the active mode and at most one session for a single UI.
type Controller struct {
	logger    *slog.Logger
	ctx       context.Context
	backends  Backends
	presenter Presenter

	mu          sync.Mutex
	mode        entity.Mode
	name        string
	session     *tictactoe.Session
	transport   transport.Transport
	ref         entity.SessionRef
	sub         transport.Subscription
	lobby       io.Closer
	generation  uint64
	pending     bool
	pendingJoin string
	syncErr     error
	rematchOf   entity.SessionRef

	outMu    sync.Mutex
	gameOver []entity.Outcome
}

// NewController - ctx bounds the lifetime of every subscription the controller opens.
func NewController(ctx context.Context, logger *slog.Logger, backends Backends, presenter Presenter) *Controller {
	return &Controller{
		logger:    logger.With("component", "lifecycle"),
		ctx:       ctx,
		backends:  backends,
		presenter: presenter,
		mode:      entity.ModeLocal,
	}
}

func (that *Controller) Mode() entity.Mode {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.mode
}

// Identity - the remote name, the wallet address, or empty in local mode.
func (that *Controller) Identity() string {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.identity()
}

// SelectMode - tears down whatever is active before switching.
func (that *Controller) SelectMode(mode entity.Mode) error {
	if !mode.IsValid() {
		return fmt.Errorf("%w: mode %q", apperror.ErrNotSupported, mode)
	}

	if mode != entity.ModeLocal && that.transportFor(mode) == nil {
		return fmt.Errorf("%w: mode %q is not configured", apperror.ErrNotSupported, mode)
	}

	that.mu.Lock()
	closers := that.detach()
	that.mode = mode
	that.pendingJoin = ""
	that.mu.Unlock()

	that.closeAll(closers)

	that.logger.Info("mode selected", "method", "SelectMode", "mode", mode)

	return nil
}

// StartLocal - two names sharing one input surface.
func (that *Controller) StartLocal(ctx context.Context, nameX, nameO string) error {
	if that.Mode() != entity.ModeLocal {
		return fmt.Errorf("%w: local game outside local mode", apperror.ErrNotSupported)
	}

	session := tictactoe.NewSession(entity.ModeLocal)
	local := transport.NewLocal(session)

	snapshot, err := local.Create(ctx, transport.SessionConfig{RoomName: localRoomName, Host: nameX, Opponent: nameO})
	if err != nil {
		return fmt.Errorf("failed to start local game: %w", err)
	}

	return that.enter(session, local, snapshot.Ref, entity.SessionRef{})
}

// SetIdentity - binds the remote player name and consumes a pending join.
func (that *Controller) SetIdentity(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return apperror.ErrIdentityRequired
	}

	that.mu.Lock()
	if that.mode != entity.ModeRemote {
		that.mu.Unlock()
		return fmt.Errorf("%w: identity is the wallet address in %q mode", apperror.ErrNotSupported, that.mode)
	}

	that.name = name
	target := that.pendingJoin
	that.pendingJoin = ""
	that.mu.Unlock()

	that.publish()

	if target != "" {
		return that.Join(ctx, target)
	}

	return nil
}

// OpenLobby - lists joinable sessions; a join target waits for the identity when none is bound.
func (that *Controller) OpenLobby(ctx context.Context, joinTarget string) error {
	log := that.logger.With("method", "OpenLobby")

	that.mu.Lock()
	mode, identity := that.mode, that.identity()
	that.mu.Unlock()

	if mode == entity.ModeLocal || that.backends.Lobby == nil {
		return fmt.Errorf("%w: no lobby in %q mode", apperror.ErrNotSupported, mode)
	}

	joinTarget = strings.TrimSpace(joinTarget)
	if joinTarget != "" {
		if identity != "" {
			return that.Join(ctx, joinTarget)
		}

		if mode == entity.ModeOnChain {
			return fmt.Errorf("%w: connect a wallet to join", apperror.ErrIdentityRequired)
		}

		that.mu.Lock()
		that.pendingJoin = joinTarget
		that.mu.Unlock()

		log.Debug("join deferred until identity is set", "target", joinTarget)
	}

	if err := that.refreshLobby(ctx); err != nil {
		return err
	}

	if mode != entity.ModeRemote {
		return nil
	}

	watch, err := that.backends.Lobby.WatchRooms(that.ctx, func() {
		if err := that.refreshLobby(that.ctx); err != nil {
			log.Warn("failed to refresh lobby", "error", err)
		}
	})
	if err != nil {
		log.Error("failed to watch rooms", "error", err)
		return nil
	}

	that.mu.Lock()
	previous := that.lobby
	that.lobby = watch
	that.mu.Unlock()

	that.closeAll([]io.Closer{previous})

	return nil
}

// Create - hosts a new session as X.
func (that *Controller) Create(ctx context.Context, roomName string) error {
	tr, identity, err := that.onlineContext()
	if err != nil {
		return err
	}

	snapshot, err := tr.Create(ctx, transport.SessionConfig{RoomName: strings.TrimSpace(roomName), Host: identity})
	if err != nil {
		that.report(err)
		return fmt.Errorf("failed to create session: %w", err)
	}

	return that.startSession(tr, snapshot, entity.SessionRef{})
}

// Join - takes the O seat, or re-enters a session the identity already sits in.
func (that *Controller) Join(ctx context.Context, id string) error {
	tr, identity, err := that.onlineContext()
	if err != nil {
		return err
	}

	snapshot, err := tr.Join(ctx, entity.SessionRef{Mode: tr.Mode(), ID: strings.TrimSpace(id)}, identity)
	if err != nil {
		that.report(err)

		if errors.Is(err, apperror.ErrRoomUnavailable) {
			if refreshErr := that.refreshLobby(ctx); refreshErr != nil {
				that.logger.Warn("failed to refresh lobby", "method", "Join", "error", refreshErr)
			}
		}

		return fmt.Errorf("failed to join session: %w", err)
	}

	return that.startSession(tr, snapshot, entity.SessionRef{})
}

// MakeMove - refusals are returned but never presented.
func (that *Controller) MakeMove(ctx context.Context, cell int) error {
	that.mu.Lock()

	if that.session == nil {
		that.mu.Unlock()
		return apperror.ErrNoActiveSession
	}

	if that.pending {
		that.mu.Unlock()
		return apperror.ErrMovePending
	}

	move, err := that.session.Propose(that.identity(), cell)
	if err != nil {
		that.mu.Unlock()
		return fmt.Errorf("move refused: %w", err)
	}

	session, tr, ref, gen := that.session, that.transport, that.ref, that.generation

	if session.OwnsState() {
		err = tr.SubmitMove(ctx, ref, move)
		that.mu.Unlock()
		that.publish()

		return err
	}

	that.pending = true
	that.mu.Unlock()
	that.publish()

	err = tr.SubmitMove(ctx, ref, move)

	that.mu.Lock()
	if that.generation == gen {
		that.pending = false
	}
	that.mu.Unlock()

	if err != nil {
		that.report(err)
		that.publish()

		return fmt.Errorf("failed to submit move: %w", err)
	}

	that.publish()

	return nil
}

// Undo - local only.
func (that *Controller) Undo() error {
	return that.rewind(func(session *tictactoe.Session) error {
		return session.Undo()
	})
}

// JumpTo - local only; any recorded step.
func (that *Controller) JumpTo(step int) error {
	return that.rewind(func(session *tictactoe.Session) error {
		return session.JumpTo(step)
	})
}

func (that *Controller) Rematch(ctx context.Context) error {
	that.mu.Lock()
	session, tr, ref, gen, pending := that.session, that.transport, that.ref, that.generation, that.pending
	that.mu.Unlock()

	if session == nil {
		return apperror.ErrNoActiveSession
	}

	if pending {
		return apperror.ErrMovePending
	}

	snapshot, err := tr.Rematch(ctx, ref)
	if err != nil {
		that.report(err)
		return fmt.Errorf("failed to rematch: %w", err)
	}

	if session.OwnsState() {
		that.publish()
		return nil
	}

	if snapshot.Ref != ref {
		return that.startSession(tr, snapshot, ref)
	}

	that.mu.Lock()
	if that.generation == gen {
		if err = session.ApplySnapshot(snapshot); err != nil {
			that.logger.Error("failed to apply rematch", "method", "Rematch", "error", err)
		}
	}
	that.mu.Unlock()

	that.publish()

	return nil
}

// Leave - drops the session and every subscription; the mode is kept.
func (that *Controller) Leave() {
	that.mu.Lock()
	closers := that.detach()
	that.mu.Unlock()

	that.closeAll(closers)
}

func (that *Controller) Close() error {
	that.Leave()

	return nil
}

// View - current read model, false when no session is active.
func (that *Controller) View() (tictactoe.View, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.view()
}

// startSession - rematchOf names the finished session this one replaces, if any.
func (that *Controller) startSession(tr transport.Transport, snapshot entity.Snapshot, rematchOf entity.SessionRef) error {
	session := tictactoe.NewSession(tr.Mode())
	if err := session.ApplySnapshot(snapshot); err != nil {
		return fmt.Errorf("failed to apply snapshot: %w", err)
	}

	return that.enter(session, tr, snapshot.Ref, rematchOf)
}

// enter - replaces the active session, then subscribes under a fresh generation.
func (that *Controller) enter(session *tictactoe.Session, tr transport.Transport, ref, rematchOf entity.SessionRef) error {
	log := that.logger.With("method", "enter", "mode", tr.Mode(), "ref", ref.ID)

	session.OnGameOver(that.queueGameOver)

	that.mu.Lock()
	closers := that.detach()
	gen := that.generation
	that.session, that.transport, that.ref = session, tr, ref
	that.rematchOf = rematchOf
	that.mu.Unlock()

	that.closeAll(closers)

	sub, err := tr.Subscribe(that.ctx, ref, &sessionObserver{controller: that, generation: gen})
	if err != nil {
		log.Error("failed to subscribe", "error", err)
		that.onSyncError(gen, err)

		return nil
	}

	that.mu.Lock()
	if that.generation != gen {
		that.mu.Unlock()
		that.closeAll([]io.Closer{sub})

		return nil
	}
	that.sub = sub
	that.mu.Unlock()

	log.Info("session started")
	that.publish()

	return nil
}

// detach - clears the active session; the returned closers must be closed without holding mu.
func (that *Controller) detach() []io.Closer {
	closers := []io.Closer{that.sub, that.lobby}

	that.generation++
	that.session = nil
	that.transport = nil
	that.ref = entity.SessionRef{}
	that.sub = nil
	that.lobby = nil
	that.pending = false
	that.syncErr = nil
	that.rematchOf = entity.SessionRef{}

	that.outMu.Lock()
	that.gameOver = nil
	that.outMu.Unlock()

	return closers
}

func (that *Controller) closeAll(closers []io.Closer) {
	for _, closer := range closers {
		if closer == nil {
			continue
		}

		if err := closer.Close(); err != nil {
			that.logger.Warn("failed to close subscription", "error", err)
		}
	}
}

func (that *Controller) rewind(fn func(session *tictactoe.Session) error) error {
	that.mu.Lock()
	session := that.session
	if session == nil {
		that.mu.Unlock()
		return apperror.ErrNoActiveSession
	}

	err := fn(session)
	that.mu.Unlock()

	if err != nil {
		return fmt.Errorf("failed to rewind: %w", err)
	}

	that.publish()

	return nil
}

func (that *Controller) refreshLobby(ctx context.Context) error {
	that.mu.Lock()
	mode, identity := that.mode, that.identity()
	that.mu.Unlock()

	if that.backends.Lobby == nil {
		return apperror.ErrNotSupported
	}

	var (
		rooms []entity.Snapshot
		err   error
	)

	switch mode {
	case entity.ModeRemote:
		rooms, err = that.backends.Lobby.ListOpenRooms(ctx)
	case entity.ModeOnChain:
		rooms, err = that.backends.Lobby.ListChainGames(ctx, identity)
	default:
		return nil
	}

	if err != nil {
		that.report(err)
		return fmt.Errorf("failed to list lobby: %w", err)
	}

	that.presenter.OnLobby(rooms)

	return nil
}

func (that *Controller) onlineContext() (transport.Transport, string, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.mode == entity.ModeLocal {
		return nil, "", fmt.Errorf("%w: use a local game", apperror.ErrNotSupported)
	}

	tr := that.transportFor(that.mode)
	if tr == nil {
		return nil, "", apperror.ErrNotSupported
	}

	identity := that.identity()
	if identity == "" {
		return nil, "", apperror.ErrIdentityRequired
	}

	return tr, identity, nil
}

func (that *Controller) transportFor(mode entity.Mode) transport.Transport {
	switch mode {
	case entity.ModeRemote:
		return that.backends.Remote
	case entity.ModeOnChain:
		return that.backends.OnChain
	default:
		return nil
	}
}

func (that *Controller) identity() string {
	switch that.mode {
	case entity.ModeRemote:
		return that.name
	case entity.ModeOnChain:
		if that.backends.Wallet == nil {
			return ""
		}

		return that.backends.Wallet.Address()
	default:
		return ""
	}
}

func (that *Controller) view() (tictactoe.View, bool) {
	if that.session == nil {
		return tictactoe.View{}, false
	}

	view := that.session.View()
	view.Seat = that.session.Seat(that.identity())
	view.Pending = that.pending
	if that.syncErr != nil {
		view.SyncError = that.syncErr.Error()
	}

	if that.rematchOf.ID != "" {
		rematchOf := that.rematchOf
		view.RematchOf = &rematchOf
	}

	return view, true
}

// report - hands non-silent failures to the presenter.
func (that *Controller) report(err error) {
	if apperror.IsSilent(err) {
		return
	}

	that.logger.Warn("session error", "error", err)
	that.presenter.OnError(err)
}

// publish - pushes the current view, then any game-over queued by the session.
func (that *Controller) publish() {
	that.mu.Lock()
	view, ok := that.view()
	that.mu.Unlock()

	if ok {
		that.presenter.OnState(view)
	}

	that.outMu.Lock()
	outcomes := that.gameOver
	that.gameOver = nil
	that.outMu.Unlock()

	for _, outcome := range outcomes {
		that.presenter.OnGameOver(outcome)
	}
}

// queueGameOver - runs inside session calls made under mu, so it only touches outMu.
func (that *Controller) queueGameOver(outcome entity.Outcome) {
	that.outMu.Lock()
	defer that.outMu.Unlock()

	that.gameOver = append(that.gameOver, outcome)
}

func (that *Controller) onSnapshot(gen uint64, snapshot entity.Snapshot) {
	that.mu.Lock()
	if that.generation != gen || that.session == nil {
		that.mu.Unlock()
		return
	}

	err := that.session.ApplySnapshot(snapshot)
	that.mu.Unlock()

	if err != nil {
		that.logger.Error("failed to apply snapshot", "method", "onSnapshot", "error", err)
		return
	}

	that.publish()
}

func (that *Controller) onSyncError(gen uint64, err error) {
	that.mu.Lock()
	if that.generation != gen {
		that.mu.Unlock()
		return
	}

	that.syncErr = err
	that.mu.Unlock()

	that.logger.Warn("sync failed", "method", "onSyncError", "error", err)
	that.publish()
}

func (that *Controller) onSyncRecovered(gen uint64) {
	that.mu.Lock()
	if that.generation != gen {
		that.mu.Unlock()
		return
	}

	that.syncErr = nil
	that.mu.Unlock()

	that.publish()
}

// sessionObserver - tags transport callbacks with the generation they were opened under.
type sessionObserver struct {
	controller *Controller
	generation uint64
}

func (that *sessionObserver) OnSnapshot(snapshot entity.Snapshot) {
	that.controller.onSnapshot(that.generation, snapshot)
}

func (that *sessionObserver) OnSyncError(err error) {
	that.controller.onSyncError(that.generation, err)
}

func (that *sessionObserver) OnSyncRecovered() {
	that.controller.onSyncRecovered(that.generation)
}
