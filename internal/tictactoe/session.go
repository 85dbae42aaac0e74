package tictactoe

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rocketscienceinc/tictactoe-sessions/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/entity"
)

// View - read model of a session handed to the presentation layer.
type View struct {
	Ref        entity.SessionRef  `json:"ref"`
	Mode       entity.Mode        `json:"mode"`
	Name       string             `json:"name,omitempty"`
	Board      entity.Board       `json:"board"`
	Turn       entity.Mark        `json:"turn"`
	Status     entity.Status      `json:"status"`
	Winner     entity.Mark        `json:"winner,omitempty"`
	WinnerName string             `json:"winner_name,omitempty"`
	PlayerX    string             `json:"player_x,omitempty"`
	PlayerO    string             `json:"player_o,omitempty"`
	MoveNumber int                `json:"move_number"`
	History    int                `json:"history"`
	CanUndo    bool               `json:"can_undo"`
	Seat       entity.Mark        `json:"seat,omitempty"`
	Pending    bool               `json:"pending"`
	SyncError  string             `json:"sync_error,omitempty"`
	RematchOf  *entity.SessionRef `json:"rematch_of,omitempty"`
}

func (that View) Outcome() entity.Outcome {
	return entity.Outcome{Status: that.Status, Winner: that.Winner}
}

// Session - board, turn, history and terminal status of one game.
//
// In local mode the session is the source of truth; in remote and on-chain
// modes it is rebuilt from every snapshot the transport delivers.
type Session struct {
	mu sync.Mutex

	mode       entity.Mode
	authorizer Authorizer
	ref        entity.SessionRef
	name       string

	playerX string
	playerO string

	board   entity.Board
	turn    entity.Mark
	status  entity.Status
	winner  entity.Mark
	history []entity.Board
	current int

	onGameOver func(entity.Outcome)
	gameOver   *entity.Outcome
}

func NewSession(mode entity.Mode) *Session {
	return &Session{
		mode:       mode,
		authorizer: NewAuthorizer(mode),
		turn:       entity.MarkX,
		status:     entity.StatusAwaitingSetup,
		history:    []entity.Board{entity.NewBoard()},
	}
}

func (that *Session) Mode() entity.Mode {
	return that.mode
}

// OwnsState - true when no external record supersedes the session.
func (that *Session) OwnsState() bool {
	return that.mode == entity.ModeLocal
}

// OnGameOver - registers the callback invoked once per entry into a terminal state.
func (that *Session) OnGameOver(fn func(entity.Outcome)) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.onGameOver = fn
}

// SetRef - attaches the transport handle and display name.
func (that *Session) SetRef(ref entity.SessionRef, name string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.ref = ref
	that.name = name
}

func (that *Session) Ref() entity.SessionRef {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.ref
}

// Bind - binds participant identities; the game starts once both are bound.
func (that *Session) Bind(playerX, playerO string) {
	defer that.emit()
	that.mu.Lock()
	defer that.mu.Unlock()

	that.playerX = strings.TrimSpace(playerX)
	that.playerO = strings.TrimSpace(playerO)
	that.recompute()
}

// Seat - the mark bound to an identity, empty for a spectator.
func (that *Session) Seat(actor string) entity.Mark {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.seat(actor)
}

// CanPlay - checks legality and authorization of a move without changing anything.
func (that *Session) CanPlay(actor string, cell int) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.canPlay(actor, cell)
}

// Propose - the move an actor would make, with the board and turn it produces.
func (that *Session) Propose(actor string, cell int) (entity.Move, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if err := that.canPlay(actor, cell); err != nil {
		return entity.Move{}, err
	}

	board := that.board
	board[cell] = that.turn

	return entity.Move{
		Cell:     cell,
		Mark:     that.turn,
		Actor:    actor,
		Board:    board,
		NextTurn: that.turn.Opponent(),
	}, nil
}

// ApplyMove - places the current mark; a rejected move leaves the state untouched.
func (that *Session) ApplyMove(actor string, cell int) error {
	defer that.emit()
	that.mu.Lock()
	defer that.mu.Unlock()

	if err := that.canPlay(actor, cell); err != nil {
		return err
	}

	board := that.board
	board[cell] = that.turn

	that.history = append(that.history[:that.current+1], board)
	that.current++
	that.board = board
	that.turn = that.turn.Opponent()
	that.recompute()

	return nil
}

// Undo - rewinds the history pointer one step, keeping forward states.
func (that *Session) Undo() error {
	that.mu.Lock()
	current := that.current
	that.mu.Unlock()

	if current == 0 {
		if !that.OwnsState() {
			return apperror.ErrNotSupported
		}

		return apperror.ErrUndoUnavailable
	}

	return that.JumpTo(current - 1)
}

// JumpTo - moves the history pointer to any recorded step.
func (that *Session) JumpTo(step int) error {
	defer that.emit()
	that.mu.Lock()
	defer that.mu.Unlock()

	if !that.OwnsState() {
		return apperror.ErrNotSupported
	}

	if step < 0 || step >= len(that.history) {
		return fmt.Errorf("%w: step %d of %d", apperror.ErrUndoUnavailable, step, len(that.history))
	}

	that.current = step
	that.board = that.history[step]
	that.turn = turnForStep(step)
	that.recompute()

	return nil
}

// Rematch - resets the board; always legal.
func (that *Session) Rematch() {
	defer that.emit()
	that.mu.Lock()
	defer that.mu.Unlock()

	that.board = entity.NewBoard()
	that.turn = entity.MarkX
	that.history = []entity.Board{that.board}
	that.current = 0
	that.recompute()
}

// ApplySnapshot - replaces board, turn, participants and status atomically.
func (that *Session) ApplySnapshot(snapshot entity.Snapshot) error {
	defer that.emit()
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.OwnsState() {
		return fmt.Errorf("%w: local session does not accept snapshots", apperror.ErrNotSupported)
	}

	turn := snapshot.Turn
	if turn == entity.MarkEmpty {
		turn = entity.MarkX
	}

	previous := that.status

	that.ref = snapshot.Ref
	if snapshot.Name != "" {
		that.name = snapshot.Name
	}

	that.playerX = snapshot.PlayerX
	that.playerO = snapshot.PlayerO
	that.board = snapshot.Board
	that.turn = turn
	that.history = []entity.Board{snapshot.Board}
	that.current = 0

	unseated := snapshot.PlayerX == "" || snapshot.PlayerO == ""

	switch {
	case snapshot.Phase == entity.PhaseWaiting, snapshot.Phase == entity.PhasePlaying && unseated:
		that.status = entity.StatusAwaitingSetup
		that.winner = entity.MarkEmpty
	default:
		outcome := Evaluate(snapshot.Board)
		if !outcome.IsTerminal() && snapshot.Phase == entity.PhaseFinished {
			outcome = entity.Outcome{Status: entity.StatusDrawn}
			if snapshot.Result != nil && snapshot.Result.IsTerminal() {
				outcome = *snapshot.Result
			}
		}

		that.status = outcome.Status
		that.winner = outcome.Winner
	}

	that.markTransition(previous)

	return nil
}

func (that *Session) View() View {
	that.mu.Lock()
	defer that.mu.Unlock()

	view := View{
		Ref:        that.ref,
		Mode:       that.mode,
		Name:       that.name,
		Board:      that.board,
		Turn:       that.turn,
		Status:     that.status,
		Winner:     that.winner,
		WinnerName: that.identity(that.winner),
		PlayerX:    that.playerX,
		PlayerO:    that.playerO,
		MoveNumber: that.current,
		History:    len(that.history),
		CanUndo:    that.OwnsState() && that.current > 0,
	}

	if !that.OwnsState() {
		view.MoveNumber = that.board.Filled()
	}

	return view
}

func (that *Session) canPlay(actor string, cell int) error {
	if !ValidCell(cell) {
		return fmt.Errorf("%w: %d", apperror.ErrInvalidCell, cell)
	}

	if that.status == entity.StatusAwaitingSetup {
		return apperror.ErrGameIsNotStarted
	}

	if that.status.IsTerminal() {
		return apperror.ErrGameFinished
	}

	if that.board[cell] != entity.MarkEmpty {
		return apperror.ErrCellOccupied
	}

	if !that.authorizer.CanMove(actor, that.turnState()) {
		return apperror.ErrNotYourTurn
	}

	return nil
}

// recompute - derives the status of a locally driven board.
func (that *Session) recompute() {
	previous := that.status

	if that.playerX == "" || that.playerO == "" {
		that.status = entity.StatusAwaitingSetup
		that.winner = entity.MarkEmpty
		return
	}

	outcome := Evaluate(that.board)
	that.status = outcome.Status
	that.winner = outcome.Winner

	that.markTransition(previous)
}

// markTransition - queues the game-over notification on entry into a terminal state.
func (that *Session) markTransition(previous entity.Status) {
	if previous.IsTerminal() || !that.status.IsTerminal() {
		return
	}

	outcome := entity.Outcome{Status: that.status, Winner: that.winner}
	that.gameOver = &outcome
}

// emit - delivers a queued game-over notification outside the lock.
func (that *Session) emit() {
	that.mu.Lock()
	outcome, fn := that.gameOver, that.onGameOver
	that.gameOver = nil
	that.mu.Unlock()

	if outcome != nil && fn != nil {
		fn(*outcome)
	}
}

func (that *Session) turnState() TurnState {
	return TurnState{Turn: that.turn, PlayerX: that.playerX, PlayerO: that.playerO}
}

func (that *Session) seat(actor string) entity.Mark {
	if actor == "" {
		return entity.MarkEmpty
	}

	same := func(a, b string) bool { return a == b }
	if that.mode == entity.ModeOnChain {
		same = strings.EqualFold
	}

	switch {
	case that.playerX != "" && same(actor, that.playerX):
		return entity.MarkX
	case that.playerO != "" && same(actor, that.playerO):
		return entity.MarkO
	default:
		return entity.MarkEmpty
	}
}

func (that *Session) identity(mark entity.Mark) string {
	switch mark {
	case entity.MarkX:
		return that.playerX
	case entity.MarkO:
		return that.playerO
	default:
		return ""
	}
}

func turnForStep(step int) entity.Mark {
	if step%2 == 0 {
		return entity.MarkX
	}

	return entity.MarkO
}
