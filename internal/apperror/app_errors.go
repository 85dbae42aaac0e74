package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidMove      = errors.New("invalid move")
	ErrCellOccupied     = fmt.Errorf("%w: cell is already occupied", ErrInvalidMove)
	ErrInvalidCell      = fmt.Errorf("%w: cell is out of the board", ErrInvalidMove)
	ErrGameFinished     = fmt.Errorf("%w: game is already finished", ErrInvalidMove)
	ErrGameIsNotStarted = fmt.Errorf("%w: game is not started", ErrInvalidMove)

	ErrUnauthorized = errors.New("unauthorized")
	ErrNotYourTurn  = fmt.Errorf("%w: it's not your turn", ErrUnauthorized)

	ErrRoomUnavailable     = errors.New("room is full or unavailable")
	ErrTransportFailure    = errors.New("transport failure")
	ErrTransactionRejected = errors.New("transaction rejected")
)

var (
	ErrNoActiveSession  = errors.New("no active session")
	ErrMovePending      = errors.New("previous move is still pending")
	ErrNotSupported     = errors.New("operation is not supported in this mode")
	ErrIdentityRequired = errors.New("identity is required")
	ErrNotFound         = errors.New("not found")
	ErrUndoUnavailable  = errors.New("nothing to undo")
)

// IsSilent - reports whether the error is a refusal the presenter should not be told about.
func IsSilent(err error) bool {
	return errors.Is(err, ErrInvalidMove) || errors.Is(err, ErrUnauthorized)
}
