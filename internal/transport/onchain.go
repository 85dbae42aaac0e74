package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rocketscienceinc/tictactoe-sessions/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/chain"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/entity"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/tictactoe"
)

type objectReader interface {
	GetObject(ctx context.Context, id string) (*chain.ObjectData, error)
}

type transactionSigner interface {
	Address() string
	SignAndExecute(ctx context.Context, call chain.MoveCall) (*chain.TransactionResponse, error)
}

// OnChain - sessions stored as contract objects; moves are signed transactions
// and state is observed by polling the object.
type OnChain struct {
	logger   *slog.Logger
	objects  objectReader
	wallet   transactionSigner
	contract chain.Contract
	interval time.Duration
}

func NewOnChain(logger *slog.Logger, objects objectReader, wallet transactionSigner, contract chain.Contract, interval time.Duration) *OnChain {
	return &OnChain{
		logger:   logger.With("component", "onchain_transport"),
		objects:  objects,
		wallet:   wallet,
		contract: contract,
		interval: interval,
	}
}

func (that *OnChain) Mode() entity.Mode {
	return entity.ModeOnChain
}

// Create - the session exists once the transaction effects show the created game object.
func (that *OnChain) Create(ctx context.Context, _ SessionConfig) (entity.Snapshot, error) {
	log := that.logger.With("method", "Create")

	response, err := that.wallet.SignAndExecute(ctx, that.contract.Call(chain.FunctionCreateGame))
	if err != nil {
		return entity.Snapshot{}, fmt.Errorf("failed to create game: %w", err)
	}

	id, ok := response.CreatedObject(that.contract.GameType())
	if !ok {
		return entity.Snapshot{}, fmt.Errorf("%w: no game object in transaction %s", apperror.ErrTransactionRejected, response.Digest)
	}

	log.Info("game created", "object_id", id, "digest", response.Digest)

	return that.Fetch(ctx, id)
}

// Join - the contract enforces a single join; the pre-read only avoids a doomed transaction.
func (that *OnChain) Join(ctx context.Context, ref entity.SessionRef, actor string) (entity.Snapshot, error) {
	if actor == "" {
		return entity.Snapshot{}, apperror.ErrIdentityRequired
	}

	snapshot, err := that.Fetch(ctx, ref.ID)
	if errors.Is(err, apperror.ErrNotFound) {
		return entity.Snapshot{}, fmt.Errorf("%w: %w", apperror.ErrRoomUnavailable, err)
	}

	if err != nil {
		return entity.Snapshot{}, err
	}

	if strings.EqualFold(snapshot.PlayerX, actor) || strings.EqualFold(snapshot.PlayerO, actor) {
		return snapshot, nil
	}

	if snapshot.Phase != entity.PhaseWaiting {
		return entity.Snapshot{}, apperror.ErrRoomUnavailable
	}

	if _, err = that.wallet.SignAndExecute(ctx, that.contract.Call(chain.FunctionJoinGame, ref.ID)); err != nil {
		return entity.Snapshot{}, fmt.Errorf("failed to join game: %w", err)
	}

	return that.Fetch(ctx, ref.ID)
}

// SubmitMove - calls play(game, row, col); a failed transaction leaves the game untouched.
func (that *OnChain) SubmitMove(ctx context.Context, ref entity.SessionRef, move entity.Move) error {
	row, col, err := tictactoe.CellCoords(move.Cell)
	if err != nil {
		return err
	}

	response, err := that.wallet.SignAndExecute(ctx, that.contract.Call(chain.FunctionPlay, ref.ID, row, col))
	if err != nil {
		return fmt.Errorf("failed to submit move: %w", err)
	}

	that.logger.Debug("move submitted", "method", "SubmitMove", "object_id", ref.ID, "digest", response.Digest)

	return nil
}

// Rematch - a finished game object cannot be reset, so a fresh one is created.
func (that *OnChain) Rematch(ctx context.Context, _ entity.SessionRef) (entity.Snapshot, error) {
	return that.Create(ctx, SessionConfig{Host: that.wallet.Address()})
}

func (that *OnChain) Subscribe(ctx context.Context, ref entity.SessionRef, observer Observer) (Subscription, error) {
	fetch := func(ctx context.Context) (entity.Snapshot, error) {
		return that.Fetch(ctx, ref.ID)
	}

	return StartPoller(ctx, that.logger, that.interval, fetch, observer), nil
}

// Fetch - current snapshot of a game object.
func (that *OnChain) Fetch(ctx context.Context, id string) (entity.Snapshot, error) {
	object, err := that.objects.GetObject(ctx, id)
	if err != nil {
		if chain.IsRPCError(err) {
			err = fmt.Errorf("%w: %w", apperror.ErrTransportFailure, err)
		}

		return entity.Snapshot{}, fmt.Errorf("failed to fetch game: %w", err)
	}

	game, err := chain.DecodeGame(object)
	if err != nil {
		return entity.Snapshot{}, fmt.Errorf("%w: %w", apperror.ErrTransportFailure, err)
	}

	snapshot, err := game.Snapshot()
	if err != nil {
		return entity.Snapshot{}, fmt.Errorf("%w: %w", apperror.ErrTransportFailure, err)
	}

	return snapshot, nil
}
