package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rocketscienceinc/tictactoe-sessions/internal/apperror"
)

var ErrWalletDisconnected = errors.New("wallet is not connected")

// Wallet - the active account: its address and a sign-and-execute primitive.
type Wallet struct {
	logger *slog.Logger
	client *Client
	signer *Signer
}

// NewWallet - an empty private key gives a disconnected wallet.
func NewWallet(logger *slog.Logger, client *Client, privateKey string) (*Wallet, error) {
	wallet := &Wallet{
		logger: logger.With("component", "wallet"),
		client: client,
	}

	if privateKey == "" {
		return wallet, nil
	}

	signer, err := NewSigner(privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load wallet key: %w", err)
	}

	wallet.signer = signer

	return wallet, nil
}

func (that *Wallet) Connected() bool {
	return that.signer != nil
}

// Address - the account identity, empty while disconnected.
func (that *Wallet) Address() string {
	if that.signer == nil {
		return ""
	}

	return that.signer.Address()
}

// SignAndExecute - builds, signs and submits a move call.
// A refusal by the node or an aborted execution wraps ErrTransactionRejected.
func (that *Wallet) SignAndExecute(ctx context.Context, call MoveCall) (*TransactionResponse, error) {
	log := that.logger.With("method", "SignAndExecute", "function", call.Function)

	if that.signer == nil {
		return nil, fmt.Errorf("%w: %w", apperror.ErrTransactionRejected, ErrWalletDisconnected)
	}

	response, err := that.client.Execute(ctx, that.signer, call)
	if err != nil {
		return nil, classify(err)
	}

	if !response.Succeeded() {
		reason := "no effects"
		if response.Effects != nil {
			reason = response.Effects.Status.Error
		}

		log.Info("transaction aborted", "digest", response.Digest, "reason", reason)

		return nil, fmt.Errorf("%w: %s", apperror.ErrTransactionRejected, reason)
	}

	log.Debug("transaction executed", "digest", response.Digest)

	return response, nil
}

func classify(err error) error {
	if IsRPCError(err) {
		return fmt.Errorf("%w: %w", apperror.ErrTransactionRejected, err)
	}

	return err
}
