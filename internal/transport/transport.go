package transport

import (
	"context"

	"github.com/rocketscienceinc/tictactoe-sessions/internal/entity"
)

// SessionConfig - what a host provides when starting a session.
type SessionConfig struct {
	RoomName string

	// Host - identity taking X.
	Host string

	// Opponent - identity taking O, known upfront only in local mode.
	Opponent string
}

// Observer - receives inbound state of a subscribed session.
type Observer interface {
	OnSnapshot(snapshot entity.Snapshot)

	// OnSyncError - a fetch failed; syncing continues.
	OnSyncError(err error)

	// OnSyncRecovered - the first successful fetch after a failure.
	OnSyncRecovered()
}

type Subscription interface {
	Close() error
}

// Transport - where the state of a session lives and how moves reach it.
// One variant is selected when a session starts and kept for its lifetime.
type Transport interface {
	Mode() entity.Mode
	Create(ctx context.Context, conf SessionConfig) (entity.Snapshot, error)
	Join(ctx context.Context, ref entity.SessionRef, actor string) (entity.Snapshot, error)
	SubmitMove(ctx context.Context, ref entity.SessionRef, move entity.Move) error
	Rematch(ctx context.Context, ref entity.SessionRef) (entity.Snapshot, error)
	Subscribe(ctx context.Context, ref entity.SessionRef, observer Observer) (Subscription, error)
}

type noopSubscription struct{}

func (noopSubscription) Close() error {
	return nil
}
