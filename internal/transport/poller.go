package transport

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rocketscienceinc/tictactoe-sessions/internal/entity"
)

const DefaultPollInterval = 4 * time.Second

type FetchFunc func(ctx context.Context) (entity.Snapshot, error)

// Poller - turns a pull-only source into snapshot deliveries.
// It fetches immediately and then every interval, delivers only material changes,
// and keeps running through failed fetches.
type Poller struct {
	logger   *slog.Logger
	interval time.Duration
	fetch    FetchFunc
	observer Observer

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func StartPoller(ctx context.Context, logger *slog.Logger, interval time.Duration, fetch FetchFunc, observer Observer) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	ctx, cancel := context.WithCancel(ctx)

	poller := &Poller{
		logger:   logger.With("component", "poller"),
		interval: interval,
		fetch:    fetch,
		observer: observer,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	go poller.run(ctx)

	return poller
}

func (that *Poller) run(ctx context.Context) {
	defer close(that.done)

	ticker := time.NewTicker(that.interval)
	defer ticker.Stop()

	var (
		last    *entity.Snapshot
		failing bool
	)

	for {
		snapshot, err := that.fetch(ctx)

		// a response arriving after cancellation belongs to a superseded session
		if ctx.Err() != nil {
			return
		}

		switch {
		case err != nil:
			that.logger.Warn("poll failed", "error", err)
			failing = true
			that.observer.OnSyncError(err)
		default:
			if failing {
				failing = false
				that.observer.OnSyncRecovered()
			}

			if last == nil || !last.Equal(snapshot) {
				last = &snapshot
				that.observer.OnSnapshot(snapshot)
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Close - stops the loop; nothing is delivered once Close returns.
func (that *Poller) Close() error {
	that.once.Do(func() {
		that.cancel()
		<-that.done
	})

	return nil
}
