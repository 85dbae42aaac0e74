package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/rocketscienceinc/tictactoe-sessions/internal/chain"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/config"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/repository"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/repository/storage"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/service"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/transport"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/usecase"
	"github.com/rocketscienceinc/tictactoe-sessions/transport/rest"
	"github.com/rocketscienceinc/tictactoe-sessions/transport/websocket"
)

var (
	ErrAddrNotFound   = errors.New("redis address string is empty")
	ErrUnknownBackend = errors.New("unknown remote backend")
)

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rooms, closeRooms, err := openRoomStore(ctx, logger, conf)
	if err != nil {
		return err
	}
	defer closeRooms()

	backends := usecase.Backends{}

	if rooms != nil {
		backends.Remote = transport.NewRemote(logger, rooms)
		log.Info("remote mode enabled", "backend", conf.Remote.Backend)
	}

	var (
		objects  service.OwnedObjects
		contract = chain.Contract{PackageID: conf.Chain.PackageID, Module: conf.Chain.Module, GasBudget: conf.Chain.GasBudget}
	)

	if conf.Chain.Enabled() {
		client := chain.NewClient(logger, conf.Chain.RPCURL, conf.Chain.RequestTimeout)
		objects = client

		wallet, err := chain.NewWallet(logger, client, conf.Chain.PrivateKey)
		if err != nil {
			return fmt.Errorf("could not load wallet: %w", err)
		}

		backends.OnChain = transport.NewOnChain(logger, client, wallet, contract, conf.Chain.PollInterval)
		backends.Wallet = wallet
		log.Info("on-chain mode enabled", "rpc", conf.Chain.RPCURL, "address", wallet.Address())
	}

	lobby := service.NewLobby(logger, rooms, objects, contract)
	backends.Lobby = lobby

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		if err := rest.New(logger, lobby).Start(ctx, conf.HTTPPort); err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}

		return nil
	})

	group.Go(func() error {
		log.Info("Starting WebSocket server", "port", conf.SocketPort)
		if err := websocket.New(logger, backends).Start(ctx, conf.SocketPort); err != nil {
			return fmt.Errorf("WebSocket server error: %w", err)
		}

		return nil
	})

	err = group.Wait()
	log.Info("Application stopped")

	return err
}

// openRoomStore - the configured remote backend, or nil when remote mode is off.
func openRoomStore(ctx context.Context, logger *slog.Logger, conf *config.Config) (repository.RoomRepository, func(), error) {
	log := logger.With("component", "app", "method", "openRoomStore")

	switch conf.Remote.Backend {
	case config.BackendNone:
		return nil, func() {}, nil
	case config.BackendRedis:
		addr := conf.Redis.GetRedisAddr()
		if addr == "" {
			return nil, nil, ErrAddrNotFound
		}

		client, err := storage.NewRedis(ctx, addr)
		if err != nil {
			return nil, nil, fmt.Errorf("could not connect to redis storage: %w", err)
		}

		closeFn := func() {
			if err := client.Close(); err != nil {
				log.Error("could not close redis storage", "error", err)
			}
		}

		return repository.NewRoomRepository(logger, client), closeFn, nil
	case config.BackendSQLite:
		db, err := storage.NewSQLite(conf.Remote.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("could not open sqlite storage: %w", err)
		}

		if err = db.Init(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("could not init sqlite storage: %w", err)
		}

		closeFn := func() {
			if err := db.Close(); err != nil {
				log.Error("could not close sqlite storage", "error", err)
			}
		}

		return repository.NewSQLiteRoomRepository(logger, db.Connection), closeFn, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownBackend, conf.Remote.Backend)
	}
}
