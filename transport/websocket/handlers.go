package websocket

import (
	"context"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-sessions/internal/entity"
)

var ErrMissingField = errors.New("missing field")

// sessionController - what the gateway drives for one connection.
type sessionController interface {
	SelectMode(mode entity.Mode) error
	StartLocal(ctx context.Context, nameX, nameO string) error
	SetIdentity(ctx context.Context, name string) error
	OpenLobby(ctx context.Context, joinTarget string) error
	Create(ctx context.Context, roomName string) error
	Join(ctx context.Context, id string) error
	MakeMove(ctx context.Context, cell int) error
	Undo() error
	JumpTo(step int) error
	Rematch(ctx context.Context) error
	Leave()
}

type handlerFunc func(ctx context.Context, controller sessionController, request *Request) error

func (that *Server) registerHandlers() {
	that.handlers[actionModeSelect] = that.handleModeSelect
	that.handlers[actionLocalStart] = that.handleLocalStart
	that.handlers[actionLobbyOpen] = that.handleLobbyOpen
	that.handlers[actionIdentitySet] = that.handleIdentitySet
	that.handlers[actionSessionCreate] = that.handleSessionCreate
	that.handlers[actionSessionJoin] = that.handleSessionJoin
	that.handlers[actionGameTurn] = that.handleGameTurn
	that.handlers[actionGameUndo] = that.handleGameUndo
	that.handlers[actionGameJump] = that.handleGameJump
	that.handlers[actionGameRematch] = that.handleGameRematch
	that.handlers[actionSessionLeave] = that.handleSessionLeave
}

func (that *Server) handleModeSelect(_ context.Context, controller sessionController, request *Request) error {
	if request.Mode == entity.ModeNone {
		return fmt.Errorf("%w: mode", ErrMissingField)
	}

	return controller.SelectMode(request.Mode)
}

func (that *Server) handleLocalStart(ctx context.Context, controller sessionController, request *Request) error {
	return controller.StartLocal(ctx, request.PlayerX, request.PlayerO)
}

func (that *Server) handleLobbyOpen(ctx context.Context, controller sessionController, request *Request) error {
	return controller.OpenLobby(ctx, request.Join)
}

func (that *Server) handleIdentitySet(ctx context.Context, controller sessionController, request *Request) error {
	return controller.SetIdentity(ctx, request.Name)
}

func (that *Server) handleSessionCreate(ctx context.Context, controller sessionController, request *Request) error {
	return controller.Create(ctx, request.RoomName)
}

func (that *Server) handleSessionJoin(ctx context.Context, controller sessionController, request *Request) error {
	if request.RoomID == "" {
		return fmt.Errorf("%w: room_id", ErrMissingField)
	}

	return controller.Join(ctx, request.RoomID)
}

func (that *Server) handleGameTurn(ctx context.Context, controller sessionController, request *Request) error {
	if request.Cell == nil {
		return fmt.Errorf("%w: cell", ErrMissingField)
	}

	return controller.MakeMove(ctx, *request.Cell)
}

func (that *Server) handleGameUndo(_ context.Context, controller sessionController, _ *Request) error {
	return controller.Undo()
}

func (that *Server) handleGameJump(_ context.Context, controller sessionController, request *Request) error {
	if request.Step == nil {
		return fmt.Errorf("%w: step", ErrMissingField)
	}

	return controller.JumpTo(*request.Step)
}

func (that *Server) handleGameRematch(ctx context.Context, controller sessionController, _ *Request) error {
	return controller.Rematch(ctx)
}

func (that *Server) handleSessionLeave(_ context.Context, controller sessionController, _ *Request) error {
	controller.Leave()

	return nil
}
