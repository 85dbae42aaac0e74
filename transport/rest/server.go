package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/rocketscienceinc/tictactoe-sessions/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/entity"
)

type lobbyService interface {
	ListOpenRooms(ctx context.Context) ([]entity.Snapshot, error)
	ListChainGames(ctx context.Context, owner string) ([]entity.Snapshot, error)
}

type Server struct {
	logger *slog.Logger
	lobby  lobbyService
}

func New(logger *slog.Logger, lobby lobbyService) *Server {
	return &Server{
		logger: logger.With("component", "rest"),
		lobby:  lobby,
	}
}

func (that *Server) Router() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/ping", pingHandler).Methods(http.MethodGet)
	router.HandleFunc("/rooms", that.handleRooms).Methods(http.MethodGet)
	router.HandleFunc("/chain/games/{owner}", that.handleChainGames).Methods(http.MethodGet)

	return router
}

func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      that.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shut down server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

func (that *Server) handleRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := that.lobby.ListOpenRooms(r.Context())
	if err != nil {
		that.writeError(w, "handleRooms", err)
		return
	}

	that.writeJSON(w, rooms)
}

func (that *Server) handleChainGames(w http.ResponseWriter, r *http.Request) {
	games, err := that.lobby.ListChainGames(r.Context(), mux.Vars(r)["owner"])
	if err != nil {
		that.writeError(w, "handleChainGames", err)
		return
	}

	that.writeJSON(w, games)
}

func (that *Server) writeJSON(w http.ResponseWriter, snapshots []entity.Snapshot) {
	if snapshots == nil {
		snapshots = []entity.Snapshot{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snapshots); err != nil {
		that.logger.Error("failed to write response", "error", err)
	}
}

func (that *Server) writeError(w http.ResponseWriter, method string, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, apperror.ErrNotSupported):
		status = http.StatusNotImplemented
	case errors.Is(err, apperror.ErrIdentityRequired):
		status = http.StatusBadRequest
	case errors.Is(err, apperror.ErrTransportFailure):
		status = http.StatusBadGateway
	}

	that.logger.Error("request failed", "method", method, "status", status, "error", err)
	http.Error(w, err.Error(), status)
}
