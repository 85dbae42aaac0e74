package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-sessions/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/pkg"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/usecase"
)

const sessionCookie = "user_session"

var ErrUnknownAction = errors.New("unknown action")

type Server struct {
	logger   *slog.Logger
	backends usecase.Backends
	upgrader websocket.Upgrader

	handlers map[string]handlerFunc
}

// New - every connection gets its own controller over the shared backends.
func New(logger *slog.Logger, backends usecase.Backends) *Server {
	server := &Server{
		logger:   logger.With("component", "websocket"),
		backends: backends,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},

		handlers: make(map[string]handlerFunc),
	}

	server.registerHandlers()

	return server
}

// Handler - the /ws route; ctx bounds every connection.
func (that *Server) Handler(ctx context.Context) http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		that.serveConnection(ctx, w, r)
	})

	return router
}

// Start - starts WebSocket server.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           that.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       30 * time.Second,
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

func (that *Server) serveConnection(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	sessionID, header := that.sessionCookie(r)
	log := that.logger.With("method", "serveConnection", "session", sessionID)

	conn, err := that.upgrader.Upgrade(w, r, header)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	client := newClient(that.logger.With("session", sessionID), conn)
	controller := usecase.NewController(ctx, that.logger.With("session", sessionID), that.backends, client)
	defer controller.Close()

	log.Info("WebSocket connection established")

	if err = that.handleMessages(ctx, conn, client, controller); err != nil {
		log.Error("error handling messages", "error", err)
	}

	log.Info("WebSocket connection closed")
}

// handleMessages - processes messages from the client until it disconnects.
func (that *Server) handleMessages(ctx context.Context, conn *websocket.Conn, client *client, controller sessionController) error {
	log := that.logger.With("method", "handleMessages")

	for {
		var message Message
		if err := conn.ReadJSON(&message); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}

			var syntaxErr *json.SyntaxError
			if errors.As(err, &syntaxErr) {
				log.Warn("failed to unmarshal message", "error", err)
				client.sendError("", err)
				continue
			}

			return fmt.Errorf("failed to read message: %w", err)
		}

		handler, ok := that.handlers[message.Action]
		if !ok {
			log.Warn("unknown action", "action", message.Action)
			client.sendError(message.Action, ErrUnknownAction)
			continue
		}

		var request Request
		if len(message.Payload) > 0 {
			if err := json.Unmarshal(message.Payload, &request); err != nil {
				client.sendError(message.Action, fmt.Errorf("failed to unmarshal payload: %w", err))
				continue
			}
		}

		if err := handler(ctx, controller, &request); err != nil {
			that.handleError(client, message.Action, err)
		}
	}
}

// handleError - refused moves stay silent and failures already presented by the controller are not repeated.
func (that *Server) handleError(client *client, action string, err error) {
	log := that.logger.With("method", "handleError", "action", action)

	switch {
	case apperror.IsSilent(err):
		log.Debug("action refused", "error", err)
	case errors.Is(err, apperror.ErrTransportFailure),
		errors.Is(err, apperror.ErrTransactionRejected),
		errors.Is(err, apperror.ErrRoomUnavailable):
		log.Warn("action failed", "error", err)
	default:
		log.Info("action rejected", "error", err)
		client.sendError(action, err)
	}
}

// sessionCookie - reuses the user session cookie or issues a new one.
func (that *Server) sessionCookie(req *http.Request) (string, http.Header) {
	if cookie, err := req.Cookie(sessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}

	cookie := &http.Cookie{
		Name:    sessionCookie,
		Value:   pkg.NewSessionID(),
		Expires: time.Now().Add(24 * time.Hour),
		Path:    "/ws",
	}

	header := http.Header{}
	header.Add("Set-Cookie", cookie.String())

	that.logger.Info("session cookie not found, new one created", "cookie", cookie.Value)

	return cookie.Value, header
}
