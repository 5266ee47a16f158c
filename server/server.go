package server

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tomasstrnad1997/sweeper/mines"
	"github.com/tomasstrnad1997/sweeper/protocol"
	"github.com/tomasstrnad1997/sweeper/sessions"
)

const (
	writeWait         = 5 * time.Second
	readHeaderTimeout = 10 * time.Second
)

//go:embed static/index.html
var indexPage []byte

type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// Watcher is a websocket client following one game.
type Watcher struct {
	conn       *websocket.Conn
	id         int
	gameID     string
	writeMutex sync.Mutex
}

type Server struct {
	Name       string
	service    *sessions.Service
	logger     *zap.Logger
	mux        *http.ServeMux
	httpServer *http.Server
	upgrader   websocket.Upgrader

	watchersMux   sync.Mutex
	watchers      map[string]map[int]*Watcher
	nextWatcherId int
}

func CreateServer(name string, service *sessions.Service, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	server := &Server{
		Name:     name,
		service:  service,
		logger:   logger,
		mux:      http.NewServeMux(),
		watchers: make(map[string]map[int]*Watcher),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	server.RegisterHandlers()
	return server
}

func (server *Server) registerHandler(pattern string, handler HandlerFunc) {
	server.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		if err := handler(w, r); err != nil {
			server.writeError(w, r, err)
		}
	})
}

func (server *Server) RegisterHandlers() {
	server.registerHandler("GET /{$}", server.handleIndex)
	server.registerHandler("POST /api/new", server.handleNewGame)
	server.registerHandler("POST /api/turn", server.handleTurn)
	server.registerHandler("GET /api/game", server.handleGame)
	server.registerHandler("GET /api/watch", server.handleWatch)
}

func (server *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	server.mux.ServeHTTP(w, r)
}

func (server *Server) ListenAndServe(addr string) error {
	server.httpServer = &http.Server{
		Addr:              addr,
		Handler:           server,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	server.logger.Info("server listening", zap.String("name", server.Name), zap.String("addr", addr))
	return server.httpServer.ListenAndServe()
}

// Shutdown stops accepting requests and disconnects all watchers.
func (server *Server) Shutdown(ctx context.Context) error {
	server.watchersMux.Lock()
	for _, watchers := range server.watchers {
		for _, watcher := range watchers {
			watcher.close()
		}
	}
	server.watchersMux.Unlock()
	if server.httpServer == nil {
		return nil
	}
	return server.httpServer.Shutdown(ctx)
}

// handleIndex serves the browser client.
func (server *Server) handleIndex(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(indexPage); err != nil {
		server.logger.Debug("failed to write index page", zap.Error(err))
	}
	return nil
}

func (server *Server) handleNewGame(w http.ResponseWriter, r *http.Request) error {
	req, err := protocol.DecodeNewGameRequest(r)
	if err != nil {
		return err
	}
	game, err := server.service.CreateGame(r.Context(), req.Width, req.Height, req.MinesCount)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, protocol.EncodeGameInfo(game))
}

func (server *Server) handleTurn(w http.ResponseWriter, r *http.Request) error {
	req, err := protocol.DecodeGameTurnRequest(r)
	if err != nil {
		return err
	}
	result, err := server.service.ApplyMove(r.Context(), req.GameID, req.Col, req.Row)
	if err != nil {
		return err
	}
	game, err := server.service.Game(r.Context(), req.GameID)
	if err != nil {
		return err
	}
	info := protocol.NewGameInfo(game.ID, game.Params, result.Field, result.Status)
	server.broadcast(req.GameID, info)
	return writeJSON(w, http.StatusOK, info)
}

func (server *Server) handleGame(w http.ResponseWriter, r *http.Request) error {
	game, err := server.service.Game(r.Context(), r.URL.Query().Get("game_id"))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, protocol.EncodeGameInfo(game))
}

func writeJSON(w http.ResponseWriter, status int, body any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(body)
}

func errorStatus(err error) int {
	var paramsErr *mines.InvalidBoardParamsError
	switch {
	case errors.Is(err, sessions.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.As(err, &paramsErr),
		errors.Is(err, mines.ErrOutOfBounds),
		errors.Is(err, mines.ErrAlreadyRevealed),
		errors.Is(err, mines.ErrGameAlreadyOver),
		errors.Is(err, protocol.ErrMissingField),
		errors.Is(err, protocol.ErrInvalidBody):
		return http.StatusBadRequest
	case errors.Is(err, protocol.ErrUnknownFormat):
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusInternalServerError
	}
}

func (server *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		server.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		message = "internal server error"
	}
	if werr := writeJSON(w, status, protocol.ErrorResponse{Error: message}); werr != nil {
		server.logger.Debug("failed to write error response", zap.Error(werr))
	}
}
