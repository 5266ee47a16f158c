package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tomasstrnad1997/sweeper/protocol"
)

const errReadOnlyWatch = "watch connections are read-only, use POST /api/turn"

func (server *Server) handleWatch(w http.ResponseWriter, r *http.Request) error {
	gameID := r.URL.Query().Get("game_id")
	game, err := server.service.Game(r.Context(), gameID)
	if err != nil {
		return err
	}
	conn, err := server.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		server.logger.Debug("websocket upgrade failed", zap.Error(err))
		return nil
	}
	watcher := server.addWatcher(gameID, conn)
	defer server.removeWatcher(watcher)

	if data, err := protocol.EncodeWatchMessage(protocol.EncodeGameInfo(game)); err == nil {
		sendMessage(data, watcher)
	}
	// Watchers only listen; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return nil
		}
		if data, err := protocol.EncodeWatchError(errReadOnlyWatch); err == nil {
			sendMessage(data, watcher)
		}
	}
}

func (server *Server) addWatcher(gameID string, conn *websocket.Conn) *Watcher {
	server.watchersMux.Lock()
	defer server.watchersMux.Unlock()
	server.nextWatcherId++
	watcher := &Watcher{conn: conn, id: server.nextWatcherId, gameID: gameID}
	if server.watchers[gameID] == nil {
		server.watchers[gameID] = make(map[int]*Watcher)
	}
	server.watchers[gameID][watcher.id] = watcher
	server.logger.Info("watcher connected",
		zap.String("game_id", gameID),
		zap.Int("watcher", watcher.id),
		zap.String("remote", conn.RemoteAddr().String()),
	)
	return watcher
}

func (server *Server) removeWatcher(watcher *Watcher) {
	server.watchersMux.Lock()
	watchers := server.watchers[watcher.gameID]
	delete(watchers, watcher.id)
	if len(watchers) == 0 {
		delete(server.watchers, watcher.gameID)
	}
	server.watchersMux.Unlock()
	watcher.close()
	server.logger.Info("watcher disconnected", zap.String("game_id", watcher.gameID), zap.Int("watcher", watcher.id))
}

func (server *Server) WatcherCount(gameID string) int {
	server.watchersMux.Lock()
	defer server.watchersMux.Unlock()
	return len(server.watchers[gameID])
}

func (server *Server) broadcast(gameID string, info *protocol.GameInfoResponse) {
	server.watchersMux.Lock()
	targets := make([]*Watcher, 0, len(server.watchers[gameID]))
	for _, watcher := range server.watchers[gameID] {
		targets = append(targets, watcher)
	}
	server.watchersMux.Unlock()
	if len(targets) == 0 {
		return
	}
	data, err := protocol.EncodeWatchMessage(info)
	if err != nil {
		server.logger.Error("failed to encode watch message", zap.Error(err))
		return
	}
	for _, watcher := range targets {
		if err := sendMessage(data, watcher); err != nil {
			server.logger.Debug("failed to notify watcher", zap.Int("watcher", watcher.id), zap.Error(err))
		}
	}
}

func sendMessage(data []byte, watcher *Watcher) error {
	watcher.writeMutex.Lock()
	defer watcher.writeMutex.Unlock()
	watcher.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return watcher.conn.WriteMessage(websocket.TextMessage, data)
}

func (watcher *Watcher) close() {
	watcher.writeMutex.Lock()
	defer watcher.writeMutex.Unlock()
	watcher.conn.SetWriteDeadline(time.Now().Add(writeWait))
	watcher.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
	watcher.conn.Close()
}
