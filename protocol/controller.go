package protocol

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	maxReconnectAttempts = 10
	reconnectDelay       = 2 * time.Second
)

type MessageHandler func(*WatchMessage) error

// WatchController follows one game over the /api/watch websocket and
// dispatches pushed messages to registered handlers.
type WatchController struct {
	baseURL          string
	gameID           string
	logger           *zap.Logger
	dialer           *websocket.Dialer
	messageHandlers  map[MessageType]MessageHandler
	AttemptReconnect bool

	connMux   sync.Mutex
	conn      *websocket.Conn
	Connected bool
}

// CreateWatchController takes the server base URL (http://host:port).
func CreateWatchController(baseURL, gameID string, logger *zap.Logger) *WatchController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WatchController{
		baseURL:         baseURL,
		gameID:          gameID,
		logger:          logger,
		dialer:          websocket.DefaultDialer,
		messageHandlers: make(map[MessageType]MessageHandler),
	}
}

func (controller *WatchController) RegisterHandler(msgType MessageType, handlerFunc MessageHandler) {
	controller.messageHandlers[msgType] = handlerFunc
}

func (controller *WatchController) HandleMessage(data []byte) error {
	msg, err := DecodeWatchMessage(data)
	if err != nil {
		return err
	}
	handlerFunc, exists := controller.messageHandlers[msg.Type]
	if !exists {
		return fmt.Errorf("No handler registered for message type: %s", msg.Type)
	}
	return handlerFunc(msg)
}

func (controller *WatchController) watchURL() (string, error) {
	u, err := url.Parse(controller.baseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = "/api/watch"
	u.RawQuery = url.Values{"game_id": {controller.gameID}}.Encode()
	return u.String(), nil
}

func (controller *WatchController) Connect(ctx context.Context) error {
	controller.connMux.Lock()
	defer controller.connMux.Unlock()
	if controller.Connected {
		return fmt.Errorf("Controller already connected")
	}
	target, err := controller.watchURL()
	if err != nil {
		return err
	}
	conn, resp, err := controller.dialer.DialContext(ctx, target, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("watch %s: %w (status %d)", controller.gameID, err, resp.StatusCode)
		}
		return fmt.Errorf("watch %s: %w", controller.gameID, err)
	}
	controller.conn = conn
	controller.Connected = true
	return nil
}

func (controller *WatchController) Close() error {
	controller.connMux.Lock()
	defer controller.connMux.Unlock()
	if !controller.Connected {
		return nil
	}
	controller.Connected = false
	return controller.conn.Close()
}

func (controller *WatchController) TryReconnect(ctx context.Context) bool {
	for attempt := 1; attempt <= maxReconnectAttempts; attempt++ {
		controller.logger.Info("attempting to reconnect",
			zap.Int("attempt", attempt),
			zap.Int("max", maxReconnectAttempts),
		)
		select {
		case <-ctx.Done():
			return false
		case <-time.After(reconnectDelay):
		}
		if err := controller.Connect(ctx); err == nil {
			controller.logger.Info("reconnected")
			return true
		}
	}
	controller.logger.Warn("failed to reconnect", zap.Int("attempts", maxReconnectAttempts))
	return false
}

// ReadMessages blocks, handling messages until the context ends, the server
// goes away for good, or a handler fails.
func (controller *WatchController) ReadMessages(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { controller.Close() })
	defer stop()
	for {
		controller.connMux.Lock()
		conn := controller.conn
		controller.connMux.Unlock()
		if conn == nil {
			return fmt.Errorf("Controller is not connected")
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			controller.Close()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) || !controller.AttemptReconnect {
				return err
			}
			if !controller.TryReconnect(ctx) {
				return fmt.Errorf("Lost connection to server: %w", err)
			}
			continue
		}
		if err := controller.HandleMessage(data); err != nil {
			return err
		}
	}
}
