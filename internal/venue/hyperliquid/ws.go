package hyperliquid

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings to the peer at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// reconnectDelay is the base delay before attempting to reconnect.
	reconnectDelay = 2 * time.Second

	// maxReconnectDelay caps the exponential backoff for reconnection.
	maxReconnectDelay = 60 * time.Second
)

// wsCommand is a subscription control message.
type wsCommand struct {
	Method       string         `json:"method"`
	Subscription wsSubscription `json:"subscription"`
}

type wsSubscription struct {
	Type string `json:"type"`
	Coin string `json:"coin"`
}

// wsMessage is the envelope of every inbound message.
type wsMessage struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

// WSClient maintains a WebSocket subscription to l2Book updates for a set of
// coins and caches the latest top of book per coin. It reconnects with
// exponential backoff and restores subscriptions after a reconnect.
type WSClient struct {
	wsURL  string
	logger *slog.Logger

	mu     sync.RWMutex
	conn   *websocket.Conn
	closed bool
	tops   map[string]BookTop

	subscriptions []wsCommand

	// done is closed when the client is shut down. connDone is closed when
	// the current connection is replaced, so the loops of the old connection
	// stop instead of piling up across reconnects.
	done     chan struct{}
	connDone chan struct{}
}

// NewWSClient creates a WebSocket client for the given endpoint, e.g.
// "wss://api.hyperliquid.xyz/ws".
func NewWSClient(wsURL string, logger *slog.Logger) *WSClient {
	return &WSClient{
		wsURL:  wsURL,
		logger: logger.With(slog.String("component", "hyperliquid_ws")),
		tops:   make(map[string]BookTop),
		done:   make(chan struct{}),
	}
}

// Connect establishes the WebSocket connection and starts the read and ping
// loops.
func (w *WSClient) Connect(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("hyperliquid/ws: client closed")
	}

	dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}
	conn, _, err := dialer.DialContext(ctx, w.wsURL, nil)
	if err != nil {
		return fmt.Errorf("hyperliquid/ws: connect: %w", err)
	}

	// Retire the previous connection's loops before installing the new one.
	if w.connDone != nil {
		close(w.connDone)
	}
	connDone := make(chan struct{})
	w.connDone = connDone
	w.conn = conn

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go w.readLoop(conn, connDone)
	go w.pingLoop(conn, connDone)

	// Restore any previous subscriptions after reconnect.
	for _, cmd := range w.subscriptions {
		if err := w.sendCommand(cmd); err != nil {
			return fmt.Errorf("hyperliquid/ws: restore subscription: %w", err)
		}
	}
	return nil
}

// Subscribe subscribes to l2Book updates for the given coins.
func (w *WSClient) Subscribe(coins ...string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn == nil {
		return fmt.Errorf("hyperliquid/ws: not connected")
	}

	for _, coin := range coins {
		cmd := wsCommand{
			Method:       "subscribe",
			Subscription: wsSubscription{Type: "l2Book", Coin: coin},
		}
		if err := w.sendCommand(cmd); err != nil {
			return fmt.Errorf("hyperliquid/ws: subscribe %q: %w", coin, err)
		}
		w.subscriptions = append(w.subscriptions, cmd)
	}
	return nil
}

// Top returns the latest cached top of book for coin, if any update has
// arrived yet.
func (w *WSClient) Top(coin string) (BookTop, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	top, ok := w.tops[coin]
	return top, ok
}

// Close shuts down the connection and stops the loops.
func (w *WSClient) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	close(w.done)

	if w.conn != nil {
		_ = w.conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		return w.conn.Close()
	}
	return nil
}

// sendCommand sends a JSON command to the WebSocket. Caller must hold w.mu.
func (w *WSClient) sendCommand(cmd wsCommand) error {
	w.conn.SetWriteDeadline(time.Now().Add(writeWait))

	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

// readLoop reads messages from its own connection until it drops, then
// schedules a reconnect unless the connection was already replaced.
func (w *WSClient) readLoop(conn *websocket.Conn, connDone chan struct{}) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-w.done:
				return
			case <-connDone:
				return
			default:
			}
			w.logger.Warn("read failed, reconnecting", slog.String("error", err.Error()))
			w.reconnect()
			return
		}
		w.handleMessage(data)
	}
}

// handleMessage parses one inbound frame and updates the top cache.
func (w *WSClient) handleMessage(data []byte) {
	var msg wsMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		w.logger.Debug("unparseable message", slog.String("error", err.Error()))
		return
	}
	if msg.Channel != "l2Book" {
		return
	}

	var book l2Book
	if err := json.Unmarshal(msg.Data, &book); err != nil {
		w.logger.Debug("unparseable l2Book", slog.String("error", err.Error()))
		return
	}
	top, err := book.top()
	if err != nil {
		w.logger.Debug("unusable l2Book", slog.String("error", err.Error()))
		return
	}

	w.mu.Lock()
	w.tops[book.Coin] = top
	w.mu.Unlock()
}

// pingLoop sends periodic pings on its own connection for keep-alive. It
// exits when the client shuts down or the connection is replaced.
func (w *WSClient) pingLoop(conn *websocket.Conn, connDone chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-connDone:
			return
		case <-ticker.C:
			w.mu.Lock()
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			w.mu.Unlock()
			if err != nil {
				w.logger.Warn("ping failed", slog.String("error", err.Error()))
				return
			}
		}
	}
}

// reconnect re-dials with exponential backoff until success or shutdown.
func (w *WSClient) reconnect() {
	delay := reconnectDelay
	for {
		select {
		case <-w.done:
			return
		case <-time.After(delay):
		}

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		err := w.Connect(ctx)
		cancel()
		if err == nil {
			w.logger.Info("reconnected")
			return
		}

		w.logger.Warn("reconnect failed", slog.String("error", err.Error()))
		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}
