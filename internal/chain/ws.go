package chain

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zentrolabs/zentro-engine/internal/domain"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// handshakeTimeout bounds the WebSocket dial.
	handshakeTimeout = 15 * time.Second
)

// wsConn manages the ledger node's WebSocket notification channel. The
// connection is dialed lazily on the first subscription; incoming account
// notifications are dispatched to the registered callbacks by subscription
// id.
type wsConn struct {
	url    string
	logger *slog.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	subs   map[uint64]func(domain.AccountUpdate)
	nextID uint64
	closed bool
}

func newWSConn(url string, logger *slog.Logger) *wsConn {
	return &wsConn{
		url:    url,
		logger: logger,
		subs:   make(map[uint64]func(domain.AccountUpdate)),
	}
}

// wsMessage is the envelope for both RPC replies and notifications on the
// socket.
type wsMessage struct {
	ID     uint64          `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Params *struct {
		Subscription uint64 `json:"subscription"`
		Result       struct {
			Account   string `json:"account"`
			Data      string `json:"data"` // base64
			Slot      uint64 `json:"slot"`
			Timestamp int64  `json:"timestamp"` // unix ms
		} `json:"result"`
	} `json:"params,omitempty"`
	Error *rpcError `json:"error,omitempty"`
}

// subscribe registers fn for an account's change notifications. The first
// subscription dials the socket and starts the read loop.
func (w *wsConn) subscribe(ctx context.Context, account string, fn func(domain.AccountUpdate)) (domain.Subscription, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, fmt.Errorf("chain: notification channel closed: %w", domain.ErrNetwork)
	}
	if err := w.connectLocked(ctx); err != nil {
		return nil, err
	}

	w.nextID++
	id := w.nextID

	req := map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  "accountSubscribe",
		"params":  []any{account},
	}
	w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := w.conn.WriteJSON(req); err != nil {
		return nil, fmt.Errorf("chain: subscribe %q: %v: %w", account, err, domain.ErrNetwork)
	}

	// The read loop routes notifications by the request id; the node
	// echoes it as the subscription id.
	w.subs[id] = fn

	w.logger.Info("account subscription registered",
		slog.String("account", account),
		slog.Uint64("subscription_id", id),
	)
	return &accountSub{w: w, id: id, account: account}, nil
}

// connectLocked dials the socket and starts the read loop if needed.
// Caller holds w.mu.
func (w *wsConn) connectLocked(ctx context.Context) error {
	if w.conn != nil {
		return nil
	}

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, w.url, nil)
	if err != nil {
		return fmt.Errorf("chain: dial %s: %v: %w", w.url, err, domain.ErrNetwork)
	}
	w.conn = conn

	go w.readLoop(conn)
	return nil
}

// readLoop dispatches incoming notifications until the connection drops.
// A dropped channel degrades the engine to the polling path; subscribers
// are not transparently re-registered.
func (w *wsConn) readLoop(conn *websocket.Conn) {
	defer func() {
		w.mu.Lock()
		if w.conn == conn {
			w.conn = nil
		}
		w.mu.Unlock()
		conn.Close()
	}()

	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			w.mu.Lock()
			closed := w.closed
			w.mu.Unlock()
			if !closed {
				w.logger.Warn("notification channel dropped", slog.String("error", err.Error()))
			}
			return
		}

		if msg.Params == nil {
			continue // RPC ack or unknown frame
		}

		w.mu.Lock()
		fn := w.subs[msg.Params.Subscription]
		w.mu.Unlock()
		if fn == nil {
			continue
		}

		data, err := base64.StdEncoding.DecodeString(msg.Params.Result.Data)
		if err != nil {
			w.logger.Warn("dropping undecodable account notification",
				slog.Uint64("subscription_id", msg.Params.Subscription),
				slog.String("error", err.Error()),
			)
			continue
		}

		fn(domain.AccountUpdate{
			Account:   msg.Params.Result.Account,
			Data:      data,
			Slot:      msg.Params.Result.Slot,
			Timestamp: time.UnixMilli(msg.Params.Result.Timestamp).UTC(),
		})
	}
}

// unsubscribe releases one subscription. Safe to call repeatedly.
func (w *wsConn) unsubscribe(id uint64, account string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.subs[id]; !ok {
		return nil
	}
	delete(w.subs, id)

	if w.conn == nil || w.closed {
		return nil
	}

	req := map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  "accountUnsubscribe",
		"params":  []any{id},
	}
	w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := w.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("chain: unsubscribe %q: %v: %w", account, err, domain.ErrNetwork)
	}
	return nil
}

// close shuts the channel down. Idempotent.
func (w *wsConn) close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	w.subs = make(map[uint64]func(domain.AccountUpdate))

	if w.conn != nil {
		err := w.conn.Close()
		w.conn = nil
		return err
	}
	return nil
}

// accountSub is the handle returned to subscribers.
type accountSub struct {
	w       *wsConn
	id      uint64
	account string
}

// Unsubscribe releases the subscription. Idempotent.
func (s *accountSub) Unsubscribe() error {
	return s.w.unsubscribe(s.id, s.account)
}
