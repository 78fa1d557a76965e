package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// WSConfig configures websocket connection behavior.
type WSConfig struct {
	// HandshakeTimeout bounds the initial dial.
	HandshakeTimeout time.Duration
	// SubscribeTimeout bounds the wait for subscription confirmation.
	SubscribeTimeout time.Duration
	// PingInterval is the interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is the per-read deadline; a healthy subscription with
	// pings flowing never hits it.
	ReadTimeout time.Duration
	// WriteTimeout is the per-write deadline.
	WriteTimeout time.Duration
}

// DefaultWSConfig returns default websocket configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		HandshakeTimeout: 10 * time.Second,
		SubscribeTimeout: 30 * time.Second,
		PingInterval:     30 * time.Second,
		ReadTimeout:      60 * time.Second,
		WriteTimeout:     10 * time.Second,
	}
}

// WSConn implements LogStream over a single gorilla/websocket connection.
// One connection carries one logs subscription and dies with it; the caller
// redials through a DialFunc when Recv reports a transport error.
type WSConn struct {
	conn   *websocket.Conn
	config WSConfig

	// writeMu serializes subscribe and ping writes on the connection.
	writeMu sync.Mutex

	requestID  atomic.Uint64
	subID      int64
	subscribed atomic.Bool

	closed atomic.Bool
	done   chan struct{}
	wg     sync.WaitGroup
}

// DialWS opens a websocket connection to the endpoint. The returned
// connection has no subscription yet; call Subscribe before Recv.
func DialWS(ctx context.Context, endpoint string, config *WSConfig) (*WSConn, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: cfg.HandshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	c := &WSConn{
		conn:   conn,
		config: cfg,
		done:   make(chan struct{}),
	}

	c.wg.Add(1)
	go c.pingLoop()

	return c, nil
}

// Dialer returns a DialFunc bound to the endpoint and config.
func Dialer(endpoint string, config *WSConfig) DialFunc {
	return func(ctx context.Context) (LogStream, error) {
		return DialWS(ctx, endpoint, config)
	}
}

// Subscribe sends a logsSubscribe request and waits for the server to
// confirm the subscription ID.
func (c *WSConn) Subscribe(ctx context.Context, filter LogsFilter) error {
	if c.closed.Load() {
		return fmt.Errorf("connection closed")
	}
	if c.subscribed.Load() {
		return fmt.Errorf("already subscribed")
	}

	reqID := c.requestID.Add(1)

	mentionsFilter := make(map[string]interface{})
	if len(filter.Mentions) > 0 {
		mentionsFilter["mentions"] = filter.Mentions
	} else {
		mentionsFilter["all"] = nil
	}

	commitment := filter.Commitment
	if commitment == "" {
		commitment = "confirmed"
	}

	req := wsRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  "logsSubscribe",
		Params: []interface{}{
			mentionsFilter,
			map[string]string{"commitment": commitment},
		},
	}

	c.writeMu.Lock()
	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	err := c.conn.WriteJSON(req)
	c.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("write subscribe: %w", err)
	}

	// The confirmation arrives on the read path. Nothing else is in
	// flight on this connection, so read frames until the matching
	// response shows up or the window expires.
	deadline := time.Now().Add(c.config.SubscribeTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		c.conn.SetReadDeadline(deadline)
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return fmt.Errorf("connection closed")
			}
			return fmt.Errorf("read subscribe response: %w", err)
		}

		var resp wsSubscribeResponse
		if json.Unmarshal(message, &resp) != nil || resp.ID != reqID {
			// Unrelated frame, keep reading.
			continue
		}
		if resp.Error != nil {
			return fmt.Errorf("subscribe rejected: RPC error %d: %s", resp.Error.Code, resp.Error.Message)
		}
		if resp.Result > 0 {
			c.subID = resp.Result
			c.subscribed.Store(true)
			return nil
		}
	}
}

// Recv blocks until the next logs notification arrives or the transport
// fails. After a transport error the connection is dead.
func (c *WSConn) Recv(ctx context.Context) (LogNotification, error) {
	if err := ctx.Err(); err != nil {
		return LogNotification{}, err
	}
	if !c.subscribed.Load() {
		return LogNotification{}, fmt.Errorf("not subscribed")
	}

	for {
		c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if cerr := ctx.Err(); cerr != nil {
				return LogNotification{}, cerr
			}
			if c.closed.Load() {
				return LogNotification{}, fmt.Errorf("connection closed")
			}
			return LogNotification{}, fmt.Errorf("websocket read: %w", err)
		}

		var notif wsNotification
		if err := json.Unmarshal(message, &notif); err != nil || notif.Method != "logsNotification" || notif.Params == nil {
			// Unrelated frame (pong payloads, late responses), skip.
			continue
		}
		if notif.Params.Subscription != c.subID {
			continue
		}

		value := notif.Params.Result.Value
		out := LogNotification{
			Signature: value.Signature,
			Logs:      value.Logs,
			Err:       value.Err,
		}
		if notif.Params.Result.Context != nil {
			out.Slot = notif.Params.Result.Context.Slot
		}
		return out, nil
	}
}

// Close tears the connection down and stops the ping loop.
func (c *WSConn) Close() error {
	if c.closed.Swap(true) {
		return nil // already closed
	}

	close(c.done)

	c.writeMu.Lock()
	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()

	err := c.conn.Close()
	c.wg.Wait()
	return err
}

// pingLoop sends periodic ping frames to keep the connection alive.
// Write failures are left for the reader to surface.
func (c *WSConn) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			_ = c.conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
		}
	}
}

// WebSocket message types

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type wsSubscribeResponse struct {
	JSONRPC string       `json:"jsonrpc"`
	ID      uint64       `json:"id"`
	Result  int64        `json:"result"` // subscription ID
	Error   *wsRespError `json:"error"`
}

type wsRespError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type wsNotification struct {
	JSONRPC string                `json:"jsonrpc"`
	Method  string                `json:"method"`
	Params  *wsNotificationParams `json:"params"`
}

type wsNotificationParams struct {
	Subscription int64                `json:"subscription"`
	Result       wsNotificationResult `json:"result"`
}

type wsNotificationResult struct {
	Context *wsContext  `json:"context"`
	Value   wsLogsValue `json:"value"`
}

type wsContext struct {
	Slot uint64 `json:"slot"`
}

type wsLogsValue struct {
	Signature string      `json:"signature"`
	Logs      []string    `json:"logs"`
	Err       interface{} `json:"err"`
}
