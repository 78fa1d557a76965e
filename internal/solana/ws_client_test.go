package solana

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// wsServer starts a websocket test server and returns its ws:// endpoint.
// The handler runs once per accepted connection, on the server goroutine, so
// it must report failures with t.Errorf rather than t.Fatalf.
func wsServer(t *testing.T, handle func(c *websocket.Conn)) string {
	t.Helper()

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer c.Close()
		handle(c)
	}))
	t.Cleanup(server.Close)

	return "ws" + strings.TrimPrefix(server.URL, "http")
}

// acceptSubscribe reads one subscribe request off the connection and confirms
// it with the given subscription ID.
func acceptSubscribe(t *testing.T, c *websocket.Conn, subID int64) (wsRequest, bool) {
	_, msg, err := c.ReadMessage()
	if err != nil {
		t.Errorf("read subscribe request: %v", err)
		return wsRequest{}, false
	}
	var req wsRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		t.Errorf("unmarshal subscribe request: %v", err)
		return wsRequest{}, false
	}
	if err := c.WriteJSON(wsSubscribeResponse{JSONRPC: "2.0", ID: req.ID, Result: subID}); err != nil {
		t.Errorf("write subscribe confirmation: %v", err)
		return wsRequest{}, false
	}
	return req, true
}

func notify(c *websocket.Conn, subID int64, slot uint64, value wsLogsValue) error {
	return c.WriteJSON(wsNotification{
		JSONRPC: "2.0",
		Method:  "logsNotification",
		Params: &wsNotificationParams{
			Subscription: subID,
			Result: wsNotificationResult{
				Context: &wsContext{Slot: slot},
				Value:   value,
			},
		},
	})
}

// drain keeps the server side of a connection open until the client hangs up.
func drain(c *websocket.Conn) {
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}

func TestWSConn_SubscribeAndRecv(t *testing.T) {
	endpoint := wsServer(t, func(c *websocket.Conn) {
		req, ok := acceptSubscribe(t, c, 42)
		if !ok {
			return
		}
		if req.Method != "logsSubscribe" {
			t.Errorf("method = %q, want logsSubscribe", req.Method)
		}
		if len(req.Params) != 2 {
			t.Errorf("params length = %d, want 2", len(req.Params))
		} else {
			filter, _ := req.Params[0].(map[string]interface{})
			mentions, _ := filter["mentions"].([]interface{})
			if len(mentions) != 1 || mentions[0] != "pumpprogram" {
				t.Errorf("mentions = %v, want [pumpprogram]", mentions)
			}
			opts, _ := req.Params[1].(map[string]interface{})
			if opts["commitment"] != "confirmed" {
				t.Errorf("commitment = %v, want confirmed by default", opts["commitment"])
			}
		}

		notify(c, 42, 555, wsLogsValue{
			Signature: "sig-1",
			Logs:      []string{"Program log: Instruction: Create"},
		})
		drain(c)
	})

	ctx := context.Background()
	conn, err := DialWS(ctx, endpoint, nil)
	if err != nil {
		t.Fatalf("DialWS failed: %v", err)
	}
	defer conn.Close()

	if err := conn.Subscribe(ctx, LogsFilter{Mentions: []string{"pumpprogram"}}); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	got, err := conn.Recv(ctx)
	if err != nil {
		t.Fatalf("Recv failed: %v", err)
	}
	if got.Signature != "sig-1" {
		t.Errorf("Signature = %q, want sig-1", got.Signature)
	}
	if got.Slot != 555 {
		t.Errorf("Slot = %d, want 555", got.Slot)
	}
	if len(got.Logs) != 1 {
		t.Errorf("Logs length = %d, want 1", len(got.Logs))
	}
	if got.Err != nil {
		t.Errorf("Err = %v, want nil", got.Err)
	}
}

func TestWSConn_SubscribeRejected(t *testing.T) {
	endpoint := wsServer(t, func(c *websocket.Conn) {
		_, msg, err := c.ReadMessage()
		if err != nil {
			t.Errorf("read subscribe request: %v", err)
			return
		}
		var req wsRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			t.Errorf("unmarshal subscribe request: %v", err)
			return
		}
		c.WriteJSON(wsSubscribeResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &wsRespError{Code: -32602, Message: "invalid params"},
		})
		drain(c)
	})

	ctx := context.Background()
	conn, err := DialWS(ctx, endpoint, nil)
	if err != nil {
		t.Fatalf("DialWS failed: %v", err)
	}
	defer conn.Close()

	err = conn.Subscribe(ctx, LogsFilter{})
	if err == nil {
		t.Fatal("expected error for rejected subscription")
	}
	if !strings.Contains(err.Error(), "subscribe rejected") {
		t.Errorf("error = %v, want subscribe rejected", err)
	}
}

func TestWSConn_RecvSkipsOtherSubscriptions(t *testing.T) {
	endpoint := wsServer(t, func(c *websocket.Conn) {
		if _, ok := acceptSubscribe(t, c, 7); !ok {
			return
		}
		notify(c, 99, 1, wsLogsValue{Signature: "other"})
		notify(c, 7, 2, wsLogsValue{Signature: "mine"})
		drain(c)
	})

	ctx := context.Background()
	conn, err := DialWS(ctx, endpoint, nil)
	if err != nil {
		t.Fatalf("DialWS failed: %v", err)
	}
	defer conn.Close()

	if err := conn.Subscribe(ctx, LogsFilter{}); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	got, err := conn.Recv(ctx)
	if err != nil {
		t.Fatalf("Recv failed: %v", err)
	}
	if got.Signature != "mine" {
		t.Errorf("Signature = %q, want mine (foreign subscription must be skipped)", got.Signature)
	}
}

func TestWSConn_RecvBeforeSubscribe(t *testing.T) {
	endpoint := wsServer(t, drain)

	ctx := context.Background()
	conn, err := DialWS(ctx, endpoint, nil)
	if err != nil {
		t.Fatalf("DialWS failed: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Recv(ctx); err == nil {
		t.Error("expected error receiving before Subscribe")
	}
}

func TestWSConn_RecvAfterServerDrop(t *testing.T) {
	endpoint := wsServer(t, func(c *websocket.Conn) {
		acceptSubscribe(t, c, 5)
		// Returning closes the connection under the subscription.
	})

	ctx := context.Background()
	conn, err := DialWS(ctx, endpoint, nil)
	if err != nil {
		t.Fatalf("DialWS failed: %v", err)
	}
	defer conn.Close()

	if err := conn.Subscribe(ctx, LogsFilter{}); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	if _, err := conn.Recv(ctx); err == nil {
		t.Error("expected transport error after server dropped the connection")
	}
}

func TestWSConn_Close(t *testing.T) {
	endpoint := wsServer(t, drain)

	conn, err := DialWS(context.Background(), endpoint, nil)
	if err != nil {
		t.Fatalf("DialWS failed: %v", err)
	}

	if err := conn.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if !conn.closed.Load() {
		t.Error("connection should report closed")
	}
	if err := conn.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

func TestWSConn_SubscribeAfterClose(t *testing.T) {
	endpoint := wsServer(t, drain)

	ctx := context.Background()
	conn, err := DialWS(ctx, endpoint, nil)
	if err != nil {
		t.Fatalf("DialWS failed: %v", err)
	}
	conn.Close()

	if err := conn.Subscribe(ctx, LogsFilter{}); err == nil {
		t.Error("expected error subscribing on a closed connection")
	}
}

func TestDialWS_Config(t *testing.T) {
	endpoint := wsServer(t, drain)
	ctx := context.Background()

	conn, err := DialWS(ctx, endpoint, nil)
	if err != nil {
		t.Fatalf("DialWS failed: %v", err)
	}
	defer conn.Close()
	if conn.config != DefaultWSConfig() {
		t.Errorf("config = %+v, want defaults", conn.config)
	}

	custom := WSConfig{
		HandshakeTimeout: time.Second,
		SubscribeTimeout: 2 * time.Second,
		PingInterval:     time.Minute,
		ReadTimeout:      time.Second,
		WriteTimeout:     time.Second,
	}
	conn2, err := DialWS(ctx, endpoint, &custom)
	if err != nil {
		t.Fatalf("DialWS with config failed: %v", err)
	}
	defer conn2.Close()
	if conn2.config != custom {
		t.Errorf("config = %+v, want %+v", conn2.config, custom)
	}
}

func TestDialer(t *testing.T) {
	endpoint := wsServer(t, func(c *websocket.Conn) {
		if _, ok := acceptSubscribe(t, c, 3); !ok {
			return
		}
		drain(c)
	})

	dial := Dialer(endpoint, nil)
	stream, err := dial(context.Background())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer stream.Close()

	if err := stream.Subscribe(context.Background(), LogsFilter{}); err != nil {
		t.Errorf("Subscribe on dialed stream failed: %v", err)
	}
}
