package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebSocketDialer_Endpoint(t *testing.T) {
	cases := []struct {
		name string
		d    WebSocketDialer
		want string
	}{
		{"adds model", WebSocketDialer{URL: "wss://api.openai.com/v1/realtime", Model: "gpt-realtime"}, "wss://api.openai.com/v1/realtime?model=gpt-realtime"},
		{"keeps explicit model", WebSocketDialer{URL: "wss://h/v1/realtime?model=x", Model: "gpt-realtime"}, "wss://h/v1/realtime?model=x"},
		{"https to wss", WebSocketDialer{URL: "https://h/v1/realtime"}, "wss://h/v1/realtime"},
		{"http to ws", WebSocketDialer{URL: "http://127.0.0.1:9/rt"}, "ws://127.0.0.1:9/rt"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.d.endpoint()
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := WebSocketDialer{}.endpoint()
	assert.Error(t, err)
}

func TestWebSocketDialer_RoundTrip(t *testing.T) {
	upgrader := websocket.Upgrader{}
	gotAuth := make(chan string, 1)
	gotModel := make(chan string, 1)
	received := make(chan map[string]any, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth <- r.Header.Get("Authorization")
		gotModel <- r.URL.Query().Get("model")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var msg map[string]any
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		received <- msg
		_ = conn.WriteMessage(websocket.BinaryMessage, []byte{0x01})
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"session.updated"}`))
		// 等待客户端关闭
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	d := WebSocketDialer{
		URL:    srv.URL,
		Model:  "gpt-realtime",
		APIKey: "sk-test",
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ch, err := d.Dial(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Bearer sk-test", <-gotAuth)
	assert.Equal(t, "gpt-realtime", <-gotModel)

	require.NoError(t, ch.Send(newResponseCreate("")))
	msg := <-received
	assert.Equal(t, "response.create", msg["type"])

	select {
	case frame := <-ch.Frames():
		assert.JSONEq(t, `{"type":"session.updated"}`, string(frame), "binary frames are skipped")
	case <-time.After(2 * time.Second):
		t.Fatal("no frame received")
	}

	require.NoError(t, ch.Close())
	assert.ErrorIs(t, ch.Send(newResponseCreate("")), ErrChannelClosed)
	_, open := <-ch.Frames()
	assert.False(t, open)
}

func TestWebSocketDialer_HandshakeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := WebSocketDialer{URL: srv.URL}.Dial(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}
