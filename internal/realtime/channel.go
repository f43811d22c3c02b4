package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const defaultDialTimeout = 15 * time.Second

// Channel 是与 realtime 模型之间的双向数据通道。
type Channel interface {
	Sender
	// Frames 返回入站文本帧；通道结束时关闭。
	Frames() <-chan []byte
	Close() error
}

// Dialer 打开一个新的数据通道，返回即表示通道已就绪。
type Dialer interface {
	Dial(ctx context.Context) (Channel, error)
}

// DialerFunc 让普通函数满足 Dialer。
type DialerFunc func(ctx context.Context) (Channel, error)

func (f DialerFunc) Dial(ctx context.Context) (Channel, error) {
	return f(ctx)
}

// WebSocketDialer 通过 WebSocket 连接 realtime 端点。
type WebSocketDialer struct {
	URL    string
	Model  string
	APIKey string
	Header http.Header
}

func (d WebSocketDialer) endpoint() (string, error) {
	raw := strings.TrimSpace(d.URL)
	if raw == "" {
		return "", errors.New("realtime url is empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid realtime url %q: %w", raw, err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}
	if d.Model != "" {
		q := u.Query()
		if q.Get("model") == "" {
			q.Set("model", d.Model)
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (d WebSocketDialer) Dial(ctx context.Context) (Channel, error) {
	endpoint, err := d.endpoint()
	if err != nil {
		return nil, err
	}
	headers := make(http.Header)
	for k, vs := range d.Header {
		for _, v := range vs {
			headers.Add(k, v)
		}
	}
	if key := strings.TrimSpace(d.APIKey); key != "" {
		headers.Set("Authorization", "Bearer "+key)
	}

	dialCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, defaultDialTimeout)
		defer cancel()
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(dialCtx, endpoint, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial failed (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return newWSChannel(conn), nil
}

type wsChannel struct {
	conn   *websocket.Conn
	frames chan []byte
	stop   chan struct{}
	done   chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    atomic.Bool
}

func newWSChannel(conn *websocket.Conn) *wsChannel {
	ch := &wsChannel{
		conn:   conn,
		frames: make(chan []byte, 256),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go ch.readLoop()
	return ch
}

func (c *wsChannel) Frames() <-chan []byte {
	return c.frames
}

func (c *wsChannel) Send(v any) error {
	if c.closed.Load() {
		return ErrChannelClosed
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *wsChannel) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.stop)
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(2*time.Second))
		c.writeMu.Unlock()
		_ = c.conn.Close()
	})
	<-c.done
	return nil
}

func (c *wsChannel) readLoop() {
	defer close(c.done)
	defer close(c.frames)

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if !c.closed.Load() && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				componentLog().Warnf("realtime channel read failed: %v", err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		select {
		case c.frames <- data:
		case <-c.stop:
			return
		}
	}
}
