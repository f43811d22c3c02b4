package events

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"voice-agent/internal/logger"
)

var (
	// ErrEventQueueClosed 表示事件队列已关闭。
	ErrEventQueueClosed = errors.New("event queue closed")
	// ErrEventDropped 表示事件被慢消费者丢弃。
	ErrEventDropped = errors.New("event dropped by slow subscriber")
)

// EventQueue 是 EQ，负责事件广播。慢订阅者会丢事件，不会阻塞发布方。
type EventQueue struct {
	mu     sync.Mutex
	subs   []chan Event
	buffer int
	closed bool
	log    *logger.LogEntry
}

// NewEventQueue 创建事件队列，buffer 是每个订阅者的缓存大小。
func NewEventQueue(buffer int) *EventQueue {
	if buffer <= 0 {
		buffer = 64
	}
	return &EventQueue{buffer: buffer, log: logger.Named("eq")}
}

// SetLogger 覆盖队列使用的 logger。
func (q *EventQueue) SetLogger(entry *logger.LogEntry) {
	if entry == nil {
		return
	}
	q.mu.Lock()
	q.log = entry
	q.mu.Unlock()
}

// Subscribe 订阅事件流。通道会在 Close 时关闭。
func (q *EventQueue) Subscribe() <-chan Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}
	ch := make(chan Event, q.buffer)
	q.subs = append(q.subs, ch)
	return ch
}

// Publish 发布事件到所有订阅者。若存在丢弃，则返回 ErrEventDropped。
func (q *EventQueue) Publish(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrEventQueueClosed
	}
	subs := append([]chan Event{}, q.subs...)
	entry := q.log
	q.mu.Unlock()

	logEvent(entry, event)

	dropped := false
	for _, ch := range subs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ch <- event:
		default:
			dropped = true
		}
	}
	if dropped {
		return ErrEventDropped
	}
	return nil
}

// Close 关闭事件队列和所有订阅通道。
func (q *EventQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	subs := q.subs
	q.subs = nil
	q.mu.Unlock()

	for _, ch := range subs {
		close(ch)
	}
}

// SubscriberCount 返回当前订阅者数量。
func (q *EventQueue) SubscriberCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.subs)
}

func logEvent(entry *logger.LogEntry, event Event) {
	if entry == nil {
		return
	}
	fields := logger.Fields{
		"type":  string(event.Type),
		"epoch": event.Epoch,
	}
	if event.Session != "" {
		fields["session"] = event.Session
	}
	if event.Payload != nil {
		if payload := encodePayload(event.Payload); payload != "" {
			fields["payload"] = payload
		}
	}
	if len(event.Metadata) > 0 {
		fields["metadata"] = event.Metadata
	}
	entry.WithFields(fields).Info("published event into EQ")
}

// encodePayload 把载荷转为便于阅读的文本：字符串原样输出，
// 内含转义换行的 JSON 字符串会被还原并缩进，其余对象输出缩进 JSON。
func encodePayload(payload any) string {
	switch v := payload.(type) {
	case nil:
		return ""
	case string:
		trimmed := strings.TrimSpace(v)
		if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
			unescaped := strings.ReplaceAll(trimmed, `\n`, "\n")
			if json.Valid([]byte(unescaped)) {
				return prettyJSON([]byte(unescaped), v)
			}
		}
		return v
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return prettyJSON(raw, string(raw))
	}
}

func prettyJSON(raw []byte, fallback string) string {
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fallback
	}
	out, err := json.MarshalIndent(decoded, "", "  ")
	if err != nil {
		return fallback
	}
	return string(out)
}
