package events

import (
	"context"
	"errors"
	"sync"

	"voice-agent/internal/logger"
)

// ErrQueueClosed 表示队列已关闭，无法再提交或接收。
var ErrQueueClosed = errors.New("queue closed")

// Loggable 可选接口：实现后入队时会附带这些字段写入 debug 日志。
type Loggable interface {
	LogFields() logger.Fields
}

// Queue 是一个有界、支持 ctx 取消的 FIFO 队列，单消费者按顺序取出。
type Queue[T any] struct {
	ch        chan T
	done      chan struct{}
	closeOnce sync.Once
	log       *logger.LogEntry
}

// NewQueue 创建一个新的队列。
func NewQueue[T any](capacity int) *Queue[T] {
	if capacity <= 0 {
		capacity = 64
	}
	return &Queue[T]{
		ch:   make(chan T, capacity),
		done: make(chan struct{}),
		log:  logger.Named("queue"),
	}
}

// SetLogger 覆盖队列使用的 logger。
func (q *Queue[T]) SetLogger(entry *logger.LogEntry) {
	if entry == nil {
		return
	}
	q.log = entry
}

// Submit 将元素放入队列；队列满时阻塞直到有空位、ctx 取消或队列关闭。
func (q *Queue[T]) Submit(ctx context.Context, item T) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-q.done:
		return ErrQueueClosed
	default:
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-q.done:
		return ErrQueueClosed
	case q.ch <- item:
		q.logItem(item)
		return nil
	}
}

// Receive 读取一个元素；若队列已关闭则返回 ErrQueueClosed。
func (q *Queue[T]) Receive(ctx context.Context) (T, error) {
	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-q.done:
		return zero, ErrQueueClosed
	case item := <-q.ch:
		return item, nil
	}
}

// Len 返回当前队列长度。
func (q *Queue[T]) Len() int {
	return len(q.ch)
}

// Close 关闭队列，停止进一步提交。未取出的元素被丢弃。
func (q *Queue[T]) Close() {
	q.closeOnce.Do(func() {
		close(q.done)
	})
}

func (q *Queue[T]) logItem(item T) {
	if q.log == nil {
		return
	}
	if l, ok := any(item).(Loggable); ok {
		q.log.WithFields(l.LogFields()).Debug("enqueued")
	}
}
