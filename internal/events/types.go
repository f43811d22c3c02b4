package events

import "time"

// EventType 描述 EQ 中分发的事件类型。
type EventType string

const (
	EventSessionOpened EventType = "session.opened"
	EventSessionClosed EventType = "session.closed"
	// EventCallCreated 在首次观察到一个 function call（创建事件或首个参数分片）时发出。
	EventCallCreated   EventType = "call.created"
	EventCallArguments EventType = "call.arguments"
	EventCallCompleted EventType = "call.completed"
	EventCallFailed    EventType = "call.failed"
	// EventOutputSent 表示 function_call_output 已写入数据通道。
	EventOutputSent      EventType = "output.sent"
	EventTranscriptDelta EventType = "transcript.delta"
	EventTranscriptDone  EventType = "transcript.done"
	EventServerError     EventType = "server.error"
)

// CallSnapshot 是某个时刻工具调用记录的只读副本。
type CallSnapshot struct {
	CanonicalID string         `json:"canonical_id"`
	Aliases     []string       `json:"aliases,omitempty"`
	OutboundID  string         `json:"outbound_id,omitempty"`
	ToolName    string         `json:"tool_name,omitempty"`
	Arguments   map[string]any `json:"arguments,omitempty"`
	Status      string         `json:"status"`
	Result      any            `json:"result,omitempty"`
	Error       string         `json:"error,omitempty"`
	StartedAt   time.Time      `json:"started_at"`
	FinishedAt  time.Time      `json:"finished_at,omitempty"`
}

// Transcript 描述助手文本或音频转写的增量/最终文本。
type Transcript struct {
	ResponseID string `json:"response_id"`
	Text       string `json:"text"`
	Final      bool   `json:"final"`
}

// ServerError 是 realtime 服务端返回的 error 事件摘要。
type ServerError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// Event 是 EQ 中传递的唯一消息格式。
// Payload 的具体结构由 Type 决定：call.* / output.sent 为 CallSnapshot，
// transcript.* 为 Transcript，server.error 为 ServerError，session.* 为空。
type Event struct {
	Type      EventType
	Session   string
	Epoch     uint64
	Timestamp time.Time
	Payload   any
	Metadata  map[string]string
}
