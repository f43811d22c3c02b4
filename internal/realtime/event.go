package realtime

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Kind 是入站事件归一化后的种类。
type Kind int

const (
	KindIgnored Kind = iota
	KindCallCreated
	KindItemAdded
	KindArgumentsDelta
	KindItemDelta
	KindArgumentsDone
	KindItemDone
	KindTranscriptDelta
	KindTranscriptDone
	KindError
	KindSession
)

var kindNames = map[Kind]string{
	KindIgnored:         "ignored",
	KindCallCreated:     "call_created",
	KindItemAdded:       "item_added",
	KindArgumentsDelta:  "arguments_delta",
	KindItemDelta:       "item_delta",
	KindArgumentsDone:   "arguments_done",
	KindItemDone:        "item_done",
	KindTranscriptDelta: "transcript_delta",
	KindTranscriptDone:  "transcript_done",
	KindError:           "error",
	KindSession:         "session",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// kindTable 列出已知的事件类型；beta 与 GA 命名并存。
var kindTable = map[string]Kind{
	"response.function_call.created": KindCallCreated,
	"response.output_item.added":     KindItemAdded,

	"response.function_call.arguments.delta": KindArgumentsDelta,
	"response.function_call_arguments.delta": KindArgumentsDelta,
	"response.output_item.delta":             KindItemDelta,

	"response.function_call.arguments.done":      KindArgumentsDone,
	"response.function_call.arguments.completed": KindArgumentsDone,
	"response.function_call_arguments.done":      KindArgumentsDone,
	"response.function_call_arguments.completed": KindArgumentsDone,
	"response.output_item.done":                  KindItemDone,

	"response.output_text.delta":             KindTranscriptDelta,
	"response.text.delta":                    KindTranscriptDelta,
	"response.audio_transcript.delta":        KindTranscriptDelta,
	"response.output_audio_transcript.delta": KindTranscriptDelta,
	"response.output_text.done":              KindTranscriptDone,
	"response.text.done":                     KindTranscriptDone,
	"response.audio_transcript.done":         KindTranscriptDone,
	"response.output_audio_transcript.done":  KindTranscriptDone,

	"error":           KindError,
	"session.created": KindSession,
	"session.updated": KindSession,
}

// Classify 先查表，查不到时按规则兜底：含 function_call 且以
// arguments.done / arguments.completed 结尾视为参数完成，含 arguments.delta 视为参数分片。
func Classify(eventType string) Kind {
	if kind, ok := kindTable[eventType]; ok {
		return kind
	}
	if !strings.Contains(eventType, "function_call") {
		return KindIgnored
	}
	switch {
	case strings.HasSuffix(eventType, "arguments.done"), strings.HasSuffix(eventType, "arguments.completed"):
		return KindArgumentsDone
	case strings.Contains(eventType, "arguments.delta"):
		return KindArgumentsDelta
	}
	return KindIgnored
}

// ServerEvent 是入站事件的宽松解码结果，只保留对账需要的字段。
type ServerEvent struct {
	Type       string          `json:"type"`
	EventID    string          `json:"event_id,omitempty"`
	ResponseID string          `json:"response_id,omitempty"`
	ItemID     string          `json:"item_id,omitempty"`
	CallID     string          `json:"call_id,omitempty"`
	ID         string          `json:"id,omitempty"`
	Name       string          `json:"name,omitempty"`
	Arguments  json.RawMessage `json:"arguments,omitempty"`
	Delta      json.RawMessage `json:"delta,omitempty"`
	Text       string          `json:"text,omitempty"`
	Transcript string          `json:"transcript,omitempty"`
	Item       *ServerItem     `json:"item,omitempty"`
	Error      *ServerError    `json:"error,omitempty"`

	Kind      Kind `json:"-"`
	Synthetic bool `json:"-"`
}

// ServerItem 是 output_item 事件携带的会话条目。
type ServerItem struct {
	ID        string          `json:"id,omitempty"`
	Type      string          `json:"type,omitempty"`
	Name      string          `json:"name,omitempty"`
	CallID    string          `json:"call_id,omitempty"`
	Status    string          `json:"status,omitempty"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ServerError 是 error 事件的错误体。
type ServerError struct {
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// DecodeEvent 解析一帧文本消息并分类。
func DecodeEvent(data []byte) (ServerEvent, error) {
	var ev ServerEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return ServerEvent{}, fmt.Errorf("decode realtime event: %w", err)
	}
	if strings.TrimSpace(ev.Type) == "" {
		return ServerEvent{}, fmt.Errorf("decode realtime event: missing type")
	}
	ev.Kind = Classify(ev.Type)
	return ev, nil
}

// IsFunctionCallItem 报告 output_item 事件是否为 function_call 条目。
func (e ServerEvent) IsFunctionCallItem() bool {
	return e.Item != nil && e.Item.Type == "function_call"
}

// CallRef 返回分片/完成事件中的调用标识：call_id、item_id、item.id、id、response_id 依次兜底。
func (e ServerEvent) CallRef() string {
	candidates := []string{e.CallID, e.ItemID}
	if e.Item != nil {
		candidates = append(candidates, e.Item.ID)
	}
	candidates = append(candidates, e.ID, e.ResponseID)
	for _, c := range candidates {
		if c = strings.TrimSpace(c); c != "" {
			return c
		}
	}
	return ""
}

// ItemRef 返回 output_item 事件的条目 id 与可选的持久 call_id。
func (e ServerEvent) ItemRef() (id string, callID string) {
	if e.Item == nil {
		return e.CallRef(), e.CallID
	}
	id = strings.TrimSpace(e.Item.ID)
	callID = strings.TrimSpace(e.Item.CallID)
	if id == "" {
		id = callID
	}
	if id == "" {
		id = strings.TrimSpace(e.ItemID)
	}
	return id, callID
}

// Fragment 返回参数分片文本：delta 为字符串时直接使用，为对象时取其 arguments 字段。
func (e ServerEvent) Fragment() string {
	return rawText(e.Delta, true)
}

// ArgumentsText 返回事件自身携带的完整参数文本（如有）。
func (e ServerEvent) ArgumentsText() string {
	if text := rawText(e.Arguments, false); text != "" {
		return text
	}
	if e.Item != nil {
		return rawText(e.Item.Arguments, false)
	}
	return ""
}

func rawText(raw json.RawMessage, unwrapArguments bool) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return s
		}
	case '{':
		if unwrapArguments {
			var obj struct {
				Arguments json.RawMessage `json:"arguments"`
			}
			if err := json.Unmarshal(trimmed, &obj); err == nil {
				return rawText(obj.Arguments, false)
			}
		}
	}
	return string(trimmed)
}
