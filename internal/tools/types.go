package tools

import (
	"context"
	"time"
)

// Status 描述一次工具调用的结果状态。
type Status string

const (
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// ToolCall 是一次已重建完成、待执行的工具调用。
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
	Scenario  string
}

// ToolResult 是一次工具调用的结果。Output 是最终回传给模型的载荷：
// 成功时为解包后的 result，失败时为 {"error": "..."}。
type ToolResult struct {
	ID       string
	Name     string
	Status   Status
	Output   any
	Error    string
	Duration time.Duration
}

// Request 是发往工具后端的请求体。
type Request struct {
	Tool     string         `json:"tool"`
	Args     map[string]any `json:"args"`
	Scenario string         `json:"scenario,omitempty"`
}

// Backend 执行一次工具请求并返回原始响应（已解码的 JSON 值）。
type Backend interface {
	Execute(ctx context.Context, req Request) (any, error)
}

// BackendFunc 让普通函数满足 Backend。
type BackendFunc func(ctx context.Context, req Request) (any, error)

func (f BackendFunc) Execute(ctx context.Context, req Request) (any, error) {
	return f(ctx, req)
}

// FunctionSpec 是 realtime session.update 中的 function 工具声明。
type FunctionSpec struct {
	Type        string         `json:"type"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters"`
}

// ErrorOutput 构造统一的错误载荷。
func ErrorOutput(msg string) map[string]any {
	return map[string]any{"error": msg}
}

// UnwrapResult 从后端响应中取出 result 字段；没有 result 时返回整个响应。
func UnwrapResult(raw any) any {
	if obj, ok := raw.(map[string]any); ok {
		if res, ok := obj["result"]; ok {
			return res
		}
	}
	return raw
}
