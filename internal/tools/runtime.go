package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Runtime 把注册表与后端组合起来：查找工具、调用后端、解包结果并记录日志。
type Runtime struct {
	registry *Registry
	backend  Backend
}

func NewRuntime(registry *Registry, backend Backend) *Runtime {
	return &Runtime{registry: registry, backend: backend}
}

// Lookup 报告工具是否已注册。
func (r *Runtime) Lookup(name string) bool {
	_, ok := r.registry.Lookup(name)
	return ok
}

// Registry 返回底层注册表。
func (r *Runtime) Registry() *Registry {
	return r.registry
}

// Dispatch 执行一次工具调用。任何失败都体现在返回的 ToolResult 中，不会返回 error。
func (r *Runtime) Dispatch(ctx context.Context, call ToolCall) ToolResult {
	_, ok := r.registry.Lookup(call.Name)
	logToolRequest(call, ok)

	start := time.Now()
	if !ok {
		res := ToolResult{ID: call.ID, Name: call.Name, Status: StatusError, Error: "tool not found", Output: ErrorOutput("tool not found")}
		logToolResult(call, res, time.Since(start))
		return res
	}

	args := call.Arguments
	if args == nil {
		args = map[string]any{}
	}
	raw, err := r.backend.Execute(ctx, Request{Tool: call.Name, Args: args, Scenario: call.Scenario})
	res := ToolResult{ID: call.ID, Name: call.Name}
	if err != nil {
		res.Status = StatusError
		res.Error = err.Error()
		res.Output = ErrorOutput(err.Error())
	} else {
		res.Status = StatusCompleted
		res.Output = UnwrapResult(raw)
	}
	res.Duration = time.Since(start)
	logToolResult(call, res, res.Duration)
	return res
}

func logToolRequest(call ToolCall, recognized bool) {
	ensureToolsLogger()

	status := "received"
	if !recognized {
		status = "unknown"
	}
	args := "(empty)"
	if len(call.Arguments) > 0 {
		args = encodeForLog(call.Arguments)
	}
	toolsLog.Infof("tool_call id=%s name=%s status=%s args=%s",
		call.ID, call.Name, status, args)
}

func logToolResult(call ToolCall, result ToolResult, elapsed time.Duration) {
	ensureToolsLogger()

	errText := sanitizeForLog([]byte(result.Error))
	toolsLog.Infof("tool_result id=%s name=%s status=%s duration_ms=%d error=%s output=%s",
		call.ID, call.Name, result.Status, elapsed.Milliseconds(), errText, encodeForLog(result.Output))
}

func encodeForLog(v any) string {
	if v == nil {
		return "(empty)"
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return sanitizeForLog([]byte(fmt.Sprint(v)))
	}
	return sanitizeForLog(raw)
}

func sanitizeForLog(raw []byte) string {
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return "(empty)"
	}
	text = strings.ReplaceAll(text, "\n", `\n`)
	text = strings.ReplaceAll(text, "\r", `\r`)
	return text
}
