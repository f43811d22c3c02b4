package realtime

import (
	"encoding/json"
	"strings"
)

// Accumulator 按规范 id 拼接参数分片。
type Accumulator struct {
	buffers map[string]*strings.Builder
}

func NewAccumulator() *Accumulator {
	return &Accumulator{buffers: make(map[string]*strings.Builder)}
}

// Append 追加一个分片；空分片只会建立缓冲。
func (a *Accumulator) Append(id, fragment string) {
	buf, ok := a.buffers[id]
	if !ok {
		buf = &strings.Builder{}
		a.buffers[id] = buf
	}
	buf.WriteString(fragment)
}

// Pending 报告 id 是否有非空的未完成缓冲。
func (a *Accumulator) Pending(id string) bool {
	buf, ok := a.buffers[id]
	return ok && buf.Len() > 0
}

// Take 取出并清除缓冲。
func (a *Accumulator) Take(id string) (string, bool) {
	buf, ok := a.buffers[id]
	if !ok {
		return "", false
	}
	delete(a.buffers, id)
	return buf.String(), true
}

// Move 把 from 的缓冲并入 to，from 的内容在前。
func (a *Accumulator) Move(from, to string) {
	src, ok := a.buffers[from]
	if !ok || from == to {
		return
	}
	delete(a.buffers, from)
	if dst, ok := a.buffers[to]; ok {
		merged := &strings.Builder{}
		merged.WriteString(src.String())
		merged.WriteString(dst.String())
		a.buffers[to] = merged
		return
	}
	a.buffers[to] = src
}

// ParseArguments 把拼接完成的参数文本解析成参数对象，不会失败：
// 顶层对象若带 arguments 字段（字符串或对象）则取该字段，否则使用对象本身；
// 无法解析的内容以 {"raw": 原文} 返回。nameHint 是对象里顺带给出的工具名。
func ParseArguments(raw string) (args map[string]any, nameHint string) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return map[string]any{}, ""
	}

	var parsed any
	if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
		return map[string]any{"raw": raw}, ""
	}
	obj, ok := parsed.(map[string]any)
	if !ok {
		return map[string]any{"raw": raw}, ""
	}
	if name, ok := obj["name"].(string); ok {
		nameHint = name
	}

	inner, hasInner := obj["arguments"]
	if !hasInner || inner == nil {
		if nameHint != "" && len(obj) == 1 {
			return map[string]any{}, nameHint
		}
		return obj, nameHint
	}
	switch v := inner.(type) {
	case map[string]any:
		return v, nameHint
	case string:
		if strings.TrimSpace(v) == "" {
			return map[string]any{}, nameHint
		}
		var nested any
		if err := json.Unmarshal([]byte(v), &nested); err == nil {
			if m, ok := nested.(map[string]any); ok {
				return m, nameHint
			}
		}
		return map[string]any{"raw": v}, nameHint
	default:
		return map[string]any{"raw": inner}, nameHint
	}
}
