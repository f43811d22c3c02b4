package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrChannelClosed 表示数据通道未打开，输出被丢弃。
var ErrChannelClosed = errors.New("data channel is not open")

// CorrelationPolicy 决定规范 id 仍为瞬时形式时，如何在同名工具的持久 id 中挑选输出 call_id。
type CorrelationPolicy string

const (
	// CorrelateOldest 选择最早打开且尚未收到输出的同名调用。
	CorrelateOldest CorrelationPolicy = "oldest"
	// CorrelateNewest 选择最近打开且尚未收到输出的同名调用。
	CorrelateNewest CorrelationPolicy = "newest"
	// CorrelateOff 关闭启发式匹配。
	CorrelateOff CorrelationPolicy = "off"
)

// ParseCorrelationPolicy 解析配置值，空串取默认的 oldest。
func ParseCorrelationPolicy(s string) (CorrelationPolicy, error) {
	switch CorrelationPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", CorrelateOldest:
		return CorrelateOldest, nil
	case CorrelateNewest:
		return CorrelateNewest, nil
	case CorrelateOff:
		return CorrelateOff, nil
	}
	return "", fmt.Errorf("unknown correlation policy %q (want oldest|newest|off)", s)
}

// CorrelateOutboundID 选出 function_call_output 使用的 call_id，依次尝试：
// 规范 id 已是持久形式；解析器已把它映射到持久 id；此前记录过的启发式结果；
// 按 policy 在同名工具的持久 id 中挑选（并记录该映射）；最后原样返回。
func CorrelateOutboundID(t *Tracker, canonical, toolName string, policy CorrelationPolicy) string {
	forms := t.resolver.Forms()
	if forms.IsDurable(canonical) || !forms.IsTransient(canonical) {
		correlations.WithLabelValues("canonical").Inc()
		return canonical
	}
	if mapped := t.resolver.Canonical(canonical); mapped != canonical && forms.IsDurable(mapped) {
		correlations.WithLabelValues("alias").Inc()
		return mapped
	}
	if alt, ok := t.outbound[canonical]; ok {
		correlations.WithLabelValues("heuristic").Inc()
		return alt
	}
	if alt := heuristicMatch(t, canonical, toolName, policy); alt != "" {
		t.outbound[canonical] = alt
		if rec, ok := t.records[alt]; ok {
			rec.OutputSent = true
		}
		correlations.WithLabelValues("heuristic").Inc()
		return alt
	}
	correlations.WithLabelValues("fallback").Inc()
	return canonical
}

func heuristicMatch(t *Tracker, canonical, toolName string, policy CorrelationPolicy) string {
	if policy == CorrelateOff || toolName == "" {
		return ""
	}
	forms := t.resolver.Forms()
	var candidates []*CallRecord
	for _, rec := range t.orderedRecords() {
		if rec.CanonicalID == canonical || rec.OutputSent {
			continue
		}
		if rec.ToolName != toolName || !forms.IsDurable(rec.CanonicalID) {
			continue
		}
		candidates = append(candidates, rec)
	}
	if len(candidates) == 0 {
		return ""
	}
	if policy == CorrelateNewest {
		return candidates[len(candidates)-1].CanonicalID
	}
	return candidates[0].CanonicalID
}

// Sender 是可写的数据通道。
type Sender interface {
	Send(v any) error
}

// Emitter 把工具结果写回会话：function_call_output 之后紧跟 response.create。
type Emitter struct {
	policy       CorrelationPolicy
	instructions string
}

func NewEmitter(policy CorrelationPolicy) *Emitter {
	if policy == "" {
		policy = CorrelateOldest
	}
	return &Emitter{policy: policy, instructions: ContinueInstructions}
}

// Emit 发送一次工具输出。ch 为 nil 时只记录告警；发送失败只记录日志，不会影响会话。
func (e *Emitter) Emit(ch Sender, t *Tracker, canonical, toolName string, payload any) (string, error) {
	if ch == nil {
		outputsTotal.WithLabelValues("channel_closed").Inc()
		componentLog().Warnf("drop tool output canonical=%s tool=%s: %v", canonical, toolName, ErrChannelClosed)
		return "", ErrChannelClosed
	}
	outbound := CorrelateOutboundID(t, canonical, toolName, e.policy)
	output := StringifyOutput(payload)

	if err := ch.Send(newFunctionCallOutput(outbound, output)); err != nil {
		outputsTotal.WithLabelValues("send_failed").Inc()
		componentLog().Warnf("send function_call_output call_id=%s failed: %v", outbound, err)
		return outbound, err
	}
	if err := ch.Send(newResponseCreate(e.instructions)); err != nil {
		outputsTotal.WithLabelValues("send_failed").Inc()
		componentLog().Warnf("send response.create after call_id=%s failed: %v", outbound, err)
		return outbound, err
	}
	outputsTotal.WithLabelValues("sent").Inc()
	t.MarkSent(canonical, outbound)
	componentLog().WithField("type", "conversation.item.create").
		Infof("tool output sent canonical=%s call_id=%s tool=%s", canonical, outbound, toolName)
	return outbound, nil
}

// StringifyOutput 把结果序列化为文本：字符串原样返回，其余编码为 JSON，编码失败退回 fmt 格式。
func StringifyOutput(payload any) string {
	if s, ok := payload.(string); ok {
		return s
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprint(payload)
	}
	return string(raw)
}
