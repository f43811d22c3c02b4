package agent

import "strings"

// Prompt 代表一次模型调用的完整请求。
type Prompt struct {
	Model    string
	Messages []Message
	// OutputSchema 为 JSON Schema 文本；非空时要求模型按该结构输出。
	OutputSchema string
	Temperature  *float64
}

// System 返回合并后的 system 指令。
func (p Prompt) System() string {
	var parts []string
	for _, msg := range p.Messages {
		if msg.Role == RoleSystem && strings.TrimSpace(msg.Content) != "" {
			parts = append(parts, strings.TrimSpace(msg.Content))
		}
	}
	return strings.Join(parts, "\n\n")
}
