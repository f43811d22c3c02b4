package agent

import (
	"context"
	"errors"

	"voice-agent/internal/logger"
)

// ErrNoModel 表示没有可用的模型客户端（通常是缺少 API key）。
var ErrNoModel = errors.New("no model client configured")

// ModelClient 定义模型客户端接口
type ModelClient interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// CompleteFunc 让普通函数满足 ModelClient。
type CompleteFunc func(ctx context.Context, prompt Prompt) (string, error)

func (f CompleteFunc) Complete(ctx context.Context, prompt Prompt) (string, error) {
	if f == nil {
		return "", ErrNoModel
	}
	return f(ctx, prompt)
}

// ToLLMMessages 将内部消息转换为日志友好的结构。
func ToLLMMessages(msgs []Message) []logger.LLMMessage {
	out := make([]logger.LLMMessage, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, logger.LLMMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}
	return out
}
