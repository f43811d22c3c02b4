package realtime

import "voice-agent/internal/tools"

// ContinueInstructions 随 response.create 一起发送，让模型基于工具结果继续回答。
const ContinueInstructions = "Please continue using the tool result."

// SessionUpdate 是会话握手消息。
type SessionUpdate struct {
	Type    string        `json:"type"`
	Session SessionConfig `json:"session"`
}

// SessionConfig 描述会话指令、工具与语音参数。
type SessionConfig struct {
	Instructions string               `json:"instructions,omitempty"`
	Voice        string               `json:"voice,omitempty"`
	Temperature  float64              `json:"temperature,omitempty"`
	Tools        []tools.FunctionSpec `json:"tools"`
	ToolChoice   string               `json:"tool_choice,omitempty"`
}

// ConversationItemCreate 向会话插入一个条目。
type ConversationItemCreate struct {
	Type string `json:"type"`
	Item any    `json:"item"`
}

// FunctionCallOutput 是工具结果条目。
type FunctionCallOutput struct {
	Type   string `json:"type"`
	CallID string `json:"call_id"`
	Output string `json:"output"`
}

// UserMessage 是用户文本条目。
type UserMessage struct {
	Type    string         `json:"type"`
	Role    string         `json:"role"`
	Content []InputContent `json:"content"`
}

type InputContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ResponseCreate 请求模型生成下一轮回复。
type ResponseCreate struct {
	Type     string          `json:"type"`
	Response ResponseOptions `json:"response"`
}

type ResponseOptions struct {
	Conversation string `json:"conversation,omitempty"`
	Instructions string `json:"instructions,omitempty"`
}

func newSessionUpdate(cfg SessionConfig) SessionUpdate {
	if cfg.Tools == nil {
		cfg.Tools = []tools.FunctionSpec{}
	}
	if cfg.ToolChoice == "" {
		cfg.ToolChoice = "auto"
	}
	return SessionUpdate{Type: "session.update", Session: cfg}
}

func newFunctionCallOutput(callID, output string) ConversationItemCreate {
	return ConversationItemCreate{
		Type: "conversation.item.create",
		Item: FunctionCallOutput{Type: "function_call_output", CallID: callID, Output: output},
	}
}

func newUserMessage(text string) ConversationItemCreate {
	return ConversationItemCreate{
		Type: "conversation.item.create",
		Item: UserMessage{
			Type:    "message",
			Role:    "user",
			Content: []InputContent{{Type: "input_text", Text: text}},
		},
	}
}

func newResponseCreate(instructions string) ResponseCreate {
	return ResponseCreate{
		Type:     "response.create",
		Response: ResponseOptions{Conversation: "auto", Instructions: instructions},
	}
}
