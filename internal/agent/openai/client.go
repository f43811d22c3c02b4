package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"voice-agent/internal/agent"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"
	"github.com/openai/openai-go/v3/shared/constant"
)

type Options struct {
	APIKey  string
	BaseURL string
	Model   string
	// WireAPI 取 "responses" 或 "chat"（默认）。
	WireAPI string
}

type Client struct {
	api   *openai.Client
	model string
	wire  string
}

// 确保Client实现了agent.ModelClient接口
var _ agent.ModelClient = (*Client)(nil)

func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("missing OPENAI_API_KEY")
	}
	cfg := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
	}
	if base := strings.TrimSpace(opts.BaseURL); base != "" {
		cfg = append(cfg, option.WithBaseURL(strings.TrimRight(normalizeBaseURL(base), "/")))
	}
	client := openai.NewClient(cfg...)

	return &Client{
		api:   &client,
		model: opts.Model,
		wire:  strings.ToLower(strings.TrimSpace(opts.WireAPI)),
	}, nil
}

func (c *Client) resolveModel(model string) string {
	if strings.TrimSpace(model) != "" {
		return model
	}
	return c.model
}

func (c *Client) Complete(ctx context.Context, prompt agent.Prompt) (string, error) {
	if c.wire == "responses" {
		return c.completeResponses(ctx, prompt)
	}
	return c.completeChat(ctx, prompt)
}

func (c *Client) completeChat(ctx context.Context, prompt agent.Prompt) (string, error) {
	msgs := prompt.Messages
	// chat 线路不带结构化输出参数，schema 以指令形式附加
	if schema := strings.TrimSpace(prompt.OutputSchema); schema != "" {
		msgs = append([]agent.Message{{Role: agent.RoleSystem, Content: "Respond with JSON matching this schema:\n" + schema}}, msgs...)
	}
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(c.resolveModel(prompt.Model)),
		Messages: toChatMessages(msgs),
	}
	if prompt.Temperature != nil {
		params.Temperature = openai.Float(*prompt.Temperature)
	}

	resp, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", wrapHTTPError(err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no completion choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *Client) completeResponses(ctx context.Context, prompt agent.Prompt) (string, error) {
	params := buildResponseParams(prompt, c.resolveModel(prompt.Model))
	resp, err := c.api.Responses.New(ctx, params)
	if err != nil {
		return "", wrapHTTPError(err)
	}
	if resp.Error.Message != "" && resp.Error.JSON.Message.Valid() {
		return "", errors.New(resp.Error.Message)
	}
	if text := extractResponseText(resp); text != "" {
		return text, nil
	}
	return "", errors.New("responses api returned no text")
}

// RealtimeSession 描述临时凭证绑定的 realtime 会话参数。
type RealtimeSession struct {
	Model        string
	Voice        string
	Instructions string
}

// ClientSecret 是浏览器端连接 realtime 会话用的临时凭证。
type ClientSecret struct {
	Value     string `json:"value"`
	ExpiresAt int64  `json:"expires_at"`
}

// MintClientSecret 调用 realtime/client_secrets 换取临时凭证，长期 API key 不离开服务端。
func (c *Client) MintClientSecret(ctx context.Context, session RealtimeSession) (ClientSecret, error) {
	body := map[string]any{"type": "realtime", "model": c.resolveModel(session.Model)}
	if session.Instructions != "" {
		body["instructions"] = session.Instructions
	}
	if session.Voice != "" {
		body["audio"] = map[string]any{"output": map[string]any{"voice": session.Voice}}
	}

	var out ClientSecret
	if err := c.api.Post(ctx, "realtime/client_secrets", map[string]any{"session": body}, &out); err != nil {
		return ClientSecret{}, wrapHTTPError(err)
	}
	if strings.TrimSpace(out.Value) == "" {
		return ClientSecret{}, errors.New("realtime client secret missing in response")
	}
	return out, nil
}

func toChatMessages(msgs []agent.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, msg := range msgs {
		switch msg.Role {
		case agent.RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		case agent.RoleAssistant:
			out = append(out, openai.AssistantMessage(msg.Content))
		default:
			out = append(out, openai.UserMessage(msg.Content))
		}
	}
	return out
}

func buildResponseParams(prompt agent.Prompt, model string) responses.ResponseNewParams {
	instructions, convo := splitInstructions(prompt.Messages)
	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(model),
	}
	if instructions != "" {
		params.Instructions = openai.String(instructions)
	}
	if len(convo) > 0 {
		params.Input.OfInputItemList = responses.ResponseInputParam(toResponseInput(convo))
	}
	if prompt.Temperature != nil {
		params.Temperature = openai.Float(*prompt.Temperature)
	}
	if schema, ok := parseOutputSchema(prompt.OutputSchema); ok {
		var format responses.ResponseFormatTextJSONSchemaConfigParam
		format.Name = "tool_result"
		format.Schema = schema
		// 行业配置里的 result schema 未必满足 strict 模式的约束
		format.Strict = openai.Bool(false)
		format.Type = constant.JSONSchema("").Default()

		params.Text = responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{OfJSONSchema: &format},
		}
	}
	return params
}

func parseOutputSchema(schema string) (map[string]any, bool) {
	raw := strings.TrimSpace(schema)
	if raw == "" {
		return nil, false
	}
	var v map[string]any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, false
	}
	return v, true
}

func wrapHTTPError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) && apiErr != nil {
		respDump := strings.TrimSpace(string(apiErr.DumpResponse(true)))
		if respDump != "" {
			return fmt.Errorf("http_%d: %s", apiErr.StatusCode, respDump)
		}
		raw := strings.TrimSpace(apiErr.RawJSON())
		if raw != "" {
			return fmt.Errorf("http_%d: %s", apiErr.StatusCode, raw)
		}
		return fmt.Errorf("http_%d: %v", apiErr.StatusCode, err)
	}
	return err
}

func toResponseInput(msgs []agent.Message) []responses.ResponseInputItemUnionParam {
	items := make([]responses.ResponseInputItemUnionParam, 0, len(msgs))
	for _, msg := range msgs {
		items = append(items, responses.ResponseInputItemParamOfMessage(msg.Content, toResponseRole(msg.Role)))
	}
	return items
}

func toResponseRole(role agent.Role) responses.EasyInputMessageRole {
	switch role {
	case agent.RoleAssistant:
		return responses.EasyInputMessageRoleAssistant
	case agent.RoleSystem:
		return responses.EasyInputMessageRoleSystem
	default:
		return responses.EasyInputMessageRoleUser
	}
}

func splitInstructions(messages []agent.Message) (string, []agent.Message) {
	var instructions []string
	convo := make([]agent.Message, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == agent.RoleSystem {
			instructions = append(instructions, strings.TrimSpace(msg.Content))
			continue
		}
		convo = append(convo, msg)
	}
	return strings.Join(instructions, "\n\n"), convo
}

func extractResponseText(resp *responses.Response) string {
	if resp == nil {
		return ""
	}
	if text := strings.TrimSpace(resp.OutputText()); text != "" {
		return text
	}
	for _, item := range resp.Output {
		for _, content := range item.Content {
			if text := strings.TrimSpace(content.Text); text != "" {
				return text
			}
		}
	}
	return ""
}
