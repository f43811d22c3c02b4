package toolsim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"voice-agent/internal/agent"
	"voice-agent/internal/industry"
	"voice-agent/internal/logger"
	"voice-agent/internal/tools"
)

// ErrToolNotFound 表示请求的工具不在当前行业配置中。
var ErrToolNotFound = errors.New("tool not found")

// Response 是一次模拟的完整结果。
type Response struct {
	Tool       string `json:"tool"`
	Result     any    `json:"result"`
	Cached     bool   `json:"cached"`
	Config     string `json:"config,omitempty"`
	Diagnostic bool   `json:"diagnostic,omitempty"`
}

type Options struct {
	Store *industry.Store
	// Model 为空时返回工具定义里的样例结果。
	Model     agent.ModelClient
	MockModel string
	Cache     *Cache
}

// Simulator 依据当前行业配置与情景文本，用 LLM 生成工具结果。
// 它满足 tools.Backend，可以直接在进程内作为工具后端。
type Simulator struct {
	store     *industry.Store
	model     agent.ModelClient
	mockModel string
	cache     *Cache

	mu       sync.Mutex
	scenario string
}

var _ tools.Backend = (*Simulator)(nil)

func New(opts Options) *Simulator {
	return &Simulator{
		store:     opts.Store,
		model:     opts.Model,
		mockModel: opts.MockModel,
		cache:     opts.Cache,
	}
}

// Scenario 返回最近一次请求携带的情景；从未收到时取当前配置的默认情景。
func (s *Simulator) Scenario() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(s.scenario) != "" {
		return s.scenario
	}
	return s.store.Active().DefaultScenarioText()
}

func (s *Simulator) remember(scenario string) string {
	s.mu.Lock()
	if strings.TrimSpace(scenario) != "" {
		s.scenario = scenario
	}
	s.mu.Unlock()
	return s.Scenario()
}

// Execute 实现 tools.Backend。
func (s *Simulator) Execute(ctx context.Context, req tools.Request) (any, error) {
	resp, err := s.Simulate(ctx, req)
	if err != nil {
		return nil, err
	}
	return map[string]any{"tool": resp.Tool, "result": resp.Result, "cached": resp.Cached}, nil
}

// Simulate 生成一次工具结果。模型失败不会返回 error，而是体现在结果载荷中。
func (s *Simulator) Simulate(ctx context.Context, req tools.Request) (Response, error) {
	scenario := s.remember(req.Scenario)
	active := s.store.Active()
	def, ok := active.Tool(req.Tool)
	if !ok {
		componentLog().WithField("config", active.ID).Warnf("tool_not_found requested=%s", req.Tool)
		return Response{}, fmt.Errorf("%w: %s", ErrToolNotFound, req.Tool)
	}
	args := req.Args
	if args == nil {
		args = map[string]any{}
	}

	if def.Name == industry.NoopToolName {
		componentLog().WithField("config", active.ID).Infof("noop invoked args=%v", args)
		return Response{Tool: def.Name, Result: map[string]any{"ok": true}, Config: active.ID, Diagnostic: true}, nil
	}

	key := s.cache.Key(def.Name, scenario, active.ID, args)
	if cached, ok := s.cache.Get(key); ok {
		logger.CacheHit(def.Name, key)
		return Response{Tool: def.Name, Result: cached, Cached: true, Config: active.ID}, nil
	}

	if s.model == nil {
		result := def.SampleResult
		if result == nil {
			result = map[string]any{"error": "llm_failed", "detail": agent.ErrNoModel.Error()}
		}
		return Response{Tool: def.Name, Result: result, Config: active.ID}, nil
	}

	result, generated := s.generate(ctx, active, def, scenario, args)
	if generated {
		if err := s.cache.Set(key, result); err != nil {
			componentLog().Warnf("write cache %s failed: %v", key, err)
		}
	}
	return Response{Tool: def.Name, Result: result, Config: active.ID}, nil
}

// generate 调用模型；generated 为 false 表示结果是错误载荷，不应缓存。
func (s *Simulator) generate(ctx context.Context, cfg industry.Config, def industry.ToolDefinition, scenario string, args map[string]any) (any, bool) {
	prompt := buildPrompt(cfg, def, scenario, args)
	prompt.Model = s.mockModel

	logger.Request(s.mockModel, agent.ToLLMMessages(prompt.Messages), 1)
	text, err := s.model.Complete(ctx, prompt)
	if err != nil {
		logger.Error(s.mockModel, err, 1)
		return map[string]any{"error": "llm_failed", "detail": err.Error()}, false
	}
	logger.Response(s.mockModel, text, 1)

	parsed, err := parseResult(text)
	if err != nil {
		return map[string]any{"parsing_error": true, "raw": text}, false
	}
	return parsed, true
}

func buildPrompt(cfg industry.Config, def industry.ToolDefinition, scenario string, args map[string]any) agent.Prompt {
	system := fmt.Sprintf(`You are a tool result simulator for the domain: %s (id: %s).
Domain description: %s.
Scenario context:
%s
Produce ONLY strict JSON adhering to the provided result schema. No extra keys. If uncertain, provide realistic but clearly simulated values.`,
		cfg.Name, cfg.ID, cfg.Description, scenario)

	sample := def.SampleResult
	if sample == nil {
		sample = map[string]any{}
	}
	user := fmt.Sprintf("Tool: %s\nDescription: %s\nArgs JSON: %s\nResult Schema JSON: %s\nSample Result (example): %s\nReturn ONLY JSON.",
		def.Name, def.Description, compactJSON(args), compactJSON(def.ResultSchema), compactJSON(sample))

	prompt := agent.Prompt{
		Messages: []agent.Message{
			{Role: agent.RoleSystem, Content: system},
			{Role: agent.RoleUser, Content: user},
		},
	}
	if len(def.ResultSchema) > 0 {
		prompt.OutputSchema = compactJSON(def.ResultSchema)
	}
	return prompt
}

// parseResult 解析模型输出，容忍 ```json 围栏。
func parseResult(text string) (any, error) {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	}
	var v any
	if err := json.Unmarshal([]byte(strings.TrimSpace(trimmed)), &v); err != nil {
		return nil, err
	}
	return v, nil
}

func compactJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(data)
}
