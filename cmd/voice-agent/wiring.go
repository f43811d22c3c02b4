package main

import (
	"fmt"
	"strings"

	"voice-agent/internal/agent"
	"voice-agent/internal/agent/openai"
	"voice-agent/internal/config"
	"voice-agent/internal/industry"
	"voice-agent/internal/tools"
	"voice-agent/internal/toolsim"
)

const (
	backendLocal = "local"
	backendHTTP  = "http"
)

func openStore(cfg config.Config) (*industry.Store, error) {
	store, err := industry.NewStore(cfg.ConfigsDir)
	if err != nil {
		return nil, fmt.Errorf("open industry configs %s: %w", cfg.ConfigsDir, err)
	}
	return store, nil
}

// newOpenAIClient 没有 API key 时返回 nil，调用方退回样例结果或禁用临时凭证。
func newOpenAIClient(cfg config.Config) (*openai.Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, nil
	}
	return openai.New(openai.Options{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.MockModel,
		WireAPI: "responses",
	})
}

func newSimulator(cfg config.Config, store *industry.Store, client *openai.Client) *toolsim.Simulator {
	var model agent.ModelClient
	if client != nil {
		model = client
	} else {
		log.Warn("no api key configured; tool simulator answers with sample results")
	}
	return toolsim.New(toolsim.Options{
		Store:     store,
		Model:     model,
		MockModel: cfg.MockModel,
		Cache:     toolsim.NewCache(cfg.CacheDir),
	})
}

// newToolRuntime 用当前行业配置的工具构造执行时，后端为进程内模拟器或远端 /api/tool。
func newToolRuntime(cfg config.Config, store *industry.Store, kind string, sim *toolsim.Simulator) (*tools.Runtime, error) {
	registry := tools.NewRegistryFromConfig(store.Active())
	switch kind {
	case "", backendLocal:
		return tools.NewRuntime(registry, sim), nil
	case backendHTTP:
		if strings.TrimSpace(cfg.ToolBackendURL) == "" {
			return nil, fmt.Errorf("tool_backend_url is empty")
		}
		return tools.NewRuntime(registry, tools.NewHTTPBackend(cfg.ToolBackendURL, 0)), nil
	}
	return nil, fmt.Errorf("unknown tool backend %q (want %s|%s)", kind, backendLocal, backendHTTP)
}
