package tools

import (
	"voice-agent/internal/industry"
)

// Registry 是会话可用工具的只读查找表。
type Registry struct {
	tools map[string]industry.ToolDefinition
	order []string
}

func NewRegistry(defs ...industry.ToolDefinition) *Registry {
	table := make(map[string]industry.ToolDefinition, len(defs))
	order := make([]string, 0, len(defs))
	for _, def := range defs {
		if def.Name == "" {
			continue
		}
		if _, dup := table[def.Name]; !dup {
			order = append(order, def.Name)
		}
		table[def.Name] = def
	}
	return &Registry{tools: table, order: order}
}

// NewRegistryFromConfig 使用行业配置中的全部工具构造注册表。
func NewRegistryFromConfig(cfg industry.Config) *Registry {
	return NewRegistry(cfg.Tools...)
}

func (r *Registry) Lookup(name string) (industry.ToolDefinition, bool) {
	if r == nil {
		return industry.ToolDefinition{}, false
	}
	def, ok := r.tools[name]
	return def, ok
}

// Names 按注册顺序返回工具名。
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.order...)
}

// FunctionSpecs 生成暴露给 realtime 模型的工具声明，noop 不暴露。
func (r *Registry) FunctionSpecs() []FunctionSpec {
	if r == nil {
		return nil
	}
	out := make([]FunctionSpec, 0, len(r.order))
	for _, name := range r.order {
		if name == industry.NoopToolName {
			continue
		}
		def := r.tools[name]
		params := def.ArgSchema
		if params == nil {
			params = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		out = append(out, FunctionSpec{
			Type:        "function",
			Name:        def.Name,
			Description: def.Description,
			Parameters:  params,
		})
	}
	return out
}
