package industry

// NoopToolName 是诊断用的空工具，不暴露给 /api/tool-specs。
const NoopToolName = "noop"

// ToolSpec 是对外发布的工具说明，附带结果 schema 与样例，供前端或客户端展示。
type ToolSpec struct {
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	Parameters   map[string]any `json:"parameters"`
	ResultSchema map[string]any `json:"resultSchema,omitempty"`
	SampleResult any            `json:"sampleResult,omitempty"`
}

// ToolSpecs 构造配置中全部工具的说明，noop 工具被排除。
func ToolSpecs(cfg Config) []ToolSpec {
	out := make([]ToolSpec, 0, len(cfg.Tools))
	for _, tool := range cfg.Tools {
		if tool.Name == NoopToolName {
			continue
		}
		out = append(out, ToolSpec{
			Name:         tool.Name,
			Description:  tool.Description,
			Parameters:   tool.ArgSchema,
			ResultSchema: tool.ResultSchema,
			SampleResult: tool.SampleResult,
		})
	}
	return out
}
