package industry

// ToolDefinition 描述行业配置中的一个工具：名称、说明、参数 schema 与可选的结果 schema/样例。
type ToolDefinition struct {
	Name         string         `json:"name" yaml:"name" validate:"required,max=64"`
	Description  string         `json:"description" yaml:"description" validate:"required"`
	ArgSchema    map[string]any `json:"argSchema" yaml:"argSchema" validate:"required"`
	ResultSchema map[string]any `json:"resultSchema,omitempty" yaml:"resultSchema,omitempty"`
	SampleResult any            `json:"sampleResult,omitempty" yaml:"sampleResult,omitempty"`
}

// Scenario 是一段预置的情景描述，工具模拟器据此生成一致的结果。
type Scenario struct {
	ID   string `json:"id" yaml:"id" validate:"required"`
	Name string `json:"name" yaml:"name" validate:"required"`
	Text string `json:"text" yaml:"text" validate:"required"`
}

// Config 是一个完整的行业配置。
type Config struct {
	ID                string           `json:"id" yaml:"id" validate:"required,max=64"`
	Name              string           `json:"name" yaml:"name" validate:"required"`
	Description       string           `json:"description,omitempty" yaml:"description,omitempty"`
	Prompt            string           `json:"prompt" yaml:"prompt" validate:"required"`
	DefaultScenarioID string           `json:"defaultScenarioId,omitempty" yaml:"defaultScenarioId,omitempty"`
	Scenarios         []Scenario       `json:"scenarios,omitempty" yaml:"scenarios,omitempty" validate:"dive"`
	Tools             []ToolDefinition `json:"tools" yaml:"tools" validate:"required,min=1,dive"`
}

// Summary 是配置列表中的简要信息。
type Summary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Summary 返回配置的简要信息。
func (c Config) Summary() Summary {
	return Summary{ID: c.ID, Name: c.Name, Description: c.Description}
}

// Tool 按名称查找工具定义。
func (c Config) Tool(name string) (ToolDefinition, bool) {
	for _, tool := range c.Tools {
		if tool.Name == name {
			return tool, true
		}
	}
	return ToolDefinition{}, false
}

// Scenario 按 id 查找预置情景。
func (c Config) Scenario(id string) (Scenario, bool) {
	for _, sc := range c.Scenarios {
		if sc.ID == id {
			return sc, true
		}
	}
	return Scenario{}, false
}

// DefaultScenarioText 返回默认情景文本；未设置默认值时取第一个情景。
func (c Config) DefaultScenarioText() string {
	if sc, ok := c.Scenario(c.DefaultScenarioID); ok {
		return sc.Text
	}
	if len(c.Scenarios) > 0 {
		return c.Scenarios[0].Text
	}
	return ""
}
