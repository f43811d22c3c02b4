package industry

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate 校验配置结构：必填字段、工具名唯一、默认情景存在、id 可作为文件名。
func Validate(cfg Config) error {
	if err := structValidator().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s(%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid industry config %q: %s", cfg.ID, strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid industry config %q: %w", cfg.ID, err)
	}
	if strings.ContainsAny(cfg.ID, `/\ `) || strings.HasPrefix(cfg.ID, "__") {
		return fmt.Errorf("invalid industry config id %q", cfg.ID)
	}
	seen := make(map[string]struct{}, len(cfg.Tools))
	for _, tool := range cfg.Tools {
		if _, dup := seen[tool.Name]; dup {
			return fmt.Errorf("industry config %q: duplicate tool %q", cfg.ID, tool.Name)
		}
		seen[tool.Name] = struct{}{}
	}
	if cfg.DefaultScenarioID != "" {
		if _, ok := cfg.Scenario(cfg.DefaultScenarioID); !ok {
			return fmt.Errorf("industry config %q: default scenario %q not found", cfg.ID, cfg.DefaultScenarioID)
		}
	}
	return nil
}
