package main

import (
	"fmt"

	"voice-agent/internal/config"
	"voice-agent/internal/logger"

	"github.com/spf13/cobra"
)

type rootArgs struct {
	configPath string
	overrides  []string
}

func (r *rootArgs) bind(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&r.configPath, "config", "", "Path to config file (default ~/.voice-agent/config.toml)")
	flags.StringArrayVarP(&r.overrides, "override", "c", nil, "Override config value key=value (repeatable)")
}

// load 读取配置文件并依次应用 -c 覆盖，然后设置日志级别。
func (r *rootArgs) load() (config.Config, error) {
	cfg, err := config.Load(r.configPath)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	cfg = config.ApplyKVOverrides(cfg, r.overrides)
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		log.Warnf("ignore log_level %q: %v", cfg.LogLevel, err)
	}
	return cfg, nil
}
