package config

import (
	"fmt"
	"strconv"
	"strings"
)

// ApplyKVOverrides applies free-form -c key=value overrides.
// Malformed pairs, unknown keys and unparsable numbers are skipped.
func ApplyKVOverrides(cfg Config, overrides []string) Config {
	for _, raw := range overrides {
		key, val, ok := splitKV(raw)
		if !ok {
			continue
		}
		_ = setKey(&cfg, key, val)
	}
	return cfg
}

func splitKV(raw string) (key, val string, ok bool) {
	parts := strings.SplitN(raw, "=", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	key = strings.TrimSpace(parts[0])
	return key, strings.TrimSpace(parts[1]), key != ""
}

func setKey(cfg *Config, key, val string) error {
	switch key {
	case "api_key":
		cfg.APIKey = val
	case "base_url":
		cfg.BaseURL = val
	case "realtime_model":
		cfg.RealtimeModel = val
	case "realtime_url":
		cfg.RealtimeURL = val
	case "mock_model":
		cfg.MockModel = val
	case "voice":
		cfg.Voice = val
	case "temperature":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("temperature: %w", err)
		}
		cfg.Temperature = f
	case "tool_backend_url":
		cfg.ToolBackendURL = val
	case "listen_addr":
		cfg.ListenAddr = val
	case "configs_dir":
		cfg.ConfigsDir = val
	case "cache_dir":
		cfg.CacheDir = val
	case "correlation":
		cfg.Correlation = val
	case "history_limit":
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("history_limit: %w", err)
		}
		cfg.HistoryLimit = n
	case "durable_prefix":
		cfg.DurablePrefix = val
	case "transient_prefix":
		cfg.TransientPrefix = val
	case "log_level":
		cfg.LogLevel = val
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return nil
}
