package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Config is the only persisted config file schema.
type Config struct {
	APIKey        string  `toml:"api_key"`
	BaseURL       string  `toml:"base_url"`
	RealtimeModel string  `toml:"realtime_model"`
	RealtimeURL   string  `toml:"realtime_url"`
	MockModel     string  `toml:"mock_model"`
	Voice         string  `toml:"voice"`
	Temperature   float64 `toml:"temperature"`

	ToolBackendURL string `toml:"tool_backend_url"`
	ListenAddr     string `toml:"listen_addr"`
	ConfigsDir     string `toml:"configs_dir"`
	CacheDir       string `toml:"cache_dir"`

	// Correlation 选择输出 call_id 的启发式匹配策略：oldest|newest|off。
	Correlation     string `toml:"correlation"`
	HistoryLimit    int    `toml:"history_limit"`
	DurablePrefix   string `toml:"durable_prefix"`
	TransientPrefix string `toml:"transient_prefix"`
	LogLevel        string `toml:"log_level"`

	Source string `toml:"-"`
}

func Default() Config {
	return Config{
		RealtimeModel:   "gpt-realtime",
		RealtimeURL:     "wss://api.openai.com/v1/realtime",
		MockModel:       "gpt-4.1-nano",
		Voice:           "alloy",
		Temperature:     0.6,
		ToolBackendURL:  "http://127.0.0.1:8787/api/tool",
		ListenAddr:      "127.0.0.1:8787",
		ConfigsDir:      "configs",
		CacheDir:        ".tool_cache",
		Correlation:     "oldest",
		HistoryLimit:    50,
		DurablePrefix:   "call_",
		TransientPrefix: "item_",
		LogLevel:        "info",
	}
}

func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".voice-agent", "config.toml")
}

// Load reads the config file (defaults when missing) and applies OPENAI_* env overrides.
func Load(path string) (Config, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return cfg, err
	}
	applyEnv(&cfg)
	return cfg, nil
}

// LoadFile reads only the file on top of the defaults, without env overrides.
// Use it when the result is written back with Save.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	path, err := resolvePath(path)
	if err != nil {
		return cfg, err
	}
	cfg.Source = path

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := toml.Unmarshal(content, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func resolvePath(path string) (string, error) {
	if path == "" {
		path = DefaultPath()
	}
	if path == "" {
		return "", errors.New("config path is empty and $HOME is not set")
	}
	return path, nil
}

func applyEnv(cfg *Config) {
	if env := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); env != "" {
		cfg.APIKey = env
	}
	if env := strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")); env != "" {
		cfg.BaseURL = env
	}
}
