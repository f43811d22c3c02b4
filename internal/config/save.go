package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Save 以 TOML 写入配置。先写同目录临时文件再 rename，中途失败不会留下半个文件。
func Save(path string, cfg Config) error {
	path, err := resolvePath(path)
	if err != nil {
		return err
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".config-*.toml")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Update 把 key=value 写入配置文件。与 -c 覆盖不同，格式错误或未知的键会直接报错，
// 环境变量中的 OPENAI_* 也不会被持久化。
func Update(path string, pairs []string) (Config, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return cfg, err
	}
	for _, raw := range pairs {
		key, val, ok := splitKV(raw)
		if !ok {
			return cfg, fmt.Errorf("invalid setting %q, want key=value", raw)
		}
		if err := setKey(&cfg, key, val); err != nil {
			return cfg, err
		}
	}
	if err := Save(cfg.Source, cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
