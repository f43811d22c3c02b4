package industry

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"voice-agent/internal/logger"

	"gopkg.in/yaml.v3"
)

//go:embed builtin/pharmacy.yaml
var builtinPharmacy []byte

// DefaultConfigID 是内置的默认行业配置。
const DefaultConfigID = "pharmacy"

const activeFileName = "__active.json"

// ErrConfigNotFound 表示指定 id 的配置不存在。
var ErrConfigNotFound = errors.New("industry config not found")

var log = logger.Named("industry")

// Store 持有内置配置与目录中生成的配置，并记录当前激活的配置。
type Store struct {
	dir string

	mu       sync.RWMutex
	configs  map[string]Config
	activeID string
}

type activeState struct {
	ActiveID string `json:"activeId"`
}

// NewStore 加载内置配置和 dir 下的 *.json / *.yaml 配置。dir 为空时只使用内置配置。
func NewStore(dir string) (*Store, error) {
	builtin, err := decodeConfig(builtinPharmacy, ".yaml")
	if err != nil {
		return nil, fmt.Errorf("decode builtin config: %w", err)
	}
	s := &Store{
		dir:      dir,
		configs:  map[string]Config{builtin.ID: builtin},
		activeID: builtin.ID,
	}
	if strings.TrimSpace(dir) == "" {
		return s, nil
	}
	if err := s.loadDir(); err != nil {
		return nil, err
	}
	s.loadActive()
	return s, nil
}

func (s *Store) loadDir() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read configs dir: %w", err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == activeFileName {
			continue
		}
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".json" && ext != ".yaml" && ext != ".yml" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			log.Warnf("skip config %s: %v", name, err)
			continue
		}
		cfg, err := decodeConfig(data, ext)
		if err != nil {
			log.Warnf("skip config %s: %v", name, err)
			continue
		}
		if err := Validate(cfg); err != nil {
			log.Warnf("skip config %s: %v", name, err)
			continue
		}
		s.configs[cfg.ID] = cfg
	}
	return nil
}

func (s *Store) loadActive() {
	data, err := os.ReadFile(filepath.Join(s.dir, activeFileName))
	if err != nil {
		return
	}
	var state activeState
	if err := json.Unmarshal(data, &state); err != nil {
		log.Warnf("ignore corrupt %s: %v", activeFileName, err)
		return
	}
	if _, ok := s.configs[state.ActiveID]; ok {
		s.activeID = state.ActiveID
	}
}

func decodeConfig(data []byte, ext string) (Config, error) {
	var cfg Config
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}

// Active 返回当前激活的配置。
func (s *Store) Active() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.configs[s.activeID]
}

// Get 按 id 获取配置。
func (s *Store) Get(id string) (Config, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.configs[id]
	return cfg, ok
}

// List 返回全部配置的简要信息，按 id 排序。
func (s *Store) List() []Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Summary, 0, len(s.configs))
	for _, cfg := range s.configs {
		out = append(out, cfg.Summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SetActive 切换激活配置并持久化到 __active.json。
func (s *Store) SetActive(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.configs[id]; !ok {
		return fmt.Errorf("%w: %s", ErrConfigNotFound, id)
	}
	s.activeID = id
	return s.persistActiveLocked()
}

// Add 校验并保存一个新配置，可选择同时激活。
func (s *Store) Add(cfg Config, makeActive bool) error {
	if err := Validate(cfg); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dir != "" {
		if err := os.MkdirAll(s.dir, 0o755); err != nil {
			return err
		}
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(s.dir, cfg.ID+".json"), data, 0o644); err != nil {
			return err
		}
	}
	s.configs[cfg.ID] = cfg
	if makeActive {
		s.activeID = cfg.ID
		return s.persistActiveLocked()
	}
	return nil
}

func (s *Store) persistActiveLocked() error {
	if s.dir == "" {
		return nil
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(activeState{ActiveID: s.activeID})
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.dir, activeFileName), data, 0o644)
}
