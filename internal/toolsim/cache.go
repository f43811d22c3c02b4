package toolsim

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// Cache 把模拟结果按 工具名_情景哈希_参数哈希.json 存在目录中。
type Cache struct {
	dir string
}

// NewCache 返回以 dir 为根的缓存；dir 为空时缓存禁用。
func NewCache(dir string) *Cache {
	return &Cache{dir: dir}
}

type cacheEntry struct {
	Result any `json:"result"`
}

// Key 计算缓存文件名。JSON 编码对 map 键排序，参数顺序不影响结果。
func (c *Cache) Key(tool, scenario, configID string, args map[string]any) string {
	if args == nil {
		args = map[string]any{}
	}
	scenarioHash := hashValue(map[string]string{"scenario": scenario, "config": configID})
	return fmt.Sprintf("%s_%s_%s.json", unsafeKeyChars.ReplaceAllString(tool, "_"), scenarioHash, hashValue(args))
}

func (c *Cache) Get(key string) (any, bool) {
	if c == nil || c.dir == "" {
		return nil, false
	}
	data, err := os.ReadFile(filepath.Join(c.dir, key))
	if err != nil {
		return nil, false
	}
	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		componentLog().Warnf("ignore corrupt cache entry %s: %v", key, err)
		return nil, false
	}
	return entry.Result, true
}

func (c *Cache) Set(key string, result any) error {
	if c == nil || c.dir == "" {
		return nil
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	data, err := json.MarshalIndent(cacheEntry{Result: result}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.dir, key), data, 0o644)
}

func hashValue(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		data = []byte(fmt.Sprint(v))
	}
	return strconv.FormatUint(xxhash.Sum64(data), 36)
}
