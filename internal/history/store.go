package history

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"voice-agent/internal/events"
)

// Entry 是一条已结束的工具调用记录。
type Entry struct {
	Session string              `json:"session"`
	Epoch   uint64              `json:"epoch"`
	Config  string              `json:"config,omitempty"`
	Call    events.CallSnapshot `json:"call"`
	TS      time.Time           `json:"ts"`
}

// Store 以 JSONL 追加写入调用记录，跨会话保留。
type Store struct {
	Path string
}

func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".voice-agent", "calls.jsonl"), nil
}

func NewDefault() (*Store, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return &Store{Path: path}, nil
}

func (s *Store) ensureDir() error {
	if s == nil || strings.TrimSpace(s.Path) == "" {
		return errors.New("history store path is empty")
	}
	return os.MkdirAll(filepath.Dir(s.Path), 0o755)
}

func (s *Store) Append(entry Entry) error {
	if s == nil {
		return errors.New("history store is nil")
	}
	if strings.TrimSpace(entry.Call.CanonicalID) == "" {
		return nil
	}
	if err := s.ensureDir(); err != nil {
		return err
	}
	f, err := os.OpenFile(s.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if entry.TS.IsZero() {
		entry.TS = time.Now()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		return err
	}
	return nil
}

// Load 返回最近 limit 条记录（按写入顺序）；limit<=0 返回全部。损坏的行被跳过。
func (s *Store) Load(limit int) ([]Entry, error) {
	if s == nil {
		return nil, errors.New("history store is nil")
	}
	if strings.TrimSpace(s.Path) == "" {
		return nil, errors.New("history store path is empty")
	}
	f, err := os.Open(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	var out []Entry
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			continue
		}
		if strings.TrimSpace(e.Call.CanonicalID) == "" {
			continue
		}
		out = append(out, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// Recorder 把会话观察者事件中的终态调用写入 Store。
type Recorder struct {
	Store  *Store
	Config func() string
}

// Record 只处理 call.completed 与 call.failed，其余事件忽略。
func (r Recorder) Record(ev events.Event) error {
	if ev.Type != events.EventCallCompleted && ev.Type != events.EventCallFailed {
		return nil
	}
	call, ok := ev.Payload.(events.CallSnapshot)
	if !ok {
		return nil
	}
	entry := Entry{Session: ev.Session, Epoch: ev.Epoch, Call: call, TS: ev.Timestamp}
	if r.Config != nil {
		entry.Config = r.Config()
	}
	return r.Store.Append(entry)
}
