package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestPlainFormatter_TypePrefixAndFieldSkipping(t *testing.T) {
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	cases := []struct {
		name    string
		data    logrus.Fields
		message string
		want    string
	}{
		{
			name: "with type",
			data: logrus.Fields{
				"component": "realtime",
				"type":      "response.output_item.added",
				"caller":    "x.go:1",
				"call_id":   "call_1",
				"epoch":     3,
			},
			message: "inbound event",
			want:    "x.go:1 [2025-01-02T03:04:05Z] [INFO] [realtime] [type=response.output_item.added] inbound event call_id=call_1 epoch=3\n",
		},
		{
			name: "without type",
			data: logrus.Fields{
				"component": "tools",
				"caller":    "x.go:1",
				"foo":       "bar",
			},
			message: "hello",
			want:    "x.go:1 [2025-01-02T03:04:05Z] [INFO] [tools] hello foo=bar\n",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			entry := &logrus.Entry{
				Logger:  logrus.New(),
				Time:    ts,
				Level:   logrus.InfoLevel,
				Message: tc.message,
				Data:    tc.data,
			}
			out, err := (PlainFormatter{}).Format(entry)
			if err != nil {
				t.Fatalf("Format() error: %v", err)
			}
			got := string(out)
			if got != tc.want {
				t.Fatalf("unexpected format:\nwant: %q\ngot:  %q", tc.want, got)
			}
			if _, ok := tc.data["type"]; ok {
				if strings.Count(got, "type=response.output_item.added") != 1 {
					t.Fatalf("expected type to appear only once in output, got: %q", got)
				}
			}
		})
	}
}

func TestShortenFilePath(t *testing.T) {
	cases := map[string]string{
		"/src/voice-agent/internal/realtime/tracker.go": "internal/realtime/tracker.go",
		"/src/voice-agent/cmd/voice-agent/main.go":      "cmd/voice-agent/main.go",
		"/src/voice-agent/tools.go":                     "tools.go",
		"/elsewhere/x.go":                               "x.go",
	}
	for in, want := range cases {
		if got := shortenFilePath(in); got != want {
			t.Fatalf("shortenFilePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSetLevel(t *testing.T) {
	prev := Root().GetLevel()
	t.Cleanup(func() { Root().SetLevel(prev) })

	if err := SetLevel("debug"); err != nil {
		t.Fatalf("SetLevel(debug) error: %v", err)
	}
	if Root().GetLevel() != logrus.DebugLevel {
		t.Fatalf("level = %v, want debug", Root().GetLevel())
	}
	if err := SetLevel("nope"); err == nil {
		t.Fatalf("SetLevel(nope) expected error")
	}
	if err := SetLevel(""); err != nil {
		t.Fatalf("SetLevel(\"\") error: %v", err)
	}
}

func TestSetupLLMFile_WritesCacheHits(t *testing.T) {
	t.Cleanup(func() { SetGlobalLLMLogger(nil) })

	path := filepath.Join(t.TempDir(), "llm.log")
	closer, resolved, err := SetupLLMFile(path)
	if err != nil {
		t.Fatalf("SetupLLMFile error: %v", err)
	}
	if resolved != path {
		t.Fatalf("resolved = %q, want %q", resolved, path)
	}
	CacheHit("getQuantity", "getQuantity_abc_def.json")
	_ = closer.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "cache hit tool=getQuantity") {
		t.Fatalf("llm log = %q, want cache hit line", string(data))
	}
}
