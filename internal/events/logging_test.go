package events

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"voice-agent/internal/logger"

	"github.com/sirupsen/logrus"
)

func TestEventQueueLogsJSONPayload(t *testing.T) {
	buf := &bytes.Buffer{}
	q := NewEventQueue(1)
	q.SetLogger(newBufferLogger(buf))

	ev := Event{
		Type:    EventCallCompleted,
		Session: "sess",
		Epoch:   2,
		Payload: CallSnapshot{
			CanonicalID: "call_1",
			ToolName:    "lookupPrice",
			Status:      "completed",
		},
	}

	if err := q.Publish(context.Background(), ev); err != nil {
		t.Fatalf("publish: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "[type=call.completed]") {
		t.Fatalf("expected type prefix in log, got %q", out)
	}
	if !strings.Contains(out, "payload=") {
		t.Fatalf("expected payload field in log, got %q", out)
	}
	if !strings.Contains(out, "\"canonical_id\"") {
		t.Fatalf("expected json payload in log, got %q", out)
	}
}

func TestEncodePayload_StringIsRaw(t *testing.T) {
	if got := encodePayload("session opened"); got != "session opened" {
		t.Fatalf("expected raw string payload, got %q", got)
	}
}

func TestEncodePayload_ObjectIsPrettyJSON(t *testing.T) {
	got := encodePayload(map[string]any{"a": 1, "b": map[string]any{"c": 2}})
	if !json.Valid([]byte(got)) {
		t.Fatalf("expected valid json, got %q", got)
	}
	if !strings.Contains(got, "\n") {
		t.Fatalf("expected pretty json with newlines, got %q", got)
	}
}

func TestEncodePayload_JSONStringWithEscapedNewlines(t *testing.T) {
	in := "{\\n  \"a\": 1,\\n  \"b\": 2\\n}"
	got := encodePayload(in)
	if strings.Contains(got, `\\n`) || strings.Contains(got, `\n`) {
		t.Fatalf("expected escaped newlines to be unescaped, got %q", got)
	}
	if !json.Valid([]byte(got)) {
		t.Fatalf("expected valid json after unescape/pretty, got %q", got)
	}
	if !strings.Contains(got, "\n") {
		t.Fatalf("expected output to contain real newlines, got %q", got)
	}
}

func newBufferLogger(buf *bytes.Buffer) *logger.LogEntry {
	l := logrus.New()
	l.SetFormatter(logger.PlainFormatter{})
	l.SetOutput(buf)
	return logrus.NewEntry(l)
}
