package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"voice-agent/internal/config"
	"voice-agent/internal/events"
	"voice-agent/internal/industry"
	"voice-agent/internal/realtime"
)

type fakeControl struct {
	sent    []string
	actions []string
	calls   []events.CallSnapshot
}

func (f *fakeControl) Start(context.Context) error {
	f.actions = append(f.actions, "start")
	return nil
}

func (f *fakeControl) Stop() error {
	f.actions = append(f.actions, "stop")
	return nil
}

func (f *fakeControl) Reset(context.Context) error {
	f.actions = append(f.actions, "reset")
	return nil
}

func (f *fakeControl) UpdateSession() error {
	f.actions = append(f.actions, "update")
	return nil
}

func (f *fakeControl) SendUserText(text string) error {
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeControl) Calls() []events.CallSnapshot { return f.calls }

func (f *fakeControl) State() realtime.State { return realtime.StateOpen }

func TestHandleLine(t *testing.T) {
	ctrl := &fakeControl{}
	var out bytes.Buffer
	ctx := context.Background()

	for _, line := range []string{"  ", "How many do I have?", "/reset", "/STOP", "/start", "/update"} {
		quit, err := handleLine(ctx, ctrl, line, &out)
		if err != nil || quit {
			t.Fatalf("handleLine(%q) = %v, %v", line, quit, err)
		}
	}
	if len(ctrl.sent) != 1 || ctrl.sent[0] != "How many do I have?" {
		t.Fatalf("sent = %v, want one user message", ctrl.sent)
	}
	want := []string{"reset", "stop", "start", "update"}
	if strings.Join(ctrl.actions, ",") != strings.Join(want, ",") {
		t.Fatalf("actions = %v, want %v", ctrl.actions, want)
	}

	if _, err := handleLine(ctx, ctrl, "/dance", &out); err == nil {
		t.Fatalf("handleLine(/dance) expected error")
	}
	quit, err := handleLine(ctx, ctrl, "/quit", &out)
	if err != nil || !quit {
		t.Fatalf("handleLine(/quit) = %v, %v, want quit", quit, err)
	}
}

func TestHandleLineCalls(t *testing.T) {
	ctrl := &fakeControl{}
	var out bytes.Buffer

	if _, err := handleLine(context.Background(), ctrl, "/calls", &out); err != nil {
		t.Fatalf("handleLine: %v", err)
	}
	if !strings.Contains(out.String(), "no tool calls (session open)") {
		t.Fatalf("output = %q", out.String())
	}

	out.Reset()
	ctrl.calls = []events.CallSnapshot{{
		CanonicalID: "call_1",
		ToolName:    "getQuantity",
		Status:      "completed",
		Arguments:   map[string]any{"qty": float64(5)},
		Result:      map[string]any{"inStock": true},
	}}
	if _, err := handleLine(context.Background(), ctrl, "/calls", &out); err != nil {
		t.Fatalf("handleLine: %v", err)
	}
	want := `call_1 getQuantity status=completed args={"qty":5} result={"inStock":true}`
	if strings.TrimSpace(out.String()) != want {
		t.Fatalf("output = %q, want %q", out.String(), want)
	}
}

func TestFormatEvent(t *testing.T) {
	cases := []struct {
		name string
		ev   events.Event
		want string
	}{
		{
			name: "call failed",
			ev: events.Event{Type: events.EventCallFailed, Payload: events.CallSnapshot{
				CanonicalID: "item_42", OutboundID: "call_77", ToolName: "lookupPrice", Status: "error", Error: "tool not found",
			}},
			want: `[call.failed] item_42 lookupPrice status=error output_id=call_77 error="tool not found"`,
		},
		{
			name: "transcript delta hidden",
			ev:   events.Event{Type: events.EventTranscriptDelta, Payload: events.Transcript{Text: "Hel"}},
			want: "",
		},
		{
			name: "transcript done",
			ev:   events.Event{Type: events.EventTranscriptDone, Payload: events.Transcript{Text: "Hello there", Final: true}},
			want: "assistant: Hello there",
		},
		{
			name: "server error",
			ev:   events.Event{Type: events.EventServerError, Payload: events.ServerError{Code: "rate_limit", Message: "slow down"}},
			want: "[server.error] rate_limit: slow down",
		},
		{
			name: "session closed",
			ev:   events.Event{Type: events.EventSessionClosed, Epoch: 2, Metadata: map[string]string{"reason": "stopped"}},
			want: "[session.closed] epoch=2 reason=stopped",
		},
		{
			name: "session opened",
			ev:   events.Event{Type: events.EventSessionOpened, Epoch: 1},
			want: "[session.opened] epoch=1",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := formatEvent(tc.ev); got != tc.want {
				t.Fatalf("formatEvent() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestScenarioText(t *testing.T) {
	store, err := industry.NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	active := store.Active()

	got, err := scenarioText(active, "")
	if err != nil || got != active.DefaultScenarioText() {
		t.Fatalf("scenarioText(default) = %q, %v", got, err)
	}
	got, err = scenarioText(active, "supply-shortage")
	if err != nil || got == "" {
		t.Fatalf("scenarioText(supply-shortage) = %q, %v", got, err)
	}
	if _, err := scenarioText(active, "missing"); err == nil {
		t.Fatalf("scenarioText(missing) expected error")
	}
}

func TestRunSessionRequiresAPIKey(t *testing.T) {
	cfg := config.Default()
	cfg.Source = "config.toml"
	err := runSession(context.Background(), cfg, &sessionArgs{}, strings.NewReader(""), &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "missing api key") {
		t.Fatalf("runSession error = %v, want missing api key", err)
	}
}
