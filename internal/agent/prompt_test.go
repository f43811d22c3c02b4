package agent

import (
	"context"
	"errors"
	"testing"
)

func TestPromptSystemJoinsSystemMessages(t *testing.T) {
	p := Prompt{Messages: []Message{
		{Role: RoleSystem, Content: "  You mock pharmacy tools. "},
		{Role: RoleUser, Content: "getQuantity"},
		{Role: RoleSystem, Content: ""},
		{Role: RoleSystem, Content: "Return JSON only."},
	}}
	want := "You mock pharmacy tools.\n\nReturn JSON only."
	if got := p.System(); got != want {
		t.Fatalf("System() = %q, want %q", got, want)
	}
}

func TestToLLMMessages(t *testing.T) {
	got := ToLLMMessages([]Message{{Role: RoleUser, Content: "hi"}, {Role: RoleAssistant, Content: "{}"}})
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Role != "user" || got[1].Content != "{}" {
		t.Fatalf("unexpected conversion: %+v", got)
	}
}

func TestCompleteFunc(t *testing.T) {
	var nilFunc CompleteFunc
	if _, err := nilFunc.Complete(context.Background(), Prompt{}); !errors.Is(err, ErrNoModel) {
		t.Fatalf("nil CompleteFunc error = %v, want ErrNoModel", err)
	}

	fn := CompleteFunc(func(_ context.Context, p Prompt) (string, error) {
		return p.Model, nil
	})
	got, err := fn.Complete(context.Background(), Prompt{Model: "gpt-4.1-nano"})
	if err != nil || got != "gpt-4.1-nano" {
		t.Fatalf("Complete() = %q, %v", got, err)
	}
}
