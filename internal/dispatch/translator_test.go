package dispatch

import (
	"reflect"
	"testing"

	"promptrun/internal/core"
)

func TestTranslate_PreservesTurnOrder(t *testing.T) {
	conv := core.Conversation{
		{Role: core.RoleUser, Content: "Q1"},
		{Role: core.RoleAssistant, Content: "A1"},
		{Role: core.RoleUser, Content: "Q2"},
	}

	prompt := Translate(conv)

	if prompt.System != nil {
		t.Errorf("expected absent system text, got %q", *prompt.System)
	}
	want := []core.Turn{
		{Role: core.RoleUser, Text: "Q1"},
		{Role: core.RoleAssistant, Text: "A1"},
		{Role: core.RoleUser, Text: "Q2"},
	}
	if !reflect.DeepEqual(prompt.Turns, want) {
		t.Errorf("turns = %+v, want %+v", prompt.Turns, want)
	}
}

func TestTranslate_MergesSystemMessages(t *testing.T) {
	conv := core.Conversation{
		{Role: core.RoleSystem, Content: "A"},
		{Role: core.RoleUser, Content: "Hello"},
		{Role: core.RoleSystem, Content: "B"},
	}

	prompt := Translate(conv)

	if prompt.System == nil {
		t.Fatal("expected merged system text, got nil")
	}
	if *prompt.System != "A\nB" {
		t.Errorf("system = %q, want %q", *prompt.System, "A\nB")
	}
	want := []core.Turn{{Role: core.RoleUser, Text: "Hello"}}
	if !reflect.DeepEqual(prompt.Turns, want) {
		t.Errorf("turns = %+v, want %+v", prompt.Turns, want)
	}
}

func TestTranslate_EmptyConversation(t *testing.T) {
	prompt := Translate(core.Conversation{})

	if prompt.System != nil {
		t.Errorf("expected absent system text, got %q", *prompt.System)
	}
	if len(prompt.Turns) != 0 {
		t.Errorf("expected no turns, got %d", len(prompt.Turns))
	}
}

func TestTranslate_UnknownRoleFallsBackToUser(t *testing.T) {
	conv := core.Conversation{
		{Role: "tool", Content: "result"},
		{Role: core.RoleAssistant, Content: "ok"},
	}

	prompt := Translate(conv)

	want := []core.Turn{
		{Role: core.RoleUser, Text: "result"},
		{Role: core.RoleAssistant, Text: "ok"},
	}
	if !reflect.DeepEqual(prompt.Turns, want) {
		t.Errorf("turns = %+v, want %+v", prompt.Turns, want)
	}
}

func TestTranslate_SystemOnlyConversation(t *testing.T) {
	conv := core.Conversation{
		{Role: core.RoleSystem, Content: "only system"},
	}

	prompt := Translate(conv)

	if prompt.System == nil || *prompt.System != "only system" {
		t.Errorf("system = %v, want %q", prompt.System, "only system")
	}
	if len(prompt.Turns) != 0 {
		t.Errorf("expected no turns, got %d", len(prompt.Turns))
	}
}
