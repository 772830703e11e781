// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"strings"
	"testing"
)

// =============================================================================
// PROVISIONAL ID TESTS
// =============================================================================

func TestNewProvisionalID(t *testing.T) {
	user := NewProvisionalID(RoleUser)
	if !strings.HasPrefix(user, "tmp-user-") {
		t.Errorf("user id = %q, want tmp-user- prefix", user)
	}
	asst := NewProvisionalID(RoleAssistant)
	if !strings.HasPrefix(asst, "tmp-assistant-") {
		t.Errorf("assistant id = %q, want tmp-assistant- prefix", asst)
	}
	if NewProvisionalID(RoleUser) == user {
		t.Error("provisional ids should be unique")
	}
}

func TestIsProvisional(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"tmp-user-abc", true},
		{"tmp-assistant-abc", true},
		{"m42", false},
		{"", false},
		{"user-tmp-1", false},
	}
	for _, tt := range tests {
		if got := IsProvisional(tt.id); got != tt.want {
			t.Errorf("IsProvisional(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestMessage_Reasoning(t *testing.T) {
	m := NewPlaceholder("s1")
	if m.Reasoning() != "" {
		t.Fatalf("fresh placeholder reasoning = %q", m.Reasoning())
	}
	m.AppendReasoning("think")
	m.AppendReasoning("ing")
	if got := m.Reasoning(); got != "thinking" {
		t.Errorf("Reasoning() = %q, want %q", got, "thinking")
	}

	var bare Message
	bare.AppendReasoning("x")
	if bare.Reasoning() != "x" {
		t.Error("AppendReasoning should allocate metadata on demand")
	}
}

func TestMessage_CloneIsolatesMetadata(t *testing.T) {
	m := NewPlaceholder("s1")
	m.AppendReasoning("a")
	c := m.Clone()
	c.AppendReasoning("b")
	c.Content = "changed"

	if m.Reasoning() != "a" || m.Content != "" {
		t.Errorf("clone mutation leaked into original: %+v", m)
	}
	if (*Message)(nil).Clone() != nil {
		t.Error("nil clone should be nil")
	}
}

// =============================================================================
// SETTINGS TESTS
// =============================================================================

func TestSettingsPatch_Apply(t *testing.T) {
	temp := 1.1
	sfw := false
	p := SettingsPatch{Temperature: &temp, SFWMode: &sfw}
	if p.Empty() {
		t.Fatal("patch with fields should not be empty")
	}

	got := p.Apply(DefaultSettings())
	if got.Temperature != 1.1 || got.SFWMode {
		t.Errorf("Apply() = %+v", got)
	}
	if got.MaxTokens != 512 || got.NarrativeFocus != "balanced" {
		t.Errorf("untouched fields changed: %+v", got)
	}
	if !(SettingsPatch{}).Empty() {
		t.Error("zero patch should be empty")
	}
}

func TestSettingsPatch_OmitsUnsetFields(t *testing.T) {
	mode := "story"
	data, err := json.Marshal(SettingsPatch{Mode: &mode})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"mode":"story"}` {
		t.Errorf("marshal = %s", data)
	}
}

// =============================================================================
// VIEW / MODEL TESTS
// =============================================================================

func TestSessionView_RoleName(t *testing.T) {
	v := &SessionView{Role: json.RawMessage(`{"id":"r1","name":"Aria"}`)}
	if got := v.RoleName(); got != "Aria" {
		t.Errorf("RoleName() = %q", got)
	}
	v.Role = json.RawMessage(`not json`)
	if got := v.RoleName(); got != "" {
		t.Errorf("malformed role should yield empty name, got %q", got)
	}
	if (*SessionView)(nil).LastMessage() != nil {
		t.Error("nil view has no last message")
	}
}

func TestChatModel_Summary(t *testing.T) {
	tests := []struct {
		name  string
		model ChatModel
		want  string
	}{
		{"free", ChatModel{ID: "m1", Name: "Lite", Provider: "openai"}, "Lite (openai, Free)"},
		{"priced", ChatModel{ID: "m2", Name: "Pro", PriceCoins: 3}, "Pro (3 coins)"},
		{"hint wins", ChatModel{ID: "m3", PriceHint: "cheap", PriceCoins: 1}, "m3 (cheap)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.model.Summary(); got != tt.want {
				t.Errorf("Summary() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSortModelsByPrice(t *testing.T) {
	models := []ChatModel{
		{ID: "b", Name: "B", PriceCoins: 2},
		{ID: "a", Name: "A", PriceCoins: 0},
		{ID: "c", Name: "C", PriceCoins: 0},
	}
	SortModelsByPrice(models)
	if models[0].ID != "a" || models[1].ID != "c" || models[2].ID != "b" {
		t.Errorf("order = %v", models)
	}
	if _, ok := FindModel(models, "c"); !ok {
		t.Error("FindModel should locate c")
	}
}
