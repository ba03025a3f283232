package gemini

import (
	"testing"

	"github.com/akolanti/filebook/internal/rag/llm"
	"google.golang.org/genai"
)

func TestToContents(t *testing.T) {
	prompt := llm.Prompt{
		System: "be brief",
		History: []llm.Turn{
			{Role: llm.RoleUser, Text: "what is in the report?"},
			{Role: llm.RoleModel, Text: "quarterly numbers"},
		},
		Question: "which quarter?",
	}

	contents := toContents(prompt)

	if len(contents) != 3 {
		t.Fatalf("expected 3 contents, got %d", len(contents))
	}
	wantRoles := []string{string(genai.RoleUser), string(genai.RoleModel), string(genai.RoleUser)}
	for i, c := range contents {
		if c.Role != wantRoles[i] {
			t.Errorf("content %d role = %q, want %q", i, c.Role, wantRoles[i])
		}
	}
	if contents[2].Parts[0].Text != "which quarter?" {
		t.Errorf("live question must come last, got %q", contents[2].Parts[0].Text)
	}

	cfg := generationConfig(prompt)
	if cfg.SystemInstruction.Parts[0].Text != "be brief" {
		t.Error("system instruction not set")
	}
}
