package core

import (
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"

	"afaq.com/stylist-gateway/internal/store"
)

func TestGeminiHistory_Roles(t *testing.T) {
	history := geminiHistory([]store.Turn{
		{Role: store.RoleUser, Text: "q"},
		{Role: store.RoleAssistant, Text: "a"},
	})
	if len(history) != 2 {
		t.Fatalf("len = %d", len(history))
	}
	if history[0].Role != "user" || history[1].Role != "model" {
		t.Errorf("roles = %s, %s", history[0].Role, history[1].Role)
	}
	if txt, ok := history[1].Parts[0].(genai.Text); !ok || string(txt) != "a" {
		t.Errorf("part = %#v", history[1].Parts[0])
	}
}

func TestGeminiHistory_StartsWithUser(t *testing.T) {
	history := geminiHistory([]store.Turn{
		{Role: store.RoleAssistant, Text: "a1"},
		{Role: store.RoleUser, Text: "q2"},
		{Role: store.RoleAssistant, Text: "a2"},
	})
	if len(history) != 2 {
		t.Fatalf("len = %d, want 2", len(history))
	}
	if history[0].Role != "user" {
		t.Errorf("first role = %q, want user", history[0].Role)
	}
	if len(geminiHistory([]store.Turn{{Role: store.RoleAssistant, Text: "a"}})) != 0 {
		t.Error("history of only replies should be empty")
	}
}

func TestGeminiParts_Image(t *testing.T) {
	parts := geminiParts("prompt", &Image{Format: "webp", Data: []byte("x")})
	if len(parts) != 2 {
		t.Fatalf("len = %d, want 2", len(parts))
	}
	blob, ok := parts[1].(genai.Blob)
	if !ok || blob.MIMEType != "image/webp" {
		t.Errorf("image part = %#v", parts[1])
	}
	if len(geminiParts("prompt", nil)) != 1 {
		t.Error("text-only call should have one part")
	}
}

func TestGeminiText(t *testing.T) {
	textResp := func(parts ...genai.Part) *genai.GenerateContentResponse {
		return &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: parts}}},
		}
	}

	tests := []struct {
		name    string
		resp    *genai.GenerateContentResponse
		want    string
		wantErr error
	}{
		{"text", textResp(genai.Text(" أهلا "), genai.Text("بيك")), "أهلا بيك", nil},
		{"nil response", nil, "", ErrEmptyResponse},
		{"no candidates", &genai.GenerateContentResponse{}, "", ErrEmptyResponse},
		{"whitespace only", textResp(genai.Text("  ")), "", ErrEmptyResponse},
		{"blocked prompt", &genai.GenerateContentResponse{
			PromptFeedback: &genai.PromptFeedback{BlockReason: genai.BlockReasonSafety},
		}, "", ErrBlocked},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := geminiText(tt.resp)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("geminiText = %q, %v; want %q", got, err, tt.want)
			}
		})
	}
}

func TestPermissiveSafety(t *testing.T) {
	if len(permissiveSafety) != 4 {
		t.Fatalf("got %d safety settings, want 4", len(permissiveSafety))
	}
	for _, s := range permissiveSafety {
		if s.Threshold != genai.HarmBlockNone {
			t.Errorf("category %v threshold = %v, want HarmBlockNone", s.Category, s.Threshold)
		}
	}
}
