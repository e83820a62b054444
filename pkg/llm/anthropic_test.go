package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAnthropicComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("X-API-Key"); got != "test-key" {
			t.Errorf("unexpected api key header %q", got)
		}
		var req anthropicRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.System != "be helpful" {
			t.Errorf("system prompt not extracted, got %q", req.System)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Errorf("unexpected messages %+v", req.Messages)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]any{
				{"type": "text", "text": "first"},
				{"type": "text", "text": "second"},
			},
		})
	}))
	defer srv.Close()

	p := NewAnthropicProvider(Config{Model: "claude-test", APIKey: "test-key", APIURL: srv.URL})
	out, err := p.Complete(context.Background(), []Message{
		SystemMessage("be helpful"),
		UserMessage("hi"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "first\nsecond" {
		t.Fatalf("unexpected completion %q", out)
	}
}

func TestAnthropicCompleteNoTextBlocks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"content": []map[string]any{}})
	}))
	defer srv.Close()

	p := NewAnthropicProvider(Config{Model: "claude-test", APIURL: srv.URL})
	if _, err := p.Complete(context.Background(), []Message{UserMessage("hi")}); err == nil {
		t.Fatalf("expected error on empty content")
	}
}

func TestAnthropicDefaultMaxTokens(t *testing.T) {
	p := NewAnthropicProvider(Config{Model: "claude-test"})
	if p.maxTokens != defaultAnthropicMaxTokens {
		t.Fatalf("expected default max tokens, got %d", p.maxTokens)
	}
}
