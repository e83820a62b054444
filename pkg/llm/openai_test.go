package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpenAIComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		var req openAIRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "gpt-test" {
			t.Errorf("unexpected model %q", req.Model)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "hello there"}},
			},
		})
	}))
	defer srv.Close()

	p := NewOpenAIProvider(Config{Model: "gpt-test", APIKey: "test-key", APIURL: srv.URL})
	out, err := p.Complete(context.Background(), []Message{UserMessage("hi")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "hello there" {
		t.Fatalf("unexpected completion %q", out)
	}
}

func TestOpenAICompleteErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewOpenAIProvider(Config{Model: "gpt-test", APIURL: srv.URL})
	if _, err := p.Complete(context.Background(), []Message{UserMessage("hi")}); err == nil {
		t.Fatalf("expected error on 429")
	}
}

func TestOpenAICompleteRequiresModel(t *testing.T) {
	p := NewOpenAIProvider(Config{})
	if _, err := p.Complete(context.Background(), []Message{UserMessage("hi")}); err == nil {
		t.Fatalf("expected error when model unset")
	}
}
