package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"linkweaver/config"
)

func testClient(host string) *Client {
	cfg := &config.Config{OllamaHost: host, OllamaModel: "mistral:7b-instruct-v0.3-q4_0", OllamaTimeout: 5}
	return NewClient(cfg, zap.NewNop())
}

func TestChatSendsExpectedRequest(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %q, want /api/chat", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(chatResponse{Message: Message{Role: "assistant", Content: "  Category: News  "}})
	}))
	defer srv.Close()

	reply, err := testClient(srv.URL).Chat(context.Background(), "classify this")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if reply != "Category: News" {
		t.Errorf("reply = %q, want trimmed content", reply)
	}
	if got.Model != "mistral:7b-instruct-v0.3-q4_0" {
		t.Errorf("model = %q", got.Model)
	}
	if got.Stream {
		t.Error("stream = true, want false")
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != "user" || got.Messages[0].Content != "classify this" {
		t.Errorf("messages = %+v", got.Messages)
	}
}

func TestChatNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	if _, err := testClient(srv.URL).Chat(context.Background(), "hi"); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestChatUnreachableServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	host := srv.URL
	srv.Close()

	if _, err := testClient(host).Chat(context.Background(), "hi"); err == nil {
		t.Fatal("expected error for unreachable server")
	}
}

func TestNewClientTrimsTrailingSlash(t *testing.T) {
	c := testClient("http://localhost:11434/")
	if c.Host != "http://localhost:11434" {
		t.Errorf("host = %q", c.Host)
	}
}
