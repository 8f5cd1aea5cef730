package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewOpenAIClient_RequiresEndpoint(t *testing.T) {
	if _, err := NewOpenAIClient(OpenAIOptions{}); err == nil {
		t.Fatal("expected error for missing endpoint")
	}
}

func TestOpenAIClient_Chat(t *testing.T) {
	var gotAuth string
	var gotBody chatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "  hi there  "}},
			},
			"usage": map[string]any{
				"prompt_tokens":     12,
				"completion_tokens": 3,
				"total_tokens":      15,
			},
		})
	}))
	defer server.Close()

	client, err := NewOpenAIClient(OpenAIOptions{
		Endpoint: server.URL + "/v1/",
		APIKey:   "sk-test",
		Timeout:  5 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewOpenAIClient() error = %v", err)
	}

	res, err := client.Chat(context.Background(), Request{
		Model: "gpt-test",
		Messages: []Message{
			{Role: RoleSystem, Content: "persona"},
			{Role: RoleUser, Content: "hello"},
		},
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if res.Text != "hi there" {
		t.Fatalf("Text = %q", res.Text)
	}
	if res.Usage.TotalTokens != 15 {
		t.Fatalf("TotalTokens = %d", res.Usage.TotalTokens)
	}
	if gotAuth != "Bearer sk-test" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
	if gotBody.Model != "gpt-test" || len(gotBody.Messages) != 2 {
		t.Fatalf("request body = %+v", gotBody)
	}
}

func TestOpenAIClient_ChatErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	client, err := NewOpenAIClient(OpenAIOptions{Endpoint: server.URL})
	if err != nil {
		t.Fatalf("NewOpenAIClient() error = %v", err)
	}
	_, err = client.Chat(context.Background(), Request{
		Model:    "gpt-test",
		Messages: []Message{{Role: RoleUser, Content: "hello"}},
	})
	if err == nil || !strings.Contains(err.Error(), "bad key") {
		t.Fatalf("Chat() error = %v, want api error message", err)
	}
}

func TestOpenAIClient_ChatValidation(t *testing.T) {
	client, err := NewOpenAIClient(OpenAIOptions{Endpoint: "http://localhost:0"})
	if err != nil {
		t.Fatalf("NewOpenAIClient() error = %v", err)
	}
	if _, err := client.Chat(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "x"}}}); err == nil {
		t.Fatal("expected error for missing model")
	}
	if _, err := client.Chat(context.Background(), Request{Model: "m"}); err == nil {
		t.Fatal("expected error for empty messages")
	}
}
