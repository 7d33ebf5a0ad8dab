package nl2sql

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/askdb/askdb/internal/config"
)

func TestOpenAITranslatorSendsPromptAndCleansReply(t *testing.T) {
	var gotAuth string
	var gotPayload struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Fatalf("path = %q", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"` + "```sql\\nSELECT name FROM teachers\\n```" + `"}}]}`))
	}))
	defer server.Close()

	translator, err := NewOpenAITranslator(OpenAIConfig{BaseURL: server.URL + "/", APIKey: "k", Model: "gpt-test"}, nil)
	if err != nil {
		t.Fatalf("NewOpenAITranslator() error = %v", err)
	}
	result, err := translator.Translate(context.Background(), Request{Dialect: "MySQL", Question: "top 5 teachers"})
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if result.SQL != "SELECT name FROM teachers" {
		t.Fatalf("SQL = %q", result.SQL)
	}
	if gotAuth != "Bearer k" || gotPayload.Model != "gpt-test" {
		t.Fatalf("auth=%q payload=%+v", gotAuth, gotPayload)
	}
	if len(gotPayload.Messages) != 1 || strings.Contains(gotPayload.Messages[0].Content, "MUST NOT include a LIMIT") {
		t.Fatalf("messages = %+v", gotPayload.Messages)
	}
}

func TestOpenAITranslatorReportsHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	translator, err := NewOpenAITranslator(OpenAIConfig{BaseURL: server.URL, APIKey: "k"}, nil)
	if err != nil {
		t.Fatalf("NewOpenAITranslator() error = %v", err)
	}
	_, err = translator.Translate(context.Background(), Request{Dialect: "MySQL", Question: "List all students"})
	var tErr *TranslationError
	if !errors.As(err, &tErr) || tErr.Provider != ProviderOpenAI {
		t.Fatalf("Translate() error = %v, want openai TranslationError", err)
	}
	if !strings.Contains(err.Error(), "status=503") {
		t.Fatalf("error = %v", err)
	}
}

func TestOpenAITranslatorRequiresBaseURLAndKey(t *testing.T) {
	if _, err := NewOpenAITranslator(OpenAIConfig{APIKey: "k"}, nil); err == nil {
		t.Fatal("expected base URL error")
	}
	if _, err := NewOpenAITranslator(OpenAIConfig{BaseURL: "http://x"}, nil); err == nil {
		t.Fatal("expected api key error")
	}
}

func TestNewSelectsProvider(t *testing.T) {
	translator, err := New(config.AIConfig{Provider: "openai", BaseURL: "http://x", APIKey: "k"}, nil)
	if err != nil {
		t.Fatalf("New(openai) error = %v", err)
	}
	if _, ok := translator.(*OpenAITranslator); !ok {
		t.Fatalf("New(openai) = %T", translator)
	}
	translator, err = New(config.AIConfig{Provider: "ollama"}, nil)
	if err != nil {
		t.Fatalf("New(ollama) error = %v", err)
	}
	if _, ok := translator.(*LLMTranslator); !ok {
		t.Fatalf("New(ollama) = %T", translator)
	}
	if _, err := New(config.AIConfig{Provider: "pigeon"}, nil); err == nil {
		t.Fatal("expected unsupported provider error")
	}
}
