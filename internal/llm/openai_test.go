package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/closerflow/whatsapp-agent/internal/domain"
)

func newTestGateway(t *testing.T, handler http.HandlerFunc) *OpenAIGateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOpenAI(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1"}, nil)
}

func TestCompleteSendsParametersAndReadsFirstChoice(t *testing.T) {
	t.Parallel()

	var got map[string]any
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("missing bearer token")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","model":"gpt-4o-mini",
			"choices":[{"index":0,"message":{"role":"assistant","content":"  Bonjour !  "},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":10,"completion_tokens":3,"total_tokens":13}}`))
	})

	resp, err := gw.Complete(context.Background(), Request{
		Model:            "gpt-4o-mini",
		Temperature:      0.5,
		MaxTokens:        320,
		FrequencyPenalty: 0.3,
		Messages: Conversation("system prompt", []domain.Turn{
			domain.AssistantTurn("greeting"),
			domain.UserTurn("hello"),
		}),
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if resp.FirstText() != "Bonjour !" {
		t.Fatalf("unexpected first text %q", resp.FirstText())
	}

	if got["model"] != "gpt-4o-mini" {
		t.Errorf("unexpected model %v", got["model"])
	}
	if got["max_tokens"] != float64(320) {
		t.Errorf("unexpected max_tokens %v", got["max_tokens"])
	}
	messages, _ := got["messages"].([]any)
	if len(messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(messages))
	}
	first, _ := messages[0].(map[string]any)
	if first["role"] != RoleSystem || first["content"] != "system prompt" {
		t.Errorf("expected leading system message, got %v", first)
	}
}

func TestCompleteWrapsProviderErrors(t *testing.T) {
	t.Parallel()

	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"upstream exploded","type":"server_error"}}`))
	})

	_, err := gw.Complete(context.Background(), Request{Model: "gpt-4o-mini", Temperature: 0.5})
	var genErr *domain.GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected GenerationError, got %v", err)
	}
}

func TestFirstTextTreatsMissingContentAsEmpty(t *testing.T) {
	t.Parallel()

	cases := []*Response{
		nil,
		{},
		{Candidates: []Candidate{{Text: "   "}}},
	}
	for i, resp := range cases {
		if got := resp.FirstText(); got != "" {
			t.Errorf("case %d: expected empty text, got %q", i, got)
		}
	}
}
