package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"personachat/internal/domain"
	"personachat/internal/infra/config"
)

func newOpenAITestProvider(baseURL, model string) *OpenAIProvider {
	return NewOpenAIProvider(config.ProviderConfig{
		BaseURL: baseURL,
		APIKey:  "test-key",
		Model:   model,
	}, fixedCounter{perText: 5}, newTestLogger())
}

func TestOpenAISend(t *testing.T) {
	var gotReq openaiRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth: %s", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		resp := openaiResponse{
			ID:    "chatcmpl-123",
			Model: "gpt-4o",
			Choices: []openaiChoice{
				{Index: 0, Message: openaiMessage{Role: "assistant", Content: "Doing great."}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	provider := newOpenAITestProvider(server.URL, "gpt-4o")
	reply, err := provider.Send(context.Background(), testWindow(), "be yourself", 500)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if reply != "Doing great." {
		t.Errorf("reply = %q", reply)
	}

	// Chat completions carry the system prompt as the leading message.
	if len(gotReq.Messages) != 4 {
		t.Fatalf("sent %d messages, want 4", len(gotReq.Messages))
	}
	if gotReq.Messages[0].Role != domain.RoleSystem || gotReq.Messages[0].Content != "be yourself" {
		t.Errorf("leading message = %+v, want the system prompt", gotReq.Messages[0])
	}
	if gotReq.MaxTokens != 500 {
		t.Errorf("MaxTokens = %d, want 500", gotReq.MaxTokens)
	}
}

func TestOpenAISendMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"chatcmpl-1","choices":[]}`))
	}))
	defer server.Close()

	provider := newOpenAITestProvider(server.URL, "gpt-4o")
	_, err := provider.Send(context.Background(), testWindow(), "sys", 100)
	if !errors.Is(err, domain.ErrMalformedResponse) {
		t.Errorf("err = %v, want ErrMalformedResponse", err)
	}
}

func TestOpenAIContextLimitRemoteLookupAndCache(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		calls.Add(1)
		list := openaiModelList{Data: []openaiModelInfo{
			{ID: "gpt-4o", ContextWindow: 128000},
			{ID: "gpt-4o-mini", ContextWindow: 128000},
		}}
		json.NewEncoder(w).Encode(list)
	}))
	defer server.Close()

	provider := newOpenAITestProvider(server.URL, "gpt-4o")

	if got := provider.ContextLimit(context.Background(), "gpt-4o"); got != 128000 {
		t.Errorf("limit = %d, want 128000", got)
	}
	if got := provider.ContextLimit(context.Background(), "gpt-4o"); got != 128000 {
		t.Errorf("limit = %d, want 128000", got)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("models endpoint hit %d times, want 1 (cached)", n)
	}
}

func TestOpenAIContextLimitDegradesToStaticTable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	provider := newOpenAITestProvider(server.URL, "gpt-4o")
	if got := provider.ContextLimit(context.Background(), "gpt-4o"); got != 128000 {
		t.Errorf("static table limit = %d, want 128000", got)
	}
	if got := provider.ContextLimit(context.Background(), "some-unknown-model"); got != openaiFallbackLimit {
		t.Errorf("unknown model limit = %d, want fallback %d", got, openaiFallbackLimit)
	}
}

func TestOpenAIContextLimitModelNotListed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(openaiModelList{Data: []openaiModelInfo{
			{ID: "gpt-4o", ContextWindow: 128000},
		}})
	}))
	defer server.Close()

	provider := newOpenAITestProvider(server.URL, "gpt-3.5-turbo")
	if got := provider.ContextLimit(context.Background(), "gpt-3.5-turbo"); got != 16385 {
		t.Errorf("limit = %d, want static 16385", got)
	}
}

func TestOpenAITotalTokensIncludesPerMessageOverhead(t *testing.T) {
	provider := newOpenAITestProvider("http://unused.invalid", "gpt-4o")
	window := []domain.Message{
		{Role: domain.RoleUser, Content: "x", TokenCount: 10},
		{Role: domain.RoleAssistant, Content: "y", TokenCount: 20},
	}
	want := 30 + 2*openaiMessageOverhead
	if got := provider.TotalTokens(window); got != want {
		t.Errorf("TotalTokens = %d, want %d", got, want)
	}
}
