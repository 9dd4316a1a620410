package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nanunh/genstack/providers/models"
	ollama_models "github.com/nanunh/genstack/providers/ollama/models"
	"github.com/nanunh/genstack/token_management"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, ch <-chan models.StreamResponse) (string, bool, error) {
	t.Helper()
	var b strings.Builder
	for resp := range ch {
		if resp.Err != nil {
			return b.String(), false, resp.Err
		}
		if resp.Done {
			return b.String(), true, nil
		}
		b.WriteString(resp.Content)
	}
	return b.String(), false, nil
}

func TestOllamaChatCompletionRequest_Streams(t *testing.T) {
	var got ollama_models.OllamaChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"func "},"done":false}`)
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"a() {}"},"done":false}`)
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":""},"done":true,"prompt_eval_count":12,"eval_count":5}`)
	}))
	defer srv.Close()

	tokens := token_management.NewTokenManager()
	temperature := float32(0.2)
	provider := NewOllamaChatProvider(&OllamaConfig{
		BaseURL:         srv.URL + "/api/",
		Model:           "codellama",
		Temperature:     &temperature,
		TokenManagement: tokens,
	})

	content, done, err := collect(t, provider.ChatCompletionRequest(context.Background(), "add a", "system rules"))
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, "func a() {}", content)

	assert.Equal(t, "codellama", got.Model)
	assert.True(t, got.Stream)
	require.NotNil(t, got.Temperature)
	assert.InDelta(t, 0.2, *got.Temperature, 1e-6)
	assert.Equal(t, []ollama_models.Message{
		{Role: "system", Content: "system rules"},
		{Role: "user", Content: "add a"},
	}, got.Messages)

	total, input, output := tokens.GetCurrentTokenUsage()
	assert.Equal(t, 17, total)
	assert.Equal(t, 12, input)
	assert.Equal(t, 5, output)
}

func TestOllamaChatCompletionRequest_EOFEndsStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"message":{"content":"x := 1"},"done":false}`)
	}))
	defer srv.Close()

	provider := NewOllamaChatProvider(&OllamaConfig{BaseURL: srv.URL})
	content, done, err := collect(t, provider.ChatCompletionRequest(context.Background(), "u", "s"))
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, "x := 1", content)
}

func TestOllamaChatCompletionRequest_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"api error", http.StatusNotFound, `{"error":{"message":"model not found"}}`, "model not found"},
		{"plain body", http.StatusInternalServerError, "boom\n", "'500' - boom"},
		{"bad chunk", http.StatusOK, "not json\n", "error unmarshalling chunk"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			provider := NewOllamaChatProvider(&OllamaConfig{BaseURL: srv.URL})
			_, _, err := collect(t, provider.ChatCompletionRequest(context.Background(), "u", "s"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewOllamaChatProvider_Defaults(t *testing.T) {
	provider := NewOllamaChatProvider(&OllamaConfig{Model: "m"}).(*OllamaConfig)
	assert.Equal(t, defaultBaseURL, provider.BaseURL)
	assert.NotNil(t, provider.Client)
}
