package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/poiesic/brandmem/ai"
	"github.com/poiesic/brandmem/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOpenAIServer(t *testing.T, chatContent string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/embeddings"):
			var req struct {
				Input []string `json:"input"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			data := make([]map[string]any, len(req.Input))
			for i, text := range req.Input {
				data[i] = map[string]any{
					"object":    "embedding",
					"index":     i,
					"embedding": []float32{float32(len(text)), 0.5},
				}
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"object": "list",
				"model":  "embed",
				"data":   data,
				"usage":  map[string]int{"prompt_tokens": 1, "total_tokens": 1},
			})
		case strings.HasSuffix(r.URL.Path, "/chat/completions"):
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":      "chatcmpl-1",
				"object":  "chat.completion",
				"created": 1,
				"model":   "chat",
				"choices": []map[string]any{{
					"index":         0,
					"message":       map[string]string{"role": "assistant", "content": chatContent},
					"finish_reason": "stop",
				}},
				"usage": map[string]int{"prompt_tokens": 1, "completion_tokens": 1, "total_tokens": 2},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestEmbedder_EmbedTexts(t *testing.T) {
	server := newOpenAIServer(t, "{}")

	embedder, err := NewEmbedder(ai.Endpoint{Backend: ai.BackendOpenAI, Host: server.URL, Model: "embed"}, 10)
	require.NoError(t, err)

	vectors, err := embedder.EmbedTexts(context.Background(), []string{"ab", "abcd"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{2, 0.5}, vectors[0])
	assert.Equal(t, []float32{4, 0.5}, vectors[1])

	vector, err := embedder.EmbedText(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 0.5}, vector)
}

func TestGenerator_Generate(t *testing.T) {
	server := newOpenAIServer(t, ` {"title":"Spring"} `)

	gen, err := NewGenerator(ai.Endpoint{Backend: ai.BackendOpenAI, Host: server.URL, Model: "chat"}, 0.7)
	require.NoError(t, err)
	assert.Equal(t, "openai:chat", gen.Name())

	out, err := gen.Generate(context.Background(), "plan")
	require.NoError(t, err)
	assert.Equal(t, `{"title":"Spring"}`, out)
}

func TestGenerator_EmptyOutputIsTerminal(t *testing.T) {
	server := newOpenAIServer(t, "   ")

	gen, err := NewGenerator(ai.Endpoint{Backend: ai.BackendOpenAI, Host: server.URL, Model: "chat"}, 0.7)
	require.NoError(t, err)

	_, err = gen.Generate(context.Background(), "plan")
	assert.ErrorIs(t, err, ai.ErrEmptyResponse)
	assert.ErrorIs(t, err, core.ErrTerminalExternal)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"rate limited", errors.New("API returned unexpected status code: 429: slow down"), core.ErrTransientExternal},
		{"unavailable", errors.New("API returned unexpected status code: 503: overloaded"), core.ErrTransientExternal},
		{"unauthorized", errors.New("API returned unexpected status code: 401: bad key"), core.ErrTerminalExternal},
		{"unknown", errors.New("malformed body"), core.ErrTerminalExternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, classify("openai", tt.err), tt.want)
		})
	}

	assert.ErrorIs(t, classify("openai", context.Canceled), context.Canceled)
	assert.NoError(t, classify("openai", nil))
}

func TestNewProvider(t *testing.T) {
	config := ai.NewConfig(
		ai.WithEmbedding(ai.Endpoint{Backend: ai.BackendOpenAI, Host: "http://localhost:11434", Model: "embeddinggemma"}),
		ai.WithGeneration(ai.Endpoint{Backend: ai.BackendOpenAI, Host: "http://localhost:11434", Model: "qwen2.5:3b"}),
	)

	provider, err := NewProvider(config)
	require.NoError(t, err)
	defer provider.Close()

	assert.Equal(t, "http://localhost:11434/v1", config.Embedding.Host)
	assert.NotNil(t, provider.Embedder())
	require.Len(t, provider.Generators(), 1)
	assert.Equal(t, "openai:qwen2.5:3b", provider.Generators()[0].Name())
}

func TestNewProvider_RejectsGeminiEndpoint(t *testing.T) {
	config := ai.NewConfig(
		ai.WithEmbedding(ai.Endpoint{Backend: ai.BackendOpenAI, Host: "http://localhost:11434", Model: "embeddinggemma"}),
		ai.WithGeneration(ai.Endpoint{Backend: ai.BackendGemini, APIKey: "k", Model: "gemini-2.0-flash"}),
	)

	_, err := NewProvider(config)
	assert.Error(t, err)
}
