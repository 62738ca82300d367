package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/poiesic/brandmem/ai"
	"github.com/poiesic/brandmem/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type embedRequest struct {
	Requests []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"requests"`
}

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func endpoint(host, model string) ai.Endpoint {
	return ai.Endpoint{Backend: ai.BackendGemini, Host: host, APIKey: "test-key", Model: model}
}

func writeAPIError(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = fmt.Fprintf(w, `{"error":{"code":%d,"message":"boom","status":%q}}`, code, status)
}

func TestEmbedder_EmbedTexts(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, ":batchEmbedContents"), r.URL.Path)

		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		type embedding struct {
			Values []float32 `json:"values"`
		}
		resp := struct {
			Embeddings []embedding `json:"embeddings"`
		}{}
		for _, item := range req.Requests {
			n := float32(len(item.Content.Parts[0].Text))
			resp.Embeddings = append(resp.Embeddings, embedding{Values: []float32{n, 1, 0}})
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	})

	embedder, err := NewEmbedder(context.Background(), endpoint(server.URL, "text-embedding-004"))
	require.NoError(t, err)

	vectors, err := embedder.EmbedTexts(context.Background(), []string{"a", "abc"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{1, 1, 0}, vectors[0])
	assert.Equal(t, []float32{3, 1, 0}, vectors[1])

	single, err := embedder.EmbedText(context.Background(), "ab")
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 1, 0}, single)
}

func TestEmbedder_EmptyInput(t *testing.T) {
	embedder, err := NewEmbedder(context.Background(), endpoint("http://127.0.0.1:1", "m"))
	require.NoError(t, err)

	vectors, err := embedder.EmbedTexts(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vectors)
}

func TestEmbedder_ClassifiesStatus(t *testing.T) {
	tests := []struct {
		name   string
		code   int
		status string
		want   error
	}{
		{"rate limited", http.StatusTooManyRequests, "RESOURCE_EXHAUSTED", core.ErrTransientExternal},
		{"unavailable", http.StatusServiceUnavailable, "UNAVAILABLE", core.ErrTransientExternal},
		{"bad request", http.StatusBadRequest, "INVALID_ARGUMENT", core.ErrTerminalExternal},
		{"forbidden", http.StatusForbidden, "PERMISSION_DENIED", core.ErrTerminalExternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				writeAPIError(w, tt.code, tt.status)
			})
			embedder, err := NewEmbedder(context.Background(), endpoint(server.URL, "m"))
			require.NoError(t, err)

			_, err = embedder.EmbedText(context.Background(), "hello")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestGenerator_Generate(t *testing.T) {
	var body map[string]any
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, ":generateContent"), r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"ok\":true}"}],"role":"model"}}]}`))
	})

	gen, err := NewGenerator(context.Background(), endpoint(server.URL, "gemini-2.0-flash"), 0.7)
	require.NoError(t, err)
	assert.Equal(t, "gemini:gemini-2.0-flash", gen.Name())

	out, err := gen.Generate(context.Background(), "make a plan")
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)

	cfg, ok := body["generationConfig"].(map[string]any)
	require.True(t, ok, "generationConfig should be sent")
	assert.Equal(t, "application/json", cfg["responseMimeType"])
}

func TestGenerator_EmptyCandidate(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"  "}],"role":"model"}}]}`))
	})

	gen, err := NewGenerator(context.Background(), endpoint(server.URL, "m"), 0.2)
	require.NoError(t, err)

	_, err = gen.Generate(context.Background(), "prompt")
	assert.ErrorIs(t, err, ai.ErrEmptyResponse)
}

func TestNewProvider(t *testing.T) {
	config := ai.NewConfig(
		ai.WithEmbedding(endpoint("", "text-embedding-004")),
		ai.WithGeneration(endpoint("", "gemini-2.0-flash")),
		ai.WithFallback(endpoint("", "gemini-1.5-flash")),
	)

	provider, err := NewProvider(context.Background(), config)
	require.NoError(t, err)
	defer provider.Close()

	assert.NotNil(t, provider.Embedder())
	require.Len(t, provider.Generators(), 2)
	assert.Equal(t, "gemini:gemini-2.0-flash", provider.Generators()[0].Name())
	assert.Equal(t, "gemini:gemini-1.5-flash", provider.Generators()[1].Name())
}

func TestNewProvider_RejectsForeignBackend(t *testing.T) {
	config := ai.NewConfig(
		ai.WithEmbedding(endpoint("", "text-embedding-004")),
		ai.WithGeneration(ai.Endpoint{Backend: ai.BackendOpenAI, Host: "http://localhost:11434/v1", Model: "qwen2.5:3b"}),
	)

	_, err := NewProvider(context.Background(), config)
	assert.Error(t, err)
}
