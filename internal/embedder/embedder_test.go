package embedder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacobmentalconstruct/neocortex/internal/config"
)

func TestComputeHash(t *testing.T) {
	h1 := ComputeHash("hello world")
	h2 := ComputeHash("hello world")
	h3 := ComputeHash("hello world!")

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 64)
}

func TestLocalProviderDeterministic(t *testing.T) {
	provider := NewLocalProvider(nil)
	defer provider.Close()

	ctx := context.Background()
	v1, err := provider.Embed(ctx, "some chunk of text")
	require.NoError(t, err)
	v2, err := provider.Embed(ctx, "some chunk of text")
	require.NoError(t, err)
	v3, err := provider.Embed(ctx, "a different chunk")
	require.NoError(t, err)

	assert.Len(t, v1, Dimension)
	assert.Equal(t, v1, v2)
	assert.NotEqual(t, v1, v3)

	for i, c := range v1 {
		assert.GreaterOrEqual(t, c, float32(-1), "component %d below range", i)
		assert.Less(t, c, float32(1), "component %d above range", i)
	}
}

func TestLocalProviderEmptyText(t *testing.T) {
	provider := NewLocalProvider(nil)
	defer provider.Close()

	_, err := provider.Embed(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestLocalProviderMetadata(t *testing.T) {
	provider := NewLocalProvider(nil)
	defer provider.Close()

	assert.Equal(t, ProviderLocal, provider.Provider())
	assert.Equal(t, Dimension, provider.Dimension())
	assert.NoError(t, provider.Ping(context.Background()))
}

func TestOllamaProviderEmbed(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/embeddings":
			calls++
			var req struct {
				Model  string `json:"model"`
				Prompt string `json:"prompt"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "all-minilm", req.Model)
			assert.NotEmpty(t, req.Prompt)

			vec := make([]float32, Dimension)
			for i := range vec {
				vec[i] = float32(i) / Dimension
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"embedding": vec})
		case "/api/tags":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"models": []map[string]string{
					{"name": "all-minilm"},
					{"name": "nomic-embed-text"},
				},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	provider := NewOllamaProvider(server.URL, "all-minilm", NewCache(16))
	defer provider.Close()

	ctx := context.Background()
	require.NoError(t, provider.Ping(ctx))

	vec, err := provider.Embed(ctx, "func main() {}")
	require.NoError(t, err)
	assert.Len(t, vec, Dimension)

	// Second call for identical text is served from the cache.
	vec2, err := provider.Embed(ctx, "func main() {}")
	require.NoError(t, err)
	assert.Equal(t, vec, vec2)
	assert.Equal(t, 1, calls)

	models, err := provider.ListModels(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"all-minilm", "nomic-embed-text"}, models)
}

func TestOllamaProviderServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	provider := NewOllamaProvider(server.URL, "missing-model", nil)
	defer provider.Close()

	_, err := provider.Embed(context.Background(), "text")
	assert.ErrorIs(t, err, ErrProviderFailed)
}

func TestOllamaProviderRejectsWrongDimension(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"embedding": []float32{0.1, 0.2, 0.3}})
	}))
	defer server.Close()

	provider := NewOllamaProvider(server.URL, "mxbai-embed-large", nil)
	defer provider.Close()

	_, err := provider.Embed(context.Background(), "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimensions")
}

func TestOllamaProviderPingUnreachable(t *testing.T) {
	provider := NewOllamaProvider("http://127.0.0.1:1", "all-minilm", nil)
	defer provider.Close()

	err := provider.Ping(context.Background())
	assert.ErrorIs(t, err, ErrNoProviderEnabled)
}

func TestOpenAIProviderRequiresKey(t *testing.T) {
	_, err := NewOpenAIProvider("", "", nil)
	assert.ErrorIs(t, err, ErrNoProviderEnabled)
}

func TestCacheReturnsCopies(t *testing.T) {
	cache := NewCache(4)

	cache.Set("k", []float32{1, 2, 3})
	got, ok := cache.Get("k")
	require.True(t, ok)

	got[0] = 99
	again, ok := cache.Get("k")
	require.True(t, ok)
	assert.Equal(t, float32(1), again[0])
}

func TestCacheEviction(t *testing.T) {
	cache := NewCache(2)

	cache.Set("a", []float32{1})
	cache.Set("b", []float32{2})
	cache.Set("c", []float32{3})

	assert.Equal(t, 2, cache.Len())
	_, ok := cache.Get("a")
	assert.False(t, ok)

	cache.Clear()
	assert.Equal(t, 0, cache.Len())
}

func TestNewFromConfig(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.EmbedderConfig
		provider string
		wantErr  bool
	}{
		{name: "ollama", cfg: config.EmbedderConfig{Provider: "ollama"}, provider: ProviderOllama},
		{name: "default is ollama", cfg: config.EmbedderConfig{}, provider: ProviderOllama},
		{name: "local", cfg: config.EmbedderConfig{Provider: "local"}, provider: ProviderLocal},
		{name: "openai", cfg: config.EmbedderConfig{Provider: "openai", APIKey: "sk-test"}, provider: ProviderOpenAI},
		{name: "openai without key", cfg: config.EmbedderConfig{Provider: "openai"}, wantErr: true},
		{name: "unknown", cfg: config.EmbedderConfig{Provider: "quantum"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emb, err := New(tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer emb.Close()
			assert.Equal(t, tt.provider, emb.Provider())
			assert.Equal(t, Dimension, emb.Dimension())
		})
	}
}

func TestRetryWithBackoffEventualSuccess(t *testing.T) {
	attempts := 0
	result, err := retryWithBackoff(context.Background(), func() (int, error) {
		attempts++
		if attempts < 2 {
			return 0, assert.AnError
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, 2, attempts)
}

func TestRetryWithBackoffExhausted(t *testing.T) {
	attempts := 0
	_, err := retryWithBackoff(context.Background(), func() (int, error) {
		attempts++
		return 0, assert.AnError
	})

	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, maxRetries, attempts)
}
