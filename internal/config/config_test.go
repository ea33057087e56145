package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.Embedder.Type)
	require.NotNil(t, cfg.Embedder.Gemini)
	assert.Equal(t, "text-embedding-004", cfg.Embedder.Gemini.Model)
	assert.Equal(t, 768, cfg.Embedder.Gemini.Dimension)
	assert.Equal(t, "pinecone", cfg.VectorStore.Type)
	require.NotNil(t, cfg.VectorStore.Pinecone)
	assert.Equal(t, "gemini-index", cfg.VectorStore.Pinecone.Index)
	assert.Equal(t, "cosine", cfg.VectorStore.Pinecone.Metric)
	assert.Equal(t, "llama3-70b-8192", cfg.Chat.Model)
	assert.Equal(t, DefaultSystemPrompt, cfg.Chat.SystemPrompt)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.True(t, cfg.Extract.OCR.Enabled)
	assert.Equal(t, 300, cfg.Extract.OCR.DPI)
	assert.Equal(t, 3, cfg.Embedder.Gemini.MaxRetries)
	assert.Equal(t, 2, cfg.Chat.MaxRetries)
}

func TestParse_ZeroRetriesDisablesRetry(t *testing.T) {
	cfg, err := Parse([]byte(`
embedder:
  gemini:
    max_retries: 0
chat:
  max_retries: 0
`))
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Embedder.Gemini.MaxRetries)
	assert.Equal(t, 0, cfg.Chat.MaxRetries)

	cfg, err = Parse([]byte(`
chat:
  model: llama-3.1-8b-instant
`))
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Embedder.Gemini.MaxRetries)
	assert.Equal(t, 2, cfg.Chat.MaxRetries)
}

func TestParse_OverridesAndDefaults(t *testing.T) {
	yml := `
embedder:
  type: openai
  openai:
    model: nomic-embed-text
    base_url: http://localhost:11434/v1
vector_store:
  type: qdrant
  qdrant:
    collection: docs
retrieval:
  top_k: 3
extract:
  ocr:
    enabled: false
server:
  request_logging: false
`
	cfg, err := Parse([]byte(yml))
	require.NoError(t, err)

	require.NotNil(t, cfg.Embedder.OpenAI)
	assert.Equal(t, "nomic-embed-text", cfg.Embedder.OpenAI.Model)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Embedder.OpenAI.APIKeyEnv)
	assert.Equal(t, 1536, cfg.Embedder.OpenAI.Dimension)
	require.NotNil(t, cfg.VectorStore.Qdrant)
	assert.Equal(t, "docs", cfg.VectorStore.Qdrant.Collection)
	assert.Equal(t, "http://localhost:6333", cfg.VectorStore.Qdrant.URL)
	assert.Equal(t, 3, cfg.Retrieval.TopK)
	assert.False(t, cfg.Extract.OCR.Enabled)
	assert.False(t, cfg.Server.RequestLogging)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("embedder: [unclosed"))
	assert.Error(t, err)
}

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.VectorStore = VectorStoreConfig{Type: "bolt", Bolt: &BoltConfig{Path: "/tmp/x.db"}}
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "bolt", loaded.VectorStore.Type)
	assert.Equal(t, "/tmp/x.db", loaded.VectorStore.Bolt.Path)
}

func TestAPIKey(t *testing.T) {
	t.Setenv("DOCQA_TEST_KEY", "secret")
	assert.Equal(t, "secret", APIKey("DOCQA_TEST_KEY"))
	assert.Equal(t, "", APIKey(""))
}
