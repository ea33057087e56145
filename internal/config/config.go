package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// GeminiEmbedderConfig holds configuration for the Gemini embedContent endpoint.
type GeminiEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	Dimension   int    `yaml:"dimension"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries"`
}

// OpenAIEmbedderConfig holds configuration for an OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	Dimension   int    `yaml:"dimension"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type        string                `yaml:"type"`
	ZeroOnError bool                  `yaml:"zero_on_error"`
	Gemini      *GeminiEmbedderConfig `yaml:"gemini,omitempty"`
	OpenAI      *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type     string          `yaml:"type"`
	Pinecone *PineconeConfig `yaml:"pinecone,omitempty"`
	Qdrant   *QdrantConfig   `yaml:"qdrant,omitempty"`
	Bolt     *BoltConfig     `yaml:"bolt,omitempty"`
}

// PineconeConfig describes a serverless Pinecone index.
type PineconeConfig struct {
	APIKeyEnv   string `yaml:"api_key_env"`
	ControlURL  string `yaml:"control_url"`
	Host        string `yaml:"host"`
	Index       string `yaml:"index"`
	Metric      string `yaml:"metric"`
	Cloud       string `yaml:"cloud"`
	Region      string `yaml:"region"`
	Namespace   string `yaml:"namespace"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// BoltConfig points at a local bbolt index file.
type BoltConfig struct {
	Path string `yaml:"path"`
}

// ChatConfig configures the OpenAI-compatible chat completion endpoint.
type ChatConfig struct {
	BaseURL      string  `yaml:"base_url"`
	APIKeyEnv    string  `yaml:"api_key_env"`
	Model        string  `yaml:"model"`
	SystemPrompt string  `yaml:"system_prompt"`
	Temperature  float64 `yaml:"temperature"`
	TimeoutSecs  int     `yaml:"timeout_secs"`
	MaxRetries   int     `yaml:"max_retries"`
}

// RetrievalConfig controls the similarity query.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

// OCRConfig controls the rasterize-and-recognize fallback for PDF pages without text.
type OCRConfig struct {
	Enabled       bool   `yaml:"enabled"`
	PdftoppmPath  string `yaml:"pdftoppm_path"`
	TesseractPath string `yaml:"tesseract_path"`
	DPI           int    `yaml:"dpi"`
	Language      string `yaml:"language"`
}

// ExtractConfig controls text extraction.
type ExtractConfig struct {
	MaxFileBytes     int64     `yaml:"max_file_bytes"`
	PreviewSentences int       `yaml:"preview_sentences"`
	OCR              OCRConfig `yaml:"ocr"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr              string `yaml:"addr"`
	BodyLimit         string `yaml:"body_limit"`
	ReadTimeoutSecs   int    `yaml:"read_timeout_secs"`
	WriteTimeoutSecs  int    `yaml:"write_timeout_secs"`
	SessionTTLMinutes int    `yaml:"session_ttl_minutes"`
	RequestLogging    bool   `yaml:"request_logging"`
}

// HistoryConfig enables the SQLite question history. An empty path disables it.
type HistoryConfig struct {
	Path string `yaml:"path"`
}

// LogConfig sets the minimum log level.
type LogConfig struct {
	Level string `yaml:"level"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Embedder    EmbedderConfig    `yaml:"embedder"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Chat        ChatConfig        `yaml:"chat"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Extract     ExtractConfig     `yaml:"extract"`
	Server      ServerConfig      `yaml:"server"`
	History     HistoryConfig     `yaml:"history"`
	Log         LogConfig         `yaml:"log"`
}

const DefaultSystemPrompt = "You are a helpful assistant. Answer questions based on the provided text."

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML and fills in defaults for anything left out.
func Parse(data []byte) (*AppConfig, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(cfg)
	return cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/docqa/config.yaml.
// If neither exists, it writes defaults to ~/.config/docqa/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := Default()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "docqa", "config.yaml"), nil
}

// Default mirrors the hosted setup: Gemini embeddings, a Pinecone index and Groq chat.
func Default() *AppConfig {
	cfg := &AppConfig{
		Embedder:    EmbedderConfig{Type: "gemini"},
		VectorStore: VectorStoreConfig{Type: "pinecone"},
		Extract: ExtractConfig{
			OCR: OCRConfig{Enabled: true},
		},
		Chat:   ChatConfig{MaxRetries: -1},
		Server: ServerConfig{RequestLogging: true},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	switch cfg.Embedder.Type {
	case "", "gemini":
		cfg.Embedder.Type = "gemini"
		if cfg.Embedder.Gemini == nil {
			cfg.Embedder.Gemini = &GeminiEmbedderConfig{MaxRetries: -1}
		}
		g := cfg.Embedder.Gemini
		if g.BaseURL == "" {
			g.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
		}
		if g.APIKeyEnv == "" {
			g.APIKeyEnv = "GEMINI_API_KEY"
		}
		if g.Model == "" {
			g.Model = "text-embedding-004"
		}
		if g.Dimension == 0 {
			g.Dimension = 768
		}
		if g.TimeoutSecs == 0 {
			g.TimeoutSecs = 30
		}
		// 0 turns retries off; only a negative value means unset.
		if g.MaxRetries < 0 {
			g.MaxRetries = 3
		}
	case "openai":
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		o := cfg.Embedder.OpenAI
		if o.BaseURL == "" {
			o.BaseURL = "https://api.openai.com/v1"
		}
		if o.APIKeyEnv == "" {
			o.APIKeyEnv = "OPENAI_API_KEY"
		}
		if o.Model == "" {
			o.Model = "text-embedding-3-small"
		}
		if o.Dimension == 0 {
			o.Dimension = 1536
		}
		if o.TimeoutSecs == 0 {
			o.TimeoutSecs = 30
		}
	}

	switch cfg.VectorStore.Type {
	case "", "pinecone":
		cfg.VectorStore.Type = "pinecone"
		if cfg.VectorStore.Pinecone == nil {
			cfg.VectorStore.Pinecone = &PineconeConfig{}
		}
		p := cfg.VectorStore.Pinecone
		if p.APIKeyEnv == "" {
			p.APIKeyEnv = "PINECONE_API_KEY"
		}
		if p.ControlURL == "" {
			p.ControlURL = "https://api.pinecone.io"
		}
		if p.Index == "" {
			p.Index = "gemini-index"
		}
		if p.Metric == "" {
			p.Metric = "cosine"
		}
		if p.Cloud == "" {
			p.Cloud = "aws"
		}
		if p.Region == "" {
			p.Region = "us-east-1"
		}
		if p.TimeoutSecs == 0 {
			p.TimeoutSecs = 30
		}
	case "qdrant":
		if cfg.VectorStore.Qdrant == nil {
			cfg.VectorStore.Qdrant = &QdrantConfig{}
		}
		q := cfg.VectorStore.Qdrant
		if q.URL == "" {
			q.URL = "http://localhost:6333"
		}
		if q.Collection == "" {
			q.Collection = "docqa"
		}
		if q.TimeoutSecs == 0 {
			q.TimeoutSecs = 15
		}
	case "bolt":
		if cfg.VectorStore.Bolt == nil {
			cfg.VectorStore.Bolt = &BoltConfig{}
		}
		if cfg.VectorStore.Bolt.Path == "" {
			cfg.VectorStore.Bolt.Path = "docqa-index.db"
		}
	}

	c := &cfg.Chat
	if c.BaseURL == "" {
		c.BaseURL = "https://api.groq.com/openai/v1"
	}
	if c.APIKeyEnv == "" {
		c.APIKeyEnv = "GROQ_API_KEY"
	}
	if c.Model == "" {
		c.Model = "llama3-70b-8192"
	}
	if c.SystemPrompt == "" {
		c.SystemPrompt = DefaultSystemPrompt
	}
	if c.TimeoutSecs == 0 {
		c.TimeoutSecs = 60
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 2
	}

	if cfg.Retrieval.TopK <= 0 {
		cfg.Retrieval.TopK = 5
	}

	if cfg.Extract.MaxFileBytes <= 0 {
		cfg.Extract.MaxFileBytes = 50 << 20
	}
	if cfg.Extract.PreviewSentences <= 0 {
		cfg.Extract.PreviewSentences = 2
	}
	o := &cfg.Extract.OCR
	if o.PdftoppmPath == "" {
		o.PdftoppmPath = "pdftoppm"
	}
	if o.TesseractPath == "" {
		o.TesseractPath = "tesseract"
	}
	if o.DPI == 0 {
		o.DPI = 300
	}
	if o.Language == "" {
		o.Language = "eng"
	}

	s := &cfg.Server
	if s.Addr == "" {
		s.Addr = ":8080"
	}
	if s.BodyLimit == "" {
		s.BodyLimit = "100M"
	}
	if s.ReadTimeoutSecs == 0 {
		s.ReadTimeoutSecs = 120
	}
	if s.WriteTimeoutSecs == 0 {
		s.WriteTimeoutSecs = 120
	}
	if s.SessionTTLMinutes == 0 {
		s.SessionTTLMinutes = 60
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// APIKey reads the secret named by envName.
func APIKey(envName string) string {
	if envName == "" {
		return ""
	}
	return os.Getenv(envName)
}
