// Package app assembles the components selected in the configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"docqa/internal/chat"
	"docqa/internal/config"
	"docqa/internal/domain"
	"docqa/internal/embedding"
	"docqa/internal/embedding/gemini"
	"docqa/internal/embedding/openai"
	"docqa/internal/extract"
	"docqa/internal/history"
	"docqa/internal/log"
	"docqa/internal/service"
	"docqa/internal/summarizer"
	"docqa/internal/vectorstore"
	"docqa/internal/vectorstore/bolt"
	"docqa/internal/vectorstore/memory"
	"docqa/internal/vectorstore/pinecone"
	"docqa/internal/vectorstore/qdrant"
)

// App holds the wired service and everything that must be closed on exit.
type App struct {
	Service *service.QAServiceImpl
	Logger  *log.Logger
	closers []func() error
}

// Close releases stores in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// New builds the service described by cfg and initializes its vector index.
func New(ctx context.Context, cfg *config.AppConfig, logger *log.Logger) (*App, error) {
	if logger == nil {
		logger = log.New(cfg.Log.Level)
	}
	a := &App{Logger: logger}

	emb, err := NewEmbedder(cfg.Embedder, logger)
	if err != nil {
		return nil, err
	}
	st, err := a.newStore(cfg.VectorStore)
	if err != nil {
		return nil, err
	}
	completer, err := chat.NewClient(chat.Config{
		BaseURL:      cfg.Chat.BaseURL,
		APIKey:       config.APIKey(cfg.Chat.APIKeyEnv),
		Model:        cfg.Chat.Model,
		SystemPrompt: cfg.Chat.SystemPrompt,
		Temperature:  cfg.Chat.Temperature,
		Timeout:      time.Duration(cfg.Chat.TimeoutSecs) * time.Second,
		MaxRetries:   cfg.Chat.MaxRetries,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	var hist domain.History
	if cfg.History.Path != "" {
		h, err := history.Open(cfg.History.Path)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("open history: %w", err)
		}
		a.closers = append(a.closers, h.Close)
		hist = h
	}

	svc := service.NewQAService(
		extract.New(newOCR(cfg.Extract.OCR, logger), logger),
		emb, st, completer, hist,
		logger.With(map[string]string{"component": "service"}),
		service.Options{
			TopK:             cfg.Retrieval.TopK,
			MaxFileBytes:     cfg.Extract.MaxFileBytes,
			Summarizer:       summarizer.NewFrequencySummarizer(),
			PreviewSentences: cfg.Extract.PreviewSentences,
		},
	)
	if err := svc.Init(ctx); err != nil {
		a.Close()
		return nil, err
	}
	a.Service = svc
	logger.Info("ready",
		"embedder", emb.Name(),
		"dimension", emb.Dimension(),
		"vector_store", cfg.VectorStore.Type,
		"chat_model", cfg.Chat.Model,
		"history", cfg.History.Path != "")
	return a, nil
}

// NewEmbedder returns the configured embedder, wrapped to yield zero vectors on error when enabled.
func NewEmbedder(cfg config.EmbedderConfig, logger *log.Logger) (embedding.Embedder, error) {
	var emb embedding.Embedder
	switch cfg.Type {
	case "gemini", "":
		if cfg.Gemini == nil {
			return nil, errors.New("gemini embedder config missing")
		}
		client, err := gemini.NewClient(gemini.Config{
			BaseURL:    cfg.Gemini.BaseURL,
			APIKey:     config.APIKey(cfg.Gemini.APIKeyEnv),
			Model:      cfg.Gemini.Model,
			Dimension:  cfg.Gemini.Dimension,
			Timeout:    time.Duration(cfg.Gemini.TimeoutSecs) * time.Second,
			MaxRetries: cfg.Gemini.MaxRetries,
		})
		if err != nil {
			return nil, fmt.Errorf("gemini embedder init failed: %w", err)
		}
		emb = client
	case "openai":
		if cfg.OpenAI == nil {
			return nil, errors.New("openai embedder config missing")
		}
		client, err := openai.NewClient(openai.Config{
			BaseURL:   cfg.OpenAI.BaseURL,
			APIKey:    config.APIKey(cfg.OpenAI.APIKeyEnv),
			Model:     cfg.OpenAI.Model,
			Dimension: cfg.OpenAI.Dimension,
			Timeout:   time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedder init failed: %w", err)
		}
		emb = client
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
	}
	if cfg.ZeroOnError {
		emb = embedding.NewZeroOnError(emb, logger)
	}
	return emb, nil
}

func (a *App) newStore(cfg config.VectorStoreConfig) (vectorstore.Storage, error) {
	switch cfg.Type {
	case "pinecone", "":
		if cfg.Pinecone == nil {
			return nil, errors.New("pinecone config missing")
		}
		st, err := pinecone.NewStorage(pinecone.Config{
			APIKey:     config.APIKey(cfg.Pinecone.APIKeyEnv),
			ControlURL: cfg.Pinecone.ControlURL,
			Host:       cfg.Pinecone.Host,
			Index:      cfg.Pinecone.Index,
			Metric:     cfg.Pinecone.Metric,
			Cloud:      cfg.Pinecone.Cloud,
			Region:     cfg.Pinecone.Region,
			Namespace:  cfg.Pinecone.Namespace,
			Timeout:    time.Duration(cfg.Pinecone.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("pinecone init failed: %w", err)
		}
		return st, nil
	case "qdrant":
		if cfg.Qdrant == nil {
			return nil, errors.New("qdrant config missing")
		}
		return qdrant.NewStorage(qdrant.Config{
			URL:        cfg.Qdrant.URL,
			APIKey:     config.APIKey(cfg.Qdrant.APIKeyEnv),
			Collection: cfg.Qdrant.Collection,
			Timeout:    time.Duration(cfg.Qdrant.TimeoutSecs) * time.Second,
		}), nil
	case "bolt":
		if cfg.Bolt == nil {
			return nil, errors.New("bolt config missing")
		}
		st, err := bolt.Open(cfg.Bolt.Path)
		if err != nil {
			return nil, fmt.Errorf("open bolt index: %w", err)
		}
		a.closers = append(a.closers, st.Close)
		return st, nil
	case "memory":
		return memory.NewStorage(), nil
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.Type)
	}
}

// newOCR returns the tesseract fallback, or nil when disabled or the binaries are missing.
func newOCR(cfg config.OCRConfig, logger *log.Logger) extract.PageOCR {
	if !cfg.Enabled {
		return nil
	}
	t := extract.NewTesseract(extract.TesseractConfig{
		PdftoppmPath:  cfg.PdftoppmPath,
		TesseractPath: cfg.TesseractPath,
		DPI:           cfg.DPI,
		Language:      cfg.Language,
	})
	if !t.Available() {
		logger.Warn("ocr disabled: pdftoppm or tesseract not found", "pdftoppm", cfg.PdftoppmPath, "tesseract", cfg.TesseractPath)
		return nil
	}
	return t
}
