package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"docqa/internal/domain"
	"docqa/internal/log"
)

// Options tunes retrieval and ingestion limits.
type Options struct {
	TopK         int
	MaxFileBytes int64

	// Summarizer adds a preview to each indexed file when set.
	Summarizer       domain.Summarizer
	PreviewSentences int
}

type QAServiceImpl struct {
	extractor    domain.Extractor
	embedder     domain.Embedder
	store        domain.VectorStore
	completer    domain.Completer
	history      domain.History
	logger       *log.Logger
	summarizer   domain.Summarizer
	previewLen   int
	topK         int
	maxFileBytes int64
}

// NewQAService wires the pipeline. history and logger may be nil.
func NewQAService(extractor domain.Extractor, embedder domain.Embedder, store domain.VectorStore, completer domain.Completer, history domain.History, logger *log.Logger, opts Options) *QAServiceImpl {
	if logger == nil {
		logger = log.Nop()
	}
	if opts.TopK <= 0 {
		opts.TopK = 5
	}
	return &QAServiceImpl{
		extractor:    extractor,
		embedder:     embedder,
		store:        store,
		completer:    completer,
		history:      history,
		logger:       logger,
		summarizer:   opts.Summarizer,
		previewLen:   opts.PreviewSentences,
		topK:         opts.TopK,
		maxFileBytes: opts.MaxFileBytes,
	}
}

// Init prepares the vector index for the embedder's dimension.
func (s *QAServiceImpl) Init(ctx context.Context) error {
	if err := s.store.Init(ctx, s.embedder.Dimension()); err != nil {
		return fmt.Errorf("init vector store: %w", err)
	}
	return nil
}

// Ingest extracts, embeds and indexes one file. The file's text joins docs only when indexing succeeds.
func (s *QAServiceImpl) Ingest(ctx context.Context, docs *domain.DocumentSet, name string, data []byte) domain.IngestResult {
	res := domain.IngestResult{FileName: name}
	fail := func(err error) domain.IngestResult {
		res.Status = domain.StatusFailed
		res.Error = err.Error()
		s.logger.Warn("ingest failed", "file", name, "error", err)
		return res
	}
	if s.maxFileBytes > 0 && int64(len(data)) > s.maxFileBytes {
		return fail(fmt.Errorf("%s exceeds %d bytes", name, s.maxFileBytes))
	}

	text, err := s.extractor.Extract(ctx, name, data)
	if err != nil {
		return fail(err)
	}
	if strings.TrimSpace(text) == "" {
		res.Status = domain.StatusEmpty
		res.Error = fmt.Sprintf("No content found in %s", name)
		s.logger.Info("no content", "file", name)
		return res
	}

	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return fail(fmt.Errorf("embed %s: %w", name, err))
	}
	if err := s.store.Upsert(ctx, []domain.Record{{FileName: name, Vector: vec}}); err != nil {
		return fail(fmt.Errorf("index %s: %w", name, err))
	}
	docs.Put(name, text)

	res.Status = domain.StatusIndexed
	res.Chars = utf8.RuneCountInString(text)
	if s.summarizer != nil {
		res.Summary = s.summarizer.Summarize(text, s.previewLen)
	}
	s.logger.Info("indexed", "file", name, "chars", res.Chars)
	return res
}

// IngestFiles ingests files in order, one result per file.
func (s *QAServiceImpl) IngestFiles(ctx context.Context, docs *domain.DocumentSet, files []domain.File) []domain.IngestResult {
	out := make([]domain.IngestResult, 0, len(files))
	for _, f := range files {
		out = append(out, s.Ingest(ctx, docs, f.Name, f.Data))
	}
	return out
}

// Ask answers question from the full text of the best matching file in docs.
func (s *QAServiceImpl) Ask(ctx context.Context, sessionID string, docs *domain.DocumentSet, question string) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.ErrEmptyQuestion
	}
	if docs == nil || docs.Len() == 0 {
		return nil, domain.ErrNoRelevantContent
	}

	vec, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	matches, err := s.store.Query(ctx, vec, s.topK)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	var best *domain.Match
	for i := range matches {
		if docs.Has(matches[i].FileName) {
			best = &matches[i]
			break
		}
	}
	if best == nil {
		s.logger.Info("no relevant match", "session", sessionID, "candidates", len(matches))
		return nil, domain.ErrNoRelevantContent
	}
	text, _ := docs.Text(best.FileName)

	reply, err := s.completer.Complete(ctx, text, question)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	ans := &domain.Answer{Question: question, Text: reply, FileName: best.FileName, Score: best.Score}

	if s.history != nil && sessionID != "" {
		entry := domain.HistoryEntry{
			SessionID: sessionID,
			Question:  question,
			Answer:    reply,
			FileName:  best.FileName,
			Score:     best.Score,
		}
		if err := s.history.Append(ctx, entry); err != nil {
			s.logger.Warn("history append failed", "session", sessionID, "error", err)
		}
	}
	s.logger.Info("answered", "session", sessionID, "file", best.FileName, "score", best.Score)
	return ans, nil
}

// History lists the newest answers of a session. Without a history store it is always empty.
func (s *QAServiceImpl) History(ctx context.Context, sessionID string, limit int) ([]domain.HistoryEntry, error) {
	if s.history == nil {
		return []domain.HistoryEntry{}, nil
	}
	entries, err := s.history.List(ctx, sessionID, limit)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []domain.HistoryEntry{}
	}
	return entries, nil
}

// ForgetSession drops the recorded answers of a session.
func (s *QAServiceImpl) ForgetSession(ctx context.Context, sessionID string) error {
	if s.history == nil {
		return nil
	}
	if err := s.history.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("delete history of %s: %w", sessionID, err)
	}
	return nil
}

// ResetIndex removes every vector from the index.
func (s *QAServiceImpl) ResetIndex(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear vector store: %w", err)
	}
	s.logger.Info("vector index cleared")
	return nil
}

// IsClientError reports whether err comes from bad input rather than an upstream service.
func IsClientError(err error) bool {
	return errors.Is(err, domain.ErrEmptyQuestion) || errors.Is(err, domain.ErrNoRelevantContent)
}
