package domain

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var (
	// ErrUnsupportedFormat is returned for files that are not PDF, DOCX or TXT.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrNoContent means extraction produced only whitespace.
	ErrNoContent = errors.New("no content found")
	// ErrNoRelevantContent means no indexed file of the current set matched the question.
	ErrNoRelevantContent = errors.New("no relevant content found in the indexed documents")
	// ErrEmptyQuestion is returned when a blank question is asked.
	ErrEmptyQuestion = errors.New("question is empty")
)

// Record is the single vector stored per uploaded file. The file name doubles as the vector ID.
type Record struct {
	FileName string
	Vector   []float32
}

// Match is a vector index hit.
type Match struct {
	FileName string  `json:"file_name"`
	Score    float64 `json:"score"`
}

// Answer is the result of asking a question against a document set.
type Answer struct {
	Question string  `json:"question"`
	Text     string  `json:"answer"`
	FileName string  `json:"file_name"`
	Score    float64 `json:"score"`
}

// Ingest statuses.
const (
	StatusIndexed = "indexed"
	StatusEmpty   = "empty"
	StatusFailed  = "failed"
)

// IngestResult reports what happened to one uploaded file.
type IngestResult struct {
	FileName string `json:"file_name"`
	Status   string `json:"status"`
	Chars    int    `json:"chars"`
	Summary  string `json:"summary,omitempty"`
	Error    string `json:"error,omitempty"`
}

// File is an uploaded file awaiting ingestion.
type File struct {
	Name string
	Data []byte
}

// DocumentSet maps file names to their extracted text for the lifetime of one interaction.
type DocumentSet struct {
	mu    sync.RWMutex
	texts map[string]string
}

func NewDocumentSet() *DocumentSet {
	return &DocumentSet{texts: make(map[string]string)}
}

// Put stores or replaces the text of a file.
func (d *DocumentSet) Put(name, text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.texts[name] = text
}

func (d *DocumentSet) Text(name string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	t, ok := d.texts[name]
	return t, ok
}

func (d *DocumentSet) Has(name string) bool {
	_, ok := d.Text(name)
	return ok
}

// Names returns the file names in lexical order.
func (d *DocumentSet) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.texts))
	for n := range d.texts {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (d *DocumentSet) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.texts)
}

// Extractor turns raw file bytes into plain text.
type Extractor interface {
	Extract(ctx context.Context, name string, data []byte) (string, error)
}

// Embedder converts free text into a numeric vector representation.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorStore persists one vector per file and supports similarity search.
type VectorStore interface {
	Init(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, records []Record) error
	Query(ctx context.Context, vector []float32, topK int) ([]Match, error)
	Clear(ctx context.Context) error
}

// Summarizer condenses a file's text into a short preview.
type Summarizer interface {
	Summarize(text string, maxSentences int) string
}

// Completer answers a question given a context text.
type Completer interface {
	Complete(ctx context.Context, contextText, question string) (string, error)
}

// HistoryEntry is one answered question.
type HistoryEntry struct {
	ID        string  `json:"id"`
	SessionID string  `json:"session_id"`
	Question  string  `json:"question"`
	Answer    string  `json:"answer"`
	FileName  string  `json:"file_name"`
	Score     float64 `json:"score"`
	AskedAt   string  `json:"asked_at"`
}

// History records answered questions.
type History interface {
	Append(ctx context.Context, entry HistoryEntry) error
	List(ctx context.Context, sessionID string, limit int) ([]HistoryEntry, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// QAService defines the operations exposed by the application core.
type QAService interface {
	Ingest(ctx context.Context, docs *DocumentSet, name string, data []byte) IngestResult
	IngestFiles(ctx context.Context, docs *DocumentSet, files []File) []IngestResult
	Ask(ctx context.Context, sessionID string, docs *DocumentSet, question string) (*Answer, error)
	History(ctx context.Context, sessionID string, limit int) ([]HistoryEntry, error)
}
