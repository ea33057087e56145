package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"docqa/internal/domain"
	"docqa/internal/vectorstore"
)

// Storage is a simple in-memory vector store using brute-force cosine similarity.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	vectors   map[string][]float32
}

func NewStorage() *Storage { return &Storage{vectors: make(map[string][]float32)} }

func (s *Storage) Init(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimension = dimension
	return nil
}

// Upsert replaces the vector of any file already present.
func (s *Storage) Upsert(_ context.Context, records []domain.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		if r.FileName == "" {
			return errors.New("record without file name")
		}
		if s.dimension > 0 && len(r.Vector) != s.dimension {
			return fmt.Errorf("vector dimension mismatch: got %d, want %d", len(r.Vector), s.dimension)
		}
	}
	for _, r := range records {
		v := make([]float32, len(r.Vector))
		copy(v, r.Vector)
		s.vectors[r.FileName] = v
	}
	return nil
}

func (s *Storage) Query(_ context.Context, vector []float32, topK int) ([]domain.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matches := make([]domain.Match, 0, len(s.vectors))
	for name, v := range s.vectors {
		matches = append(matches, domain.Match{FileName: name, Score: vectorstore.Cosine(v, vector)})
	}
	return vectorstore.TopK(matches, topK), nil
}

func (s *Storage) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors = make(map[string][]float32)
	return nil
}

// Len reports the number of stored vectors.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors)
}
