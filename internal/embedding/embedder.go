package embedding

import (
	"context"

	"docqa/internal/domain"
	"docqa/internal/log"
)

// Embedder converts free text into a numeric vector representation.
type Embedder = domain.Embedder

// ZeroOnError wraps an Embedder so that failures yield a zero vector instead of an error.
// Documents embedded this way are still indexed; they simply never rank first.
type ZeroOnError struct {
	inner  Embedder
	logger *log.Logger
}

func NewZeroOnError(inner Embedder, logger *log.Logger) *ZeroOnError {
	if logger == nil {
		logger = log.Nop()
	}
	return &ZeroOnError{inner: inner, logger: logger}
}

func (z *ZeroOnError) Name() string { return z.inner.Name() }

func (z *ZeroOnError) Dimension() int { return z.inner.Dimension() }

func (z *ZeroOnError) Embed(ctx context.Context, text string) ([]float32, error) {
	v, err := z.inner.Embed(ctx, text)
	if err == nil {
		return v, nil
	}
	z.logger.Error("embedding error, using zero vector", "embedder", z.inner.Name(), "error", err)
	return make([]float32, z.inner.Dimension()), nil
}
