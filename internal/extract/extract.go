// Package extract turns uploaded PDF, DOCX and TXT files into plain text.
package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"docqa/internal/domain"
	"docqa/internal/log"
)

// Extractor dispatches on file extension.
type Extractor struct {
	ocr    PageOCR
	logger *log.Logger
}

// New creates an Extractor. A nil ocr disables the OCR fallback for PDF pages.
func New(ocr PageOCR, logger *log.Logger) *Extractor {
	if logger == nil {
		logger = log.Nop()
	}
	return &Extractor{ocr: ocr, logger: logger.With(map[string]string{"component": "extract"})}
}

// Supported reports whether the file name has an extension the extractor understands.
func Supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf", ".docx", ".txt":
		return true
	}
	return false
}

// Extract returns the plain text of the named file.
func (e *Extractor) Extract(ctx context.Context, name string, data []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return e.extractPDF(ctx, name, data)
	case ".docx":
		return extractDOCX(data)
	case ".txt":
		return extractTXT(data), nil
	default:
		return "", fmt.Errorf("%s: %w", name, domain.ErrUnsupportedFormat)
	}
}
