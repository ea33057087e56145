package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

func (e *Extractor) extractPDF(ctx context.Context, name string, data []byte) (text string, err error) {
	// the pdf reader panics on some malformed xref tables
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("read pdf %s: %v", name, r)
		}
	}()

	rdr, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf %s: %w", name, err)
	}

	var (
		sb      strings.Builder
		tmpPath string
	)
	defer func() {
		if tmpPath != "" {
			_ = os.Remove(tmpPath)
		}
	}()

	for i := 1; i <= rdr.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := rdr.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			e.logger.Warn("pdf page text layer unreadable", "file", name, "page", i, "error", err)
			pageText = ""
		}
		if strings.TrimSpace(pageText) != "" {
			sb.WriteString(pageText)
			sb.WriteString("\n")
			continue
		}

		if e.ocr == nil {
			e.logger.Debug("pdf page has no text and OCR is disabled", "file", name, "page", i)
			sb.WriteString("\n")
			continue
		}
		if tmpPath == "" {
			tmpPath, err = writeTemp(data)
			if err != nil {
				return "", err
			}
		}
		ocrText, err := e.ocr.RecognizePage(ctx, tmpPath, i)
		if err != nil {
			e.logger.Warn("ocr failed", "file", name, "page", i, "error", err)
			ocrText = ""
		}
		sb.WriteString(ocrText)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func writeTemp(data []byte) (string, error) {
	tmp, err := os.CreateTemp("", "docqa-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create temp pdf: %w", err)
	}
	defer tmp.Close()
	if _, err := tmp.Write(data); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("write temp pdf: %w", err)
	}
	return tmp.Name(), nil
}
