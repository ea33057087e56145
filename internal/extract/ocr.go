package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// PageOCR recognizes the text of a single rendered PDF page (1-based).
type PageOCR interface {
	RecognizePage(ctx context.Context, pdfPath string, page int) (string, error)
}

// runner executes an external command and returns its stdout.
type runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// Tesseract rasterizes a page with pdftoppm and reads it with the tesseract CLI.
type Tesseract struct {
	pdftoppm  string
	tesseract string
	dpi       int
	lang      string
	run       runner
}

type TesseractConfig struct {
	PdftoppmPath  string
	TesseractPath string
	DPI           int
	Language      string
}

func NewTesseract(cfg TesseractConfig) *Tesseract {
	t := &Tesseract{
		pdftoppm:  cfg.PdftoppmPath,
		tesseract: cfg.TesseractPath,
		dpi:       cfg.DPI,
		lang:      cfg.Language,
		run:       execRunner,
	}
	if t.pdftoppm == "" {
		t.pdftoppm = "pdftoppm"
	}
	if t.tesseract == "" {
		t.tesseract = "tesseract"
	}
	if t.dpi <= 0 {
		t.dpi = 300
	}
	if t.lang == "" {
		t.lang = "eng"
	}
	return t
}

// Available reports whether both binaries are on PATH.
func (t *Tesseract) Available() bool {
	if _, err := exec.LookPath(t.pdftoppm); err != nil {
		return false
	}
	_, err := exec.LookPath(t.tesseract)
	return err == nil
}

func (t *Tesseract) RecognizePage(ctx context.Context, pdfPath string, page int) (string, error) {
	dir, err := os.MkdirTemp("", "docqa-ocr-*")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(dir)

	prefix := filepath.Join(dir, "page")
	p := strconv.Itoa(page)
	if _, err := t.run(ctx, t.pdftoppm,
		"-f", p, "-l", p,
		"-r", strconv.Itoa(t.dpi),
		"-png", "-singlefile",
		pdfPath, prefix,
	); err != nil {
		return "", fmt.Errorf("rasterize page %d: %w", page, err)
	}

	out, err := t.run(ctx, t.tesseract, prefix+".png", "stdout", "-l", t.lang)
	if err != nil {
		return "", fmt.Errorf("recognize page %d: %w", page, err)
	}
	return string(out), nil
}
