package main

import (
	"context"
	"flag"
	"fmt"
	stdlog "log"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"docqa/internal/app"
	"docqa/internal/config"
	"docqa/internal/domain"
	"docqa/internal/log"
	"docqa/internal/tui"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	var resetIndex bool
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/docqa/config.yaml if not provided)")
	flag.BoolVar(&resetIndex, "reset-index", false, "Remove every vector from the index before starting")
	flag.Parse()
	inputs := flag.Args()
	if len(inputs) == 0 {
		fmt.Println("Usage: docqa [--config=config.yaml] [--reset-index] file.pdf [file.docx file.txt ...]")
		os.Exit(1)
	}

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		stdlog.Fatalf("failed to load config: %v", err)
	}

	// The TUI owns the terminal, so logs go to a file.
	logFile, err := os.OpenFile(filepath.Join(os.TempDir(), "docqa.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		stdlog.Fatalf("failed to open log file: %v", err)
	}
	defer logFile.Close()
	logger := log.NewWithWriter(logFile, log.ParseLevel(cfg.Log.Level))

	ctx := context.Background()
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		stdlog.Fatalf("startup failed: %v", err)
	}
	defer a.Close()
	if resetIndex {
		if err := a.Service.ResetIndex(ctx); err != nil {
			stdlog.Fatalf("reset index: %v", err)
		}
		fmt.Println("Index cleared.")
	}

	var files []domain.File
	for _, p := range expand(inputs) {
		data, err := os.ReadFile(p)
		if err != nil {
			fmt.Printf("%s: failed - %v\n", p, err)
			continue
		}
		files = append(files, domain.File{Name: filepath.Base(p), Data: data})
	}

	docs := domain.NewDocumentSet()
	for _, r := range a.Service.IngestFiles(ctx, docs, files) {
		switch r.Status {
		case domain.StatusIndexed:
			fmt.Printf("%s: indexed (%d chars)\n", r.FileName, r.Chars)
			if r.Summary != "" {
				fmt.Printf("  %s\n", r.Summary)
			}
		default:
			fmt.Printf("%s: %s - %s\n", r.FileName, r.Status, r.Error)
		}
	}
	if docs.Len() == 0 {
		stdlog.Fatal("no documents indexed")
	}

	sessionID := uuid.NewString()
	ask := func(ctx context.Context, q string) (*domain.Answer, error) {
		return a.Service.Ask(ctx, sessionID, docs, q)
	}
	m := tui.New(ask, docs.Names())
	if _, err := tea.NewProgram(m).Run(); err != nil {
		stdlog.Fatal(err)
	}
}

func expand(inputs []string) []string {
	var out []string
	for _, p := range inputs {
		matches, _ := filepath.Glob(p)
		if matches == nil {
			matches = []string{p}
		}
		out = append(out, matches...)
	}
	return out
}
