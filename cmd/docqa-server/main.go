package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"docqa/internal/api"
	"docqa/internal/app"
	"docqa/internal/config"
	"docqa/internal/log"
	"docqa/internal/session"
	"docqa/internal/web"
)

// Version info (set during build)
var Version = "dev"

func main() {
	_ = godotenv.Load()

	var cfgPath string
	var resetIndex bool
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/docqa/config.yaml if not provided)")
	flag.BoolVar(&resetIndex, "reset-index", false, "Remove every vector from the index before starting")
	flag.Parse()

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, cfgPath, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		stdlog.Fatalf("failed to load config: %v", err)
	}
	logger := log.New(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer a.Close()
	if resetIndex {
		if err := a.Service.ResetIndex(ctx); err != nil {
			logger.Error("reset index failed", "error", err)
			os.Exit(1)
		}
	}

	sessions := session.NewManager()
	sessions.OnEvict(func(id string) {
		logger.Debug("session evicted", "session", id)
		if err := a.Service.ForgetSession(context.Background(), id); err != nil {
			logger.Warn("failed to delete session history", "session", id, "error", err)
		}
	})
	ttl := time.Duration(cfg.Server.SessionTTLMinutes) * time.Minute
	go sessions.RunCleanup(ctx, max(time.Minute, ttl/4), ttl)

	e := api.NewEcho(logger, api.ServerOptions{
		BodyLimit:      cfg.Server.BodyLimit,
		RequestLogging: cfg.Server.RequestLogging,
	})
	api.RegisterRoutes(e, api.NewHandler(a.Service, sessions, logger, Version))
	if err := web.RegisterStaticRoutes(e); err != nil {
		logger.Warn("failed to register static routes", "error", err)
	}

	s := &http.Server{
		Addr:         cfg.Server.Addr,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}()

	logger.Info("listening", "addr", cfg.Server.Addr, "config", cfgPath, "version", Version)
	fmt.Printf("Open http://localhost%s in your browser\n", cfg.Server.Addr)
	if err := e.StartServer(s); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
