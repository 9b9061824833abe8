package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"sani-bot/api/internal/app"
	"sani-bot/api/internal/config"
	handle "sani-bot/api/internal/handle"
	"sani-bot/api/internal/httpserver"
	"sani-bot/api/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	// Prefer platform PORT env var
	if p := strings.TrimSpace(os.Getenv("PORT")); p != "" {
		cfg.Port = p
	}

	lg := logger.New(cfg.LogLevel, cfg.LogFormat)
	defer func() { _ = lg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, lg)
	if err != nil {
		lg.Fatal("init failed", zap.Error(err))
	}
	defer a.Close()
	go a.RunRetention(ctx, time.Hour)

	opt := handle.Options{
		Timeout:   cfg.RequestTimeout,
		PromptDir: cfg.PromptDir,
		Log:       lg,
	}
	if a.DB != nil {
		opt.DB = a.DB
	}
	mux := http.NewServeMux()
	handle.New(a.Svc, opt).Register(mux)

	lg.Info("sani-api starting", zap.String("service", a.Svc.Describe()))
	srv := httpserver.New(":"+cfg.Port, mux, cfg.RequestTimeout, lg)
	if err := srv.Run(ctx); err != nil {
		lg.Fatal("http server", zap.Error(err))
	}
}
