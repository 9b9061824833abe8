package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"sani-bot/api/internal/app"
	"sani-bot/api/internal/config"
	"sani-bot/api/internal/httpserver"
	"sani-bot/api/internal/llm"
	"sani-bot/api/internal/logger"
	"sani-bot/api/internal/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if strings.TrimSpace(cfg.TelegramBotToken) == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN is required")
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

	// --- Telegram bot ---
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		lg.Fatal("telegram", zap.Error(err))
	}
	bot.Debug = false

	var history telegram.History = telegram.NewMemoryHistory(2 * cfg.HistoryLimit)
	if a.Repo != nil {
		history = telegram.RepoHistory{Repo: a.Repo}
	}
	r := &telegram.Router{
		Bot:          bot,
		Svc:          a.Svc,
		EngManager:   llm.NewManager(cfg.DefaultEngine),
		History:      history,
		HistoryLimit: cfg.HistoryLimit,
		Timeout:      cfg.RequestTimeout,
		Log:          lg,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if a.DB != nil {
			pctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
			defer cancel()
			if err := a.DB.PingContext(pctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("db: not ok\n" + err.Error()))
				return
			}
		}
		_, _ = w.Write([]byte("ok"))
	})

	addr := "0.0.0.0:" + cfg.Port
	srv := httpserver.New(addr, mux, cfg.RequestTimeout, lg)
	lg.Info("bot starting", zap.String("bot", bot.Self.UserName), zap.String("service", a.Svc.Describe()))

	// --- Choose mode: Webhook vs Polling ---
	// один воркер: апдейты чата обрабатываются по порядку
	updates := make(chan tgbotapi.Update, 64)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case upd := <-updates:
				r.HandleUpdate(ctx, upd)
			}
		}
	}()
	enqueue := func(upd tgbotapi.Update) {
		select {
		case updates <- upd:
		case <-ctx.Done():
		}
	}

	if webhookURL := strings.TrimSpace(cfg.WebhookURL); webhookURL != "" {
		if err := setupWebhook(bot, mux, webhookURL, enqueue, lg); err != nil {
			lg.Fatal("webhook", zap.Error(err))
		}
	} else {
		if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			lg.Warn("delete webhook failed", zap.Error(err))
		}
		go runPolling(ctx, bot, lg, enqueue)
	}

	if err := srv.Run(ctx); err != nil {
		lg.Error("http server", zap.Error(err))
	}
}

// ---------------- Webhook -----------------

func setupWebhook(bot *tgbotapi.BotAPI, mux *http.ServeMux, baseURL string, enqueue func(tgbotapi.Update), lg *zap.Logger) error {
	// секретный путь вебхука
	path := "/webhook/" + shortHash(bot.Token)
	public := strings.TrimRight(baseURL, "/") + path

	wh, err := tgbotapi.NewWebhook(public)
	if err != nil {
		return err
	}
	wh.DropPendingUpdates = true
	if _, err := bot.Request(wh); err != nil {
		return err
	}

	mux.HandleFunc(path, func(w http.ResponseWriter, req *http.Request) {
		upd, err := bot.HandleUpdate(req)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		enqueue(*upd)
	})
	lg.Info("webhook registered", zap.String("path", path))
	return nil
}

// ---------------- Polling loop -----------------

type updatesSource interface {
	GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)
}

var reRetryAfter = regexp.MustCompile(`(?i)retry after\s+(\d+)`)

func retryDelayFromError(err error) time.Duration {
	if err == nil {
		return 0
	}
	s := strings.ToLower(err.Error())
	if strings.Contains(s, "too many requests") { // HTTP 429 от Telegram
		if m := reRetryAfter.FindStringSubmatch(s); len(m) == 2 {
			if n, _ := strconv.Atoi(m[1]); n > 0 {
				return time.Duration(n) * time.Second
			}
		}
		return 3 * time.Second
	}
	var ne net.Error
	if errors.As(err, &ne) {
		if ne.Timeout() {
			return 2 * time.Second
		}
	}
	return 1 * time.Second
}

// runPolling: устойчивый long polling с backoff, без log.Fatal/os.Exit.
func runPolling(ctx context.Context, src updatesSource, lg *zap.Logger, handle func(tgbotapi.Update)) {
	offset := 0
	baseDelay := 1 * time.Second
	maxDelay := 15 * time.Second

	for {
		if ctx.Err() != nil {
			lg.Info("polling: context cancelled")
			return
		}

		u := tgbotapi.NewUpdate(offset)
		u.Timeout = 30 // long polling timeout (sec)

		updates, err := src.GetUpdates(u)
		if err != nil {
			d := min(max(retryDelayFromError(err), baseDelay), maxDelay)
			lg.Warn("polling error", zap.Error(err), zap.Duration("retry_in", d))
			sleep(ctx, d)
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			handle(upd)
		}

		if len(updates) == 0 {
			sleep(ctx, 200*time.Millisecond)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// ---------------- Helpers -----------------

func shortHash(s string) string {
	// лёгкий хэш для пути вебхука (не крипто, но стабильно для токена)
	h := uint64(1469598103934665603)
	const prime = 1099511628211
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime
	}
	// 16-символный hex
	const hexdigits = "0123456789abcdef"
	out := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		out[i] = hexdigits[h&0xF]
		h >>= 4
	}
	return string(out)
}
