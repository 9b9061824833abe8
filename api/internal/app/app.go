// Package app собирает зависимости, общие для sani-api и бота.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"sani-bot/api/internal/cache"
	"sani-bot/api/internal/config"
	"sani-bot/api/internal/llm"
	"sani-bot/api/internal/llm/gemini"
	"sani-bot/api/internal/llm/openai"
	"sani-bot/api/internal/prompt"
	"sani-bot/api/internal/service"
	"sani-bot/api/internal/store"
)

type App struct {
	Cfg     *config.Config
	Log     *zap.Logger
	Engines *llm.Engines
	Svc     *service.Service

	DB    *sql.DB               // nil без DATABASE_URL
	Repo  *store.InteractionRepo // nil без DATABASE_URL
	Redis *redis.Client          // nil без REDIS_ADDR
}

// Engines создаёт движки только для заданных ключей.
func Engines(cfg *config.Config) *llm.Engines {
	engs := &llm.Engines{Default: cfg.DefaultEngine}
	if cfg.GeminiAPIKey != "" {
		engs.Gemini = gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel)
	}
	if cfg.OpenAIAPIKey != "" {
		engs.OpenAI = openai.New(cfg.OpenAIAPIKey, cfg.OpenAIModel).WithBaseURL(cfg.OpenAIBaseURL)
	}
	if cfg.DeepseekAPIKey != "" {
		engs.Deepseek = openai.NewDeepseek(cfg.DeepseekAPIKey, cfg.DeepseekModel).WithBaseURL(cfg.DeepseekBaseURL)
	}
	return engs
}

func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	a := &App{Cfg: cfg, Log: log, Engines: Engines(cfg)}

	prompts, err := prompt.Load(cfg.PromptDir)
	if err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}

	opt := service.Options{
		Prompts: prompts,
		ChatParams: llm.Params{
			MaxTokens:   cfg.ChatMaxTokens,
			Temperature: cfg.ChatTemperature,
			TopP:        cfg.ChatTopP,
		},
		NLUParams: llm.Params{
			MaxTokens:   cfg.NLUMaxTokens,
			Temperature: cfg.NLUTemperature,
			JSON:        true,
		},
		NLUStructured: cfg.NLUStructured,
		Log:           log,
	}

	if cfg.DatabaseURL != "" {
		if err := a.openDB(ctx); err != nil {
			return nil, err
		}
		opt.Recorder = a.Repo
	}
	if cfg.RedisAddr != "" {
		if err := a.openRedis(ctx); err != nil {
			a.Close()
			return nil, err
		}
		opt.Cache = cache.New(a.Redis, "sani:nlu:", cfg.CacheTTL)
	}

	a.Svc = service.New(a.Engines, opt)
	return a, nil
}

func (a *App) openDB(ctx context.Context) error {
	db, err := sql.Open("pgx", a.Cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("sql.Open: %w", err)
	}
	// connection pool tune
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(1 * time.Hour)

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("db.Ping: %w", err)
	}
	repo := store.NewInteractionRepo(db)
	if err := repo.EnsureSchema(pctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("ensure schema: %w", err)
	}
	a.DB, a.Repo = db, repo
	a.Log.Info("db connected", zap.String("dsn", config.SafeDSNSummary(a.Cfg.DatabaseURL)))
	return nil
}

func (a *App) openRedis(ctx context.Context) error {
	rdb := redis.NewClient(&redis.Options{
		Addr:     a.Cfg.RedisAddr,
		Password: a.Cfg.RedisPassword,
		DB:       a.Cfg.RedisDB,
	})
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return fmt.Errorf("redis ping: %w", err)
	}
	a.Redis = rdb
	a.Log.Info("redis connected", zap.String("addr", a.Cfg.RedisAddr))
	return nil
}

// RunRetention раз в interval удаляет реплики старше HistoryRetention. Блокирует до отмены ctx.
func (a *App) RunRetention(ctx context.Context, interval time.Duration) {
	if a.Repo == nil || a.Cfg.HistoryRetention <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := a.Repo.PurgeOlderThan(ctx, a.Cfg.HistoryRetention)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					a.Log.Warn("purge interactions failed", zap.Error(err))
				}
				continue
			}
			if n > 0 {
				a.Log.Info("purged interactions", zap.Int64("rows", n))
			}
		}
	}
}

func (a *App) Close() {
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
}
