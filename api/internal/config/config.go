package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port      string `mapstructure:"port"`
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	DefaultEngine string `mapstructure:"default_engine"`

	GeminiAPIKey    string `mapstructure:"gemini_api_key"`
	GeminiModel     string `mapstructure:"gemini_model"`
	OpenAIAPIKey    string `mapstructure:"openai_api_key"`
	OpenAIModel     string `mapstructure:"openai_model"`
	OpenAIBaseURL   string `mapstructure:"openai_base_url"`
	DeepseekAPIKey  string `mapstructure:"deepseek_api_key"`
	DeepseekModel   string `mapstructure:"deepseek_model"`
	DeepseekBaseURL string `mapstructure:"deepseek_base_url"`

	ChatMaxTokens   int     `mapstructure:"chat_max_tokens"`
	ChatTemperature float32 `mapstructure:"chat_temperature"`
	ChatTopP        float32 `mapstructure:"chat_top_p"`
	NLUMaxTokens    int     `mapstructure:"nlu_max_tokens"`
	NLUTemperature  float32 `mapstructure:"nlu_temperature"`
	NLUStructured   bool    `mapstructure:"nlu_structured"`

	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	DatabaseURL      string        `mapstructure:"database_url"`
	HistoryLimit     int           `mapstructure:"history_limit"`
	HistoryRetention time.Duration `mapstructure:"history_retention"` // 0: не чистить

	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`

	TelegramBotToken string `mapstructure:"telegram_bot_token"`
	WebhookURL       string `mapstructure:"webhook_url"`

	PromptDir string `mapstructure:"prompt_dir"`
}

var defaults = map[string]any{
	"port":              "8000",
	"log_level":         "info",
	"log_format":        "json",
	"default_engine":    "gemini",
	"gemini_api_key":    "",
	"gemini_model":      "gemini-2.5-flash",
	"openai_api_key":    "",
	"openai_model":      "gpt-4.1-mini",
	"openai_base_url":   "https://api.openai.com/v1",
	"deepseek_api_key":  "",
	"deepseek_model":    "deepseek-chat",
	"deepseek_base_url": "https://api.deepseek.com/v1",

	"chat_max_tokens":  256,
	"chat_temperature": 0.3,
	"chat_top_p":       0.8,
	"nlu_max_tokens":   256,
	"nlu_temperature":  0.0,
	"nlu_structured":   true,

	"request_timeout": "70s",

	"database_url":      "",
	"history_limit":     10,
	"history_retention": "720h",

	"redis_addr":     "",
	"redis_password": "",
	"redis_db":       0,
	"cache_ttl":      "24h",

	"telegram_bot_token": "",
	"webhook_url":        "",

	"prompt_dir": "",
}

// Load читает .env (если есть), config.yaml (если есть) и переменные окружения.
// Окружение имеет приоритет над файлом.
func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = postgresDSNFromEnv()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.GeminiAPIKey == "" && c.OpenAIAPIKey == "" && c.DeepseekAPIKey == "" {
		return errors.New("at least one of GEMINI_API_KEY, OPENAI_API_KEY, DEEPSEEK_API_KEY is required")
	}
	switch strings.ToLower(c.DefaultEngine) {
	case "gemini", "gpt", "openai", "deepseek":
	default:
		return fmt.Errorf("default_engine %q is unknown", c.DefaultEngine)
	}
	if c.RequestTimeout <= 0 {
		return errors.New("request_timeout must be positive")
	}
	if c.HistoryLimit < 0 {
		return errors.New("history_limit must not be negative")
	}
	if c.HistoryRetention < 0 {
		return errors.New("history_retention must not be negative")
	}
	return nil
}

func loadEnvFile() {
	for _, p := range []string{".env", filepath.Join("..", ".env")} {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			return
		}
	}
}

// postgresDSNFromEnv собирает DSN из POSTGRES_* / PG*; без POSTGRES_DB: пусто (хранилище выключено).
func postgresDSNFromEnv() string {
	db := strings.TrimSpace(os.Getenv("POSTGRES_DB"))
	if db == "" {
		return ""
	}
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(getenvDefault("POSTGRES_USER", "sani"), os.Getenv("POSTGRES_PASSWORD")),
		Host:     net.JoinHostPort(getenvDefault("PGHOST", "db"), getenvDefault("PGPORT", "5432")),
		Path:     "/" + db,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

func getenvDefault(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

// SafeDSNSummary: DSN без пароля, для логов.
func SafeDSNSummary(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "dsn: parse error"
	}
	user := u.User.Username()
	host := u.Host
	port := ""
	if h, p, err := net.SplitHostPort(u.Host); err == nil {
		host, port = h, p
	}
	db := strings.TrimPrefix(u.Path, "/")
	if port == "" {
		return fmt.Sprintf("host=%s db=%s user=%s", host, db, user)
	}
	return fmt.Sprintf("host=%s port=%s db=%s user=%s", host, port, db, user)
}
