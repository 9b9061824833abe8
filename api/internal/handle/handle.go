package handle

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"sani-bot/api/internal/llm"
	"sani-bot/api/internal/metrics"
	"sani-bot/api/internal/sani"
	"sani-bot/api/internal/service"
)

const maxBody = 1 << 20

// Pinger: проверка зависимостей для /healthz (например, *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Handle struct {
	svc       *service.Service
	log       *zap.Logger
	timeout   time.Duration
	promptDir string
	db        Pinger
}

type Options struct {
	Timeout   time.Duration
	PromptDir string
	DB        Pinger // nil: хранилище выключено
	Log       *zap.Logger
}

func New(svc *service.Service, opt Options) *Handle {
	if opt.Log == nil {
		opt.Log = zap.NewNop()
	}
	if opt.Timeout <= 0 {
		opt.Timeout = 70 * time.Second
	}
	return &Handle{
		svc:       svc,
		log:       opt.Log,
		timeout:   opt.Timeout,
		promptDir: opt.PromptDir,
		db:        opt.DB,
	}
}

// Register вешает все ручки на mux.
func (h *Handle) Register(mux *http.ServeMux) {
	mux.Handle("/api/chat", h.wrap("chat", h.Chat))
	mux.Handle("/api/parse-intent", h.wrap("parse_intent", h.ParseIntent))
	mux.Handle("/api/turn", h.wrap("turn", h.Turn))
	mux.Handle("/sani/chat", h.wrap("sani_chat", h.SaniChat))
	mux.Handle("/api/prompt", h.wrap("prompt", h.UpdatePrompt))
	mux.Handle("/healthz", h.wrap("healthz", h.Healthz))
	mux.Handle("/metrics", promhttp.Handler())
}

type ctxKey struct{}

// logger достаёт логгер запроса с request_id.
func (h *Handle) logger(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok {
		return l
	}
	return h.log
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// wrap добавляет request id, CORS для веб-клиента и счётчик запросов.
func (h *Handle) wrap(endpoint string, fn http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := r.Header.Get("X-Request-ID")
		if rid == "" {
			rid = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", rid)
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		if r.Method == http.MethodOptions {
			sw.WriteHeader(http.StatusNoContent)
			return
		}

		l := h.log.With(zap.String("request_id", rid), zap.String("endpoint", endpoint))
		ctx := context.WithValue(r.Context(), ctxKey{}, l)
		start := time.Now()
		fn(sw, r.WithContext(ctx))

		metrics.Requests.WithLabelValues(endpoint, strconv.Itoa(sw.code)).Inc()
		l.Debug("request done", zap.Int("code", sw.code), zap.Duration("took", time.Since(start)))
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}

// statusFor: ошибка выбора движка 400, сбой модели 503, остальное 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, llm.ErrUnknownEngine), errors.Is(err, llm.ErrNotConfigured):
		return http.StatusBadRequest
	case errors.Is(err, sani.ErrUpstream):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handle) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	code := statusFor(err)
	h.logger(r.Context()).Warn(op+" failed", zap.Int("code", code), zap.Error(err))
	writeError(w, code, op+" error: "+err.Error())
}

// decodePOST проверяет метод и читает JSON с лимитом тела.
func decodePOST(w http.ResponseWriter, r *http.Request, dst any, limit int64) bool {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return false
	}
	defer r.Body.Close()
	if err := json.NewDecoder(io.LimitReader(r.Body, limit)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "bad json: "+err.Error())
		return false
	}
	return true
}
