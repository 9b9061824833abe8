package service

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"sani-bot/api/internal/cache"
	"sani-bot/api/internal/llm"
	"sani-bot/api/internal/metrics"
	"sani-bot/api/internal/prompt"
	"sani-bot/api/internal/sani"
	"sani-bot/api/internal/store"
)

// FallbackReply показываем, когда после очистки от ответа ничего не осталось.
const FallbackReply = "Maaf, SANI belum bisa menjawab pertanyaan itu. Coba tanyakan dengan kalimat lain ya."

// Recorder: журнал реплик (store.InteractionRepo).
type Recorder interface {
	Append(ctx context.Context, it store.Interaction) error
}

type Options struct {
	Prompts       prompt.Set
	ChatParams    llm.Params
	NLUParams     llm.Params
	NLUStructured bool

	Cache    *cache.Cache // nil: без кэша классификатора
	Recorder Recorder     // nil: без журнала
	Log      *zap.Logger
}

func DefaultChatParams() llm.Params {
	return llm.Params{MaxTokens: 256, Temperature: 0.3, TopP: 0.8}
}

func DefaultNLUParams() llm.Params {
	return llm.Params{MaxTokens: 256, Temperature: 0, JSON: true}
}

type Service struct {
	engines       *llm.Engines
	prompts       atomic.Pointer[prompt.Set]
	chatParams    llm.Params
	nluParams     llm.Params
	nluStructured bool

	sanitizer *sani.Sanitizer
	gate      *sani.Gate
	mapper    *sani.Mapper

	cache *cache.Cache
	rec   Recorder
	log   *zap.Logger
}

func New(engs *llm.Engines, opt Options) *Service {
	if opt.Log == nil {
		opt.Log = zap.NewNop()
	}
	s := &Service{
		engines:       engs,
		chatParams:    opt.ChatParams,
		nluParams:     opt.NLUParams,
		nluStructured: opt.NLUStructured,
		sanitizer:     sani.NewSanitizer(),
		gate:          sani.NewGate(),
		mapper:        sani.NewMapper(sani.DefaultKeywords),
		cache:         opt.Cache,
		rec:           opt.Recorder,
		log:           opt.Log,
	}
	s.SetPrompts(opt.Prompts)
	return s
}

// SetPrompts подменяет набор промптов на лету (после POST /api/prompt).
func (s *Service) SetPrompts(p prompt.Set) {
	s.prompts.Store(&p)
}

func (s *Service) Prompts() prompt.Set { return *s.prompts.Load() }

// Engines отдаёт реестр движков (для /engine в боте и /healthz).
func (s *Service) Engines() *llm.Engines { return s.engines }

type ChatResult struct {
	Reply    string `json:"reply"`
	Fallback bool   `json:"-"`
	Engine   string `json:"-"`
}

// Chat: разговорная ветка, ответ модели всегда проходит через санитайзер.
func (s *Service) Chat(ctx context.Context, engineName string, history []sani.ChatTurn, message string) (ChatResult, error) {
	eng, err := s.engines.GetEngine(engineName)
	if err != nil {
		return ChatResult{}, err
	}
	res, err := s.chat(ctx, eng, history, message)
	if err != nil {
		return ChatResult{}, err
	}
	s.record(ctx, eng.Name(), message, res.Reply, nil)
	return res, nil
}

func (s *Service) chat(ctx context.Context, eng llm.Engine, history []sani.ChatTurn, message string) (ChatResult, error) {
	msgs := make([]llm.Message, 0, len(history)+2)
	if sys := s.Prompts().Chat; sys != "" {
		msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: sys})
	}
	for _, t := range history {
		if !t.Valid() || strings.TrimSpace(t.Content) == "" {
			continue
		}
		msgs = append(msgs, llm.Message{Role: llm.Role(t.Role), Content: t.Content})
	}
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: message})

	raw, err := s.generate(ctx, eng, "chat", msgs, s.chatParams)
	if err != nil {
		return ChatResult{}, &sani.UpstreamError{Op: "chat", Err: err}
	}
	out := ChatResult{Reply: s.sanitizer.Sanitize(raw), Engine: eng.Name()}
	if strings.TrimSpace(out.Reply) == "" {
		metrics.SanitizerFallbacks.Inc()
		s.log.Info("empty reply after sanitize", zap.String("engine", eng.Name()), zap.Int("raw_len", len(raw)))
		out.Reply = FallbackReply
		out.Fallback = true
	}
	return out, nil
}

// Ask: теговая ветка, [RESPONSE]/[ACTION] разбираются в StructuredReply.
func (s *Service) Ask(ctx context.Context, engineName, message string) (sani.StructuredReply, error) {
	eng, err := s.engines.GetEngine(engineName)
	if err != nil {
		return sani.StructuredReply{}, err
	}
	msgs := []llm.Message{
		{Role: llm.RoleSystem, Content: s.Prompts().Assistant},
		{Role: llm.RoleUser, Content: message},
	}
	raw, err := s.generate(ctx, eng, "ask", msgs, s.chatParams)
	if err != nil {
		return sani.StructuredReply{}, &sani.UpstreamError{Op: "ask", Err: err}
	}
	out := sani.ExtractStructuredReply(raw)
	if out.Intent != nil {
		if _, ok := out.Canonical(); !ok {
			s.log.Warn("non-canonical action intent", zap.String("intent", *out.Intent))
		}
	}
	return out, nil
}

// ParseIntent: гейт, классификатор, парсер NLU и маппер.
func (s *Service) ParseIntent(ctx context.Context, engineName, message string) (sani.IntentParseResult, error) {
	eng, err := s.engines.GetEngine(engineName)
	if err != nil {
		return sani.IntentParseResult{}, err
	}
	res, err := s.parseIntent(ctx, eng, message)
	if err != nil {
		return sani.IntentParseResult{}, err
	}
	s.record(ctx, eng.Name(), message, "", &res)
	return res, nil
}

func (s *Service) parseIntent(ctx context.Context, eng llm.Engine, message string) (sani.IntentParseResult, error) {
	var gen llm.Engine = eng
	if s.cache != nil {
		gen = cache.Wrap(eng, s.cache, s.log)
	}
	p := s.Prompts()
	params := s.nluParams
	if s.nluStructured && p.NLUSchema != nil {
		params.Schema = &llm.Schema{Name: "sani_intent_schema", Body: p.NLUSchema}
	}
	c := &sani.Classifier{
		Generator: s.timed(gen, "nlu"),
		Prompt:    p.NLU,
		Params:    params,
		Gate:      s.gate,
		Mapper:    s.mapper,
	}
	d, err := c.Decide(ctx, message)
	if err != nil {
		return sani.IntentParseResult{}, err
	}
	if d.Gated {
		metrics.GateShortCircuits.Inc()
	} else {
		metrics.NLUParseStages.WithLabelValues(string(d.Stage)).Inc()
		if d.Stage == sani.StageFailed {
			s.log.Warn("nlu reply not parseable", zap.String("engine", eng.Name()), zap.Int("raw_len", len(d.Raw)))
		}
	}
	metrics.Intents.WithLabelValues(d.Result.Intent.String()).Inc()
	return d.Result, nil
}

type TurnResult struct {
	Reply  string                 `json:"reply"`
	Intent sani.IntentParseResult `json:"intent"`
}

// Turn выполняет чат и классификацию параллельно. Сбой классификатора не
// ломает ответ: интент будет OTHER.
func (s *Service) Turn(ctx context.Context, engineName string, history []sani.ChatTurn, message string) (TurnResult, error) {
	eng, err := s.engines.GetEngine(engineName)
	if err != nil {
		return TurnResult{}, err
	}
	return s.TurnWith(ctx, eng, history, message)
}

// TurnWith: то же, что Turn, но с уже выбранным движком (бот с моделью на чат).
func (s *Service) TurnWith(ctx context.Context, eng llm.Engine, history []sani.ChatTurn, message string) (TurnResult, error) {
	var (
		chatRes ChatResult
		intent  = sani.IntentParseResult{Intent: sani.Other, Slots: sani.Slots{}}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		chatRes, err = s.chat(gctx, eng, history, message)
		return err
	})
	g.Go(func() error {
		res, err := s.parseIntent(gctx, eng, message)
		if err != nil {
			s.log.Warn("intent classification failed", zap.String("engine", eng.Name()), zap.Error(err))
			return nil
		}
		intent = res
		return nil
	})
	if err := g.Wait(); err != nil {
		return TurnResult{}, err
	}
	s.record(ctx, eng.Name(), message, chatRes.Reply, &intent)
	return TurnResult{Reply: chatRes.Reply, Intent: intent}, nil
}

func (s *Service) generate(ctx context.Context, eng llm.Engine, op string, msgs []llm.Message, p llm.Params) (string, error) {
	return s.timed(eng, op).Generate(ctx, msgs, p)
}

// timed оборачивает генератор метриками длительности и ошибок.
func (s *Service) timed(eng llm.Engine, op string) llm.Generator {
	return llm.GeneratorFunc(func(ctx context.Context, msgs []llm.Message, p llm.Params) (string, error) {
		start := time.Now()
		out, err := eng.Generate(ctx, msgs, p)
		metrics.GenerateDuration.WithLabelValues(eng.Name(), op).Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.GenerateErrors.WithLabelValues(eng.Name(), op).Inc()
			s.log.Warn("generate failed", zap.String("engine", eng.Name()), zap.String("op", op), zap.Error(err))
		}
		return out, err
	})
}

type convKey struct{}

type conversation struct {
	channel string
	chatID  string
}

// WithConversation помечает ctx каналом и чатом; только такие вызовы попадают в журнал.
func WithConversation(ctx context.Context, channel, chatID string) context.Context {
	return context.WithValue(ctx, convKey{}, conversation{channel: channel, chatID: chatID})
}

func (s *Service) record(ctx context.Context, engine, userMsg, reply string, intent *sani.IntentParseResult) {
	if s.rec == nil {
		return
	}
	conv, ok := ctx.Value(convKey{}).(conversation)
	if !ok || conv.chatID == "" {
		return
	}
	user := store.Interaction{
		Channel: conv.channel,
		ChatID:  conv.chatID,
		Role:    sani.RoleUser,
		Content: userMsg,
		Engine:  engine,
	}
	if intent != nil {
		user.Intent = intent.Intent
		user.Slots = intent.Slots
	}
	items := []store.Interaction{user}
	if reply != "" {
		items = append(items, store.Interaction{
			Channel: conv.channel,
			ChatID:  conv.chatID,
			Role:    sani.RoleAssistant,
			Content: reply,
			Engine:  engine,
		})
	}
	for _, it := range items {
		if err := s.rec.Append(ctx, it); err != nil {
			s.log.Warn("record interaction failed", zap.String("chat_id", conv.chatID), zap.Error(err))
			return
		}
	}
}

// Describe: короткая строка для логов запуска.
func (s *Service) Describe() string {
	return fmt.Sprintf("engines=%v default=%s cache=%t audit=%t",
		s.engines.Available(), s.engines.Default, s.cache != nil, s.rec != nil)
}
