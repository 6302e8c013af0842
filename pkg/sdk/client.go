package tourassist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tourassist/internal/db"
	"github.com/kailas-cloud/tourassist/internal/db/memory"
	dbRedis "github.com/kailas-cloud/tourassist/internal/db/redis"
	"github.com/kailas-cloud/tourassist/internal/domain"
	"github.com/kailas-cloud/tourassist/internal/domain/conversation"
	domcorpus "github.com/kailas-cloud/tourassist/internal/domain/corpus"
	corpusrepo "github.com/kailas-cloud/tourassist/internal/repository/corpus"
	"github.com/kailas-cloud/tourassist/internal/repository/embcache"
	"github.com/kailas-cloud/tourassist/internal/repository/handoff"
	openaiTransport "github.com/kailas-cloud/tourassist/internal/transport/openai"
	"github.com/kailas-cloud/tourassist/internal/usecase/assistant"
	embeddinguc "github.com/kailas-cloud/tourassist/internal/usecase/embedding"
	"github.com/kailas-cloud/tourassist/internal/usecase/generation"
	healthuc "github.com/kailas-cloud/tourassist/internal/usecase/health"
	"github.com/kailas-cloud/tourassist/internal/usecase/provider"
	searchuc "github.com/kailas-cloud/tourassist/internal/usecase/search"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultMaxInFlight      = 8
	defaultCallTimeout      = 30 * time.Second
	keyPrefix               = "tourassist:"
)

// Внутренние интерфейсы для подмены в тестах.
type assistantUseCase interface {
	Answer(ctx context.Context, req assistant.Request) (assistant.Reply, error)
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

// Client is the tourassist SDK entry point. Safe for concurrent use.
type Client struct {
	store     db.Store
	svc       assistantUseCase
	healthSvc healthUseCase
	obs       *observer
}

// New loads the corpus, connects the store and wires the assistant pipeline.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	vec := domain.DefaultVectorConfig()
	gen := domain.DefaultGenerationConfig()
	cfg := &clientConfig{
		embedModel:  vec.Model,
		chatModel:   gen.Model,
		temperature: gen.Temperature,
		maxTokens:   gen.MaxTokens,
		maxInFlight: defaultMaxInFlight,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.embedder == nil && cfg.generator == nil && cfg.openAIKey == "" {
		return nil, errors.New("tourassist: provider required (use WithOpenAI or WithEmbedder and WithGenerator)")
	}
	if (cfg.embedder == nil || cfg.generator == nil) && cfg.openAIKey == "" {
		return nil, errors.New("tourassist: both embedder and generator are required without WithOpenAI")
	}

	index, err := loadCorpus(cfg)
	if err != nil {
		return nil, err
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("tourassist: store not ready: %w", err)
	}

	return wireClient(store, index, cfg, obs), nil
}

func loadCorpus(cfg *clientConfig) (*domcorpus.Index, error) {
	switch {
	case cfg.corpusFile != "" && cfg.corpus != nil:
		return nil, errors.New("tourassist: WithCorpusFile and WithCorpus are mutually exclusive")
	case cfg.corpusFile != "":
		index, err := corpusrepo.Load(cfg.corpusFile, cfg.corpusFormat)
		if err != nil {
			return nil, fmt.Errorf("tourassist: load corpus: %w", err)
		}
		return index, nil
	case cfg.corpus != nil:
		entries := make([]domcorpus.Entry, 0, len(cfg.corpus))
		for _, ce := range cfg.corpus {
			e, err := domcorpus.NewEntry(ce.ID, ce.Title, ce.Description, ce.Vector)
			if err != nil {
				return nil, fmt.Errorf("tourassist: corpus entry %q: %w", ce.ID, err)
			}
			entries = append(entries, e)
		}
		index, err := domcorpus.NewIndex(entries)
		if err != nil {
			return nil, fmt.Errorf("tourassist: corpus: %w", err)
		}
		return index, nil
	default:
		return nil, errors.New("tourassist: corpus required (use WithCorpusFile or WithCorpus)")
	}
}

func createStore(cfg *clientConfig) (db.Store, error) {
	if cfg.redisAddr == "" {
		return memory.NewStore(), nil
	}
	s, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    []string{cfg.redisAddr},
		Password: cfg.redisPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("tourassist: create redis store: %w", err)
	}
	return s, nil
}

func wireClient(store db.Store, index *domcorpus.Index, cfg *clientConfig, obs *observer) *Client {
	logger := zap.NewNop()
	gate := provider.NewGate(cfg.maxInFlight, defaultCallTimeout)
	retry := provider.DefaultRetryPolicy()

	var embedder domain.Embedder
	if cfg.embedder != nil {
		embedder = &embedderAdapter{inner: cfg.embedder}
	} else {
		embedder = openaiTransport.NewEmbedder(&openaiTransport.Config{
			APIKey:     cfg.openAIKey,
			BaseURL:    cfg.openAIBaseURL,
			Model:      cfg.embedModel,
			Dimensions: index.Dim(),
			Provider:   "openai",
			Logger:     logger,
		})
	}
	// Cached -> Instrumented -> Instruction, как в сервисе
	embedder = embcache.New(embedder, store, embcache.Options{
		KeyPrefix: keyPrefix,
		Model:     cfg.embedModel,
		Logger:    logger,
	})
	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, embeddinguc.Options{
		Provider: "sdk",
		Model:    cfg.embedModel,
		Gate:     gate,
		Retry:    retry,
		Logger:   logger,
	})
	if cfg.queryInstruction != "" {
		embedder = domain.NewInstructionEmbedder(embedder, cfg.queryInstruction)
	}

	var gen generation.Generator
	if cfg.generator != nil {
		gen = &generatorAdapter{inner: cfg.generator}
	} else {
		gen = openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
			Config: openaiTransport.Config{
				APIKey:   cfg.openAIKey,
				BaseURL:  cfg.openAIBaseURL,
				Model:    cfg.chatModel,
				Provider: "openai",
				Logger:   logger,
			},
			Temperature: cfg.temperature,
			MaxTokens:   cfg.maxTokens,
		})
	}

	tmpl := assistant.DefaultTemplates()
	responder := generation.New(gen, generation.Options{
		Provider: "sdk",
		Model:    cfg.chatModel,
		Gate:     gate,
		Retry:    retry,
		Fallback: tmpl.ProviderFallback,
		Logger:   logger,
	})

	var sink assistant.HandoffSink
	if cfg.handoff != nil {
		sink = &handoffAdapter{inner: cfg.handoff}
	} else {
		sink = handoff.New(store, handoff.Options{KeyPrefix: keyPrefix, Logger: logger})
	}

	retriever := searchuc.New(index)
	svc := assistant.New(assistant.Deps{
		Embedder:  embedder,
		Retriever: retriever,
		Responder: responder,
		Handoff:   sink,
		Templates: tmpl,
		Logger:    logger,
	}, assistant.Config{TopK: cfg.topK})

	return &Client{
		store:     store,
		svc:       svc,
		healthSvc: healthuc.New(retriever, store, &providerHealth{embedder: embedder}),
		obs:       obs,
	}
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Answer routes one question with the caller-held history (oldest turn first).
// Only ErrValidation is returned; provider and corpus failures come back as fallback texts.
func (c *Client) Answer(ctx context.Context, question string, history []Turn, opts ...AnswerOption) (ans Answer, err error) {
	start := time.Now()
	defer func() { c.obs.answered(ans, start, err) }()

	var ac answerConfig
	for _, o := range opts {
		o(&ac)
	}

	h := make(conversation.History, len(history))
	for i, t := range history {
		h[i] = conversation.Turn{Sender: conversation.Sender(t.Sender), Text: t.Text}
	}

	reply, err := c.svc.Answer(ctx, assistant.Request{
		Question:       question,
		History:        h,
		ConversationID: ac.conversationID,
	})
	if err != nil {
		return Answer{}, fmt.Errorf("answer: %w", err)
	}

	ans = Answer{
		Text:           reply.Text,
		Intent:         reply.Intent.String(),
		Branch:         string(reply.Branch),
		ConversationID: reply.ConversationID,
		Sources:        reply.Sources,
	}
	if reply.Branch == assistant.BranchDialogue {
		ans.State = reply.State.String()
	}
	return ans, nil
}

// embedderAdapter wraps public Embedder to satisfy internal domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// generatorAdapter wraps public Generator to satisfy generation.Generator.
type generatorAdapter struct {
	inner Generator
}

func (a *generatorAdapter) Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error) {
	msgs := make([]Message, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = Message{Role: Role(m.Role), Content: m.Content}
	}
	text, err := a.inner.Complete(ctx, msgs, req.JSON)
	if err != nil {
		return domain.Completion{}, fmt.Errorf("%w: %w", domain.ErrProviderError, err)
	}
	return domain.Completion{Text: text}, nil
}

// handoffAdapter wraps public HandoffSink to satisfy assistant.HandoffSink.
type handoffAdapter struct {
	inner HandoffSink
}

func (a *handoffAdapter) Submit(ctx context.Context, h conversation.Handoff) error {
	err := a.inner.Submit(ctx, Handoff{Name: h.Name, Phone: h.Phone, ConversationID: h.ConversationID})
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrHandoffFailed, err)
	}
	return nil
}
