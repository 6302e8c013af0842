package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tourassist/internal/config"
	"github.com/kailas-cloud/tourassist/internal/db"
	"github.com/kailas-cloud/tourassist/internal/db/memory"
	dbRedis "github.com/kailas-cloud/tourassist/internal/db/redis"
	"github.com/kailas-cloud/tourassist/internal/domain"
	"github.com/kailas-cloud/tourassist/internal/domain/intent"
	"github.com/kailas-cloud/tourassist/internal/domain/prompt"
	logpkg "github.com/kailas-cloud/tourassist/internal/logger"
	"github.com/kailas-cloud/tourassist/internal/metrics"
	corpusrepo "github.com/kailas-cloud/tourassist/internal/repository/corpus"
	"github.com/kailas-cloud/tourassist/internal/repository/embcache"
	"github.com/kailas-cloud/tourassist/internal/repository/handoff"
	chiTransport "github.com/kailas-cloud/tourassist/internal/transport/chi"
	openaiTransport "github.com/kailas-cloud/tourassist/internal/transport/openai"
	"github.com/kailas-cloud/tourassist/internal/usecase/assistant"
	"github.com/kailas-cloud/tourassist/internal/usecase/dialogue"
	embeddinguc "github.com/kailas-cloud/tourassist/internal/usecase/embedding"
	"github.com/kailas-cloud/tourassist/internal/usecase/generation"
	healthuc "github.com/kailas-cloud/tourassist/internal/usecase/health"
	"github.com/kailas-cloud/tourassist/internal/usecase/provider"
	searchuc "github.com/kailas-cloud/tourassist/internal/usecase/search"
	"github.com/kailas-cloud/tourassist/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting tourassist API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("corpus", cfg.Corpus.Path),
	)

	// Register metrics explicitly (no init())
	metrics.RegisterProviderMetrics()
	metrics.RegisterAssistantMetrics()

	store := openStore(cfg, logger)
	defer store.Close()

	// Corpus is loaded once, before the listener starts
	index, err := corpusrepo.Load(cfg.Corpus.Path, cfg.Corpus.Format)
	if err != nil {
		logger.Fatal("Failed to load corpus", zap.Error(err))
	}
	metrics.CorpusEntries.Set(float64(index.Len()))
	if cfg.Embedding.Dimensions > 0 && index.Len() > 0 && index.Dim() != cfg.Embedding.Dimensions {
		logger.Fatal("Corpus dimension does not match embedding.dimensions",
			zap.Int("corpus_dim", index.Dim()),
			zap.Int("config_dim", cfg.Embedding.Dimensions),
		)
	}
	if index.Len() == 0 {
		logger.Warn("Corpus is empty, RAG answers are disabled")
	}
	logger.Info("Corpus loaded", zap.Int("entries", index.Len()), zap.Int("dim", index.Dim()))

	// One gate and one retry policy for every outbound provider call
	gate := provider.NewGate(cfg.Limits.MaxInFlight, time.Duration(cfg.Limits.CallTimeoutSec)*time.Second)
	retry := provider.RetryPolicy{
		MaxRetries: *cfg.Limits.Retry.MaxRetries,
		BaseDelay:  time.Duration(cfg.Limits.Retry.BaseDelayMs) * time.Millisecond,
		MaxDelay:   time.Duration(cfg.Limits.Retry.MaxDelayMs) * time.Millisecond,
	}

	queryEmbedder := buildEmbedder(cfg, cfg.Embedding.QueryInstruction, store, gate, retry, logger)
	logger.Info("Embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	genProv := cfg.Providers[cfg.Generation.Provider]
	generator := openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
		Config: openaiTransport.Config{
			APIKey:   genProv.APIKey,
			BaseURL:  genProv.BaseURL,
			Model:    cfg.Generation.Model,
			Provider: cfg.Generation.Provider,
			Logger:   logger,
		},
		Temperature: cfg.Generation.Temperature,
		MaxTokens:   cfg.Generation.MaxTokens,
	})

	tmpl := assistantTemplates(cfg.Assistant.Templates).Merge(assistant.DefaultTemplates())
	responder := generation.New(generator, generation.Options{
		Provider: cfg.Generation.Provider,
		Model:    cfg.Generation.Model,
		Gate:     gate,
		Retry:    retry,
		Fallback: tmpl.ProviderFallback,
		Logger:   logger,
	})

	classifier, err := buildClassifier(cfg.Assistant.Intents)
	if err != nil {
		logger.Fatal("Invalid intent table", zap.Error(err))
	}

	dlg := buildDialogue(cfg, tmpl, responder, logger)

	builder := prompt.NewBuilder(
		prompt.WithBudget(cfg.Retrieval.ContextBudgetChars),
		prompt.WithSystemTemplate(cfg.Assistant.SystemPrompt),
		prompt.WithDefaultLanguage(cfg.Assistant.DefaultLanguage),
	)

	sink := handoff.New(store, handoff.Options{
		KeyPrefix: cfg.Storage.KeyPrefix,
		TTL:       time.Duration(cfg.Handoff.TTLSec) * time.Second,
		Logger:    logger,
	})

	retriever := searchuc.New(index)
	assistantSvc := assistant.New(assistant.Deps{
		Classifier: classifier,
		Dialogue:   dlg,
		Embedder:   queryEmbedder,
		Retriever:  retriever,
		Builder:    builder,
		Responder:  responder,
		Handoff:    sink,
		Templates:  tmpl,
		Logger:     logger,
	}, assistant.Config{
		TopK:             cfg.Retrieval.TopK,
		MaxQuestionChars: cfg.Assistant.MaxQuestionChars,
		MaxHistoryTurns:  cfg.Assistant.MaxHistoryTurns,
	})

	healthSvc := healthuc.New(retriever, store, newEmbeddingHealthChecker(queryEmbedder))

	server := chiTransport.NewServer(assistantSvc, healthSvc, tmpl.ProviderFallback, logger)
	handler := chiTransport.NewRouter(server, chiTransport.RouterConfig{
		APIKeys:        cfg.Auth.APIKeys,
		RequestTimeout: time.Duration(cfg.Assistant.RequestTimeoutSec) * time.Second,
	}, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// openStore connects the KV store used by the embedding cache and the handoff sink.
func openStore(cfg config.Config, logger *zap.Logger) db.Store {
	var (
		store db.Store
		err   error
	)
	switch cfg.Database.Driver {
	case "redis":
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Username: cfg.Database.Username,
			Password: cfg.Database.Password,
			DB:       cfg.Database.DB,
		})
	case "memory":
		logger.Warn("Using in-memory store, handoffs are lost on restart")
		store = memory.NewStore()
	default:
		logger.Fatal("Unknown database driver", zap.String("driver", cfg.Database.Driver))
	}
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}

	// Wait for database to be ready
	timeout := time.Duration(cfg.Database.ReadinessTimeout) * time.Second
	if err := store.WaitForReady(context.Background(), timeout); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")
	return store
}

// embeddingHealthChecker wraps domain.Embedder to implement health.ProviderChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction
func buildEmbedder(
	cfg config.Config,
	instruction string,
	store db.KVStore,
	gate *provider.Gate,
	retry provider.RetryPolicy,
	logger *zap.Logger,
) domain.Embedder {
	provName := cfg.Embedding.Provider
	provCfg := cfg.Providers[provName]

	// Base provider (with transport metrics built-in)
	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     provCfg.APIKey,
		BaseURL:    provCfg.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   provName,
		Logger:     logger,
	})

	// Cached
	var embedder domain.Embedder = base
	if store != nil {
		embedder = embcache.New(base, store, embcache.Options{
			KeyPrefix:  cfg.Storage.KeyPrefix,
			Model:      cfg.Embedding.Model,
			TTL:        time.Duration(cfg.Embedding.CacheTTLSec) * time.Second,
			CacheTotal: metrics.EmbeddingCacheTotal,
			Logger:     logger,
		})
	}

	// Instrumented (gate + retries)
	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, embeddinguc.Options{
		Provider: provName,
		Model:    cfg.Embedding.Model,
		Gate:     gate,
		Retry:    retry,
		Logger:   logger,
	})

	// Instruction prefix (outermost, the cache key includes the instruction)
	if instruction != "" {
		return domain.NewInstructionEmbedder(embedder, instruction)
	}

	return embedder
}

// buildClassifier compiles the configured intent table; empty means the built-in one.
func buildClassifier(rules []config.IntentRuleConfig) (*intent.Classifier, error) {
	if len(rules) == 0 {
		return intent.NewClassifier(intent.DefaultTable()), nil
	}
	table := make([]intent.Rule, 0, len(rules))
	for i, r := range rules {
		in, err := intent.Parse(r.Intent)
		if err != nil {
			return nil, fmt.Errorf("assistant.intents[%d]: %w", i, err)
		}
		table = append(table, intent.Rule{Intent: in, Keywords: r.Keywords})
	}
	return intent.NewClassifier(table), nil
}

// buildDialogue wires the slot-filling dialogue. The LLM extractor always falls back to patterns.
func buildDialogue(cfg config.Config, tmpl assistant.Templates, llm dialogue.Completer, logger *zap.Logger) *dialogue.Dialogue {
	t := cfg.Assistant.Templates
	dt := dialogue.Templates{
		AskName:       t.AskName,
		AskNameAgain:  t.AskNameAgain,
		AskPhone:      t.AskPhone,
		AskPhoneAgain: t.AskPhoneAgain,
		Confirmation:  t.Confirmation,
		Openers:       []string{tmpl.PrivateTourHandoff},
	}

	opts := []dialogue.Option{dialogue.WithTemplates(dt), dialogue.WithLogger(logger)}
	if cfg.Dialogue.Extractor == "llm" {
		// паттерны нужны как запасной вариант; их строит сам диалог
		base := dialogue.New(opts...)
		opts = append(opts, dialogue.WithExtractor(&dialogue.FallbackExtractor{
			Primary:   dialogue.NewLLMExtractor(llm, cfg.Dialogue.MinConfidence),
			Secondary: base.Pattern(),
			Logger:    logger,
		}))
		logger.Info("Slot extractor", zap.String("kind", "llm"), zap.Float64("min_confidence", cfg.Dialogue.MinConfidence))
	}
	return dialogue.New(opts...)
}

func assistantTemplates(t config.TemplatesConfig) assistant.Templates {
	return assistant.Templates{
		Greeting:           t.Greeting,
		CompanyInfo:        t.CompanyInfo,
		PrivateTourHandoff: t.PrivateTourHandoff,
		CorpusUnavailable:  t.CorpusUnavailable,
		ProviderFallback:   t.ProviderFallback,
		HandoffFailed:      t.HandoffFailed,
	}
}
