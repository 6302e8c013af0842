// Offline corpus builder for tourassist.
// Reads tours from a JSON export or the storefront MongoDB, embeds title + description
// with the document instruction and writes the corpus file the service loads at startup.
//
// Использование:
//
//	corpusbuild -source json -input tours.json -output data/corpus.parquet
//	corpusbuild -source mongo -mongo-uri mongodb://localhost:27017 -mongo-db shop -output data/corpus.jsonl
//
// Embedding provider, model and instruction come from config/<ENV>.yaml, the same as the service.
package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tourassist/internal/config"
	"github.com/kailas-cloud/tourassist/internal/domain"
	logpkg "github.com/kailas-cloud/tourassist/internal/logger"
	"github.com/kailas-cloud/tourassist/internal/metrics"
	corpusrepo "github.com/kailas-cloud/tourassist/internal/repository/corpus"
	openaiTransport "github.com/kailas-cloud/tourassist/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/tourassist/internal/usecase/embedding"
	"github.com/kailas-cloud/tourassist/internal/usecase/provider"
)

type options struct {
	source          string
	input           string
	mongoURI        string
	mongoDB         string
	mongoCollection string
	onlyPublished   bool
	output          string
	format          string
	batchSize       int
	workers         int
	metricsPort     string
}

func parseFlags() options {
	o := options{}
	flag.StringVar(&o.source, "source", "json", "tour source: json or mongo")
	flag.StringVar(&o.input, "input", "tours.json", "JSON export path (source=json)")
	flag.StringVar(&o.mongoURI, "mongo-uri", "mongodb://localhost:27017", "MongoDB URI (source=mongo)")
	flag.StringVar(&o.mongoDB, "mongo-db", "storefront", "MongoDB database (source=mongo)")
	flag.StringVar(&o.mongoCollection, "mongo-collection", "tours", "MongoDB collection (source=mongo)")
	flag.BoolVar(&o.onlyPublished, "only-published", true, "skip tours with published=false (source=mongo)")
	flag.StringVar(&o.output, "output", "data/corpus.json", "corpus file to write")
	flag.StringVar(&o.format, "format", corpusrepo.FormatAuto, "output format: auto, json, jsonl, parquet")
	flag.IntVar(&o.batchSize, "batch-size", embeddinguc.DefaultMaxAPIBatchSize, "texts per embedding request")
	flag.IntVar(&o.workers, "workers", 4, "parallel embedding requests")
	flag.StringVar(&o.metricsPort, "metrics-port", "", "serve Prometheus metrics on this port (empty = off)")
	flag.Parse()
	return o
}

func main() {
	opts := parseFlags()

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

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := run(ctx, cfg, opts, logger); err != nil {
		cancel()
		logger.Fatal("corpus build failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, opts options, logger *zap.Logger) error {
	start := time.Now()

	metrics.RegisterProviderMetrics()
	reg := prometheus.NewRegistry()
	bm := newBuildMetrics(reg)
	if opts.metricsPort != "" {
		srv := serveMetrics(opts.metricsPort, reg, logger)
		defer func() {
			shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutCancel()
			_ = srv.Shutdown(shutCtx)
		}()
	}

	src, err := openSource(ctx, opts, logger)
	if err != nil {
		return err
	}
	defer src.Close(context.Background())

	logger.Info("=== Stage 1: Read tours ===", zap.String("source", opts.source))
	tours, err := src.Tours(ctx)
	if err != nil {
		return fmt.Errorf("read tours: %w", err)
	}
	logger.Info("tours read", zap.Int("count", len(tours)))

	logger.Info("=== Stage 2: Embed ===",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
	)
	b := &builder{
		embedder:  buildEmbedder(cfg, logger),
		batchSize: opts.batchSize,
		workers:   opts.workers,
		metrics:   bm,
		logger:    logger,
	}
	records, err := b.Build(ctx, tours)
	if err != nil {
		return fmt.Errorf("embed tours: %w", err)
	}

	logger.Info("=== Stage 3: Write ===", zap.String("output", opts.output))
	if err := corpusrepo.Write(opts.output, opts.format, records); err != nil {
		return fmt.Errorf("write corpus: %w", err)
	}

	// Файл должен открываться так же, как его откроет сервис
	idx, err := corpusrepo.Load(opts.output, opts.format)
	if err != nil {
		return fmt.Errorf("verify corpus: %w", err)
	}

	logger.Info("DONE",
		zap.Int("entries", idx.Len()),
		zap.Int("dim", idx.Dim()),
		zap.Duration("elapsed", time.Since(start).Round(time.Millisecond)),
	)
	return nil
}

func openSource(ctx context.Context, opts options, logger *zap.Logger) (tourSource, error) {
	switch opts.source {
	case "json":
		return &jsonSource{path: opts.input}, nil
	case "mongo":
		return newMongoSource(ctx, mongoOptions{
			URI:           opts.mongoURI,
			Database:      opts.mongoDB,
			Collection:    opts.mongoCollection,
			OnlyPublished: opts.onlyPublished,
		}, logger)
	}
	return nil, fmt.Errorf("unknown source %q (want json or mongo)", opts.source)
}

// buildEmbedder assembles OpenAI -> Instrumented -> Instruction, the document-side twin of the service chain.
func buildEmbedder(cfg config.Config, logger *zap.Logger) domain.BatchEmbedder {
	provCfg := cfg.Providers[cfg.Embedding.Provider]
	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     provCfg.APIKey,
		BaseURL:    provCfg.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})

	embedder := embeddinguc.NewInstrumentedEmbedder(base, embeddinguc.Options{
		Provider: cfg.Embedding.Provider,
		Model:    cfg.Embedding.Model,
		Gate:     provider.NewGate(cfg.Limits.MaxInFlight, time.Duration(cfg.Limits.CallTimeoutSec)*time.Second),
		Retry: provider.RetryPolicy{
			MaxRetries: *cfg.Limits.Retry.MaxRetries,
			BaseDelay:  time.Duration(cfg.Limits.Retry.BaseDelayMs) * time.Millisecond,
			MaxDelay:   time.Duration(cfg.Limits.Retry.MaxDelayMs) * time.Millisecond,
		},
		Logger: logger,
	})
	return domain.NewInstructionEmbedder(embedder, cfg.Embedding.DocumentInstruction)
}
