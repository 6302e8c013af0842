package tourassist

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	corpusFile   string
	corpusFormat string
	corpus       []CorpusEntry

	openAIKey     string
	openAIBaseURL string
	embedModel    string
	chatModel     string
	temperature   float32
	maxTokens     int

	embedder  Embedder
	generator Generator

	redisAddr     string
	redisPassword string

	handoff HandoffSink

	queryInstruction string
	topK             int
	maxInFlight      int

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithCorpusFile loads the corpus from a .json, .jsonl or .parquet file built by corpusbuild.
func WithCorpusFile(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.corpusFile = path
	})
}

// WithCorpusFormat forces the corpus file format ("json", "jsonl", "parquet").
// Default: inferred from the extension.
func WithCorpusFormat(format string) Option {
	return optionFunc(func(c *clientConfig) {
		c.corpusFormat = format
	})
}

// WithCorpus uses in-memory entries instead of a file.
func WithCorpus(entries []CorpusEntry) Option {
	return optionFunc(func(c *clientConfig) {
		c.corpus = entries
	})
}

// WithOpenAI configures an OpenAI-compatible endpoint for both embeddings and generation.
// baseURL may be empty for api.openai.com.
func WithOpenAI(apiKey, baseURL string) Option {
	return optionFunc(func(c *clientConfig) {
		c.openAIKey = apiKey
		c.openAIBaseURL = baseURL
	})
}

// WithModels overrides the OpenAI embedding and chat models.
// Defaults: text-embedding-3-small, gpt-4o-mini.
func WithModels(embedModel, chatModel string) Option {
	return optionFunc(func(c *clientConfig) {
		if embedModel != "" {
			c.embedModel = embedModel
		}
		if chatModel != "" {
			c.chatModel = chatModel
		}
	})
}

// WithEmbedder sets a custom embedding provider. It takes precedence over WithOpenAI.
// Vectors must match the corpus dimension.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithGenerator sets a custom generation provider. It takes precedence over WithOpenAI.
func WithGenerator(g Generator) Option {
	return optionFunc(func(c *clientConfig) {
		c.generator = g
	})
}

// WithRedis stores the embedding cache and handoff records in Redis (or Valkey).
// Without it an in-process store is used.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.redisAddr = addr
		c.redisPassword = password
	})
}

// WithHandoffSink forwards collected contacts to a custom sink instead of the store.
func WithHandoffSink(s HandoffSink) Option {
	return optionFunc(func(c *clientConfig) {
		c.handoff = s
	})
}

// WithQueryInstruction sets the prefix prepended to questions before embedding.
// Must match the query-side instruction the corpus was built for.
func WithQueryInstruction(instruction string) Option {
	return optionFunc(func(c *clientConfig) {
		c.queryInstruction = instruction
	})
}

// WithTopK sets how many corpus entries go into the prompt. Default: 3.
func WithTopK(k int) Option {
	return optionFunc(func(c *clientConfig) {
		c.topK = k
	})
}

// WithMaxInFlight bounds concurrent provider calls. Default: 8.
func WithMaxInFlight(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxInFlight = n
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}

// AnswerOption configures a single Answer call.
type AnswerOption func(*answerConfig)

type answerConfig struct {
	conversationID string
}

// WithConversationID tags the answer (and any handoff) with the caller's session ID.
// Without it a random ID is generated per call.
func WithConversationID(id string) AnswerOption {
	return func(c *answerConfig) {
		c.conversationID = id
	}
}
