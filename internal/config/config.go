package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the tourassist service configuration.
type Config struct {
	HTTP       HTTPConfig                `yaml:"http"`
	Database   DatabaseConfig            `yaml:"database"`
	Storage    StorageConfig             `yaml:"storage"`
	Corpus     CorpusConfig              `yaml:"corpus"`
	Providers  map[string]ProviderConfig `yaml:"providers"`
	Embedding  EmbeddingConfig           `yaml:"embedding"`
	Generation GenerationConfig          `yaml:"generation"`
	Limits     LimitsConfig              `yaml:"limits"`
	Retrieval  RetrievalConfig           `yaml:"retrieval"`
	Assistant  AssistantConfig           `yaml:"assistant"`
	Dialogue   DialogueConfig            `yaml:"dialogue"`
	Handoff    HandoffConfig             `yaml:"handoff"`
	Auth       AuthConfig                `yaml:"auth"`
	Logging    LoggingConfig             `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings for the storefront backend.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds KV store connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis, memory (default: redis)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// CorpusConfig points at the offline-built corpus file.
type CorpusConfig struct {
	Path   string `yaml:"path"`
	Format string `yaml:"format"` // json, jsonl, parquet (default: by extension)
}

// ProviderConfig holds an OpenAI-compatible endpoint.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// EmbeddingConfig holds embedding settings.
type EmbeddingConfig struct {
	Provider            string `yaml:"provider"`
	Model               string `yaml:"model"`
	Dimensions          int    `yaml:"dimensions"`
	DocumentInstruction string `yaml:"document_instruction"`
	QueryInstruction    string `yaml:"query_instruction"`
	CacheTTLSec         int    `yaml:"cache_ttl_sec"` // 0 = no expiry
}

// GenerationConfig holds chat completion settings.
type GenerationConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// LimitsConfig bounds outbound provider calls.
type LimitsConfig struct {
	MaxInFlight    int         `yaml:"max_in_flight"`
	CallTimeoutSec int         `yaml:"call_timeout_sec"`
	Retry          RetryConfig `yaml:"retry"`
}

// RetryConfig holds the transient-error retry policy.
type RetryConfig struct {
	MaxRetries  *int `yaml:"max_retries"` // nil = 2, 0 disables retries
	BaseDelayMs int  `yaml:"base_delay_ms"`
	MaxDelayMs  int  `yaml:"max_delay_ms"`
}

// RetrievalConfig holds retrieval and prompt sizing.
type RetrievalConfig struct {
	TopK               int `yaml:"top_k"`
	ContextBudgetChars int `yaml:"context_budget_chars"`
}

// AssistantConfig holds orchestrator settings and user-facing texts.
type AssistantConfig struct {
	RequestTimeoutSec int                `yaml:"request_timeout_sec"`
	MaxQuestionChars  int                `yaml:"max_question_chars"`
	MaxHistoryTurns   int                `yaml:"max_history_turns"`
	DefaultLanguage   string             `yaml:"default_language"`
	SystemPrompt      string             `yaml:"system_prompt"`
	Templates         TemplatesConfig    `yaml:"templates"`
	Intents           []IntentRuleConfig `yaml:"intents"` // пусто = встроенная таблица
}

// TemplatesConfig overrides fixed replies. Empty fields keep built-in texts.
type TemplatesConfig struct {
	Greeting           string `yaml:"greeting"`
	CompanyInfo        string `yaml:"company_info"`
	PrivateTourHandoff string `yaml:"private_tour_handoff"`
	CorpusUnavailable  string `yaml:"corpus_unavailable"`
	ProviderFallback   string `yaml:"provider_fallback"`
	HandoffFailed      string `yaml:"handoff_failed"`
	AskName            string `yaml:"ask_name"`
	AskNameAgain       string `yaml:"ask_name_again"`
	AskPhone           string `yaml:"ask_phone"`
	AskPhoneAgain      string `yaml:"ask_phone_again"`
	Confirmation       string `yaml:"confirmation"` // {name}, {phone}
}

// IntentRuleConfig is one row of the ordered intent table.
type IntentRuleConfig struct {
	Intent   string   `yaml:"intent"`
	Keywords []string `yaml:"keywords"`
}

// DialogueConfig holds slot-filling settings.
type DialogueConfig struct {
	Extractor     string  `yaml:"extractor"` // pattern, llm (default: pattern)
	MinConfidence float64 `yaml:"min_confidence"`
}

// HandoffConfig holds support handoff settings.
type HandoffConfig struct {
	TTLSec int `yaml:"ttl_sec"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML, expands ${VAR} references, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 40
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "redis"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "tourassist:"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Generation.Provider == "" {
		c.Generation.Provider = c.Embedding.Provider
	}
	if c.Generation.Model == "" {
		c.Generation.Model = "gpt-4o-mini"
	}
	if c.Generation.MaxTokens <= 0 {
		c.Generation.MaxTokens = 512
	}
	if c.Limits.MaxInFlight <= 0 {
		c.Limits.MaxInFlight = 8
	}
	if c.Limits.CallTimeoutSec <= 0 {
		c.Limits.CallTimeoutSec = 15
	}
	if c.Limits.Retry.MaxRetries == nil {
		n := 2
		c.Limits.Retry.MaxRetries = &n
	}
	if c.Limits.Retry.BaseDelayMs <= 0 {
		c.Limits.Retry.BaseDelayMs = 200
	}
	if c.Limits.Retry.MaxDelayMs <= 0 {
		c.Limits.Retry.MaxDelayMs = 2000
	}
	if c.Retrieval.TopK <= 0 {
		c.Retrieval.TopK = 3
	}
	if c.Retrieval.ContextBudgetChars <= 0 {
		c.Retrieval.ContextBudgetChars = 4000
	}
	if c.Assistant.RequestTimeoutSec <= 0 {
		c.Assistant.RequestTimeoutSec = 30
	}
	if c.Assistant.MaxQuestionChars <= 0 {
		c.Assistant.MaxQuestionChars = 1000
	}
	if c.Assistant.MaxHistoryTurns <= 0 {
		c.Assistant.MaxHistoryTurns = 20
	}
	if c.Assistant.DefaultLanguage == "" {
		c.Assistant.DefaultLanguage = "tiếng Việt"
	}
	if c.Dialogue.Extractor == "" {
		c.Dialogue.Extractor = "pattern"
	}
	if c.Dialogue.MinConfidence <= 0 {
		c.Dialogue.MinConfidence = 0.7
	}
	if c.Handoff.TTLSec <= 0 {
		c.Handoff.TTLSec = 30 * 24 * 3600
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "redis":
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for driver %q", c.Database.Driver)
		}
	case "memory":
	default:
		return fmt.Errorf("database.driver must be \"redis\" or \"memory\", got %q", c.Database.Driver)
	}
	if c.Corpus.Path == "" {
		return fmt.Errorf("corpus.path is required")
	}
	switch c.Corpus.Format {
	case "", "json", "jsonl", "parquet":
	default:
		return fmt.Errorf("corpus.format must be json, jsonl or parquet, got %q", c.Corpus.Format)
	}
	if _, ok := c.Providers[c.Embedding.Provider]; !ok {
		return fmt.Errorf("embedding.provider %q is not defined in providers", c.Embedding.Provider)
	}
	if _, ok := c.Providers[c.Generation.Provider]; !ok {
		return fmt.Errorf("generation.provider %q is not defined in providers", c.Generation.Provider)
	}
	switch c.Dialogue.Extractor {
	case "pattern", "llm":
	default:
		return fmt.Errorf("dialogue.extractor must be \"pattern\" or \"llm\", got %q", c.Dialogue.Extractor)
	}
	if r := c.Limits.Retry.MaxRetries; r != nil && *r < 0 {
		return fmt.Errorf("limits.retry.max_retries must be >= 0, got %d", *r)
	}
	if c.Dialogue.MinConfidence > 1 {
		return fmt.Errorf("dialogue.min_confidence must be in (0, 1], got %v", c.Dialogue.MinConfidence)
	}
	for i, r := range c.Assistant.Intents {
		if r.Intent == "" || len(r.Keywords) == 0 {
			return fmt.Errorf("assistant.intents[%d]: intent and keywords are required", i)
		}
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
