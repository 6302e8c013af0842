package domain

// VectorConfig holds vectorization settings shared by the service and the corpus builder.
type VectorConfig struct {
	Model               string
	Dimensions          int
	DocumentInstruction string
	QueryInstruction    string
}

// DefaultVectorConfig returns defaults for a multilingual OpenAI-compatible embedding model.
func DefaultVectorConfig() VectorConfig {
	return VectorConfig{
		Model:      "text-embedding-3-small",
		Dimensions: 1536,
	}
}

// GenerationConfig holds chat completion settings.
type GenerationConfig struct {
	Model       string
	Temperature float32
	MaxTokens   int
}

// DefaultGenerationConfig returns defaults for the answer generator.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		Model:       "gpt-4o-mini",
		Temperature: 0.3,
		MaxTokens:   512,
	}
}
