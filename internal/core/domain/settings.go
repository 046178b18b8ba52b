package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderGemini is the Google Gemini API.
	AIProviderGemini AIProvider = "gemini"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic, AIProviderGemini:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic || p == AIProviderGemini
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	case AIProviderGemini:
		return "Gemini (cloud)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama or compatible APIs).
	BaseURL string

	// APIKey is the API key (for cloud providers).
	APIKey string

	// RateLimit is the maximum number of embedding requests per second.
	RateLimit float64
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || e.Provider == AIProviderAnthropic {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for cloud providers).
	APIKey string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// RetrievalSettings tunes semantic retrieval.
type RetrievalSettings struct {
	// PoolSize is how many recent embedded answers are scored per query.
	PoolSize int

	// TopK is the maximum number of excerpts passed to the composer.
	TopK int

	// MinScore drops candidates scoring at or below it.
	MinScore float64
}

// ComposerSettings tunes reply synthesis.
type ComposerSettings struct {
	// MaxTokens bounds the generated reply length.
	MaxTokens int

	// Temperature is the fixed sampling temperature.
	Temperature float64

	// Disclosure is appended verbatim to every reply.
	Disclosure string
}

// ServerSettings configures the HTTP API.
type ServerSettings struct {
	// Addr is the listen address.
	Addr string

	// RequestTimeout bounds each request, including provider calls.
	RequestTimeout time.Duration

	// CORSOrigin is sent as Access-Control-Allow-Origin.
	CORSOrigin string
}

// AppSettings holds all application settings.
type AppSettings struct {
	Embedding EmbeddingSettings
	LLM       LLMSettings
	Retrieval RetrievalSettings
	Composer  ComposerSettings
	Server    ServerSettings

	// ReindexBatchLimit is the default number of answers embedded per reindex run.
	ReindexBatchLimit int

	// ReindexInterval is how often serve backfills missing embeddings. Zero disables it.
	ReindexInterval time.Duration

	// MaxOpenConns bounds the storage connection pool.
	MaxOpenConns int

	// DefaultProfile is created at start when missing.
	DefaultProfile string

	// LogLevel is the minimum log level.
	LogLevel string
}

// Default values for settings.
const (
	DefaultPoolSize          = 200
	DefaultTopK              = 5
	DefaultMinScore          = 0.1
	DefaultMaxTokens         = 400
	DefaultTemperature       = 0.4
	DefaultReindexBatchLimit = 100
	DefaultReindexInterval   = 10 * time.Minute
	DefaultEmbeddingRate     = 5.0
	DefaultDisclosure        = "(This reply was generated by an AI reconstruction from recorded answers and may be imperfect.)"
)

// DefaultAppSettings returns settings with sensible defaults.
// AI features (Embedding, LLM) are left unconfigured by default.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		// Embedding and LLM are left unconfigured - user must set them up
		Embedding: EmbeddingSettings{RateLimit: DefaultEmbeddingRate},
		LLM:       LLMSettings{},
		Retrieval: RetrievalSettings{
			PoolSize: DefaultPoolSize,
			TopK:     DefaultTopK,
			MinScore: DefaultMinScore,
		},
		Composer: ComposerSettings{
			MaxTokens:   DefaultMaxTokens,
			Temperature: DefaultTemperature,
			Disclosure:  DefaultDisclosure,
		},
		Server: ServerSettings{
			Addr:           "127.0.0.1:8080",
			RequestTimeout: 60 * time.Second,
			CORSOrigin:     "*",
		},
		ReindexBatchLimit: DefaultReindexBatchLimit,
		ReindexInterval:   DefaultReindexInterval,
		MaxOpenConns:      4,
		DefaultProfile:    "me",
		LogLevel:          "info",
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderGemini,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
		AIProviderGemini,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
		AIProviderGemini: "gemini-embedding-001",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
		AIProviderGemini:    "gemini-2.5-flash",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
		// Gemini models
		"gemini-embedding-001": 3072,
	}
}
