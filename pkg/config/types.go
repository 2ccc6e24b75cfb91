package config

import "fmt"

// Config is the persistent quilt configuration, stored as config.toml.
// The TOML layout uses sections for logical grouping.
type Config struct {
	Summarizer    SummarizerConfig    `toml:"summarizer"`
	FeedbackStore FeedbackStoreConfig `toml:"feedback_store"`
	MemoryStore   MemoryStoreConfig   `toml:"memory_store"`
	Embedding     EmbeddingConfig     `toml:"embedding"`
	Engine        EngineConfig        `toml:"engine"`
	EventStream   EventStreamConfig   `toml:"event_stream"`
}

// SummarizerConfig selects and tunes the summarization capability.
type SummarizerConfig struct {
	// Type is "naive", "llm", or "auto_fallback".
	Type string `toml:"type,omitempty"`

	// Model is the LLM model used by the llm and auto_fallback types.
	Model string `toml:"model,omitempty"`

	// Host is the Ollama-compatible endpoint. The OLLAMA_HOST environment
	// variable overrides it.
	Host string `toml:"host,omitempty"`

	// TimeoutSeconds bounds both health probes and summarization calls.
	TimeoutSeconds uint `toml:"timeout_seconds,omitempty"`

	// BackoffSeconds is the wait before re-probing an unavailable endpoint.
	BackoffSeconds uint `toml:"backoff_seconds,omitempty"`
}

// FeedbackStoreConfig selects the feedback persistence backend.
type FeedbackStoreConfig struct {
	// Type is "json" or "sqlite".
	Type string `toml:"type,omitempty"`

	// Path is the JSON file or SQLite database location.
	Path string `toml:"path,omitempty"`
}

// MemoryStoreConfig selects the component persistence backend.
type MemoryStoreConfig struct {
	// Type is "json", "sqlite", "vector", "sqlite_vec", or "postgres_vector".
	Type string `toml:"type,omitempty"`

	// Path is the file or database location for the json, sqlite, and
	// sqlite_vec types.
	Path string `toml:"path,omitempty"`

	// Collection names the chromem collection for the vector type.
	Collection string `toml:"collection,omitempty"`

	// PersistDir is the chromem persistence directory for the vector type.
	PersistDir string `toml:"persist_dir,omitempty"`

	// PostgreSQL connection parameters for the postgres_vector type.
	Host     string `toml:"host,omitempty"`
	Port     uint   `toml:"port,omitempty"`
	Database string `toml:"database,omitempty"`
	User     string `toml:"user,omitempty"`
	Password string `toml:"password,omitempty"`
	SSLMode  string `toml:"sslmode,omitempty"`

	// Table is the record table for the postgres_vector type.
	Table string `toml:"table,omitempty"`

	// IndexType is "hnsw", "ivfflat", or "none" for the postgres_vector type.
	IndexType string `toml:"index_type,omitempty"`

	// Index build parameters.
	IndexM              int `toml:"index_m,omitempty"`
	IndexEfConstruction int `toml:"index_ef_construction,omitempty"`
	IndexLists          int `toml:"index_lists,omitempty"`
}

// ConnString assembles a pgx connection URI from the discrete parameters.
func (m MemoryStoreConfig) ConnString() string {
	sslmode := m.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		m.User, m.Password, m.Host, m.Port, m.Database, sslmode)
}

// EmbeddingConfig selects the embedding provider.
type EmbeddingConfig struct {
	// Provider is "ollama" or "mock".
	Provider string `toml:"provider,omitempty"`

	// Target is the provider endpoint URL.
	Target string `toml:"target,omitempty"`

	// Model is the embedding model identifier.
	Model string `toml:"model,omitempty"`

	// Dimensions is the embedding vector width.
	Dimensions uint `toml:"dimensions,omitempty"`

	// CacheEntries caps the in-process embedding cache. Zero disables it.
	CacheEntries uint `toml:"cache_entries,omitempty"`
}

// EngineConfig tunes ranking and selection.
type EngineConfig struct {
	// SimilarityWeight blends semantic similarity into the ranking score
	// when a query is present: score = (1-w)*feedback + w*similarity.
	SimilarityWeight float64 `toml:"similarity_weight,omitempty"`

	// DecayHalfLifeDays controls feedback-score age decay. Zero disables
	// decay.
	DecayHalfLifeDays float64 `toml:"decay_half_life_days,omitempty"`
}

// EventStreamConfig selects the lifecycle-event publisher.
type EventStreamConfig struct {
	// Enabled turns event publishing on. Off means the nop publisher.
	Enabled bool `toml:"enabled,omitempty"`

	// Brokers is the Kafka broker list.
	Brokers []string `toml:"brokers,omitempty"`

	// Topic is the Kafka topic for memory events.
	Topic string `toml:"topic,omitempty"`
}
