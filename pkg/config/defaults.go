package config

// NewDefaultConfig returns a fully-populated Config with local-development
// defaults: flat-file stores, auto-fallback summarization against a local
// Ollama, and no event stream.
func NewDefaultConfig() *Config {
	return &Config{
		Summarizer: SummarizerConfig{
			Type:           "auto_fallback",
			Model:          "mistral",
			Host:           "http://localhost:11434",
			TimeoutSeconds: 30,
			BackoffSeconds: 300,
		},
		FeedbackStore: FeedbackStoreConfig{
			Type: "json",
			Path: "feedback.json",
		},
		MemoryStore: MemoryStoreConfig{
			Type:       "json",
			Path:       "memory.json",
			Collection: "quilt_memory",
			PersistDir: "./chromem",
			Table:      "memory_records",
			IndexType:  "hnsw",
		},
		Embedding: EmbeddingConfig{
			Provider:     "ollama",
			Target:       "http://localhost:11434",
			Model:        "nomic-embed-text",
			Dimensions:   768,
			CacheEntries: 4096,
		},
		Engine: EngineConfig{
			SimilarityWeight:  0.7,
			DecayHalfLifeDays: 30,
		},
		EventStream: EventStreamConfig{
			Enabled: false,
			Topic:   "quilt.memory.events",
		},
	}
}
