package config

import "github.com/spf13/viper"

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of
// truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("summarizer.type", d.Summarizer.Type)
	v.SetDefault("summarizer.model", d.Summarizer.Model)
	v.SetDefault("summarizer.host", d.Summarizer.Host)
	v.SetDefault("summarizer.timeout_seconds", d.Summarizer.TimeoutSeconds)
	v.SetDefault("summarizer.backoff_seconds", d.Summarizer.BackoffSeconds)

	v.SetDefault("feedback_store.type", d.FeedbackStore.Type)
	v.SetDefault("feedback_store.path", d.FeedbackStore.Path)

	v.SetDefault("memory_store.type", d.MemoryStore.Type)
	v.SetDefault("memory_store.path", d.MemoryStore.Path)
	v.SetDefault("memory_store.collection", d.MemoryStore.Collection)
	v.SetDefault("memory_store.persist_dir", d.MemoryStore.PersistDir)
	v.SetDefault("memory_store.host", d.MemoryStore.Host)
	v.SetDefault("memory_store.port", d.MemoryStore.Port)
	v.SetDefault("memory_store.database", d.MemoryStore.Database)
	v.SetDefault("memory_store.user", d.MemoryStore.User)
	v.SetDefault("memory_store.password", d.MemoryStore.Password)
	v.SetDefault("memory_store.sslmode", d.MemoryStore.SSLMode)
	v.SetDefault("memory_store.table", d.MemoryStore.Table)
	v.SetDefault("memory_store.index_type", d.MemoryStore.IndexType)
	v.SetDefault("memory_store.index_m", d.MemoryStore.IndexM)
	v.SetDefault("memory_store.index_ef_construction", d.MemoryStore.IndexEfConstruction)
	v.SetDefault("memory_store.index_lists", d.MemoryStore.IndexLists)

	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.target", d.Embedding.Target)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)
	v.SetDefault("embedding.cache_entries", d.Embedding.CacheEntries)

	v.SetDefault("engine.similarity_weight", d.Engine.SimilarityWeight)
	v.SetDefault("engine.decay_half_life_days", d.Engine.DecayHalfLifeDays)

	v.SetDefault("event_stream.enabled", d.EventStream.Enabled)
	v.SetDefault("event_stream.brokers", d.EventStream.Brokers)
	v.SetDefault("event_stream.topic", d.EventStream.Topic)
}

// fromViper materializes a Config from the resolved viper state.
func fromViper(v *viper.Viper) *Config {
	return &Config{
		Summarizer: SummarizerConfig{
			Type:           v.GetString("summarizer.type"),
			Model:          v.GetString("summarizer.model"),
			Host:           v.GetString("summarizer.host"),
			TimeoutSeconds: v.GetUint("summarizer.timeout_seconds"),
			BackoffSeconds: v.GetUint("summarizer.backoff_seconds"),
		},
		FeedbackStore: FeedbackStoreConfig{
			Type: v.GetString("feedback_store.type"),
			Path: v.GetString("feedback_store.path"),
		},
		MemoryStore: MemoryStoreConfig{
			Type:                v.GetString("memory_store.type"),
			Path:                v.GetString("memory_store.path"),
			Collection:          v.GetString("memory_store.collection"),
			PersistDir:          v.GetString("memory_store.persist_dir"),
			Host:                v.GetString("memory_store.host"),
			Port:                v.GetUint("memory_store.port"),
			Database:            v.GetString("memory_store.database"),
			User:                v.GetString("memory_store.user"),
			Password:            v.GetString("memory_store.password"),
			SSLMode:             v.GetString("memory_store.sslmode"),
			Table:               v.GetString("memory_store.table"),
			IndexType:           v.GetString("memory_store.index_type"),
			IndexM:              v.GetInt("memory_store.index_m"),
			IndexEfConstruction: v.GetInt("memory_store.index_ef_construction"),
			IndexLists:          v.GetInt("memory_store.index_lists"),
		},
		Embedding: EmbeddingConfig{
			Provider:     v.GetString("embedding.provider"),
			Target:       v.GetString("embedding.target"),
			Model:        v.GetString("embedding.model"),
			Dimensions:   v.GetUint("embedding.dimensions"),
			CacheEntries: v.GetUint("embedding.cache_entries"),
		},
		Engine: EngineConfig{
			SimilarityWeight:  v.GetFloat64("engine.similarity_weight"),
			DecayHalfLifeDays: v.GetFloat64("engine.decay_half_life_days"),
		},
		EventStream: EventStreamConfig{
			Enabled: v.GetBool("event_stream.enabled"),
			Brokers: v.GetStringSlice("event_stream.brokers"),
			Topic:   v.GetString("event_stream.topic"),
		},
	}
}
