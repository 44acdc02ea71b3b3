package config

const (
	defaultServerListen = ":8000"

	defaultStorageDriver = "local"

	defaultIndexPrefix = "master-index"
	defaultDocsPrefix  = "master-doc"

	defaultVectorDriver = "sqlitevec"
	defaultQdrantHost   = "localhost"
	defaultQdrantPort   = 6334

	defaultEmbeddingTarget     = "http://localhost:11434"
	defaultEmbeddingModel      = "nomic-embed-text"
	defaultEmbeddingDimensions = 768

	defaultOpenAIModel   = "gpt-4o-mini"
	defaultOpenAIBaseURL = "https://api.openai.com/v1"

	defaultWordsPerChunk = 100

	defaultEventsDriver = "nop"
	defaultEventsTopic  = "personabrain.events"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values. Paths and the
// local storage root are left empty; the serve command resolves them to
// subdirectories of the .personabrain/ directory at startup.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Server: ServerConfig{
			Listen: defaultServerListen,
		},
		Storage: StorageConfig{
			Driver: defaultStorageDriver,
		},
		Prefixes: PrefixConfig{
			Index: defaultIndexPrefix,
			Docs:  defaultDocsPrefix,
		},
		Vector: VectorConfig{
			Driver:     defaultVectorDriver,
			QdrantHost: defaultQdrantHost,
			QdrantPort: defaultQdrantPort,
		},
		Embedding: EmbeddingConfig{
			Target:     defaultEmbeddingTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
		OpenAI: OpenAIConfig{
			Model:   defaultOpenAIModel,
			BaseURL: defaultOpenAIBaseURL,
		},
		Ingest: IngestConfig{
			WordsPerChunk: defaultWordsPerChunk,
		},
		Events: EventsConfig{
			Driver: defaultEventsDriver,
			Topic:  defaultEventsTopic,
		},
	}
}
