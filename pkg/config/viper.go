package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/sudo-OMsharma/personabrain/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the PERSONABRAIN_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (PERSONABRAIN_SERVER_LISTEN, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: PERSONABRAIN_SERVER_LISTEN,
	// PERSONABRAIN_STORAGE_BUCKET, etc.
	v.SetEnvPrefix("PERSONABRAIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// FromViper materializes a Config from a viper instance prepared by
// InitViper, after any flag binding has happened.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Version: v.GetInt("version"),
		Server: ServerConfig{
			Listen: v.GetString("server.listen"),
		},
		Storage: StorageConfig{
			Driver:   v.GetString("storage.driver"),
			Root:     v.GetString("storage.root"),
			Bucket:   v.GetString("storage.bucket"),
			Region:   v.GetString("storage.region"),
			Endpoint: v.GetString("storage.endpoint"),
		},
		Paths: PathsConfig{
			LedgerDir: v.GetString("paths.ledger_dir"),
			CacheDir:  v.GetString("paths.cache_dir"),
			WorkDir:   v.GetString("paths.work_dir"),
		},
		Prefixes: PrefixConfig{
			Index: v.GetString("prefixes.index"),
			Docs:  v.GetString("prefixes.docs"),
		},
		Vector: VectorConfig{
			Driver:     v.GetString("vector.driver"),
			QdrantHost: v.GetString("vector.qdrant_host"),
			QdrantPort: v.GetInt("vector.qdrant_port"),
		},
		Embedding: EmbeddingConfig{
			Target:     v.GetString("embedding.target"),
			Model:      v.GetString("embedding.model"),
			Dimensions: uint(v.GetUint64("embedding.dimensions")),
		},
		OpenAI: OpenAIConfig{
			Model:   v.GetString("openai.model"),
			BaseURL: v.GetString("openai.base_url"),
		},
		Ingest: IngestConfig{
			WordsPerChunk: v.GetInt("ingest.words_per_chunk"),
		},
		Events: EventsConfig{
			Driver:  v.GetString("events.driver"),
			Brokers: v.GetStringSlice("events.brokers"),
			Topic:   v.GetString("events.topic"),
		},
	}
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Server
	v.SetDefault("server.listen", d.Server.Listen)

	// Storage
	v.SetDefault("storage.driver", d.Storage.Driver)
	v.SetDefault("storage.root", d.Storage.Root)
	v.SetDefault("storage.bucket", d.Storage.Bucket)
	v.SetDefault("storage.region", d.Storage.Region)
	v.SetDefault("storage.endpoint", d.Storage.Endpoint)

	// Paths
	v.SetDefault("paths.ledger_dir", d.Paths.LedgerDir)
	v.SetDefault("paths.cache_dir", d.Paths.CacheDir)
	v.SetDefault("paths.work_dir", d.Paths.WorkDir)

	// Prefixes
	v.SetDefault("prefixes.index", d.Prefixes.Index)
	v.SetDefault("prefixes.docs", d.Prefixes.Docs)

	// Vector
	v.SetDefault("vector.driver", d.Vector.Driver)
	v.SetDefault("vector.qdrant_host", d.Vector.QdrantHost)
	v.SetDefault("vector.qdrant_port", d.Vector.QdrantPort)

	// Embedding
	v.SetDefault("embedding.target", d.Embedding.Target)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)

	// OpenAI
	v.SetDefault("openai.model", d.OpenAI.Model)
	v.SetDefault("openai.base_url", d.OpenAI.BaseURL)

	// Ingest
	v.SetDefault("ingest.words_per_chunk", d.Ingest.WordsPerChunk)

	// Events
	v.SetDefault("events.driver", d.Events.Driver)
	v.SetDefault("events.brokers", d.Events.Brokers)
	v.SetDefault("events.topic", d.Events.Topic)
}
