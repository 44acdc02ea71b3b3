package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Config represents the persistent personabrain configuration stored as
// config.toml in the .personabrain/ directory. The TOML layout uses sections
// for logical grouping.
type Config struct {
	Version   int             `toml:"version"`
	Server    ServerConfig    `toml:"server"`
	Storage   StorageConfig   `toml:"storage"`
	Paths     PathsConfig     `toml:"paths"`
	Prefixes  PrefixConfig    `toml:"prefixes"`
	Vector    VectorConfig    `toml:"vector"`
	Embedding EmbeddingConfig `toml:"embedding"`
	OpenAI    OpenAIConfig    `toml:"openai"`
	Ingest    IngestConfig    `toml:"ingest"`
	Events    EventsConfig    `toml:"events"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// StorageConfig holds durable object storage settings. Driver is "local" or
// "s3"; Root applies to the local driver, the rest to s3.
type StorageConfig struct {
	Driver   string `toml:"driver,omitempty"`
	Root     string `toml:"root,omitempty"`
	Bucket   string `toml:"bucket,omitempty"`
	Region   string `toml:"region,omitempty"`
	Endpoint string `toml:"endpoint,omitempty"`
}

// PathsConfig holds local directory settings. Empty values are resolved at
// startup to subdirectories of the .personabrain/ directory.
type PathsConfig struct {
	LedgerDir string `toml:"ledger_dir,omitempty"`
	CacheDir  string `toml:"cache_dir,omitempty"`
	WorkDir   string `toml:"work_dir,omitempty"`
}

// PrefixConfig holds the blob storage prefixes the service writes under.
type PrefixConfig struct {
	Index string `toml:"index,omitempty"`
	Docs  string `toml:"docs,omitempty"`
}

// VectorConfig holds vector index settings. Driver is "sqlitevec" or
// "qdrant".
type VectorConfig struct {
	Driver     string `toml:"driver,omitempty"`
	QdrantHost string `toml:"qdrant_host,omitempty"`
	QdrantPort int    `toml:"qdrant_port,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
}

// OpenAIConfig holds generation settings. API keys are never stored in the
// config file; they come from the OPENAI_API_KEYS environment variable.
type OpenAIConfig struct {
	Model   string `toml:"model,omitempty"`
	BaseURL string `toml:"base_url,omitempty"`
}

// IngestConfig holds ingestion settings.
type IngestConfig struct {
	WordsPerChunk int `toml:"words_per_chunk,omitempty"`
}

// EventsConfig holds event stream settings. Driver is "nop" or "kafka".
type EventsConfig struct {
	Driver  string   `toml:"driver,omitempty"`
	Brokers []string `toml:"brokers,omitempty"`
	Topic   string   `toml:"topic,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"server.listen": {
		get: func(c *Config) string { return c.Server.Listen },
		set: func(c *Config, v string) error { c.Server.Listen = v; return nil },
	},
	"storage.driver": {
		get: func(c *Config) string { return c.Storage.Driver },
		set: func(c *Config, v string) error { c.Storage.Driver = v; return nil },
	},
	"storage.root": {
		get: func(c *Config) string { return c.Storage.Root },
		set: func(c *Config, v string) error { c.Storage.Root = v; return nil },
	},
	"storage.bucket": {
		get: func(c *Config) string { return c.Storage.Bucket },
		set: func(c *Config, v string) error { c.Storage.Bucket = v; return nil },
	},
	"storage.region": {
		get: func(c *Config) string { return c.Storage.Region },
		set: func(c *Config, v string) error { c.Storage.Region = v; return nil },
	},
	"storage.endpoint": {
		get: func(c *Config) string { return c.Storage.Endpoint },
		set: func(c *Config, v string) error { c.Storage.Endpoint = v; return nil },
	},
	"paths.ledger_dir": {
		get: func(c *Config) string { return c.Paths.LedgerDir },
		set: func(c *Config, v string) error { c.Paths.LedgerDir = v; return nil },
	},
	"paths.cache_dir": {
		get: func(c *Config) string { return c.Paths.CacheDir },
		set: func(c *Config, v string) error { c.Paths.CacheDir = v; return nil },
	},
	"paths.work_dir": {
		get: func(c *Config) string { return c.Paths.WorkDir },
		set: func(c *Config, v string) error { c.Paths.WorkDir = v; return nil },
	},
	"prefixes.index": {
		get: func(c *Config) string { return c.Prefixes.Index },
		set: func(c *Config, v string) error { c.Prefixes.Index = v; return nil },
	},
	"prefixes.docs": {
		get: func(c *Config) string { return c.Prefixes.Docs },
		set: func(c *Config, v string) error { c.Prefixes.Docs = v; return nil },
	},
	"vector.driver": {
		get: func(c *Config) string { return c.Vector.Driver },
		set: func(c *Config, v string) error { c.Vector.Driver = v; return nil },
	},
	"vector.qdrant_host": {
		get: func(c *Config) string { return c.Vector.QdrantHost },
		set: func(c *Config, v string) error { c.Vector.QdrantHost = v; return nil },
	},
	"vector.qdrant_port": {
		get: func(c *Config) string {
			if c.Vector.QdrantPort == 0 {
				return ""
			}
			return strconv.Itoa(c.Vector.QdrantPort)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for vector.qdrant_port: %w", err)
			}
			c.Vector.QdrantPort = n
			return nil
		},
	},
	"embedding.target": {
		get: func(c *Config) string { return c.Embedding.Target },
		set: func(c *Config, v string) error { c.Embedding.Target = v; return nil },
	},
	"embedding.model": {
		get: func(c *Config) string { return c.Embedding.Model },
		set: func(c *Config, v string) error { c.Embedding.Model = v; return nil },
	},
	"embedding.dimensions": {
		get: func(c *Config) string {
			if c.Embedding.Dimensions == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Embedding.Dimensions), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for embedding.dimensions: %w", err)
			}
			c.Embedding.Dimensions = uint(n)
			return nil
		},
	},
	"openai.model": {
		get: func(c *Config) string { return c.OpenAI.Model },
		set: func(c *Config, v string) error { c.OpenAI.Model = v; return nil },
	},
	"openai.base_url": {
		get: func(c *Config) string { return c.OpenAI.BaseURL },
		set: func(c *Config, v string) error { c.OpenAI.BaseURL = v; return nil },
	},
	"ingest.words_per_chunk": {
		get: func(c *Config) string {
			if c.Ingest.WordsPerChunk == 0 {
				return ""
			}
			return strconv.Itoa(c.Ingest.WordsPerChunk)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for ingest.words_per_chunk: %w", err)
			}
			c.Ingest.WordsPerChunk = n
			return nil
		},
	},
	"events.driver": {
		get: func(c *Config) string { return c.Events.Driver },
		set: func(c *Config, v string) error { c.Events.Driver = v; return nil },
	},
	"events.brokers": {
		get: func(c *Config) string { return strings.Join(c.Events.Brokers, ",") },
		set: func(c *Config, v string) error {
			c.Events.Brokers = c.Events.Brokers[:0]
			for _, broker := range strings.Split(v, ",") {
				if broker = strings.TrimSpace(broker); broker != "" {
					c.Events.Brokers = append(c.Events.Brokers, broker)
				}
			}
			return nil
		},
	},
	"events.topic": {
		get: func(c *Config) string { return c.Events.Topic },
		set: func(c *Config, v string) error { c.Events.Topic = v; return nil },
	},
}
