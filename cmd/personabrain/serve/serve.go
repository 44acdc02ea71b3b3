// Package servecmder provides the serve command that wires up and runs the
// personabrain HTTP server.
package servecmder

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sudo-OMsharma/personabrain/api"
	"github.com/sudo-OMsharma/personabrain/pkg/blob"
	"github.com/sudo-OMsharma/personabrain/pkg/blob/local"
	"github.com/sudo-OMsharma/personabrain/pkg/blob/s3"
	"github.com/sudo-OMsharma/personabrain/pkg/brain"
	"github.com/sudo-OMsharma/personabrain/pkg/classify"
	"github.com/sudo-OMsharma/personabrain/pkg/config"
	"github.com/sudo-OMsharma/personabrain/pkg/dotdir"
	"github.com/sudo-OMsharma/personabrain/pkg/embeddings/ollama"
	"github.com/sudo-OMsharma/personabrain/pkg/eventstream"
	"github.com/sudo-OMsharma/personabrain/pkg/eventstream/kafka"
	"github.com/sudo-OMsharma/personabrain/pkg/eventstream/nop"
	"github.com/sudo-OMsharma/personabrain/pkg/ingest"
	"github.com/sudo-OMsharma/personabrain/pkg/keypool"
	"github.com/sudo-OMsharma/personabrain/pkg/ledger"
	"github.com/sudo-OMsharma/personabrain/pkg/llm/openai"
	"github.com/sudo-OMsharma/personabrain/pkg/logger"
	"github.com/sudo-OMsharma/personabrain/pkg/retrieval"
	"github.com/sudo-OMsharma/personabrain/pkg/transcribe"
	"github.com/sudo-OMsharma/personabrain/pkg/vector"
	"github.com/sudo-OMsharma/personabrain/pkg/vector/qdrant"
	"github.com/sudo-OMsharma/personabrain/pkg/vector/sqlitevec"
)

type serveCommander struct {
	configDir string
	debug     bool

	listen         string
	storageDriver  string
	storageRoot    string
	bucket         string
	vectorDriver   string
	embeddingTgt   string
	embeddingModel string
	embeddingDims  uint
	eventsDriver   string

	cfg    *config.Config
	logger *zap.Logger
}

const serveLongDesc string = `Run the personabrain HTTP server.

The server exposes brain lifecycle, file ingestion, and chat endpoints.
Configuration comes from flags, PERSONABRAIN_* environment variables, and
config.toml in the .personabrain/ directory, in that order of precedence.
OpenAI API keys are read from the OPENAI_API_KEYS environment variable
(comma separated), optionally via a .env file.`

const serveShortDesc string = "Run the personabrain HTTP server"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}
			cmder.configDir, err = cmd.Flags().GetString("config-dir")
			if err != nil {
				return fmt.Errorf("could not get config-dir flag: %v", err)
			}

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return err
			}
			config.BindRegisteredFlags(v, cmd, config.ServeFlags, []string{
				config.FlagListen,
				config.FlagStorageDriver,
				config.FlagStorageRoot,
				config.FlagBucket,
				config.FlagVectorDriver,
				config.FlagEmbeddingTgt,
				config.FlagEmbeddingModel,
				config.FlagEmbeddingDims,
				config.FlagEventsDriver,
			})
			cmder.cfg = config.FromViper(v)

			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, config.ServeFlags, config.FlagListen, &cmder.listen)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagStorageDriver, &cmder.storageDriver)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagStorageRoot, &cmder.storageRoot)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagBucket, &cmder.bucket)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagVectorDriver, &cmder.vectorDriver)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagEmbeddingTgt, &cmder.embeddingTgt)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagEmbeddingModel, &cmder.embeddingModel)
	config.AddUintFlag(cmd, config.ServeFlags, config.FlagEmbeddingDims, &cmder.embeddingDims)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagEventsDriver, &cmder.eventsDriver)

	return cmd
}

func (c *serveCommander) run() error {
	// A .env file is optional; environment variables win either way.
	_ = godotenv.Load()

	c.logger = logger.New(c.debug)
	defer c.logger.Sync()

	ctx := context.Background()
	cfg := c.cfg

	base, err := dotdir.NewManager().Target(c.configDir)
	if err != nil {
		return err
	}

	ledgerDir := orDefault(cfg.Paths.LedgerDir, base, "ledgers")
	cacheDir := orDefault(cfg.Paths.CacheDir, base, "cache")
	workDir := orDefault(cfg.Paths.WorkDir, base, "work")

	store, err := c.newBlobStore(ctx, base)
	if err != nil {
		return err
	}
	defer store.Close()

	embedder := ollama.NewEmbedder(ollama.Config{
		BaseURL: cfg.Embedding.Target,
		Model:   cfg.Embedding.Model,
	})

	factory, err := c.newVectorFactory(embedder)
	if err != nil {
		return err
	}
	if closer, ok := factory.(io.Closer); ok {
		defer closer.Close()
	}

	ledgers, err := ledger.NewStore(ledgerDir, c.logger)
	if err != nil {
		return fmt.Errorf("creating ledger store: %w", err)
	}

	cache, err := brain.NewCache(brain.Config{
		Store:       store,
		Factory:     factory,
		Ledgers:     ledgers,
		CacheDir:    cacheDir,
		IndexPrefix: cfg.Prefixes.Index,
	}, c.logger)
	if err != nil {
		return fmt.Errorf("creating brain cache: %w", err)
	}
	defer cache.Close()

	watcher, err := brain.NewWatcher(ledgerDir, cache, c.logger)
	if err != nil {
		return fmt.Errorf("starting ledger watcher: %w", err)
	}
	defer watcher.Close()

	pool, err := keypool.New(apiKeys(), c.logger)
	if err != nil {
		return fmt.Errorf("creating key pool: %w", err)
	}

	generator, err := openai.NewGenerator(openai.Config{
		BaseURL: cfg.OpenAI.BaseURL,
		Model:   cfg.OpenAI.Model,
	}, pool, c.logger)
	if err != nil {
		return fmt.Errorf("creating generator: %w", err)
	}
	defer generator.Close()

	transcriber, err := transcribe.New(transcribe.Config{
		BaseURL: cfg.OpenAI.BaseURL,
	}, pool, c.logger)
	if err != nil {
		return fmt.Errorf("creating transcriber: %w", err)
	}

	classifier := classify.New(generator, c.logger)

	events, err := c.newPublisher()
	if err != nil {
		return err
	}
	defer events.Close()

	ingestor, err := ingest.NewService(ingest.Config{
		Cache:         cache,
		Store:         store,
		Factory:       factory,
		Ledgers:       ledgers,
		Transcriber:   transcriber,
		Events:        events,
		IndexPrefix:   cfg.Prefixes.Index,
		DocPrefix:     cfg.Prefixes.Docs,
		WordsPerChunk: cfg.Ingest.WordsPerChunk,
		WorkDir:       workDir,
	}, c.logger)
	if err != nil {
		return fmt.Errorf("creating ingest service: %w", err)
	}

	asker := retrieval.New(cache, generator, classifier, events, c.logger)

	server := api.NewServer(api.Config{
		ListenAddr: cfg.Server.Listen,
	}, ingestor, asker, cache, c.logger)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		return server.Shutdown()
	}
}

func (c *serveCommander) newBlobStore(ctx context.Context, base string) (blob.Store, error) {
	cfg := c.cfg

	switch cfg.Storage.Driver {
	case "local", "":
		root := cfg.Storage.Root
		if root == "" {
			root = filepath.Join(base, "blob")
		}
		c.logger.Info("using local blob storage", zap.String("root", root))
		return local.NewStore(root, c.logger)

	case "s3":
		if cfg.Storage.Bucket == "" {
			return nil, fmt.Errorf("storage.bucket is required for the s3 driver")
		}
		c.logger.Info("using s3 blob storage",
			zap.String("bucket", cfg.Storage.Bucket),
			zap.String("region", cfg.Storage.Region),
		)
		return s3.NewStore(ctx, s3.Config{
			Bucket:   cfg.Storage.Bucket,
			Region:   cfg.Storage.Region,
			Endpoint: cfg.Storage.Endpoint,
		}, c.logger)

	default:
		return nil, fmt.Errorf("unknown storage driver %q (expected local or s3)", cfg.Storage.Driver)
	}
}

func (c *serveCommander) newVectorFactory(embedder *ollama.Embedder) (vector.Factory, error) {
	cfg := c.cfg

	switch cfg.Vector.Driver {
	case "sqlitevec", "":
		return sqlitevec.NewFactory(embedder, cfg.Embedding.Dimensions, c.logger)

	case "qdrant":
		return qdrant.NewFactory(qdrant.Config{
			Host:   cfg.Vector.QdrantHost,
			Port:   cfg.Vector.QdrantPort,
			APIKey: os.Getenv("QDRANT_API_KEY"),
		}, embedder, cfg.Embedding.Dimensions, c.logger)

	default:
		return nil, fmt.Errorf("unknown vector driver %q (expected sqlitevec or qdrant)", cfg.Vector.Driver)
	}
}

func (c *serveCommander) newPublisher() (eventstream.Publisher, error) {
	cfg := c.cfg

	switch cfg.Events.Driver {
	case "nop", "":
		return nop.NewPublisher(), nil

	case "kafka":
		c.logger.Info("publishing brain events to kafka",
			zap.Strings("brokers", cfg.Events.Brokers),
			zap.String("topic", cfg.Events.Topic),
		)
		return kafka.NewPublisher(kafka.Config{
			Brokers: cfg.Events.Brokers,
			Topic:   cfg.Events.Topic,
		}, c.logger)

	default:
		return nil, fmt.Errorf("unknown events driver %q (expected nop or kafka)", cfg.Events.Driver)
	}
}

// apiKeys reads the OpenAI key list from the environment. OPENAI_API_KEYS
// holds a comma separated list; OPENAI_API_KEY is accepted as a single-key
// fallback.
func apiKeys() []string {
	raw := os.Getenv("OPENAI_API_KEYS")
	if raw == "" {
		raw = os.Getenv("OPENAI_API_KEY")
	}

	var keys []string
	for _, key := range strings.Split(raw, ",") {
		if key = strings.TrimSpace(key); key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}

func orDefault(path, base, name string) string {
	if path != "" {
		return path
	}
	return filepath.Join(base, name)
}
