// Package configcmder provides the config command for managing persistent
// personabrain configuration stored in the .personabrain/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent personabrain configuration.

Configuration is stored as config.toml in the .personabrain/ directory and
provides default values for command flags. CLI flags always take precedence
over config file values.

Keys use dotted notation matching the TOML section structure:
  server.listen,
  storage.driver, storage.root, storage.bucket, storage.region, storage.endpoint,
  paths.ledger_dir, paths.cache_dir, paths.work_dir,
  prefixes.index, prefixes.docs,
  vector.driver, vector.qdrant_host, vector.qdrant_port,
  embedding.target, embedding.model, embedding.dimensions,
  openai.model, openai.base_url,
  ingest.words_per_chunk,
  events.driver, events.brokers, events.topic

Use subcommands to get, set, or list configuration values:
  personabrain config set <key> <value>    Set a configuration value
  personabrain config get <key>            Get a configuration value
  personabrain config list                 List all configuration values

Examples:
  personabrain config set storage.driver s3
  personabrain config set storage.bucket brains
  personabrain config get vector.driver
  personabrain config list`

const configShortDesc string = "Manage persistent personabrain configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
