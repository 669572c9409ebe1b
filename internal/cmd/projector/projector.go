// Package projector parses projector command flags and launches the
// projector runtime.
package projector

import (
	"context"
	"flag"
	"time"

	entrypoint "github.com/profiledex/profiledex/internal/platform/cmd"
	projectorserver "github.com/profiledex/profiledex/internal/services/projector/app"
)

// Config holds projector command configuration.
type Config struct {
	Port                          int           `env:"PROFILEDEX_PROJECTOR_PORT" envDefault:"8095"`
	DBPath                        string        `env:"PROFILEDEX_DB_PATH" envDefault:"data/profiledex.db"`
	BatchSize                     int           `env:"PROFILEDEX_PROJECTOR_BATCH_SIZE" envDefault:"50"`
	PollInterval                  time.Duration `env:"PROFILEDEX_PROJECTOR_POLL_INTERVAL" envDefault:"2s"`
	ExcludeCurrentFromCollections bool          `env:"PROFILEDEX_EXCLUDE_CURRENT_FROM_COLLECTIONS" envDefault:"false"`
	SearchSource                  string        `env:"PROFILEDEX_SEARCH_SOURCE" envDefault:"fields"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The projector health gRPC server port")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The projector SQLite database path")
	fs.IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "Mutation feed batch size")
	fs.DurationVar(&cfg.PollInterval, "poll-interval", cfg.PollInterval, "Mutation feed poll interval")
	fs.BoolVar(&cfg.ExcludeCurrentFromCollections, "exclude-current-from-collections", cfg.ExcludeCurrentFromCollections, "Exclude the current position from derived collection fields")
	fs.StringVar(&cfg.SearchSource, "search-source", cfg.SearchSource, "Search representation source: fields or document")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the projector runtime.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceProjector, func(context.Context) error {
		return projectorserver.Run(ctx, projectorserver.RuntimeConfig{
			Port:                          cfg.Port,
			DBPath:                        cfg.DBPath,
			BatchSize:                     cfg.BatchSize,
			PollInterval:                  cfg.PollInterval,
			ExcludeCurrentFromCollections: cfg.ExcludeCurrentFromCollections,
			SearchSource:                  cfg.SearchSource,
		})
	})
}
