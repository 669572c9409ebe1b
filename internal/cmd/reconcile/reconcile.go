// Package reconcile parses reconcile command flags and runs one bulk
// rebuild pass over the source set.
package reconcile

import (
	"context"
	"flag"
	"fmt"
	"log"

	entrypoint "github.com/profiledex/profiledex/internal/platform/cmd"
	projectorserver "github.com/profiledex/profiledex/internal/services/projector/app"
	"github.com/profiledex/profiledex/internal/services/projector/projection"
	projectorsqlite "github.com/profiledex/profiledex/internal/services/projector/storage/sqlite"
)

// Config holds reconcile command configuration.
type Config struct {
	DBPath                        string `env:"PROFILEDEX_DB_PATH" envDefault:"data/profiledex.db"`
	ExcludeCurrentFromCollections bool   `env:"PROFILEDEX_EXCLUDE_CURRENT_FROM_COLLECTIONS" envDefault:"false"`
	SearchSource                  string `env:"PROFILEDEX_SEARCH_SOURCE" envDefault:"fields"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The projector SQLite database path")
	fs.BoolVar(&cfg.ExcludeCurrentFromCollections, "exclude-current-from-collections", cfg.ExcludeCurrentFromCollections, "Exclude the current position from derived collection fields")
	fs.StringVar(&cfg.SearchSource, "search-source", cfg.SearchSource, "Search representation source: fields or document")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run executes one reconciliation pass and logs the report counts.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceReconcile, func(context.Context) error {
		store, err := projectorsqlite.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open projector sqlite store: %w", err)
		}
		defer func() {
			if closeErr := store.Close(); closeErr != nil {
				log.Printf("close projector sqlite store: %v", closeErr)
			}
		}()

		opts := projectorserver.NormalizeOptions(projectorserver.RuntimeConfig{
			ExcludeCurrentFromCollections: cfg.ExcludeCurrentFromCollections,
			SearchSource:                  cfg.SearchSource,
		})
		propagator := projection.NewPropagator(store, opts)
		reconciler := projection.NewReconciler(store, propagator)

		report, err := reconciler.Reconcile(ctx)
		if err != nil {
			return fmt.Errorf("reconcile: %w", err)
		}
		log.Printf("reconcile: considered=%d written=%d gap=%d", report.Considered, report.Written, report.Gap)
		return nil
	})
}
