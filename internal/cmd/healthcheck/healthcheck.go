// Package healthcheck parses healthcheck command flags and probes a
// running projector's gRPC health endpoint.
package healthcheck

import (
	"context"
	"flag"
	"log"
	"time"

	entrypoint "github.com/profiledex/profiledex/internal/platform/cmd"
	platformgrpc "github.com/profiledex/profiledex/internal/platform/grpc"
)

// Config holds healthcheck command configuration.
type Config struct {
	Addr    string        `env:"PROFILEDEX_HEALTHCHECK_ADDR" envDefault:"127.0.0.1:8095"`
	Service string        `env:"PROFILEDEX_HEALTHCHECK_SERVICE" envDefault:"projector.runtime"`
	Timeout time.Duration `env:"PROFILEDEX_HEALTHCHECK_TIMEOUT" envDefault:"10s"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "The projector gRPC health address")
	fs.StringVar(&cfg.Service, "service", cfg.Service, "The health service name to probe")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "How long to wait for SERVING")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run probes the configured health endpoint until it reports SERVING or
// the timeout elapses.
func Run(ctx context.Context, cfg Config) error {
	return platformgrpc.ProbeHealth(ctx, nil, cfg.Addr, cfg.Service, cfg.Timeout, log.Printf, platformgrpc.DefaultClientDialOptions()...)
}
