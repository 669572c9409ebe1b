package app

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/profiledex/profiledex/internal/services/projector/domain"
	"github.com/profiledex/profiledex/internal/services/projector/projection"
	projectorsqlite "github.com/profiledex/profiledex/internal/services/projector/storage/sqlite"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// RuntimeConfig controls projector startup, dependencies, and loop behavior.
type RuntimeConfig struct {
	Port                          int
	DBPath                        string
	BatchSize                     int
	PollInterval                  time.Duration
	ExcludeCurrentFromCollections bool
	SearchSource                  string
}

const (
	defaultProjectorPort = 8095
	defaultProjectorDB   = "data/profiledex.db"
)

// Run starts projector runtime dependencies and the mutation consumer loop.
func Run(ctx context.Context, cfg RuntimeConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Port <= 0 {
		cfg.Port = defaultProjectorPort
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = defaultProjectorDB
	}

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create projector storage dir: %w", err)
		}
	}

	store, err := projectorsqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open projector sqlite store: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			log.Printf("close projector sqlite store: %v", closeErr)
		}
	}()

	propagator := projection.NewPropagator(store, NormalizeOptions(cfg))
	loop := NewLoop(store, propagator, LoopConfig{
		BatchSize:    cfg.BatchSize,
		PollInterval: cfg.PollInterval,
	})

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return fmt.Errorf("listen on projector port %d: %w", cfg.Port, err)
	}
	defer listener.Close()

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus("projector.runtime", grpc_health_v1.HealthCheckResponse_SERVING)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- grpcServer.Serve(listener)
	}()
	defer func() {
		healthServer.Shutdown()
		grpcServer.GracefulStop()
		<-serveErr
	}()

	log.Printf("projector server listening at %v", listener.Addr())
	return loop.Run(ctx)
}

// NormalizeOptions maps runtime configuration onto normalization policy.
func NormalizeOptions(cfg RuntimeConfig) domain.Options {
	opts := domain.Options{
		ExcludeCurrentFromCollections: cfg.ExcludeCurrentFromCollections,
		SearchSource:                  domain.SearchSourceFields,
	}
	if strings.EqualFold(strings.TrimSpace(cfg.SearchSource), string(domain.SearchSourceDocument)) {
		opts.SearchSource = domain.SearchSourceDocument
	}
	return opts
}
