// Package main probes a running projector's gRPC health endpoint.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	healthcheckcmd "github.com/profiledex/profiledex/internal/cmd/healthcheck"
	"github.com/profiledex/profiledex/internal/platform/config"
)

func main() {
	cfg, err := healthcheckcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	log.SetPrefix("[HEALTHCHECK] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := healthcheckcmd.Run(ctx, cfg); err != nil && ctx.Err() == nil {
		log.Fatalf("health probe failed: %v", err)
	}
}
