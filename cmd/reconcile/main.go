// Package main runs one bulk reconcile pass and exits.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	reconcilecmd "github.com/profiledex/profiledex/internal/cmd/reconcile"
	"github.com/profiledex/profiledex/internal/platform/config"
)

func main() {
	cfg, err := reconcilecmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	log.SetPrefix("[RECONCILE] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := reconcilecmd.Run(ctx, cfg); err != nil {
		log.Fatalf("reconcile failed: %v", err)
	}
}
