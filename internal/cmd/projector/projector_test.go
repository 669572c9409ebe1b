package projector

import (
	"flag"
	"testing"
	"time"
)

func TestParseConfig_ParsesDefaultsAndFlags(t *testing.T) {
	fs := flag.NewFlagSet("projector", flag.ContinueOnError)
	t.Setenv("PROFILEDEX_PROJECTOR_PORT", "9095")
	t.Setenv("PROFILEDEX_DB_PATH", "env/profiledex.db")

	cfg, err := ParseConfig(fs, []string{"-batch-size", "25", "-poll-interval", "500ms"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Port != 9095 {
		t.Fatalf("port = %d, want 9095", cfg.Port)
	}
	if cfg.DBPath != "env/profiledex.db" {
		t.Fatalf("db path = %q, want %q", cfg.DBPath, "env/profiledex.db")
	}
	if cfg.BatchSize != 25 {
		t.Fatalf("batch size = %d, want 25", cfg.BatchSize)
	}
	if cfg.PollInterval != 500*time.Millisecond {
		t.Fatalf("poll interval = %v, want 500ms", cfg.PollInterval)
	}
}

func TestParseConfig_Defaults(t *testing.T) {
	fs := flag.NewFlagSet("projector", flag.ContinueOnError)

	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Port != 8095 {
		t.Fatalf("port = %d, want 8095", cfg.Port)
	}
	if cfg.SearchSource != "fields" {
		t.Fatalf("search source = %q, want fields", cfg.SearchSource)
	}
	if cfg.ExcludeCurrentFromCollections {
		t.Fatal("expected current entry included in collections by default")
	}
}
