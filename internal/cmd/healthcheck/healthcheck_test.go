package healthcheck

import (
	"flag"
	"testing"
	"time"
)

func TestParseConfig_ParsesDefaultsAndFlags(t *testing.T) {
	fs := flag.NewFlagSet("healthcheck", flag.ContinueOnError)
	t.Setenv("PROFILEDEX_HEALTHCHECK_TIMEOUT", "3s")

	cfg, err := ParseConfig(fs, []string{"-addr", "127.0.0.1:9095"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Addr != "127.0.0.1:9095" {
		t.Fatalf("addr = %q, want 127.0.0.1:9095", cfg.Addr)
	}
	if cfg.Timeout != 3*time.Second {
		t.Fatalf("timeout = %v, want 3s", cfg.Timeout)
	}
	if cfg.Service != "projector.runtime" {
		t.Fatalf("service = %q, want projector.runtime", cfg.Service)
	}
}
