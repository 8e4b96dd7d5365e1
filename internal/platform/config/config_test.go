package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, name := range []string{"HTTP_PORT", "DATABASE_DSN", "REDIS_ADDR", "STAGE_FANOUT", "REMOTE_TIMEOUT", "ADPILOT_CONFIG", "ROLLBACK_ON_FAILURE"} {
		t.Setenv(name, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.HTTPPort != "8080" || cfg.StageFanout != 3 || cfg.RemoteTimeout != 12*time.Second {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.RollbackOnFailure || !cfg.EnableLaunchConsumer || !cfg.EnableStaleJobReaper {
		t.Fatalf("unexpected flag defaults %+v", cfg)
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("ADPILOT_CONFIG", "")
	t.Setenv("STAGE_FANOUT", "6")
	t.Setenv("REMOTE_TIMEOUT", "3s")
	t.Setenv("ROLLBACK_ON_FAILURE", "yes")
	t.Setenv("ENABLE_STALE_JOB_REAPER", "off")
	t.Setenv("QUEUE_WORKERS", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.StageFanout != 6 || cfg.RemoteTimeout != 3*time.Second || !cfg.RollbackOnFailure || cfg.EnableStaleJobReaper {
		t.Fatalf("environment not applied: %+v", cfg)
	}
	if cfg.QueueWorkers != 4 {
		t.Fatalf("expected invalid QUEUE_WORKERS to fall back to 4, got %d", cfg.QueueWorkers)
	}
}

func TestLoadAppliesOverlayFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "adpilot.yaml")
	raw := []byte("stage_fanout: 2\nremote_timeout: 500ms\nrollback_on_failure: true\nvariants:\n  - label: wide\n")
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write overlay: %v", err)
	}
	t.Setenv("ADPILOT_CONFIG", path)
	t.Setenv("STAGE_FANOUT", "9")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.StageFanout != 2 || cfg.RemoteTimeout != 500*time.Millisecond || !cfg.RollbackOnFailure {
		t.Fatalf("overlay not applied: %+v", cfg)
	}
	if string(cfg.Overlay) != string(raw) {
		t.Fatalf("expected overlay kept for the variant catalog")
	}
}

func TestLoadRejectsNonPositiveFanout(t *testing.T) {
	t.Setenv("ADPILOT_CONFIG", "")
	t.Setenv("STAGE_FANOUT", "0")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for zero fanout")
	}
}

func TestApplyOverlayRejectsBadDurations(t *testing.T) {
	cfg := Config{}
	if err := cfg.ApplyOverlay([]byte("stale_job_after: soon\n")); err == nil {
		t.Fatal("expected duration parse error")
	}
	if err := cfg.ApplyOverlay([]byte(":\n  - [")); err == nil {
		t.Fatal("expected yaml parse error")
	}
}
