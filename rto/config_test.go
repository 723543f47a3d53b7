package rto

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rto.yaml")
	contents := []byte("name: demo\ncall_slots: 128\ncall_timeout: 2s\nthread_pool: 16\n")
	if err := os.WriteFile(path, contents, 0o644); err != nil {
		t.Fatalf("os.WriteFile: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Name != "demo" {
		t.Errorf("Name = %q, want %q", cfg.Name, "demo")
	}
	if cfg.CallSlots != 128 {
		t.Errorf("CallSlots = %d, want 128", cfg.CallSlots)
	}
	if cfg.CallTimeout != 2*time.Second {
		t.Errorf("CallTimeout = %v, want 2s", cfg.CallTimeout)
	}
	if cfg.ThreadPool != 16 {
		t.Errorf("ThreadPool = %d, want 16", cfg.ThreadPool)
	}
}

func TestConfigWithDefaults(t *testing.T) {
	cfg := Config{CallSlots: 9}.withDefaults()
	def := DefaultConfig()
	if cfg.CallSlots != 9 {
		t.Errorf("CallSlots = %d, want 9", cfg.CallSlots)
	}
	if cfg.ThreadPool != def.ThreadPool {
		t.Errorf("ThreadPool = %d, want default %d", cfg.ThreadPool, def.ThreadPool)
	}
	if cfg.Name != def.Name {
		t.Errorf("Name = %q, want default %q", cfg.Name, def.Name)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("LoadConfig on a missing file succeeded, want an error")
	}
}
