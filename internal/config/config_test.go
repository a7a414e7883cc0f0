package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "console" {
		t.Errorf("unexpected log settings %q %q", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.HTTPTimeout != 30*time.Second {
		t.Errorf("expected 30s timeout, got %s", cfg.HTTPTimeout)
	}
	if !cfg.AllowHTTP || cfg.SimulateQuery {
		t.Errorf("unexpected flags allow_http=%v simulate=%v", cfg.AllowHTTP, cfg.SimulateQuery)
	}
	if cfg.OutputDir != "." || cfg.Manifest != "" {
		t.Errorf("unexpected paths %q %q", cfg.OutputDir, cfg.Manifest)
	}
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("DCMMETA_LOG_FORMAT", "JSON")
	t.Setenv("DCMMETA_HTTP_TIMEOUT", "5s")
	t.Setenv("DCMMETA_SIMULATE_QUERY", "true")
	t.Setenv("DCMMETA_MANIFEST", "/etc/dcmmeta/sources.yaml")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("expected json, got %q", cfg.LogFormat)
	}
	if cfg.HTTPTimeout != 5*time.Second {
		t.Errorf("expected 5s, got %s", cfg.HTTPTimeout)
	}
	if !cfg.SimulateQuery {
		t.Errorf("expected simulate query")
	}
	if cfg.Manifest != "/etc/dcmmeta/sources.yaml" {
		t.Errorf("unexpected manifest %q", cfg.Manifest)
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dcmmeta.yaml")
	if err := os.WriteFile(path, []byte("OUTPUT_DIR: out\nLOG_LEVEL: debug\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.OutputDir != "out" || cfg.LogLevel != "debug" {
		t.Errorf("unexpected values %q %q", cfg.OutputDir, cfg.LogLevel)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	cases := []Config{
		{LogFormat: "xml", OutputDir: "."},
		{LogFormat: "json", OutputDir: ".", HTTPTimeout: -time.Second},
		{LogFormat: "json"},
	}
	for _, cfg := range cases {
		if err := cfg.Validate(); err == nil {
			t.Errorf("expected error for %+v", cfg)
		}
	}
}
