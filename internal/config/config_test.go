package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tricore-tools/tcasm/internal/diag"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Architecture.Endianness != "little" || cfg.Architecture.WordSize != 32 {
		t.Errorf("unexpected default architecture: %+v", cfg.Architecture)
	}
	if !cfg.Output.GenerateBin || !cfg.Output.GenerateLst || !cfg.Output.GenerateMap {
		t.Errorf("expected bin/lst/map to default on: %+v", cfg.Output)
	}
	if cfg.Output.GenerateHex {
		t.Errorf("expected hex to default off")
	}
}

func TestLoadPartialFileOverridesOnlyMentionedKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{"architecture":{"endianness":"big","word_size":32}}`), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	bag := &diag.Bag{}
	cfg := Load(path, bag)
	if bag.HasFatal() {
		t.Fatalf("unexpected diagnostics: %v", bag.All())
	}
	if cfg.Architecture.Endianness != "big" {
		t.Errorf("endianness = %q, want big", cfg.Architecture.Endianness)
	}
	if !cfg.Output.GenerateBin {
		t.Errorf("expected unmentioned output keys to keep their default")
	}
}

func TestLoadRejectsInvalidEndianness(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{"architecture":{"endianness":"middle","word_size":32}}`), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	bag := &diag.Bag{}
	cfg := Load(path, bag)
	if !bag.HasFatal() {
		t.Fatalf("expected a ConfigError diagnostic")
	}
	if cfg.Architecture.Endianness != "little" {
		t.Errorf("expected fallback to default endianness, got %q", cfg.Architecture.Endianness)
	}
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{not json`), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	bag := &diag.Bag{}
	Load(path, bag)
	if !bag.HasFatal() {
		t.Fatalf("expected a ConfigError diagnostic for malformed JSON")
	}
}

func TestLoadMissingFile(t *testing.T) {
	bag := &diag.Bag{}
	cfg := Load("/nonexistent/config.json", bag)
	if !bag.HasFatal() {
		t.Fatalf("expected a ConfigError diagnostic for a missing file")
	}
	if cfg != Default() {
		t.Errorf("expected Default() to be returned unchanged on read failure")
	}
}

func TestStringSummary(t *testing.T) {
	s := Default().String()
	if s == "" {
		t.Errorf("expected a non-empty summary")
	}
}
