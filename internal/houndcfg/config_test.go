package houndcfg

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hound.json")
	const body = `{
		"schema_base_dir": "/etc/hound/schemas",
		"drivers": [
			{"name": "file", "path": "/tmp/log.txt", "schema_file": "file.yaml", "args": "--baud 9600 --device /dev/ttyUSB0"}
		]
	}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SchemaBaseDir != "/etc/hound/schemas" {
		t.Fatalf("unexpected schema base dir: %q", cfg.SchemaBaseDir)
	}
	if len(cfg.Drivers) != 1 {
		t.Fatalf("got %d drivers, want 1", len(cfg.Drivers))
	}

	tokens, err := cfg.Drivers[0].ArgsTokens()
	if err != nil {
		t.Fatalf("ArgsTokens: %v", err)
	}
	want := []string{"--baud", "9600", "--device", "/dev/ttyUSB0"}
	if len(tokens) != len(want) {
		t.Fatalf("got %v, want %v", tokens, want)
	}
	for i := range want {
		if tokens[i] != want[i] {
			t.Fatalf("got %v, want %v", tokens, want)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/hound.json"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
