package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ferrolabs/ferrodb/bufferpool"
	"github.com/ferrolabs/ferrodb/config"
)

func TestDefault(t *testing.T) {
	c := config.Default("/tmp/db")
	if c.TableDir != "/tmp/db" {
		t.Fatalf("expected /tmp/db, got %s", c.TableDir)
	}
	if c.BufferFrames != 16 {
		t.Fatalf("expected 16 frames, got %d", c.BufferFrames)
	}
	strat, err := c.Strategy()
	if err != nil || strat != bufferpool.LRU {
		t.Fatalf("expected default strategy LRU, got %v err %v", strat, err)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ferrodb.yaml")
	content := "table_dir: ../data\nbuffer_frames: 32\nreplacement_policy: FIFO\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	c, err := config.Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if c.TableDir != "../data" {
		t.Fatalf("expected ../data, got %s", c.TableDir)
	}
	if c.BufferFrames != 32 {
		t.Fatalf("expected 32 frames, got %d", c.BufferFrames)
	}
	strat, err := c.Strategy()
	if err != nil || strat != bufferpool.FIFO {
		t.Fatalf("expected FIFO strategy, got %v err %v", strat, err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := config.Load("does-not-exist.yaml"); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLoadFillsDefaultsForUnsetFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "partial.yaml")
	if err := os.WriteFile(path, []byte("replacement_policy: LRU\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	c, err := config.Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if c.BufferFrames != 16 {
		t.Fatalf("expected default frame count 16, got %d", c.BufferFrames)
	}
	if c.TableDir != "." {
		t.Fatalf("expected default table dir '.', got %s", c.TableDir)
	}
}

func TestUnknownStrategyRejected(t *testing.T) {
	c := config.Default(".")
	c.ReplacementBy = "MRU"
	if _, err := c.Strategy(); err == nil {
		t.Fatalf("expected error for unknown replacement policy")
	}
}
