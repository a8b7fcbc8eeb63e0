package core

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadOrGenerateCreatesAndReuses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.json")

	id1, err := LoadOrGenerate(path, "Base")
	if err != nil {
		t.Fatalf("First LoadOrGenerate failed: %v", err)
	}
	if id1.NodeID == "" {
		t.Fatal("Expected a generated node id")
	}
	if id1.Label != "Base" {
		t.Errorf("Expected label Base, got %q", id1.Label)
	}

	id2, err := LoadOrGenerate(path, "")
	if err != nil {
		t.Fatalf("Second LoadOrGenerate failed: %v", err)
	}
	if id2.NodeID != id1.NodeID {
		t.Errorf("Identity not stable across restarts: %q vs %q", id1.NodeID, id2.NodeID)
	}
	if id2.Label != "Base" {
		t.Errorf("Expected stored label preserved, got %q", id2.Label)
	}
}

func TestLoadOrGenerateLabelOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.json")

	id1, err := LoadOrGenerate(path, "Old")
	if err != nil {
		t.Fatalf("LoadOrGenerate failed: %v", err)
	}
	id2, err := LoadOrGenerate(path, "New")
	if err != nil {
		t.Fatalf("LoadOrGenerate with override failed: %v", err)
	}
	if id2.NodeID != id1.NodeID {
		t.Error("Label override must not change the node id")
	}
	if id2.Label != "New" {
		t.Errorf("Expected overridden label New, got %q", id2.Label)
	}

	// The override is persisted.
	id3, err := LoadOrGenerate(path, "")
	if err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if id3.Label != "New" {
		t.Errorf("Expected persisted label New, got %q", id3.Label)
	}
}

func TestCorruptIdentityFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.json")
	if err := os.WriteFile(path, []byte("{broken"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadOrGenerate(path, "Base"); err == nil {
		t.Error("Expected error for corrupt identity file")
	}
}
