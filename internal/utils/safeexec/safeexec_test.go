package safeexec

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLookPath(t *testing.T) {
	dir := t.TempDir()
	exe := filepath.Join(dir, "fake-tool")
	if err := os.WriteFile(exe, []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatal(err)
	}
	plain := filepath.Join(dir, "not-executable")
	if err := os.WriteFile(plain, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("PATH", dir)

	got, err := LookPath("fake-tool")
	if err != nil {
		t.Fatalf("LookPath failed: %v", err)
	}
	if got != exe {
		t.Errorf("LookPath = %q, want %q", got, exe)
	}

	if _, err := LookPath("not-executable"); err == nil {
		t.Error("expected error for non-executable file")
	}
	if _, err := LookPath("missing-tool"); err == nil {
		t.Error("expected error for missing tool")
	}
	if got, err := LookPath(exe); err != nil || got != exe {
		t.Errorf("absolute path lookup = %q, %v", got, err)
	}
	if !Available("fake-tool") || Available("missing-tool") {
		t.Error("Available disagrees with LookPath")
	}
}

func TestCommand_UsesResolvedPath(t *testing.T) {
	dir := t.TempDir()
	exe := filepath.Join(dir, "fake-tool")
	if err := os.WriteFile(exe, []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", dir)

	if cmd := Command("fake-tool", "a"); cmd.Path != exe {
		t.Errorf("Command path = %q, want %q", cmd.Path, exe)
	}
}
