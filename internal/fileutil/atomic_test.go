package fileutil

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFileAtomic(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "hand.phh")

	if err := WriteFileAtomic(path, []byte("initial"), 0o644); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteFileAtomic(path, []byte("variant = \"NT\"\n"), 0o600); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "variant = \"NT\"\n" {
		t.Errorf("content = %q", data)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("perm = %o", info.Mode().Perm())
	}
	assertOnlyFile(t, dir, "hand.phh")
}

func TestWriteAtomicFailureKeepsOriginal(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "session.phhs")
	if err := WriteFileAtomic(path, []byte("[1]\n"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	boom := errors.New("encoder failed")
	err := WriteAtomic(path, 0o644, func(w io.Writer) error {
		_, _ = io.WriteString(w, "[2]\npartial")
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected encoder error, got %v", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "[1]\n" {
		t.Errorf("original replaced by %q", data)
	}
	assertOnlyFile(t, dir, "session.phhs")
}

func TestWriteFileAtomicMissingDir(t *testing.T) {
	t.Parallel()
	if err := WriteFileAtomic(filepath.Join(t.TempDir(), "missing", "x"), nil, 0o644); err == nil {
		t.Error("expected error for a missing directory")
	}
}

func assertOnlyFile(t *testing.T, dir, name string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, e := range entries {
		if e.Name() != name {
			t.Errorf("unexpected file %s", e.Name())
		}
	}
}
