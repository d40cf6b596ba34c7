package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestExpandGlobs(t *testing.T) {
	dir := t.TempDir()

	fileA := filepath.Join(dir, "a.log")
	fileB := filepath.Join(dir, "b.log")
	fileC := filepath.Join(dir, "c.txt")

	for _, path := range []string{fileA, fileB, fileC} {
		if err := os.WriteFile(path, []byte("test"), 0o600); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
	}

	files, err := ExpandGlobs([]string{filepath.Join(dir, "*.log")})
	if err != nil {
		t.Fatalf("ExpandGlobs() error = %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(files))
	}

	files, err = ExpandGlobs([]string{fileB, fileA, filepath.Join(dir, "*.log")})
	if err != nil {
		t.Fatalf("ExpandGlobs() error = %v", err)
	}
	if len(files) != 2 || files[0] != fileA || files[1] != fileB {
		t.Fatalf("expected sorted unique [a.log b.log], got %v", files)
	}
}

func TestExpandGlobsNoMatch(t *testing.T) {
	dir := t.TempDir()

	_, err := ExpandGlobs([]string{filepath.Join(dir, "*.missing")})
	var missing *MissingFileError
	if !errors.As(err, &missing) {
		t.Fatalf("expected *MissingFileError for unmatched glob, got %v", err)
	}
}

func TestExpandGlobsMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "syslog")

	_, err := ExpandGlobs([]string{path})
	var missing *MissingFileError
	if !errors.As(err, &missing) {
		t.Fatalf("expected *MissingFileError, got %v", err)
	}
	if missing.Path != path {
		t.Errorf("MissingFileError.Path = %q, want %q", missing.Path, path)
	}
	want := `The specified syslog file "` + path + `" does not exist`
	if missing.Error() != want {
		t.Errorf("Error() = %q, want %q", missing.Error(), want)
	}
}

func TestExpandGlobsEmpty(t *testing.T) {
	if _, err := ExpandGlobs(nil); err == nil {
		t.Fatal("expected error for no patterns")
	}
}
