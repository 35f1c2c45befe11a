package core

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func TestAllocateRunDirFresh(t *testing.T) {
	base := filepath.Join(t.TempDir(), "output")
	dir, err := AllocateRunDir(base)
	if err != nil {
		t.Fatalf("AllocateRunDir: %v", err)
	}
	if got := filepath.Base(dir); got != "1" {
		t.Errorf("first run dir = %q, want %q", got, "1")
	}
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		t.Errorf("run dir not created: %v", err)
	}
}

func TestAllocateRunDirSkipsGaps(t *testing.T) {
	base := t.TempDir()
	for _, name := range []string{"1", "2", "7", "junk"} {
		if err := os.Mkdir(filepath.Join(base, name), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	// A stray file with an integer name must not count.
	if err := os.WriteFile(filepath.Join(base, "9"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	dir, err := AllocateRunDir(base)
	if err != nil {
		t.Fatalf("AllocateRunDir: %v", err)
	}
	if got := filepath.Base(dir); got != "8" {
		t.Errorf("run dir = %q, want %q (one past highest integer dir)", got, "8")
	}
}

func TestAllocateRunDirSequential(t *testing.T) {
	base := t.TempDir()
	for want := 1; want <= 3; want++ {
		dir, err := AllocateRunDir(base)
		if err != nil {
			t.Fatalf("AllocateRunDir: %v", err)
		}
		if got := filepath.Base(dir); got != strconv.Itoa(want) {
			t.Errorf("run %d dir = %q, want %q", want, got, strconv.Itoa(want))
		}
	}
}

func TestEnsureImagesDir(t *testing.T) {
	run := t.TempDir()
	dir, err := EnsureImagesDir(run)
	if err != nil {
		t.Fatalf("EnsureImagesDir: %v", err)
	}
	if got := filepath.Base(dir); got != ImagesDirName {
		t.Errorf("images dir = %q, want %q", got, ImagesDirName)
	}
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		t.Errorf("images dir not created: %v", err)
	}
}
