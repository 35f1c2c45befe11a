package core

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDirResolver(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "dirt.jpg"), []byte("jpg"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "textures"), 0o755); err != nil {
		t.Fatal(err)
	}

	resolve := DirResolver(dir)

	if p, ok := resolve("dirt.jpg"); !ok || p != filepath.Join(dir, "dirt.jpg") {
		t.Errorf("dirt.jpg: got (%q, %v)", p, ok)
	}
	if _, ok := resolve("missing.jpg"); ok {
		t.Error("missing file resolved")
	}
	// Directories are not assets.
	if _, ok := resolve("textures"); ok {
		t.Error("directory resolved as asset")
	}
	if _, ok := resolve(""); ok {
		t.Error("empty name resolved")
	}
}

func TestDirResolverEmptyDir(t *testing.T) {
	resolve := DirResolver("")
	if _, ok := resolve("dirt.jpg"); ok {
		t.Error("empty asset dir resolved a file")
	}
}

func TestNoAssets(t *testing.T) {
	if _, ok := NoAssets()("anything"); ok {
		t.Error("NoAssets resolved a file")
	}
}
