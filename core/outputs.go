package core

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
)

// Artifact names inside a run directory.
const (
	PLYName          = "scene.ply"
	OBJName          = "scene.obj"
	ManifestName     = "scene_info.md"
	ImagesDirName    = "images"
	SegmentationName = "segmentation.json"
)

// AllocateRunDir creates and returns base/<N>, where N is one past the
// highest integer-named directory already in base. Entries that are not
// directories or not positive integers are ignored, so runs interleave
// cleanly with whatever else lives in the output tree.
func AllocateRunDir(base string) (string, error) {
	entries, err := os.ReadDir(base)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("reading output base: %w", err)
	}

	next := 1
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		n, err := strconv.Atoi(e.Name())
		if err != nil || n < 1 {
			continue
		}
		if n >= next {
			next = n + 1
		}
	}

	dir := filepath.Join(base, strconv.Itoa(next))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating run dir: %w", err)
	}
	return dir, nil
}

// EnsureImagesDir creates the images subdirectory of a run directory and
// returns its path.
func EnsureImagesDir(runDir string) (string, error) {
	dir := filepath.Join(runDir, ImagesDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating images dir: %w", err)
	}
	return dir, nil
}
