package core

import (
	"os"
	"path/filepath"
)

// AssetResolver locates a named asset (soil texture, sky dome) on disk. A
// false return means the asset is unavailable; stages fall back per their
// own policy and log the miss, they never fail on it.
type AssetResolver func(name string) (path string, ok bool)

// DirResolver resolves asset names against a directory. An empty directory
// resolves nothing, which is the default for installations without an asset
// bundle.
func DirResolver(dir string) AssetResolver {
	return func(name string) (string, bool) {
		if dir == "" || name == "" {
			return "", false
		}
		p := filepath.Join(dir, name)
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return p, true
		}
		return "", false
	}
}

// NoAssets is a resolver that finds nothing.
func NoAssets() AssetResolver {
	return func(string) (string, bool) { return "", false }
}
