package util

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ListFiles returns the paths of the regular files in dir whose extension
// matches one of exts (case-insensitive, with the leading dot). An empty exts
// matches every file. The result is sorted by name so that callers iterate a
// dataset in a reproducible order.
//
// Arguments:
// - dir: Directory to scan (not recursive).
// - exts: Accepted extensions, e.g. ".xml" or ".jpg", ".jpeg".
//
// Returns:
// - []string: Sorted file paths.
// - error: Error if the directory cannot be read.
func ListFiles(dir string, exts ...string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if len(exts) > 0 && !hasExt(entry.Name(), exts) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}

	sort.Strings(paths)
	return paths, nil
}

func hasExt(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}
