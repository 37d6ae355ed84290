package util

import (
	"os"
	"path/filepath"
	"strings"
)

// EnsureDir creates a directory if it doesn't exist
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// FileExists reports whether path exists, file or directory
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// CleanupFiles removes multiple files, ignoring errors, and returns how
// many were removed
func CleanupFiles(paths ...string) int {
	removed := 0
	for _, path := range paths {
		if err := os.Remove(path); err == nil {
			removed++
		}
	}
	return removed
}

// BaseName returns the file name of path without its extension
func BaseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
