// Package pathsafety guards against remote listings producing filenames or
// paths that would escape the configured local directory trees.
package pathsafety

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
)

// ValidateRelativePath rejects absolute paths and traversal sequences in a
// path segment taken from a remote directory listing before it is joined
// onto a local root.
func ValidateRelativePath(p string) error {
	if filepath.IsAbs(p) {
		slog.Error("pathsafety_validation_failed", "path", p, "reason", "absolute_path")
		return fmt.Errorf("pathsafety: absolute path not allowed: %s", p)
	}

	clean := filepath.Clean(p)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		slog.Error("pathsafety_validation_failed", "path", p, "reason", "path_traversal")
		return fmt.Errorf("pathsafety: path traversal detected: %s", p)
	}

	return nil
}

// JoinUnderRoot validates name and joins it under root, guaranteeing the
// result stays within root.
func JoinUnderRoot(root, name string) (string, error) {
	if err := ValidateRelativePath(name); err != nil {
		return "", err
	}
	return filepath.Join(root, filepath.Clean(name)), nil
}
