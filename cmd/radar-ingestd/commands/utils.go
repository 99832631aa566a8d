package commands

import (
	"os"
	"path/filepath"

	"github.com/fly-io/162719/pkg/errors"
)

// ensureDirectories creates every local directory the pipeline writes to.
func ensureDirectories(dirs ...string) error {
	for _, d := range dirs {
		if d == "" {
			continue
		}
		if err := os.MkdirAll(d, 0o755); err != nil {
			return errors.Wrap(err, "failed to create directory "+d)
		}
	}
	return nil
}

// ensureParentDir creates the parent directory of a file path, used for the
// state store's SQLite file.
func ensureParentDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
