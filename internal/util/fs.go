package util

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", path, err)
	}
	return nil
}

func SafeJoin(root, name string) string {
	return filepath.Join(root, filepath.Base(name))
}

// RemoveFiles deletes every path, ignoring ones that are already gone.
// It returns the first other error but still attempts the rest.
func RemoveFiles(paths ...string) error {
	var first error
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) && first == nil {
			first = fmt.Errorf("remove %s: %w", p, err)
		}
	}
	return first
}
