// Package paths resolves where applywise keeps its local state.
package paths

import (
	"os"
	"path/filepath"
)

// DataDir returns the directory that holds the sqlite database. An explicit
// $XDG_DATA_HOME wins; otherwise ~/.local/share is used.
func DataDir() (string, error) {
	if base := os.Getenv("XDG_DATA_HOME"); base != "" {
		return filepath.Join(base, "applywise"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "applywise"), nil
}
