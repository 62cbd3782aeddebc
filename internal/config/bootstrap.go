package config

import (
	"errors"
	"os"
	"path/filepath"
)

// EnsureUserConfig makes sure a config file exists under dataDir,
// writing the defaults on first run. Returns the path to use.
func EnsureUserConfig(dataDir string) (string, error) {
	userPath := filepath.Join(dataDir, "config.yml")

	_, err := os.Stat(userPath)
	if err == nil {
		return userPath, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	if err := SaveAtomic(userPath, Default()); err != nil {
		return "", err
	}
	return userPath, nil
}
