package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// ResolveModelDir picks the directory where ggml model files live. An
// explicit override wins; otherwise the platform data directory is used.
func ResolveModelDir(override string) (string, error) {
	if override != "" {
		return filepath.Clean(override), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve user home: %w", err)
	}

	return DefaultModelDirFor(runtime.GOOS, homeDir, os.Getenv("XDG_DATA_HOME"))
}

// ResolveUploadDir returns the scratch directory for decoded uploads and
// per-segment engine input. Contents are transient and safe to wipe.
func ResolveUploadDir() (string, error) {
	dir := filepath.Join(os.TempDir(), "voxnotes")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create upload directory %s: %w", dir, err)
	}
	return dir, nil
}

func DefaultModelDirFor(goos, homeDir, xdgDataHome string) (string, error) {
	dataDir, err := defaultDataDirFor(goos, homeDir, xdgDataHome)
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "models"), nil
}

func defaultDataDirFor(goos, homeDir, xdgDataHome string) (string, error) {
	if homeDir == "" {
		return "", errors.New("home directory is empty")
	}

	switch goos {
	case "linux":
		if xdgDataHome != "" {
			return filepath.Join(xdgDataHome, "voxnotes"), nil
		}
		return filepath.Join(homeDir, ".local", "share", "voxnotes"), nil
	case "darwin":
		return filepath.Join(homeDir, "Library", "Application Support", "voxnotes"), nil
	default:
		return "", fmt.Errorf("unsupported OS: %s", goos)
	}
}
