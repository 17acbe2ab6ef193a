// Package paths resolves where the back office keeps its configuration,
// its database and its uploaded documents.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// appDirName names the per-user configuration folder.
const appDirName = "backoffice"

// CWD-relative directory names.
const (
	DefaultConfigDirName = ".backoffice"
	DefaultDataDirName   = ".backoffice-db"

	// BlobDirName is the documents folder inside the data directory.
	BlobDirName = "blobs"
)

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "BACKOFFICE_CONFIG_DIR"
	EnvDataDir   = "BACKOFFICE_DATA_DIR"
)

// platformDir holds platform lookups that tests override.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// DefaultConfigDir returns the per-user configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/backoffice (fallback ~/.config/backoffice)
// macOS:   ~/Library/Application Support/backoffice
// Windows: %APPDATA%/backoffice
func DefaultConfigDir() (string, error) {
	if runtime.GOOS == "linux" {
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, appDirName), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", appDirName), nil
	}
	dir, err := platformDir.userConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appDirName), nil
}

// ResolveConfigDir returns the configuration directory: flag, then
// BACKOFFICE_CONFIG_DIR, then DefaultConfigDir. The result is absolute.
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ResolveDataDir returns the data directory: flag, then the config.yaml
// value, then BACKOFFICE_DATA_DIR, then $(CWD)/.backoffice-db.
func ResolveDataDir(flag, configValue string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if configValue != "" {
		return filepath.Abs(configValue)
	}
	if env := os.Getenv(EnvDataDir); env != "" {
		return filepath.Abs(env)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DefaultDataDirName), nil
}

// ResolveBlobDir returns the documents directory: the config.yaml value,
// relative values taken from the data directory, else <dataDir>/blobs.
func ResolveBlobDir(configValue, dataDir string) string {
	switch {
	case configValue == "":
		return filepath.Join(dataDir, BlobDirName)
	case filepath.IsAbs(configValue):
		return filepath.Clean(configValue)
	}
	return filepath.Join(dataDir, configValue)
}
