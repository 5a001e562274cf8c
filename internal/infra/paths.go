package infra

import (
	"os"
	"path/filepath"
	"runtime"
)

const (
	AppName = "crypto-change"
)

// GetWorkspaceDir returns the root directory for runtime data (the sqlite
// store lives under it). A local "_workspace" directory takes priority for
// portable/dev runs; otherwise the OS-standard data directory is used.
func GetWorkspaceDir() string {
	localDir := "_workspace"
	if _, err := os.Stat(localDir); err == nil {
		return localDir
	}

	var baseDir string
	switch runtime.GOOS {
	case "windows":
		baseDir = os.Getenv("APPDATA")
		if baseDir == "" {
			baseDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, _ := os.UserHomeDir()
		baseDir = filepath.Join(home, "Library", "Application Support")
	case "linux":
		if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
			baseDir = dataHome
		} else {
			home, _ := os.UserHomeDir()
			baseDir = filepath.Join(home, ".local", "share")
		}
	default:
		return localDir
	}

	return filepath.Join(baseDir, AppName)
}

// EnsureDir creates the directory if it doesn't exist with safe permissions.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// ResolveConfigPath locates config.yaml.
// Priority: 1. current dir, 2. OS config dir.
func ResolveConfigPath() string {
	defaultPath := filepath.Join("configs", "config.yaml")

	if _, err := os.Stat(defaultPath); err == nil {
		return defaultPath
	}

	if configRoot, err := os.UserConfigDir(); err == nil {
		osPath := filepath.Join(configRoot, AppName, "config.yaml")
		if _, err := os.Stat(osPath); err == nil {
			return osPath
		}
	}

	return defaultPath
}
