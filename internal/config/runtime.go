package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// RuntimeConfig holds the filesystem locations the client uses on this host
type RuntimeConfig struct {
	HomeDir    string
	ConfigDir  string // Holds config.yaml and the log file
	ConfigFile string
	LogFile    string
}

var (
	// Runtime is the global runtime configuration instance
	Runtime *RuntimeConfig
)

func init() {
	Runtime = DetectRuntime()
}

// DetectRuntime resolves the per-user directories for the current host
func DetectRuntime() *RuntimeConfig {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = os.Getenv("HOME")
		if homeDir == "" {
			homeDir = "."
		}
	}

	configDir := getConfigDir(homeDir)

	return &RuntimeConfig{
		HomeDir:    homeDir,
		ConfigDir:  configDir,
		ConfigFile: filepath.Join(configDir, "config.yaml"),
		LogFile:    filepath.Join(configDir, "rpsh.log"),
	}
}

// getConfigDir follows XDG on Linux and uses ~/.rpsh elsewhere
func getConfigDir(homeDir string) string {
	if runtime.GOOS == "linux" {
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "rpsh")
		}
		return filepath.Join(homeDir, ".config", "rpsh")
	}
	return filepath.Join(homeDir, ".rpsh")
}

// ExpandHome resolves a leading ~/ against the user's home directory
func (rc *RuntimeConfig) ExpandHome(path string) string {
	if path == "~" {
		return rc.HomeDir
	}
	if len(path) > 1 && path[0] == '~' && (path[1] == '/' || path[1] == filepath.Separator) {
		return filepath.Join(rc.HomeDir, path[2:])
	}
	return path
}
