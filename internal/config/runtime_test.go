package config

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetConfigDir(t *testing.T) {
	homeDir := "/home/testuser"

	t.Run("on non-Linux systems uses ~/.rpsh", func(t *testing.T) {
		if runtime.GOOS == "linux" {
			t.Skip("skipping test on Linux")
		}
		result := getConfigDir(homeDir)
		assert.Equal(t, filepath.Join(homeDir, ".rpsh"), result)
	})

	t.Run("on Linux with XDG_CONFIG_HOME uses $XDG_CONFIG_HOME/rpsh", func(t *testing.T) {
		if runtime.GOOS != "linux" {
			t.Skip("skipping test on non-Linux systems")
		}

		t.Setenv("XDG_CONFIG_HOME", "/custom/config")
		result := getConfigDir(homeDir)
		assert.Equal(t, "/custom/config/rpsh", result)
	})

	t.Run("on Linux without XDG_CONFIG_HOME uses ~/.config/rpsh", func(t *testing.T) {
		if runtime.GOOS != "linux" {
			t.Skip("skipping test on non-Linux systems")
		}

		t.Setenv("XDG_CONFIG_HOME", "")
		result := getConfigDir(homeDir)
		assert.Equal(t, filepath.Join(homeDir, ".config", "rpsh"), result)
	})
}

func TestExpandHome(t *testing.T) {
	rc := &RuntimeConfig{HomeDir: "/home/user"}

	assert.Equal(t, "/home/user", rc.ExpandHome("~"))
	assert.Equal(t, "/home/user/.ssh/id_ed25519", rc.ExpandHome("~/.ssh/id_ed25519"))
	assert.Equal(t, "/etc/key", rc.ExpandHome("/etc/key"))
	assert.Equal(t, "~other/key", rc.ExpandHome("~other/key"))
}
