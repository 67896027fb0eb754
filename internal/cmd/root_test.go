package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettings_Layering(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("url: http://file:4200/\nhostname: from-file\nusername: file-user\nport: \"2200\"\n"), 0600))
	t.Setenv("RPSH_USERNAME", "env-user")
	t.Setenv("RPSH_LOG_FILE", filepath.Join(dir, "rpsh.log"))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"--config", path, "--host", "from-flag", "version"})
	require.NoError(t, rootCmd.Execute())

	assert.Equal(t, "http://file:4200/", settings.URL)
	assert.Equal(t, "from-flag", settings.Hostname)
	assert.Equal(t, "env-user", settings.Username)
	assert.Equal(t, "2200", settings.Port)
	assert.Contains(t, out.String(), "rpsh "+Version)
}

func TestLogToFile(t *testing.T) {
	dir := t.TempDir()
	settings.LogFile = filepath.Join(dir, "logs", "rpsh.log")
	settings.LogLevel = "info"

	restore, err := logToFile()
	require.NoError(t, err)
	restore()

	_, err = os.Stat(settings.LogFile)
	assert.NoError(t, err)
}
