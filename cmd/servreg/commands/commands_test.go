package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/junioryono/servreg/config"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	t.Cleanup(func() {
		cmd.SetArgs(nil)
		cfgFile = ""
	})

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "servreg "+Version)
}

func TestConfigCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "servreg.yaml")

	out, _, err := execute(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	_, _, err = execute(t, "config", "init", path)
	assert.Error(t, err, "existing file needs --force")

	out, _, err = execute(t, "config", "show", "--config", path, "--output", "yaml")
	require.NoError(t, err)

	var shown config.Config
	require.NoError(t, yaml.Unmarshal([]byte(out), &shown))
	assert.True(t, shown.Registration.RegisterScopedServices)
	assert.True(t, shown.Setup.TriggersSetupOnStartup)

	_, _, err = execute(t, "config", "show", "--output", "toml")
	assert.Error(t, err)
}

func TestRunCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "servreg.yaml")
	cfg := config.Default()
	cfg.Registration.RegisterAll()
	cfg.Setup.ExecutePlainSetupsFirst = true
	cfg.Tracing.Enabled = true
	cfg.Logging.Level = "DEBUG"
	require.NoError(t, config.Save(cfg, path))

	_, logs, err := execute(t, "run", "--config", path, "--for", "300ms", "--heartbeat", "50ms")
	require.NoError(t, err)

	for _, want := range []string{
		"schema migrated",
		"cache warmed",
		"unit of work committed",
		"heartbeat stopped",
		"store closed",
		"span=servreg.start",
	} {
		assert.Contains(t, logs, want)
	}
}

func TestRunCommand_RejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "servreg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("shutdown_timeout: -1s\n"), 0o600))

	_, _, err := execute(t, "run", "--config", path, "--for", "10ms")
	assert.Error(t, err)
}
