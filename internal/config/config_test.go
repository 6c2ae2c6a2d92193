package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLeavesWizardModeOff(t *testing.T) {
	cfg := Default()
	assert.False(t, cfg.WizardMode)
	assert.False(t, cfg.DisableVersionCheck)
	assert.Equal(t, 1024, cfg.Catalog.CacheSize)
}

func TestApplyEnvWizardMode(t *testing.T) {
	t.Setenv(EnvWizardMode, "1")

	cfg := Default()
	cfg.ApplyEnv()
	assert.True(t, cfg.WizardMode)
}

func TestApplyEnvNoVersionCheck(t *testing.T) {
	t.Setenv(EnvNoVersionCheck, "1")

	cfg := Default()
	cfg.ApplyEnv()
	assert.True(t, cfg.DisableVersionCheck)
}

func TestApplyEnvLeavesDefaultsWhenUnset(t *testing.T) {
	t.Setenv(EnvWizardMode, "0")
	os.Unsetenv(EnvNoVersionCheck)

	cfg := Default()
	cfg.ApplyEnv()
	assert.False(t, cfg.WizardMode)
	assert.False(t, cfg.DisableVersionCheck)
}

func TestLoadOverlaysPartialFileOnDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bayesdb.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
wizardmode = true

[analyze]
defaultcheckpointiterations = 5
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.WizardMode)
	assert.Equal(t, 5, cfg.Analyze.DefaultCheckpointIterations)
	assert.Equal(t, 1024, cfg.Catalog.CacheSize, "unset fields keep Default()'s values")
}
