package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	m, err := NewManager(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		// A named-but-missing file is an error; use discovery mode.
		m, err = NewManager("")
	}
	require.NoError(t, err)

	cfg := m.Get()
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 30, cfg.Cache.TTLDays)
	assert.Equal(t, 10, cfg.Pipeline.BatchConcurrency)
	assert.Equal(t, 2000, cfg.Pipeline.ChunkTargetChars)
	assert.Equal(t, 60*time.Second, cfg.Pipeline.CallTimeout)
	assert.Equal(t, 1.5, cfg.PDF.RasterScale)
	assert.Equal(t, 50, cfg.PDF.MaxPages)
	assert.Equal(t, float64(1350), cfg.FX.USDToKRW)
}

func TestConfigFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
cache:
  enabled: false
  ttl_days: 7
pipeline:
  batch_concurrency: 3
llm:
  model: test/model
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	m, err := NewManager(path)
	require.NoError(t, err)

	cfg := m.Get()
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, 7, cfg.Cache.TTLDays)
	assert.Equal(t, 3, cfg.Pipeline.BatchConcurrency)
	assert.Equal(t, "test/model", cfg.LLM.Model)
	// Untouched keys keep defaults.
	assert.Equal(t, 2000, cfg.Pipeline.ChunkTargetChars)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("LEDGERLENS_LLM_MODEL", "env/model")

	m, err := NewManager("")
	require.NoError(t, err)
	assert.Equal(t, "env/model", m.Get().LLM.Model)
}
