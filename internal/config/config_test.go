package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(400), cfg.MinThroughput)
	assert.Equal(t, 30, cfg.MaxRetries)
	assert.Equal(t, 100*time.Second, cfg.MaxRetryWait)
	assert.Zero(t, cfg.Concurrency)
}

func TestLoadLayers(t *testing.T) {
	dir := t.TempDir()
	yaml := "region: us-west-2\nmax-retries: 10\nconcurrency: 64\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scenario-uploader.yaml"), []byte(yaml), 0o644))
	t.Setenv("SCENARIO_MAX_RETRIES", "12")
	t.Setenv("SCENARIO_ENDPOINT", "http://localhost:8000")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("concurrency", 0, "")
	require.NoError(t, flags.Parse([]string{"--concurrency=8"}))

	cfg, err := Load(dir, flags)
	require.NoError(t, err)
	assert.Equal(t, "us-west-2", cfg.Region)
	assert.Equal(t, 12, cfg.MaxRetries)
	assert.Equal(t, "http://localhost:8000", cfg.Endpoint)
	assert.Equal(t, 8, cfg.Concurrency)
}

func TestLoadRejectsBadBaseline(t *testing.T) {
	t.Setenv("SCENARIO_MIN_THROUGHPUT", "0")
	_, err := Load(t.TempDir(), nil)
	assert.Error(t, err)
}

func TestParseMode(t *testing.T) {
	create, err := ParseMode("CreateContainer")
	require.NoError(t, err)
	assert.True(t, create)

	create, err = ParseMode("")
	require.NoError(t, err)
	assert.False(t, create)

	_, err = ParseMode("Replace")
	assert.Error(t, err)
}
