package config_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"useeio/internal/blob"
	"useeio/internal/config"
)

func env(values map[string]string) config.LookupFunc {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "useeio.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("", env(nil))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, blob.DriverFilesystem, cfg.Data.Driver)
	assert.Equal(t, 4, cfg.LoadConcurrency)
}

func TestLoadFileThenEnvironment(t *testing.T) {
	path := writeFile(t, `
listen: ":9000"
data:
  driver: s3
  s3:
    bucket: models
    prefix: useeio/
    path_style: true
rate_limit:
  rps: 5
  burst: 10
watch_debounce: 2s
metrics:
  enabled: false
log:
  format: json
`)
	cfg, err := config.Load(path, env(map[string]string{
		"USEEIO_LISTEN":           ":9100",
		"USEEIO_RATE_LIMIT_BURST": "20",
		"USEEIO_BLOB_S3_REGION":   "us-west-2",
		"USEEIO_LOG_LEVEL":        "debug",
		"USEEIO_WATCH":            "",
	}))
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.Listen)
	assert.Equal(t, blob.DriverS3, cfg.Data.Driver)
	assert.Equal(t, "models", cfg.Data.S3.Bucket)
	assert.Equal(t, "us-west-2", cfg.Data.S3.Region)
	assert.True(t, cfg.Data.S3.PathStyle)
	assert.Equal(t, 5.0, cfg.RateLimit.RPS)
	assert.Equal(t, 20, cfg.RateLimit.Burst)
	assert.Equal(t, 2*time.Second, cfg.WatchDebounce)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 4, cfg.LoadConcurrency)
}

func TestLoadEmptyFileKeepsDefaults(t *testing.T) {
	cfg, err := config.Load(writeFile(t, ""), env(nil))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoadRejectsBadInput(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"), env(nil))
	assert.ErrorContains(t, err, "read config")

	_, err = config.Load(writeFile(t, "listen: [oops"), env(nil))
	assert.ErrorContains(t, err, "parse config")

	_, err = config.Load(writeFile(t, "lisen: \":1\"\n"), env(nil))
	assert.Error(t, err, "unknown keys are rejected")

	_, err = config.Load("", env(map[string]string{"USEEIO_WATCH": "maybe"}))
	assert.ErrorContains(t, err, "USEEIO_WATCH")

	_, err = config.Load("", env(map[string]string{"USEEIO_LOAD_CONCURRENCY": "many"}))
	assert.ErrorContains(t, err, "USEEIO_LOAD_CONCURRENCY")
}

func TestValidate(t *testing.T) {
	cases := map[string]func(c *config.Config){
		"unknown driver":    func(c *config.Config) { c.Data.Driver = "tape" },
		"s3 bucket":         func(c *config.Config) { c.Data.Driver = blob.DriverS3 },
		"minio endpoint":    func(c *config.Config) { c.Data.Driver = blob.DriverMinio },
		"postgres dsn":      func(c *config.Config) { c.Data.Driver = blob.DriverPostgres },
		"watch non-fs":      func(c *config.Config) { c.Watch = true; c.Data.Driver = blob.DriverMemory },
		"negative rate":     func(c *config.Config) { c.RateLimit.RPS = -1 },
		"zero concurrency":  func(c *config.Config) { c.LoadConcurrency = 0 },
		"log format":        func(c *config.Config) { c.Log.Format = "xml" },
		"log level":         func(c *config.Config) { c.Log.Level = "loud" },
		"negative debounce": func(c *config.Config) { c.WatchDebounce = -time.Second },
	}
	for name, mutate := range cases {
		cfg := config.Default()
		mutate(&cfg)
		assert.Error(t, cfg.Validate(), name)
	}
	cfg := config.Default()
	cfg.Watch = true
	assert.NoError(t, cfg.Validate())
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := config.Log{Format: "json", Level: "warn"}.NewLogger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "model", "M1")
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.True(t, strings.HasPrefix(out, "{"), out)
	assert.Contains(t, out, `"model":"M1"`)

	buf.Reset()
	config.Log{}.NewLogger(&buf).Info("plain")
	assert.Contains(t, buf.String(), "msg=plain")
}
