// Package config resolves runtime settings from defaults, an optional YAML
// file and USEEIO_* environment variables, in that order of precedence.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"useeio/internal/blob"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "USEEIO_"

// Config is the full runtime configuration of the service.
type Config struct {
	Listen          string        `yaml:"listen"`
	Data            blob.Config   `yaml:"data"`
	Watch           bool          `yaml:"watch"`
	WatchDebounce   time.Duration `yaml:"watch_debounce"`
	RateLimit       RateLimit     `yaml:"rate_limit"`
	LoadConcurrency int           `yaml:"load_concurrency"`
	Metrics         Metrics       `yaml:"metrics"`
	Log             Log           `yaml:"log"`
}

// RateLimit bounds calculation requests. RPS <= 0 disables limiting.
type RateLimit struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// Metrics toggles the Prometheus endpoint.
type Metrics struct {
	Enabled bool `yaml:"enabled"`
}

// Log selects the slog handler.
type Log struct {
	Format string `yaml:"format"` // text|json
	Level  string `yaml:"level"`  // debug|info|warn|error
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Listen:          ":8080",
		Data:            blob.Config{Driver: blob.DriverFilesystem, FSRoot: "./data"},
		WatchDebounce:   500 * time.Millisecond,
		LoadConcurrency: 4,
		Metrics:         Metrics{Enabled: true},
		Log:             Log{Format: "text", Level: "info"},
	}
}

// LookupFunc reads one environment variable.
type LookupFunc func(key string) (string, bool)

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and the environment seen through lookup. A nil lookup
// reads the process environment.
func Load(path string, lookup LookupFunc) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := mergeFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if err := applyEnv(&cfg, lookup); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func mergeFile(cfg *Config, path string) error {
	// #nosec G304 -- the config path is chosen by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	// an empty file decodes to io.EOF and keeps the defaults
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

type envBinding struct {
	key string
	set func(cfg *Config, raw string) error
}

func str(dst func(*Config) *string) func(*Config, string) error {
	return func(c *Config, raw string) error { *dst(c) = raw; return nil }
}

func boolean(dst func(*Config) *bool) func(*Config, string) error {
	return func(c *Config, raw string) error {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		*dst(c) = v
		return nil
	}
}

func integer(dst func(*Config) *int) func(*Config, string) error {
	return func(c *Config, raw string) error {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return err
		}
		*dst(c) = v
		return nil
	}
}

var envBindings = []envBinding{
	{"LISTEN", str(func(c *Config) *string { return &c.Listen })},
	{"WATCH", boolean(func(c *Config) *bool { return &c.Watch })},
	{"WATCH_DEBOUNCE", func(c *Config, raw string) error {
		d, err := time.ParseDuration(raw)
		c.WatchDebounce = d
		return err
	}},
	{"RATE_LIMIT_RPS", func(c *Config, raw string) error {
		v, err := strconv.ParseFloat(raw, 64)
		c.RateLimit.RPS = v
		return err
	}},
	{"RATE_LIMIT_BURST", integer(func(c *Config) *int { return &c.RateLimit.Burst })},
	{"LOAD_CONCURRENCY", integer(func(c *Config) *int { return &c.LoadConcurrency })},
	{"METRICS_ENABLED", boolean(func(c *Config) *bool { return &c.Metrics.Enabled })},
	{"LOG_FORMAT", str(func(c *Config) *string { return &c.Log.Format })},
	{"LOG_LEVEL", str(func(c *Config) *string { return &c.Log.Level })},
	{"BLOB_DRIVER", func(c *Config, raw string) error { c.Data.Driver = blob.Driver(raw); return nil }},
	{"BLOB_FS_ROOT", str(func(c *Config) *string { return &c.Data.FSRoot })},
	{"BLOB_SQLITE_PATH", str(func(c *Config) *string { return &c.Data.SQLitePath })},
	{"BLOB_POSTGRES_DSN", str(func(c *Config) *string { return &c.Data.PostgresDSN })},
	{"BLOB_S3_BUCKET", str(func(c *Config) *string { return &c.Data.S3.Bucket })},
	{"BLOB_S3_PREFIX", str(func(c *Config) *string { return &c.Data.S3.Prefix })},
	{"BLOB_S3_REGION", str(func(c *Config) *string { return &c.Data.S3.Region })},
	{"BLOB_S3_ENDPOINT", str(func(c *Config) *string { return &c.Data.S3.Endpoint })},
	{"BLOB_S3_ACCESS_KEY_ID", str(func(c *Config) *string { return &c.Data.S3.AccessKeyID })},
	{"BLOB_S3_SECRET_ACCESS_KEY", str(func(c *Config) *string { return &c.Data.S3.SecretAccessKey })},
	{"BLOB_S3_PATH_STYLE", boolean(func(c *Config) *bool { return &c.Data.S3.PathStyle })},
	{"BLOB_MINIO_ENDPOINT", str(func(c *Config) *string { return &c.Data.Minio.Endpoint })},
	{"BLOB_MINIO_BUCKET", str(func(c *Config) *string { return &c.Data.Minio.Bucket })},
	{"BLOB_MINIO_PREFIX", str(func(c *Config) *string { return &c.Data.Minio.Prefix })},
	{"BLOB_MINIO_ACCESS_KEY", str(func(c *Config) *string { return &c.Data.Minio.AccessKey })},
	{"BLOB_MINIO_SECRET_KEY", str(func(c *Config) *string { return &c.Data.Minio.SecretKey })},
	{"BLOB_MINIO_REGION", str(func(c *Config) *string { return &c.Data.Minio.Region })},
	{"BLOB_MINIO_SECURE", boolean(func(c *Config) *bool { return &c.Data.Minio.Secure })},
}

func applyEnv(cfg *Config, lookup LookupFunc) error {
	for _, b := range envBindings {
		raw, ok := lookup(EnvPrefix + b.key)
		if !ok || raw == "" {
			continue
		}
		if err := b.set(cfg, strings.TrimSpace(raw)); err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, b.key, err)
		}
	}
	return nil
}

// Validate reports settings that cannot work together.
func (c Config) Validate() error {
	var errs []error
	switch c.Data.Driver {
	case "", blob.DriverFilesystem, blob.DriverMemory, blob.DriverSQLite:
	case blob.DriverS3:
		if c.Data.S3.Bucket == "" {
			errs = append(errs, errors.New("data.s3.bucket is required for the s3 driver"))
		}
	case blob.DriverMinio:
		if c.Data.Minio.Endpoint == "" || c.Data.Minio.Bucket == "" {
			errs = append(errs, errors.New("data.minio.endpoint and data.minio.bucket are required for the minio driver"))
		}
	case blob.DriverPostgres:
		if c.Data.PostgresDSN == "" {
			errs = append(errs, errors.New("data.postgres_dsn is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown data driver %q", c.Data.Driver))
	}
	if c.Watch && c.Data.Driver != "" && c.Data.Driver != blob.DriverFilesystem {
		errs = append(errs, fmt.Errorf("watch requires the fs driver, not %s", c.Data.Driver))
	}
	if c.RateLimit.RPS < 0 || c.RateLimit.Burst < 0 {
		errs = append(errs, errors.New("rate_limit values must not be negative"))
	}
	if c.LoadConcurrency < 1 {
		errs = append(errs, errors.New("load_concurrency must be at least 1"))
	}
	if c.WatchDebounce < 0 {
		errs = append(errs, errors.New("watch_debounce must not be negative"))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
