package blob

import (
	"context"
	"fmt"
	"os"
)

// Config selects and parameterizes a backend.
type Config struct {
	Driver      Driver      `yaml:"driver"`
	FSRoot      string      `yaml:"fs_root"`
	SQLitePath  string      `yaml:"sqlite_path"`
	PostgresDSN string      `yaml:"postgres_dsn"`
	S3          S3Config    `yaml:"s3"`
	Minio       MinioConfig `yaml:"minio"`
}

// Open constructs the store described by cfg. An empty driver means fs.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", DriverFilesystem:
		return NewFilesystem(cfg.FSRoot)
	case DriverS3:
		return NewS3(ctx, cfg.S3)
	case DriverMinio:
		return NewMinio(cfg.Minio)
	case DriverSQLite:
		return NewSQLite(ctx, cfg.SQLitePath)
	case DriverPostgres:
		return NewPostgres(ctx, cfg.PostgresDSN)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", cfg.Driver)
	}
}

// OpenFromEnv selects a blob.Store implementation using environment variables.
//
//	USEEIO_BLOB_DRIVER: fs|s3|minio|sqlite|postgres|memory (default fs)
//	USEEIO_BLOB_FS_ROOT: directory root when driver=fs (default ./data)
//	USEEIO_BLOB_SQLITE_PATH: database file when driver=sqlite
//	USEEIO_BLOB_POSTGRES_DSN: connection string when driver=postgres
//	(S3 and MinIO variables documented in s3.go and minio.go)
func OpenFromEnv(ctx context.Context) (Store, error) {
	driver := Driver(os.Getenv("USEEIO_BLOB_DRIVER"))
	switch driver {
	case DriverS3:
		return OpenS3FromEnv(ctx)
	case DriverMinio:
		return OpenMinioFromEnv()
	}
	return Open(ctx, Config{
		Driver:      driver,
		FSRoot:      os.Getenv("USEEIO_BLOB_FS_ROOT"),
		SQLitePath:  os.Getenv("USEEIO_BLOB_SQLITE_PATH"),
		PostgresDSN: os.Getenv("USEEIO_BLOB_POSTGRES_DSN"),
	})
}
