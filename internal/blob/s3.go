package blob

import (
	"context"

	infraS3 "useeio/internal/infra/blob/s3"
)

// S3Config re-exports the infra S3 configuration type.
//
//	USEEIO_BLOB_S3_BUCKET, USEEIO_BLOB_S3_PREFIX, USEEIO_BLOB_S3_REGION,
//	USEEIO_BLOB_S3_ENDPOINT, USEEIO_BLOB_S3_PATH_STYLE
type S3Config = infraS3.Config

// NewS3 constructs an S3-backed blob.Store from the provided configuration.
func NewS3(ctx context.Context, cfg S3Config) (Store, error) {
	return infraS3.New(ctx, cfg)
}

// OpenS3FromEnv constructs an S3 store using environment variables.
func OpenS3FromEnv(ctx context.Context) (Store, error) {
	return infraS3.OpenFromEnv(ctx)
}

// NewMockS3ForTests exposes the in-memory S3 mock for cross-package tests.
func NewMockS3ForTests(prefix string) Store { return infraS3.NewMockForTests(prefix, 0) }
