package blob

import (
	infraMinio "useeio/internal/infra/blob/minio"
)

// MinioConfig re-exports the MinIO configuration type.
//
//	USEEIO_BLOB_MINIO_ENDPOINT, USEEIO_BLOB_MINIO_BUCKET, USEEIO_BLOB_MINIO_PREFIX,
//	USEEIO_BLOB_MINIO_ACCESS_KEY, USEEIO_BLOB_MINIO_SECRET_KEY,
//	USEEIO_BLOB_MINIO_REGION, USEEIO_BLOB_MINIO_SECURE
type MinioConfig = infraMinio.Config

// NewMinio constructs a MinIO-backed blob.Store.
func NewMinio(cfg MinioConfig) (Store, error) {
	return infraMinio.New(cfg)
}

// OpenMinioFromEnv constructs a MinIO store using environment variables.
func OpenMinioFromEnv() (Store, error) {
	cfg, err := infraMinio.ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	return infraMinio.New(cfg)
}
