// Package minio implements core.Store on the MinIO client for
// S3-compatible object stores.
package minio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"useeio/internal/blob/core"
)

// Config holds connection parameters.
type Config struct {
	Endpoint  string `yaml:"endpoint"` // host:port
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Region    string `yaml:"region"`
	Secure    bool   `yaml:"secure"`
	// Transport overrides the HTTP transport, mostly for tests.
	Transport http.RoundTripper `yaml:"-"`
}

// ConfigFromEnv reads USEEIO_BLOB_MINIO_* variables.
func ConfigFromEnv() (Config, error) {
	cfg := Config{
		Endpoint:  os.Getenv("USEEIO_BLOB_MINIO_ENDPOINT"),
		AccessKey: os.Getenv("USEEIO_BLOB_MINIO_ACCESS_KEY"),
		SecretKey: os.Getenv("USEEIO_BLOB_MINIO_SECRET_KEY"),
		Bucket:    os.Getenv("USEEIO_BLOB_MINIO_BUCKET"),
		Prefix:    os.Getenv("USEEIO_BLOB_MINIO_PREFIX"),
		Region:    os.Getenv("USEEIO_BLOB_MINIO_REGION"),
		Secure:    strings.EqualFold(os.Getenv("USEEIO_BLOB_MINIO_SECURE"), "true"),
	}
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return Config{}, fmt.Errorf("USEEIO_BLOB_MINIO_ENDPOINT and USEEIO_BLOB_MINIO_BUCKET required for minio driver")
	}
	return cfg, nil
}

// Store implements core.Store for MinIO and S3-compatible storage.
type Store struct {
	client *minio.Client
	bucket string
	prefix string
}

// New dials nothing; the client connects lazily on first use.
func New(cfg Config) (*Store, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("minio endpoint and bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.Secure,
		Region:    region,
		Transport: cfg.Transport,
	})
	if err != nil {
		return nil, err
	}
	return NewStore(client, cfg.Bucket, cfg.Prefix), nil
}

// NewStore wraps an existing client. rootPrefix is prepended to all keys.
func NewStore(client *minio.Client, bucket, rootPrefix string) *Store {
	return &Store{client: client, bucket: bucket, prefix: strings.Trim(rootPrefix, "/")}
}

func (s *Store) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

func (s *Store) name(key string) string {
	if s.prefix == "" {
		return key
	}
	return strings.TrimPrefix(strings.TrimPrefix(key, s.prefix), "/")
}

func (s *Store) Driver() core.Driver { return core.DriverMinio }

// Put writes a blob, replacing any previous object.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, opts core.PutOptions) (core.Info, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return core.Info{}, err
	}
	contentType := opts.ContentType
	if contentType == "" {
		contentType = core.ContentTypeFor(key)
	}
	_, err = s.client.PutObject(ctx, s.bucket, s.key(key), bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: opts.Metadata,
	})
	if err != nil {
		return core.Info{}, err
	}
	return s.Head(ctx, key)
}

func (s *Store) Get(ctx context.Context, key string) (core.Info, io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.key(key), minio.GetObjectOptions{})
	if err != nil {
		return core.Info{}, nil, mapNotFound(key, err)
	}
	// GetObject is lazy; Stat surfaces a missing key.
	st, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		return core.Info{}, nil, mapNotFound(key, err)
	}
	return s.infoFrom(key, st), obj, nil
}

func (s *Store) Head(ctx context.Context, key string) (core.Info, error) {
	st, err := s.client.StatObject(ctx, s.bucket, s.key(key), minio.StatObjectOptions{})
	if err != nil {
		return core.Info{}, mapNotFound(key, err)
	}
	return s.infoFrom(key, st), nil
}

func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	if _, err := s.Head(ctx, key); err != nil {
		if isNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := s.client.RemoveObject(ctx, s.bucket, s.key(key), minio.RemoveObjectOptions{}); err != nil {
		if isNotExist(mapNotFound(key, err)) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]core.Info, error) {
	full := s.key(prefix)
	if s.prefix != "" && prefix == "" {
		full += "/"
	}
	var infos []core.Info
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: full, Recursive: true}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		name := s.name(obj.Key)
		if name == "" {
			continue
		}
		infos = append(infos, core.Info{
			Key:          name,
			Size:         obj.Size,
			ETag:         strings.Trim(obj.ETag, "\""),
			ContentType:  core.ContentTypeFor(name),
			LastModified: obj.LastModified,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

func (s *Store) PresignURL(ctx context.Context, key string, opts core.SignedURLOptions) (string, error) {
	if opts.Method != "" && !strings.EqualFold(opts.Method, http.MethodGet) {
		return "", core.ErrUnsupported
	}
	expiry := opts.Expiry
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, s.key(key), expiry, url.Values{})
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func (s *Store) infoFrom(key string, st minio.ObjectInfo) core.Info {
	var md map[string]string
	if len(st.UserMetadata) > 0 {
		md = make(map[string]string, len(st.UserMetadata))
		for k, v := range st.UserMetadata {
			md[strings.ToLower(k)] = v
		}
	}
	return core.Info{
		Key:          key,
		Size:         st.Size,
		ContentType:  st.ContentType,
		ETag:         strings.Trim(st.ETag, "\""),
		Metadata:     md,
		LastModified: st.LastModified,
	}
}

func mapNotFound(key string, err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.Code == "NotFound" || resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("blob %s: %w", key, core.ErrNotExist)
	}
	return err
}

func isNotExist(err error) bool { return errors.Is(err, core.ErrNotExist) }
