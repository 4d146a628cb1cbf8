package blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
)

func TestOpenDrivers(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cases := []struct {
		cfg  Config
		want Driver
	}{
		{Config{FSRoot: filepath.Join(dir, "fs")}, DriverFilesystem},
		{Config{Driver: DriverMemory}, DriverMemory},
		{Config{Driver: DriverSQLite, SQLitePath: filepath.Join(dir, "blobs.db")}, DriverSQLite},
		{Config{Driver: DriverS3, S3: S3Config{Bucket: "b", Region: "us-east-1", AccessKeyID: "AKIA", SecretAccessKey: "SECRET"}}, DriverS3},
		{Config{Driver: DriverMinio, Minio: MinioConfig{Endpoint: "localhost:9000", Bucket: "b"}}, DriverMinio},
	}
	for _, tc := range cases {
		store, err := Open(ctx, tc.cfg)
		if err != nil {
			t.Fatalf("open %q: %v", tc.cfg.Driver, err)
		}
		if store.Driver() != tc.want {
			t.Fatalf("expected %s, got %s", tc.want, store.Driver())
		}
	}
	if _, err := Open(ctx, Config{Driver: "tape"}); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}

func TestOpenFromEnv(t *testing.T) {
	ctx := context.Background()
	t.Setenv("USEEIO_BLOB_DRIVER", "")
	t.Setenv("USEEIO_BLOB_FS_ROOT", t.TempDir())
	store, err := OpenFromEnv(ctx)
	if err != nil || store.Driver() != DriverFilesystem {
		t.Fatalf("fs default: %v", err)
	}
	t.Setenv("USEEIO_BLOB_DRIVER", "memory")
	if store, err := OpenFromEnv(ctx); err != nil || store.Driver() != DriverMemory {
		t.Fatalf("memory: %v", err)
	}
	t.Setenv("USEEIO_BLOB_DRIVER", "s3")
	t.Setenv("USEEIO_BLOB_S3_BUCKET", "")
	if _, err := OpenFromEnv(ctx); err == nil {
		t.Fatalf("expected s3 bucket error")
	}
	t.Setenv("USEEIO_BLOB_DRIVER", "minio")
	t.Setenv("USEEIO_BLOB_MINIO_ENDPOINT", "")
	if _, err := OpenFromEnv(ctx); err == nil {
		t.Fatalf("expected minio endpoint error")
	}
}

// Every backend must agree on the contract the model loader relies on.
func TestStoreContract(t *testing.T) {
	ctx := context.Background()
	fsStore, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	sqliteStore, err := NewSQLite(ctx, filepath.Join(t.TempDir(), "c.db"))
	if err != nil {
		t.Fatal(err)
	}
	stores := map[string]Store{
		"fs":     fsStore,
		"memory": NewMemory(),
		"s3":     NewMockS3ForTests("root"),
		"sqlite": sqliteStore,
	}
	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			if _, err := store.Put(ctx, "M1/flows.csv", bytes.NewReader([]byte("index,id\n")), PutOptions{}); err != nil {
				t.Fatalf("put: %v", err)
			}
			if _, err := store.Put(ctx, "M2/flows.csv", bytes.NewReader([]byte("x")), PutOptions{}); err != nil {
				t.Fatalf("put: %v", err)
			}
			info, rc, err := store.Get(ctx, "M1/flows.csv")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			b, _ := io.ReadAll(rc)
			_ = rc.Close()
			if string(b) != "index,id\n" || info.ContentType != "text/csv" {
				t.Fatalf("unexpected blob %q %+v", b, info)
			}
			if _, err := store.Head(ctx, "M1/missing.bin"); !errors.Is(err, ErrNotExist) {
				t.Fatalf("expected ErrNotExist, got %v", err)
			}
			list, err := store.List(ctx, "M1/")
			if err != nil || len(list) != 1 || list[0].Key != "M1/flows.csv" {
				t.Fatalf("list: %v %+v", err, list)
			}
		})
	}
}

func TestContentTypeFor(t *testing.T) {
	for key, want := range map[string]string{
		"a/B.bin":      "application/octet-stream",
		"a/B.bin.zst":  "application/zstd",
		"a/B.bin.lz4":  "application/x-lz4",
		"a/model.json": "application/json",
		"a/readme":     "",
	} {
		if got := ContentTypeFor(key); got != want {
			t.Fatalf("%s: want %q got %q", key, want, got)
		}
	}
}
