// Package sqldb stores blobs as rows of a SQL table. SQLite (pure Go
// driver) suits single-node deployments shipping models as one file;
// PostgreSQL through pgx suits shared deployments.
package sqldb

import (
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"             // pure go sqlite driver

	"useeio/internal/blob/core"
)

// Dialect selects placeholder style and column types.
type Dialect int

const (
	DialectSQLite Dialect = iota
	DialectPostgres
)

const (
	defaultSQLitePath  = "useeio.db"
	defaultPostgresDSN = "postgres://localhost/useeio?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store implements core.Store on database/sql.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// OpenSQLite opens (creating if needed) a SQLite database file.
func OpenSQLite(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = defaultSQLitePath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	openMu.Lock()
	db, err := sqlOpen("sqlite", path)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// modernc sqlite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	return New(ctx, db, DialectSQLite)
}

// OpenPostgres connects through pgx using dsn (falls back to a local default).
func OpenPostgres(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultPostgresDSN
	}
	openMu.Lock()
	db, err := sqlOpen("pgx", dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return New(ctx, db, DialectPostgres)
}

// New wraps db and ensures the blob table exists.
func New(ctx context.Context, db *sql.DB, dialect Dialect) (*Store, error) {
	s := &Store{db: db, dialect: dialect}
	payloadType, sizeType := "BLOB", "INTEGER"
	if dialect == DialectPostgres {
		payloadType, sizeType = "BYTEA", "BIGINT"
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS blobs (
		blob_key TEXT PRIMARY KEY,
		content_type TEXT NOT NULL,
		metadata TEXT NOT NULL,
		etag TEXT NOT NULL,
		size %[2]s NOT NULL,
		updated_at %[2]s NOT NULL,
		payload %[1]s NOT NULL
	)`, payloadType, sizeType)
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return nil, fmt.Errorf("create blobs table: %w", err)
	}
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Driver() core.Driver {
	if s.dialect == DialectPostgres {
		return core.DriverPostgres
	}
	return core.DriverSQLite
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) Put(ctx context.Context, key string, r io.Reader, opts core.PutOptions) (core.Info, error) {
	if strings.TrimSpace(key) == "" {
		return core.Info{}, fmt.Errorf("empty key")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return core.Info{}, err
	}
	sum := sha256.Sum256(data)
	contentType := opts.ContentType
	if contentType == "" {
		contentType = core.ContentTypeFor(key)
	}
	md, err := json.Marshal(opts.Metadata)
	if err != nil {
		return core.Info{}, fmt.Errorf("encode metadata: %w", err)
	}
	now := time.Now().UTC()
	info := core.Info{Key: key, Size: int64(len(data)), ContentType: contentType, ETag: hex.EncodeToString(sum[:]), Metadata: cloneMetadata(opts.Metadata), LastModified: now}
	_, err = s.db.ExecContext(ctx, s.rebind(`INSERT INTO blobs (blob_key, content_type, metadata, etag, size, updated_at, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (blob_key) DO UPDATE SET content_type = excluded.content_type, metadata = excluded.metadata,
			etag = excluded.etag, size = excluded.size, updated_at = excluded.updated_at, payload = excluded.payload`),
		key, contentType, string(md), info.ETag, info.Size, now.UnixNano(), data)
	if err != nil {
		return core.Info{}, fmt.Errorf("put %s: %w", key, err)
	}
	return info, nil
}

func (s *Store) Get(ctx context.Context, key string) (core.Info, io.ReadCloser, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT content_type, metadata, etag, size, updated_at, payload FROM blobs WHERE blob_key = ?`), key)
	var payload []byte
	info, err := scanInfo(key, row, &payload)
	if err != nil {
		return core.Info{}, nil, err
	}
	return info, io.NopCloser(bytes.NewReader(payload)), nil
}

func (s *Store) Head(ctx context.Context, key string) (core.Info, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT content_type, metadata, etag, size, updated_at FROM blobs WHERE blob_key = ?`), key)
	return scanInfo(key, row, nil)
}

func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM blobs WHERE blob_key = ?`), key)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]core.Info, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT blob_key, content_type, metadata, etag, size, updated_at FROM blobs WHERE blob_key >= ? ORDER BY blob_key`), prefix)
	if err != nil {
		return nil, fmt.Errorf("list blobs: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var infos []core.Info
	for rows.Next() {
		var (
			key, ct, md, etag string
			size, updated     int64
		)
		if err := rows.Scan(&key, &ct, &md, &etag, &size, &updated); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		if !strings.HasPrefix(key, prefix) {
			break
		}
		info, err := buildInfo(key, ct, md, etag, size, updated)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

func (s *Store) PresignURL(context.Context, string, core.SignedURLOptions) (string, error) {
	return "", core.ErrUnsupported
}

func scanInfo(key string, row *sql.Row, payload *[]byte) (core.Info, error) {
	var (
		ct, md, etag  string
		size, updated int64
	)
	dest := []any{&ct, &md, &etag, &size, &updated}
	if payload != nil {
		dest = append(dest, payload)
	}
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Info{}, fmt.Errorf("blob %s: %w", key, core.ErrNotExist)
		}
		return core.Info{}, fmt.Errorf("read %s: %w", key, err)
	}
	return buildInfo(key, ct, md, etag, size, updated)
}

func buildInfo(key, ct, md, etag string, size, updated int64) (core.Info, error) {
	var meta map[string]string
	if err := json.Unmarshal([]byte(md), &meta); err != nil {
		return core.Info{}, fmt.Errorf("decode metadata for %s: %w", key, err)
	}
	return core.Info{Key: key, Size: size, ContentType: ct, ETag: etag, Metadata: meta, LastModified: time.Unix(0, updated).UTC()}, nil
}

func cloneMetadata(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
