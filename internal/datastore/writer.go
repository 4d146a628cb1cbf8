package datastore

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"useeio/internal/blob"
	"useeio/internal/core"
	"useeio/internal/matrix"
)

// WriteOptions tunes WriteModel.
type WriteOptions struct {
	Compression Compression
	// CSV writes numeric matrices as CSV instead of binary.
	CSV bool
}

// WriteModel stores parts under "<parts.Info.ID>/" in the layout read by Store.
// Other encodings of a written matrix left by an earlier write are removed.
func WriteModel(ctx context.Context, blobs blob.Store, parts core.ModelParts, opts WriteOptions) error {
	id := parts.Info.ID
	if id == "" {
		return fmt.Errorf("write model: empty id")
	}
	var written []string
	put := func(name string, body []byte) error {
		if _, err := blobs.Put(ctx, key(id, name), bytes.NewReader(body), blob.PutOptions{}); err != nil {
			return fmt.Errorf("write %s: %w", key(id, name), err)
		}
		written = append(written, key(id, name))
		return nil
	}
	encode := func(name string, fn func(io.Writer) error) error {
		var buf bytes.Buffer
		if err := fn(&buf); err != nil {
			return fmt.Errorf("encode %s: %w", name, err)
		}
		return put(name, buf.Bytes())
	}

	info, err := json.MarshalIndent(parts.Info, "", "  ")
	if err != nil {
		return err
	}
	if err := put(modelInfoFile, info); err != nil {
		return err
	}
	if err := encode(sectorsFile, func(w io.Writer) error { return writeTable(w, sectorColumns, sectorRows(parts.Sectors)) }); err != nil {
		return err
	}
	if err := encode(flowsFile, func(w io.Writer) error { return writeTable(w, flowColumns, flowRows(parts.Flows)) }); err != nil {
		return err
	}
	if err := encode(indicatorsFile, func(w io.Writer) error { return writeTable(w, indicatorColumns, indicatorRows(parts.Indicators)) }); err != nil {
		return err
	}
	for _, kind := range matrix.NumericKinds() {
		m, ok := parts.Matrices[kind]
		if !ok || m == nil {
			continue
		}
		if opts.CSV {
			if err := encode(kind.String()+".csv", func(w io.Writer) error { return writeMatrixCSV(w, m) }); err != nil {
				return err
			}
			continue
		}
		name := kind.String() + ".bin" + opts.Compression.Suffix()
		if err := encode(name, func(w io.Writer) error { return writeBinary(w, m, opts.Compression) }); err != nil {
			return err
		}
	}
	for _, kind := range matrix.DQIKinds() {
		q, ok := parts.DQI[kind]
		if !ok || q == nil {
			continue
		}
		if err := encode(kind.String()+".csv", func(w io.Writer) error { return writeDQICSV(w, q) }); err != nil {
			return err
		}
	}
	if _, err := dropStale(ctx, blobs, written); err != nil {
		return err
	}
	if len(parts.Demands) == 0 {
		return nil
	}
	infos := make([]any, len(parts.Demands))
	for i, d := range parts.Demands {
		infos[i] = d.Info
		entries, err := json.MarshalIndent(d.Entries, "", "  ")
		if err != nil {
			return err
		}
		if err := put(path.Join(demandsDir, d.Info.ID+".json"), entries); err != nil {
			return err
		}
	}
	list, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return err
	}
	return put(demandsFile, list)
}

func writeBinary(w io.Writer, m *matrix.Matrix, c Compression) error {
	cw, err := compress(c, w)
	if err != nil {
		return err
	}
	if err := matrix.WriteBinary(cw, m); err != nil {
		_ = cw.Close()
		return err
	}
	return cw.Close()
}

func writeMatrixCSV(w io.Writer, m *matrix.Matrix) error {
	cw := csv.NewWriter(w)
	for _, row := range m.Rows() {
		rec := make([]string, len(row))
		for j, v := range row {
			rec[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeDQICSV(w io.Writer, q *matrix.DQI) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(q.Rows()); err != nil {
		return err
	}
	return cw.Error()
}

// ImportOptions tunes Import.
type ImportOptions struct {
	// Pattern filters source keys with doublestar syntax; empty copies all.
	Pattern string
	// Compression re-encodes binary matrices; CompressionNone keeps them
	// as found.
	Compression Compression
	Concurrency int
	Logger      *slog.Logger
}

// ImportReport lists what Import copied.
type ImportReport struct {
	Copied  []string
	Skipped []string
	// Removed holds destination keys of matrix encodings superseded by a
	// copied one.
	Removed []string
}

// Import copies model files from src to dst. Binary matrices are
// recompressed when opts.Compression is set. Any other encoding of a copied
// matrix already at dst is deleted, since Store prefers ".bin" over the
// compressed and CSV forms.
func Import(ctx context.Context, src, dst blob.Store, opts ImportOptions) (ImportReport, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	pattern := opts.Pattern
	if pattern == "" {
		pattern = "**"
	}
	if !doublestar.ValidatePattern(pattern) {
		return ImportReport{}, fmt.Errorf("invalid pattern %q", pattern)
	}
	infos, err := src.List(ctx, "")
	if err != nil {
		return ImportReport{}, err
	}
	var report ImportReport
	var keys []string
	for _, info := range infos {
		if ok, _ := doublestar.Match(pattern, info.Key); ok {
			keys = append(keys, info.Key)
		} else {
			report.Skipped = append(report.Skipped, info.Key)
		}
	}
	copied := make([]string, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	limit := opts.Concurrency
	if limit <= 0 {
		limit = 4
	}
	g.SetLimit(limit)
	for i, k := range keys {
		g.Go(func() error {
			dstKey, err := copyBlob(gctx, src, dst, k, opts.Compression)
			if err != nil {
				return err
			}
			logger.DebugContext(gctx, "imported blob", "key", dstKey)
			copied[i] = dstKey
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ImportReport{}, err
	}
	report.Copied = copied
	removed, err := dropStale(ctx, dst, copied)
	if err != nil {
		return ImportReport{}, err
	}
	for _, k := range removed {
		logger.DebugContext(ctx, "removed superseded blob", "key", k)
	}
	report.Removed = removed
	return report, nil
}

func copyBlob(ctx context.Context, src, dst blob.Store, k string, target Compression) (string, error) {
	info, rc, err := src.Get(ctx, k)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", k, err)
	}
	defer func() { _ = rc.Close() }()

	base, isBinary := binaryBase(k)
	if !isBinary || target == CompressionNone || compressionFor(k) == target {
		if _, err := dst.Put(ctx, k, rc, blob.PutOptions{ContentType: info.ContentType, Metadata: info.Metadata}); err != nil {
			return "", fmt.Errorf("write %s: %w", k, err)
		}
		return k, nil
	}
	m, err := decodeMatrix(k, rc)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", k, err)
	}
	var buf bytes.Buffer
	if err := writeBinary(&buf, m, target); err != nil {
		return "", err
	}
	out := base + target.Suffix()
	if _, err := dst.Put(ctx, out, &buf, blob.PutOptions{}); err != nil {
		return "", fmt.Errorf("write %s: %w", out, err)
	}
	return out, nil
}

// binaryBase strips a compression suffix from a ".bin" key.
func binaryBase(k string) (string, bool) {
	base := strings.TrimSuffix(strings.TrimSuffix(k, CompressionZstd.Suffix()), CompressionLZ4.Suffix())
	return base, strings.HasSuffix(base, ".bin")
}

// siblingEncodings returns the other file names a numeric matrix stored at k
// could be read from, or nil when k is not a numeric matrix file.
func siblingEncodings(k string) []string {
	dir, name := path.Split(k)
	for _, kind := range matrix.NumericKinds() {
		names := matrixCandidates(kind)
		if !slices.Contains(names, name) {
			continue
		}
		out := make([]string, 0, len(names)-1)
		for _, n := range names {
			if n != name {
				out = append(out, dir+n)
			}
		}
		return out
	}
	return nil
}

// dropStale deletes from dst every sibling encoding of the written keys that
// was not itself written, and returns the keys it removed.
func dropStale(ctx context.Context, dst blob.Store, written []string) ([]string, error) {
	var removed []string
	for _, k := range written {
		for _, sib := range siblingEncodings(k) {
			if slices.Contains(written, sib) || slices.Contains(removed, sib) {
				continue
			}
			ok, err := dst.Delete(ctx, sib)
			if err != nil {
				return removed, fmt.Errorf("delete %s: %w", sib, err)
			}
			if ok {
				removed = append(removed, sib)
			}
		}
	}
	return removed, nil
}
