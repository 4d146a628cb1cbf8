// Package datastore reads and writes model directories held in a blob
// store. A model lives under "<id>/":
//
//	model.json                       optional ModelInfo
//	sectors.csv, flows.csv, indicators.csv
//	<A|B|C|D|L|U>.bin[.zst|.lz4]     or <name>.csv
//	<B_dqi|D_dqi|U_dqi>.csv
//	demands.json, demands/<id>.json  optional demand scenarios
package datastore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"useeio/internal/blob"
	"useeio/internal/core"
	"useeio/internal/matrix"
	"useeio/pkg/domain"
)

const (
	modelInfoFile  = "model.json"
	sectorsFile    = "sectors.csv"
	flowsFile      = "flows.csv"
	indicatorsFile = "indicators.csv"
	demandsFile    = "demands.json"
	demandsDir     = "demands"
)

// Store implements core.Source over a blob.Store.
type Store struct {
	blobs  blob.Store
	logger *slog.Logger
}

var _ core.Source = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for load diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New wraps blobs.
func New(blobs blob.Store, opts ...Option) *Store {
	s := &Store{blobs: blobs, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Blobs returns the underlying blob store.
func (s *Store) Blobs() blob.Store { return s.blobs }

func key(model string, parts ...string) string {
	return path.Join(append([]string{model}, parts...)...)
}

// open fetches a blob, mapping a missing key to core.ErrAbsent.
func (s *Store) open(ctx context.Context, k string) (io.ReadCloser, error) {
	_, rc, err := s.blobs.Get(ctx, k)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", k, core.ErrAbsent)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", k, err)
	}
	return rc, nil
}

// ListModelIDs returns every top-level directory carrying a sectors.csv,
// sorted ascending.
func (s *Store) ListModelIDs(ctx context.Context) ([]string, error) {
	infos, err := s.blobs.List(ctx, "")
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var ids []string
	for _, info := range infos {
		ok, err := doublestar.Match("*/"+sectorsFile, info.Key)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		id := strings.SplitN(info.Key, "/", 2)[0]
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// LoadModelInfo reads model.json; a missing file yields an info carrying
// only the id.
func (s *Store) LoadModelInfo(ctx context.Context, model string) (domain.ModelInfo, error) {
	info := domain.ModelInfo{ID: model}
	rc, err := s.open(ctx, key(model, modelInfoFile))
	if errors.Is(err, core.ErrAbsent) {
		return info, nil
	}
	if err != nil {
		return info, err
	}
	defer func() { _ = rc.Close() }()
	if err := json.NewDecoder(rc).Decode(&info); err != nil {
		return info, fmt.Errorf("decode %s: %w", modelInfoFile, err)
	}
	if info.ID != "" && info.ID != model {
		return info, fmt.Errorf("%s declares id %q for directory %q", modelInfoFile, info.ID, model)
	}
	info.ID = model
	return info, nil
}

// LoadRegistries reads the three registry files. All are required.
func (s *Store) LoadRegistries(ctx context.Context, model string) (core.Registries, error) {
	var regs core.Registries
	err := s.withFile(ctx, key(model, sectorsFile), func(r io.Reader) (err error) {
		regs.Sectors, err = readSectors(r)
		return err
	})
	if err != nil {
		return regs, err
	}
	err = s.withFile(ctx, key(model, flowsFile), func(r io.Reader) (err error) {
		regs.Flows, err = readFlows(r)
		return err
	})
	if err != nil {
		return regs, err
	}
	err = s.withFile(ctx, key(model, indicatorsFile), func(r io.Reader) (err error) {
		regs.Indicators, err = readIndicators(r)
		return err
	})
	return regs, err
}

func (s *Store) withFile(ctx context.Context, k string, fn func(io.Reader) error) error {
	rc, err := s.open(ctx, k)
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()
	if err := fn(rc); err != nil {
		return fmt.Errorf("%s: %w", k, err)
	}
	return nil
}

// matrixCandidates lists the file names tried for a numeric matrix, in
// order of preference.
func matrixCandidates(kind matrix.Kind) []string {
	name := kind.String()
	return []string{name + ".bin", name + ".bin" + CompressionZstd.Suffix(), name + ".bin" + CompressionLZ4.Suffix(), name + ".csv"}
}

// LoadMatrix reads the first present encoding of a numeric matrix.
func (s *Store) LoadMatrix(ctx context.Context, model string, kind matrix.Kind) (*matrix.Matrix, error) {
	if kind.IsDQI() {
		return nil, fmt.Errorf("%s is not a numeric matrix", kind)
	}
	for _, name := range matrixCandidates(kind) {
		k := key(model, name)
		rc, err := s.open(ctx, k)
		if errors.Is(err, core.ErrAbsent) {
			continue
		}
		if err != nil {
			return nil, err
		}
		m, err := decodeMatrix(name, rc)
		_ = rc.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		s.logger.DebugContext(ctx, "matrix loaded", "model", model, "matrix", kind.String(), "file", name)
		return m, nil
	}
	return nil, fmt.Errorf("matrix %s of %s: %w", kind, model, core.ErrAbsent)
}

func decodeMatrix(name string, r io.Reader) (*matrix.Matrix, error) {
	if strings.HasSuffix(name, ".csv") {
		return matrix.ReadCSV(r)
	}
	dr, err := decompress(compressionFor(name), r)
	if err != nil {
		return nil, err
	}
	defer func() { _ = dr.Close() }()
	return matrix.ReadBinary(dr)
}

// LoadDQIMatrix reads <name>.csv for a DQI kind.
func (s *Store) LoadDQIMatrix(ctx context.Context, model string, kind matrix.Kind) (*matrix.DQI, error) {
	if !kind.IsDQI() {
		return nil, fmt.Errorf("%s is not a DQI matrix", kind)
	}
	var q *matrix.DQI
	err := s.withFile(ctx, key(model, kind.String()+".csv"), func(r io.Reader) (err error) {
		q, err = matrix.ReadDQICSV(r)
		return err
	})
	return q, err
}

// ListDemands reads demands.json and appends any demands/<id>.json file it
// does not mention, ordered by id.
func (s *Store) ListDemands(ctx context.Context, model string) ([]domain.DemandInfo, error) {
	var listed []domain.DemandInfo
	err := s.withFile(ctx, key(model, demandsFile), func(r io.Reader) error {
		return json.NewDecoder(r).Decode(&listed)
	})
	if err != nil && !errors.Is(err, core.ErrAbsent) {
		return nil, err
	}
	known := make(map[string]struct{}, len(listed))
	for _, d := range listed {
		known[d.ID] = struct{}{}
	}
	infos, err := s.blobs.List(ctx, key(model, demandsDir)+"/")
	if err != nil {
		return nil, err
	}
	pattern := key(model, demandsDir, "*.json")
	var extra []domain.DemandInfo
	for _, info := range infos {
		ok, err := doublestar.Match(pattern, info.Key)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		id := strings.TrimSuffix(path.Base(info.Key), ".json")
		if _, dup := known[id]; dup {
			continue
		}
		known[id] = struct{}{}
		extra = append(extra, domain.DemandInfo{ID: id})
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i].ID < extra[j].ID })
	return append(listed, extra...), nil
}

// LoadDemand reads the entries of one demand scenario.
func (s *Store) LoadDemand(ctx context.Context, model, id string) (domain.DemandVector, error) {
	var v domain.DemandVector
	err := s.withFile(ctx, key(model, demandsDir, id+".json"), func(r io.Reader) error {
		return json.NewDecoder(r).Decode(&v)
	})
	return v, err
}

// LoadDemands loads every listed demand scenario.
func (s *Store) LoadDemands(ctx context.Context, model string) ([]domain.Demand, error) {
	infos, err := s.ListDemands(ctx, model)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Demand, 0, len(infos))
	for _, info := range infos {
		entries, err := s.LoadDemand(ctx, model, info.ID)
		if err != nil {
			return nil, fmt.Errorf("demand %s: %w", info.ID, err)
		}
		out = append(out, domain.Demand{Info: info, Entries: entries})
	}
	return out, nil
}
