package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"useeio/internal/matrix"
)

// ErrAbsent is returned by a Source when an optional matrix does not exist.
var ErrAbsent = errors.New("absent")

// Registries groups the three registries of a model as loaded from storage.
type Registries struct {
	Sectors    []Sector
	Flows      []Flow
	Indicators []Indicator
}

// Source is the read contract of the data store. LoadMatrix and
// LoadDQIMatrix return an error wrapping ErrAbsent for missing matrices.
type Source interface {
	ListModelIDs(ctx context.Context) ([]string, error)
	LoadModelInfo(ctx context.Context, model string) (ModelInfo, error)
	LoadRegistries(ctx context.Context, model string) (Registries, error)
	LoadMatrix(ctx context.Context, model string, kind matrix.Kind) (*matrix.Matrix, error)
	LoadDQIMatrix(ctx context.Context, model string, kind matrix.Kind) (*matrix.DQI, error)
	LoadDemands(ctx context.Context, model string) ([]Demand, error)
}

// DiscoverOptions tunes discovery.
type DiscoverOptions struct {
	// Concurrency bounds the number of models loaded in parallel.
	Concurrency int
	Logger      *slog.Logger
}

// DiscoveryReport summarizes a discovery pass.
type DiscoveryReport struct {
	Admitted []string
	Skipped  map[string]error
}

// Discover scans every candidate model in src, admits the ones that load
// and validate completely and publishes them into r in one swap. Invalid
// candidates are skipped with a diagnostic; only a failure to list
// candidates or a cancelled context fails the pass, in which case r is left
// untouched.
func Discover(ctx context.Context, src Source, r *ModelRegistry, opts DiscoverOptions) (DiscoveryReport, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	ids, err := src.ListModelIDs(ctx)
	if err != nil {
		return DiscoveryReport{}, fmt.Errorf("list models: %w", err)
	}

	var (
		mu      sync.Mutex
		models  []*Model
		skipped = make(map[string]error)
	)
	g, gctx := errgroup.WithContext(ctx)
	limit := opts.Concurrency
	if limit <= 0 {
		limit = 4
	}
	g.SetLimit(limit)
	for _, id := range ids {
		g.Go(func() error {
			m, err := LoadModel(gctx, src, id)
			if ctxErr := gctx.Err(); ctxErr != nil {
				return ctxErr
			}
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				skipped[id] = err
				logger.Warn("skipping model", "model", id, "error", err)
				return nil
			}
			models = append(models, m)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return DiscoveryReport{}, err
	}

	r.Publish(models...)
	report := DiscoveryReport{Admitted: r.IDs(), Skipped: skipped}
	logger.Info("model discovery completed", "admitted", len(report.Admitted), "skipped", len(skipped))
	return report, nil
}

// LoadModel reads one model from src and assembles it. Matrices are read in
// parallel; absent optional matrices are tolerated, absent required ones
// surface from NewModel as ModelIncomplete.
func LoadModel(ctx context.Context, src Source, id string) (*Model, error) {
	info, err := src.LoadModelInfo(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("model info: %w", err)
	}
	if info.ID == "" {
		info.ID = id
	}
	regs, err := src.LoadRegistries(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("registries: %w", err)
	}
	demands, err := src.LoadDemands(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("demands: %w", err)
	}

	var mu sync.Mutex
	numeric := make(map[matrix.Kind]*matrix.Matrix)
	dqi := make(map[matrix.Kind]*matrix.DQI)
	g, gctx := errgroup.WithContext(ctx)
	for _, kind := range matrix.NumericKinds() {
		g.Go(func() error {
			m, err := src.LoadMatrix(gctx, id, kind)
			if errors.Is(err, ErrAbsent) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("matrix %s: %w", kind, err)
			}
			mu.Lock()
			numeric[kind] = m
			mu.Unlock()
			return nil
		})
	}
	for _, kind := range matrix.DQIKinds() {
		g.Go(func() error {
			q, err := src.LoadDQIMatrix(gctx, id, kind)
			if errors.Is(err, ErrAbsent) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("matrix %s: %w", kind, err)
			}
			mu.Lock()
			dqi[kind] = q
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return NewModel(ModelParts{
		Info:       info,
		Sectors:    regs.Sectors,
		Flows:      regs.Flows,
		Indicators: regs.Indicators,
		Matrices:   numeric,
		DQI:        dqi,
		Demands:    demands,
	})
}
