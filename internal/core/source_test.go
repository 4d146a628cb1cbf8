package core_test

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"useeio/internal/core"
	"useeio/internal/matrix"
)

// partsSource serves models straight from ModelParts.
type partsSource struct {
	mu      sync.Mutex
	models  map[string]core.ModelParts
	listErr error
	loadErr map[string]error
	// gate, when set, blocks every registry load until closed.
	gate  chan struct{}
	loads int
}

func newPartsSource(parts ...core.ModelParts) *partsSource {
	src := &partsSource{models: make(map[string]core.ModelParts), loadErr: make(map[string]error)}
	for _, p := range parts {
		src.models[p.Info.ID] = p
	}
	return src
}

func (s *partsSource) ListModelIDs(context.Context) ([]string, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	ids := make([]string, 0, len(s.models))
	for id := range s.models {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *partsSource) get(model string) (core.ModelParts, error) {
	p, ok := s.models[model]
	if !ok {
		return core.ModelParts{}, fmt.Errorf("model %s: %w", model, core.ErrAbsent)
	}
	return p, nil
}

func (s *partsSource) LoadModelInfo(_ context.Context, model string) (core.ModelInfo, error) {
	p, err := s.get(model)
	return p.Info, err
}

func (s *partsSource) LoadRegistries(ctx context.Context, model string) (core.Registries, error) {
	s.mu.Lock()
	s.loads++
	s.mu.Unlock()
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return core.Registries{}, ctx.Err()
		}
	}
	if err := s.loadErr[model]; err != nil {
		return core.Registries{}, err
	}
	p, err := s.get(model)
	return core.Registries{Sectors: p.Sectors, Flows: p.Flows, Indicators: p.Indicators}, err
}

func (s *partsSource) LoadMatrix(_ context.Context, model string, kind matrix.Kind) (*matrix.Matrix, error) {
	p, err := s.get(model)
	if err != nil {
		return nil, err
	}
	m, ok := p.Matrices[kind]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", model, kind, core.ErrAbsent)
	}
	return m, nil
}

func (s *partsSource) LoadDQIMatrix(_ context.Context, model string, kind matrix.Kind) (*matrix.DQI, error) {
	p, err := s.get(model)
	if err != nil {
		return nil, err
	}
	q, ok := p.DQI[kind]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", model, kind, core.ErrAbsent)
	}
	return q, nil
}

func (s *partsSource) LoadDemands(_ context.Context, model string) ([]core.Demand, error) {
	p, err := s.get(model)
	return p.Demands, err
}
