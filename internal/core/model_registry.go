package core

import (
	"sort"
	"sync/atomic"

	"useeio/pkg/domain"
)

type registrySnapshot struct {
	models map[string]*Model
	ids    []string
}

// ModelRegistry owns the published models. Readers load an immutable
// snapshot; Publish replaces it with a single pointer swap, so a reader
// never observes a partially built model set.
type ModelRegistry struct {
	current atomic.Pointer[registrySnapshot]
}

// NewModelRegistry returns a registry publishing the given models.
func NewModelRegistry(models ...*Model) *ModelRegistry {
	r := &ModelRegistry{}
	r.Publish(models...)
	return r
}

// Publish replaces the registry contents.
func (r *ModelRegistry) Publish(models ...*Model) {
	snap := &registrySnapshot{models: make(map[string]*Model, len(models))}
	for _, m := range models {
		if m == nil {
			continue
		}
		if _, dup := snap.models[m.ID()]; !dup {
			snap.ids = append(snap.ids, m.ID())
		}
		snap.models[m.ID()] = m
	}
	sort.Strings(snap.ids)
	r.current.Store(snap)
}

func (r *ModelRegistry) snapshot() *registrySnapshot {
	if s := r.current.Load(); s != nil {
		return s
	}
	return &registrySnapshot{}
}

// Get returns the model with the given id.
func (r *ModelRegistry) Get(id string) (*Model, error) {
	m, ok := r.snapshot().models[id]
	if !ok {
		return nil, domain.NotFound("get model", EntityModel, id)
	}
	return m, nil
}

// IDs lists the published model ids in ascending order.
func (r *ModelRegistry) IDs() []string {
	return append([]string(nil), r.snapshot().ids...)
}

// Models lists the published models ordered by id.
func (r *ModelRegistry) Models() []*Model {
	snap := r.snapshot()
	out := make([]*Model, 0, len(snap.ids))
	for _, id := range snap.ids {
		out = append(out, snap.models[id])
	}
	return out
}

// Len returns the number of published models.
func (r *ModelRegistry) Len() int { return len(r.snapshot().ids) }
