package core

import (
	"fmt"

	"useeio/internal/matrix"
	"useeio/pkg/domain"
)

// ModelParts carries everything loaded for one model before validation.
type ModelParts struct {
	Info       ModelInfo
	Sectors    []Sector
	Flows      []Flow
	Indicators []Indicator
	Matrices   map[matrix.Kind]*matrix.Matrix
	DQI        map[matrix.Kind]*matrix.DQI
	Demands    []Demand
}

// Model is an immutable input-output model: registries, matrices and the
// stored demand scenarios. All methods are safe for concurrent use.
type Model struct {
	info       ModelInfo
	sectors    *Registry[Sector]
	flows      *Registry[Flow]
	indicators *Registry[Indicator]
	store      *MatrixStore
	derived    map[matrix.Kind]bool
	demands    []Demand
	demandByID map[string]int
}

// consistencyTol bounds the absolute or relative difference allowed between
// a stored D or U and the product it must equal.
const consistencyTol = 1e-6

// NewModel validates parts and assembles a Model. L, B and one of C or D
// are required; a missing D is derived as C·B and a missing U as D·L. A
// stored D must match C·B when C is present, and a stored U must match D·L.
func NewModel(parts ModelParts) (*Model, error) {
	const op = "assemble model"
	id := parts.Info.ID
	if id == "" {
		return nil, domain.InvalidArgument(op, "model id is empty")
	}
	sectors, err := NewRegistry(parts.Sectors)
	if err != nil {
		return nil, fmt.Errorf("model %s sectors: %w", id, err)
	}
	flows, err := NewRegistry(parts.Flows)
	if err != nil {
		return nil, fmt.Errorf("model %s flows: %w", id, err)
	}
	indicators, err := NewRegistry(parts.Indicators)
	if err != nil {
		return nil, fmt.Errorf("model %s indicators: %w", id, err)
	}

	numeric := make(map[matrix.Kind]*matrix.Matrix, len(parts.Matrices)+2)
	for k, m := range parts.Matrices {
		if m != nil {
			numeric[k] = m
		}
	}
	for _, k := range []matrix.Kind{matrix.L, matrix.B} {
		if _, ok := numeric[k]; !ok {
			return nil, domain.ModelIncomplete(op, id, "required matrix %s is missing", k)
		}
	}
	_, hasC := numeric[matrix.C]
	_, hasD := numeric[matrix.D]
	if !hasC && !hasD {
		return nil, domain.ModelIncomplete(op, id, "one of matrices C or D is required")
	}

	card := matrix.Cardinalities{Sectors: sectors.Len(), Flows: flows.Len(), Indicators: indicators.Len()}
	// shapes are checked before deriving so products cannot fail on bad input
	if _, err := NewMatrixStore(card, numeric, nil); err != nil {
		return nil, fmt.Errorf("model %s: %w", id, err)
	}
	derived := make(map[matrix.Kind]bool)
	if hasC && hasD {
		cb, err := numeric[matrix.C].Mul(numeric[matrix.B])
		if err != nil {
			return nil, fmt.Errorf("model %s check D: %w", id, err)
		}
		if !numeric[matrix.D].EqualApprox(cb, consistencyTol) {
			return nil, domain.InvalidArgument(op, "model %s: stored D does not equal C·B", id)
		}
	}
	if !hasD {
		d, err := numeric[matrix.C].Mul(numeric[matrix.B])
		if err != nil {
			return nil, fmt.Errorf("model %s derive D: %w", id, err)
		}
		numeric[matrix.D] = d
		derived[matrix.D] = true
	}
	du, err := numeric[matrix.D].Mul(numeric[matrix.L])
	if err != nil {
		return nil, fmt.Errorf("model %s derive U: %w", id, err)
	}
	if u, ok := numeric[matrix.U]; ok {
		if !u.EqualApprox(du, consistencyTol) {
			return nil, domain.InvalidArgument(op, "model %s: stored U does not equal D·L", id)
		}
	} else {
		numeric[matrix.U] = du
		derived[matrix.U] = true
	}
	store, err := NewMatrixStore(card, numeric, parts.DQI)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", id, err)
	}

	m := &Model{
		info:       parts.Info,
		sectors:    sectors,
		flows:      flows,
		indicators: indicators,
		store:      store,
		derived:    derived,
		demandByID: make(map[string]int, len(parts.Demands)),
	}
	if m.info.Name == "" {
		m.info.Name = id
	}
	for _, d := range parts.Demands {
		if _, dup := m.demandByID[d.Info.ID]; dup {
			return nil, fmt.Errorf("model %s: duplicate demand %q", id, d.Info.ID)
		}
		for i, e := range d.Entries {
			if _, err := m.resolveSector(e); err != nil {
				return nil, fmt.Errorf("model %s demand %s entry %d: %w", id, d.Info.ID, i, err)
			}
		}
		m.demandByID[d.Info.ID] = len(m.demands)
		m.demands = append(m.demands, d)
	}
	return m, nil
}

// ID returns the model id.
func (m *Model) ID() string { return m.info.ID }

// Info returns the model description.
func (m *Model) Info() ModelInfo { return m.info }

// Sectors lists sectors in index order.
func (m *Model) Sectors() []Sector { return m.sectors.List() }

// Sector returns the sector with the given id.
func (m *Model) Sector(id string) (Sector, error) {
	s, ok := m.sectors.Get(id)
	if !ok {
		return Sector{}, domain.NotFound("get sector", EntitySector, id)
	}
	return s, nil
}

// Flows lists flows in index order.
func (m *Model) Flows() []Flow { return m.flows.List() }

// Flow returns the flow with the given id.
func (m *Model) Flow(id string) (Flow, error) {
	f, ok := m.flows.Get(id)
	if !ok {
		return Flow{}, domain.NotFound("get flow", EntityFlow, id)
	}
	return f, nil
}

// Indicators lists indicators in index order.
func (m *Model) Indicators() []Indicator { return m.indicators.List() }

// Indicator returns the indicator with the given id.
func (m *Model) Indicator(id string) (Indicator, error) {
	i, ok := m.indicators.Get(id)
	if !ok {
		return Indicator{}, domain.NotFound("get indicator", EntityIndicator, id)
	}
	return i, nil
}

// Demands lists the stored demand scenarios.
func (m *Model) Demands() []DemandInfo {
	out := make([]DemandInfo, len(m.demands))
	for i, d := range m.demands {
		out[i] = d.Info
	}
	return out
}

// Demand returns a stored demand scenario.
func (m *Model) Demand(id string) (Demand, error) {
	i, ok := m.demandByID[id]
	if !ok {
		return Demand{}, domain.NotFound("get demand", EntityDemand, id)
	}
	d := m.demands[i]
	d.Entries = append([]DemandEntry(nil), d.Entries...)
	return d, nil
}

// Cardinalities returns the registry sizes.
func (m *Model) Cardinalities() matrix.Cardinalities {
	return matrix.Cardinalities{Sectors: m.sectors.Len(), Flows: m.flows.Len(), Indicators: m.indicators.Len()}
}

// Store exposes the read-only matrix store.
func (m *Model) Store() *MatrixStore { return m.store }

// Derived reports whether the matrix of the given kind was computed at
// assembly time rather than loaded.
func (m *Model) Derived(kind matrix.Kind) bool { return m.derived[kind] }

// MatrixView is the answer to a matrix query: either numeric values or
// data-quality cells, already projected.
type MatrixView struct {
	Name    string                      `json:"name"`
	Numeric *matrix.Projection[float64] `json:"-"`
	Quality *matrix.Projection[string]  `json:"-"`
}

// Payload returns the projected values for encoding.
func (v MatrixView) Payload() any {
	if v.Quality != nil {
		return v.Quality.Payload()
	}
	if v.Numeric != nil {
		return v.Numeric.Payload()
	}
	return nil
}

// HasMatrix reports NotFound unless name is a matrix kind held by the model.
func (m *Model) HasMatrix(name string) error {
	kind, ok := matrix.ParseKind(name)
	if !ok {
		return domain.NotFound("query matrix", EntityMatrix, name)
	}
	if kind.IsDQI() {
		_, err := m.store.GetDQIMatrix(name)
		return err
	}
	_, err := m.store.GetMatrix(name)
	return err
}

// QueryMatrix resolves name to a numeric or DQI matrix and applies sel.
func (m *Model) QueryMatrix(name string, sel matrix.Selector) (MatrixView, error) {
	kind, ok := matrix.ParseKind(name)
	if !ok {
		return MatrixView{}, domain.NotFound("query matrix", EntityMatrix, name)
	}
	if kind.IsDQI() {
		q, err := m.store.GetDQIMatrix(name)
		if err != nil {
			return MatrixView{}, err
		}
		p, err := matrix.ProjectDQI(q, sel)
		if err != nil {
			return MatrixView{}, err
		}
		return MatrixView{Name: name, Quality: &p}, nil
	}
	mat, err := m.store.GetMatrix(name)
	if err != nil {
		return MatrixView{}, err
	}
	p, err := matrix.Project(mat, sel)
	if err != nil {
		return MatrixView{}, err
	}
	return MatrixView{Name: name, Numeric: &p}, nil
}
