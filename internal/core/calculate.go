package core

import (
	"fmt"
	"math"

	"useeio/internal/matrix"
	"useeio/pkg/domain"
)

// Perspective selects the optional contribution breakdown of a result.
type Perspective string

// Supported perspectives. The zero value computes totals only.
const (
	PerspectiveNone Perspective = ""
	// PerspectiveDirect attributes impacts to the sectors where they occur: D·diag(x).
	PerspectiveDirect Perspective = "direct"
	// PerspectiveFinal attributes impacts to the final demand that causes them: U·diag(d).
	PerspectiveFinal Perspective = "final"
)

// CalculationRequest is the input of Calculate. Demand and DemandID are
// mutually exclusive.
type CalculationRequest struct {
	Perspective Perspective         `json:"perspective,omitempty"`
	Demand      domain.DemandVector `json:"demand,omitempty"`
	DemandID    string              `json:"demandId,omitempty"`
}

// LabeledValue is a result value labeled with its registry id.
type LabeledValue struct {
	ID    string  `json:"id"`
	Value float64 `json:"value"`
}

// Contributions is an indicator x sector breakdown of the indicator results.
type Contributions struct {
	Indicators []string    `json:"indicators"`
	Sectors    []string    `json:"sectors"`
	Data       [][]float64 `json:"data"`
}

// Result is the outcome of a calculation.
type Result struct {
	Model              string         `json:"model"`
	Perspective        Perspective    `json:"perspective,omitempty"`
	PerSectorOutput    []LabeledValue `json:"perSectorOutput"`
	PerFlowResult      []LabeledValue `json:"perFlowResult"`
	PerIndicatorResult []LabeledValue `json:"perIndicatorResult"`
	IndicatorMetadata  []Indicator    `json:"indicators"`
	Contributions      *Contributions `json:"contributions,omitempty"`
}

// Calculate runs the demand-driven impact calculation:
//
//	x = L·d, f = B·x, r = D·x (stored D) or r = C·f.
//
// It is a pure function of the model and the request.
func (m *Model) Calculate(req CalculationRequest) (Result, error) {
	const op = "calculate"
	switch req.Perspective {
	case PerspectiveNone, PerspectiveDirect, PerspectiveFinal:
	default:
		return Result{}, domain.InvalidArgument(op, "unknown perspective %q", req.Perspective)
	}
	entries := []DemandEntry(req.Demand)
	if req.DemandID != "" {
		if len(req.Demand) > 0 {
			return Result{}, domain.InvalidArgument(op, "demand and demandId are mutually exclusive")
		}
		stored, err := m.Demand(req.DemandID)
		if err != nil {
			return Result{}, err
		}
		entries = stored.Entries
	}
	d, err := m.DenseDemand(entries)
	if err != nil {
		return Result{}, err
	}

	l, okL := m.store.Matrix(matrix.L)
	b, okB := m.store.Matrix(matrix.B)
	if !okL || !okB {
		return Result{}, domain.ModelIncomplete(op, m.info.ID, "matrices L and B are required")
	}
	x, err := l.MulVec(d)
	if err != nil {
		return Result{}, fmt.Errorf("%s: total output: %w", op, err)
	}
	f, err := b.MulVec(x)
	if err != nil {
		return Result{}, fmt.Errorf("%s: flows: %w", op, err)
	}
	r, err := m.indicatorResults(x, f)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Model:              m.info.ID,
		Perspective:        req.Perspective,
		PerSectorOutput:    label(m.sectors.IDs(), x),
		PerFlowResult:      label(m.flows.IDs(), f),
		PerIndicatorResult: label(m.indicators.IDs(), r),
		IndicatorMetadata:  m.indicators.List(),
	}
	if req.Perspective != PerspectiveNone {
		if res.Contributions, err = m.contributions(req.Perspective, d, x); err != nil {
			return Result{}, err
		}
	}
	return res, nil
}

func (m *Model) indicatorResults(x, f []float64) ([]float64, error) {
	if d, ok := m.store.Matrix(matrix.D); ok && !m.derived[matrix.D] {
		return d.MulVec(x)
	}
	if c, ok := m.store.Matrix(matrix.C); ok {
		return c.MulVec(f)
	}
	if d, ok := m.store.Matrix(matrix.D); ok {
		return d.MulVec(x)
	}
	return nil, domain.ModelIncomplete("calculate", m.info.ID, "one of matrices C or D is required")
}

func (m *Model) contributions(p Perspective, d, x []float64) (*Contributions, error) {
	kind, scale := matrix.D, x
	if p == PerspectiveFinal {
		kind, scale = matrix.U, d
	}
	base, ok := m.store.Matrix(kind)
	if !ok {
		return nil, domain.ModelIncomplete("calculate", m.info.ID, "matrix %s is required for the %s perspective", kind, p)
	}
	scaled, err := base.ScaleColumns(scale)
	if err != nil {
		return nil, fmt.Errorf("calculate: %s contributions: %w", p, err)
	}
	return &Contributions{
		Indicators: m.indicators.IDs(),
		Sectors:    m.sectors.IDs(),
		Data:       scaled.Rows(),
	}, nil
}

// DenseDemand materializes entries into an N-length vector aligned to the
// sector registry. Absent sectors are zero; duplicate entries are summed.
func (m *Model) DenseDemand(entries []DemandEntry) ([]float64, error) {
	const op = "demand"
	d := make([]float64, m.sectors.Len())
	for i, e := range entries {
		if math.IsNaN(e.Amount) || math.IsInf(e.Amount, 0) {
			return nil, domain.InvalidArgument(op, "entry %d: amount is not finite", i)
		}
		if e.Amount < 0 {
			return nil, domain.InvalidArgument(op, "entry %d: negative demand %g", i, e.Amount)
		}
		idx, err := m.resolveSector(e)
		if err != nil {
			return nil, err
		}
		d[idx] += e.Amount
	}
	return d, nil
}

func (m *Model) resolveSector(e DemandEntry) (int, error) {
	const op = "demand"
	if e.Sector != "" {
		idx, ok := m.sectors.IndexOf(e.Sector)
		if !ok {
			return 0, domain.InvalidArgument(op, "unknown sector %q", e.Sector)
		}
		if e.Index != nil && *e.Index != idx {
			return 0, domain.InvalidArgument(op, "sector %q has index %d, not %d", e.Sector, idx, *e.Index)
		}
		return idx, nil
	}
	if e.Index == nil {
		return 0, domain.InvalidArgument(op, "entry names no sector")
	}
	if *e.Index < 0 || *e.Index >= m.sectors.Len() {
		return 0, domain.InvalidArgument(op, "sector index %d outside [0,%d)", *e.Index, m.sectors.Len())
	}
	return *e.Index, nil
}

func label(ids []string, values []float64) []LabeledValue {
	out := make([]LabeledValue, len(values))
	for i, v := range values {
		out[i] = LabeledValue{ID: ids[i], Value: v}
	}
	return out
}
