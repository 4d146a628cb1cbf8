package core

import (
	"fmt"

	"useeio/internal/matrix"
	"useeio/pkg/domain"
)

// MatrixStore holds the numeric and data-quality matrices of one model.
// It is populated once by NewMatrixStore and never mutated afterwards, so
// concurrent readers need no synchronization.
type MatrixStore struct {
	numeric map[matrix.Kind]*matrix.Matrix
	dqi     map[matrix.Kind]*matrix.DQI
}

// NewMatrixStore validates every matrix against the registry cardinalities
// and every DQI matrix against its numeric partner.
func NewMatrixStore(card matrix.Cardinalities, numeric map[matrix.Kind]*matrix.Matrix, dqi map[matrix.Kind]*matrix.DQI) (*MatrixStore, error) {
	s := &MatrixStore{
		numeric: make(map[matrix.Kind]*matrix.Matrix, len(numeric)),
		dqi:     make(map[matrix.Kind]*matrix.DQI, len(dqi)),
	}
	for kind, m := range numeric {
		if m == nil {
			continue
		}
		if kind.IsDQI() || kind.String() == "unknown" {
			return nil, fmt.Errorf("%s is not a numeric matrix kind", kind)
		}
		wantR, wantC := card.Shape(kind)
		r, c := m.Dims()
		if r != wantR || c != wantC {
			return nil, fmt.Errorf("matrix %s is %dx%d, want %dx%d", kind, r, c, wantR, wantC)
		}
		s.numeric[kind] = m
	}
	for kind, q := range dqi {
		if q == nil {
			continue
		}
		if !kind.IsDQI() {
			return nil, fmt.Errorf("%s is not a DQI matrix kind", kind)
		}
		partner, ok := s.numeric[kind.Numeric()]
		if !ok {
			return nil, fmt.Errorf("dqi matrix %s has no numeric counterpart %s", kind, kind.Numeric())
		}
		wantR, wantC := partner.Dims()
		r, c := q.Dims()
		if r != wantR || c != wantC {
			return nil, fmt.Errorf("dqi matrix %s is %dx%d, want %dx%d", kind, r, c, wantR, wantC)
		}
		s.dqi[kind] = q
	}
	return s, nil
}

// Matrix returns the numeric matrix of the given kind.
func (s *MatrixStore) Matrix(kind matrix.Kind) (*matrix.Matrix, bool) {
	m, ok := s.numeric[kind]
	return m, ok
}

// DQI returns the data-quality matrix of the given kind.
func (s *MatrixStore) DQI(kind matrix.Kind) (*matrix.DQI, bool) {
	q, ok := s.dqi[kind]
	return q, ok
}

// GetMatrix resolves a numeric matrix by name.
func (s *MatrixStore) GetMatrix(name string) (*matrix.Matrix, error) {
	kind, ok := matrix.ParseKind(name)
	if !ok || kind.IsDQI() {
		return nil, domain.NotFound("get matrix", EntityMatrix, name)
	}
	m, ok := s.numeric[kind]
	if !ok {
		return nil, domain.NotFound("get matrix", EntityMatrix, name)
	}
	return m, nil
}

// GetDQIMatrix resolves a data-quality matrix by name.
func (s *MatrixStore) GetDQIMatrix(name string) (*matrix.DQI, error) {
	kind, ok := matrix.ParseKind(name)
	if !ok || !kind.IsDQI() {
		return nil, domain.NotFound("get dqi matrix", EntityMatrix, name)
	}
	q, ok := s.dqi[kind]
	if !ok {
		return nil, domain.NotFound("get dqi matrix", EntityMatrix, name)
	}
	return q, nil
}

// Kinds lists the kinds present, numeric first, in canonical order.
func (s *MatrixStore) Kinds() []matrix.Kind {
	var out []matrix.Kind
	for _, k := range matrix.NumericKinds() {
		if _, ok := s.numeric[k]; ok {
			out = append(out, k)
		}
	}
	for _, k := range matrix.DQIKinds() {
		if _, ok := s.dqi[k]; ok {
			out = append(out, k)
		}
	}
	return out
}
