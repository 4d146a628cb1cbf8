package matrix

import (
	"strconv"
	"strings"

	"useeio/pkg/domain"
)

// Selector picks a row or a column of a matrix. When both are set the
// column wins.
type Selector struct {
	Row *int
	Col *int
}

// RowSelector selects row i.
func RowSelector(i int) Selector { return Selector{Row: &i} }

// ColSelector selects column j.
func ColSelector(j int) Selector { return Selector{Col: &j} }

// ParseSelector parses optional row and column query values. Empty strings
// leave the axis unset; anything that is not an integer is rejected.
// Range checks happen in Project.
func ParseSelector(row, col string) (Selector, error) {
	var sel Selector
	var err error
	if sel.Row, err = parseIndex("row", row); err != nil {
		return Selector{}, err
	}
	if sel.Col, err = parseIndex("col", col); err != nil {
		return Selector{}, err
	}
	return sel, nil
}

func parseIndex(name, raw string) (*int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, domain.InvalidArgument("parse selector", "%s index %q is not an integer", name, raw)
	}
	return &v, nil
}

// Shape describes the form of a projection.
type Shape string

// Projection shapes.
const (
	ShapeMatrix Shape = "matrix"
	ShapeRow    Shape = "row"
	ShapeColumn Shape = "column"
)

// Projection is the result of projecting a matrix. Exactly one of Vector
// or Cells is populated depending on Shape.
type Projection[T any] struct {
	Shape  Shape
	Index  int
	Vector []T
	Cells  [][]T
}

// Payload returns the value to encode: the vector for row and column
// projections, the rows for the full matrix.
func (p Projection[T]) Payload() any {
	if p.Shape == ShapeMatrix {
		return p.Cells
	}
	return p.Vector
}

type grid[T any] interface {
	Dims() (rows, cols int)
	Row(i int) []T
	Col(j int) []T
	Rows() [][]T
}

// Project applies sel to a numeric matrix.
func Project(m *Matrix, sel Selector) (Projection[float64], error) {
	return project[float64](m, sel)
}

// ProjectDQI applies sel to a data-quality matrix.
func ProjectDQI(m *DQI, sel Selector) (Projection[string], error) {
	return project[string](m, sel)
}

func project[T any](g grid[T], sel Selector) (Projection[T], error) {
	rows, cols := g.Dims()
	if sel.Col != nil {
		c := *sel.Col
		if c < 0 || c >= cols {
			return Projection[T]{}, domain.OutOfRange("project", "column %d outside [0,%d)", c, cols)
		}
		return Projection[T]{Shape: ShapeColumn, Index: c, Vector: g.Col(c)}, nil
	}
	if sel.Row != nil {
		r := *sel.Row
		if r < 0 || r >= rows {
			return Projection[T]{}, domain.OutOfRange("project", "row %d outside [0,%d)", r, rows)
		}
		return Projection[T]{Shape: ShapeRow, Index: r, Vector: g.Row(r)}, nil
	}
	return Projection[T]{Shape: ShapeMatrix, Cells: g.Rows()}, nil
}
