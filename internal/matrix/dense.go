package matrix

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Matrix is an immutable dense float64 matrix. A matrix with zero rows or
// columns is legal (a model may carry no flows) and has no backing storage.
type Matrix struct {
	rows, cols int
	dense      *mat.Dense
}

// New builds a matrix from row-major data. The slice is copied.
func New(rows, cols int, data []float64) (*Matrix, error) {
	if rows < 0 || cols < 0 {
		return nil, fmt.Errorf("matrix: negative dimensions %dx%d", rows, cols)
	}
	if len(data) != rows*cols {
		return nil, fmt.Errorf("matrix: %dx%d needs %d values, got %d", rows, cols, rows*cols, len(data))
	}
	m := &Matrix{rows: rows, cols: cols}
	if rows > 0 && cols > 0 {
		buf := make([]float64, len(data))
		copy(buf, data)
		m.dense = mat.NewDense(rows, cols, buf)
	}
	return m, nil
}

// FromRows builds a matrix from a slice of equally sized rows.
func FromRows(rows [][]float64) (*Matrix, error) {
	if len(rows) == 0 {
		return New(0, 0, nil)
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("matrix: row %d has %d values, want %d", i, len(row), cols)
		}
		data = append(data, row...)
	}
	return New(len(rows), cols, data)
}

// FromColumnMajor builds a matrix from column-major data.
func FromColumnMajor(rows, cols int, data []float64) (*Matrix, error) {
	if len(data) != rows*cols {
		return nil, fmt.Errorf("matrix: %dx%d needs %d values, got %d", rows, cols, rows*cols, len(data))
	}
	rowMajor := make([]float64, len(data))
	for j := 0; j < cols; j++ {
		for i := 0; i < rows; i++ {
			rowMajor[i*cols+j] = data[j*rows+i]
		}
	}
	return New(rows, cols, rowMajor)
}

// Identity returns the n x n identity matrix.
func Identity(n int) *Matrix {
	data := make([]float64, n*n)
	for i := 0; i < n; i++ {
		data[i*n+i] = 1
	}
	m, _ := New(n, n, data)
	return m
}

func fromDense(d *mat.Dense) *Matrix {
	r, c := d.Dims()
	return &Matrix{rows: r, cols: c, dense: d}
}

// Dims returns the number of rows and columns.
func (m *Matrix) Dims() (rows, cols int) { return m.rows, m.cols }

// At returns the value at row i, column j. It panics when i or j is out of
// range, as gonum does.
func (m *Matrix) At(i, j int) float64 {
	if m.dense == nil {
		panic(fmt.Sprintf("matrix: index (%d, %d) out of range for %dx%d matrix", i, j, m.rows, m.cols))
	}
	return m.dense.At(i, j)
}

// Row returns a copy of row i.
func (m *Matrix) Row(i int) []float64 {
	if m.dense == nil {
		return make([]float64, m.cols)
	}
	return mat.Row(nil, i, m.dense)
}

// Col returns a copy of column j.
func (m *Matrix) Col(j int) []float64 {
	if m.dense == nil {
		return make([]float64, m.rows)
	}
	return mat.Col(nil, j, m.dense)
}

// Rows returns a copy of the matrix as a slice of rows.
func (m *Matrix) Rows() [][]float64 {
	out := make([][]float64, m.rows)
	for i := range out {
		out[i] = m.Row(i)
	}
	return out
}

// ColumnMajor returns a copy of the values in column-major order.
func (m *Matrix) ColumnMajor() []float64 {
	out := make([]float64, 0, m.rows*m.cols)
	for j := 0; j < m.cols; j++ {
		out = append(out, m.Col(j)...)
	}
	return out
}

// MulVec computes m·v.
func (m *Matrix) MulVec(v []float64) ([]float64, error) {
	if len(v) != m.cols {
		return nil, fmt.Errorf("matrix: cannot multiply %dx%d by vector of length %d", m.rows, m.cols, len(v))
	}
	if m.dense == nil {
		return make([]float64, m.rows), nil
	}
	var out mat.VecDense
	out.MulVec(m.dense, mat.NewVecDense(len(v), append([]float64(nil), v...)))
	return out.RawVector().Data, nil
}

// Mul computes m·other.
func (m *Matrix) Mul(other *Matrix) (*Matrix, error) {
	if m.cols != other.rows {
		return nil, fmt.Errorf("matrix: cannot multiply %dx%d by %dx%d", m.rows, m.cols, other.rows, other.cols)
	}
	if m.dense == nil || other.dense == nil {
		return New(m.rows, other.cols, make([]float64, m.rows*other.cols))
	}
	var out mat.Dense
	out.Mul(m.dense, other.dense)
	return fromDense(&out), nil
}

// ScaleColumns returns m·diag(v): column j multiplied by v[j].
func (m *Matrix) ScaleColumns(v []float64) (*Matrix, error) {
	if len(v) != m.cols {
		return nil, fmt.Errorf("matrix: cannot scale %d columns by vector of length %d", m.cols, len(v))
	}
	if m.dense == nil {
		return New(m.rows, m.cols, make([]float64, m.rows*m.cols))
	}
	var out mat.Dense
	out.Apply(func(_, j int, x float64) float64 { return x * v[j] }, m.dense)
	return fromDense(&out), nil
}

// EqualApprox reports whether both matrices have the same shape and all
// values are within tol of each other.
func (m *Matrix) EqualApprox(other *Matrix, tol float64) bool {
	if m.rows != other.rows || m.cols != other.cols {
		return false
	}
	if m.dense == nil || other.dense == nil {
		return m.dense == nil && other.dense == nil
	}
	return mat.EqualApprox(m.dense, other.dense, tol)
}
