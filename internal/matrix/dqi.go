package matrix

import "fmt"

// DQI is an immutable grid of data-quality scores. Cells are kept verbatim
// (for example "(3,2,1,4,5)" pedigree tuples or single digits).
type DQI struct {
	rows, cols int
	cells      [][]string
}

// NewDQI builds a data-quality matrix from equally sized rows. The input
// is copied.
func NewDQI(rows [][]string) (*DQI, error) {
	m := &DQI{rows: len(rows)}
	if len(rows) > 0 {
		m.cols = len(rows[0])
	}
	m.cells = make([][]string, len(rows))
	for i, row := range rows {
		if len(row) != m.cols {
			return nil, fmt.Errorf("dqi: row %d has %d cells, want %d", i, len(row), m.cols)
		}
		m.cells[i] = append([]string(nil), row...)
	}
	return m, nil
}

// Dims returns the number of rows and columns.
func (m *DQI) Dims() (rows, cols int) { return m.rows, m.cols }

// At returns the cell at row i, column j.
func (m *DQI) At(i, j int) string { return m.cells[i][j] }

// Row returns a copy of row i.
func (m *DQI) Row(i int) []string { return append([]string(nil), m.cells[i]...) }

// Col returns a copy of column j.
func (m *DQI) Col(j int) []string {
	out := make([]string, m.rows)
	for i, row := range m.cells {
		out[i] = row[j]
	}
	return out
}

// Rows returns a copy of the grid.
func (m *DQI) Rows() [][]string {
	out := make([][]string, m.rows)
	for i := range m.cells {
		out[i] = m.Row(i)
	}
	return out
}
