package matrix

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"useeio/pkg/domain"
)

func mustRows(t *testing.T, rows [][]float64) *Matrix {
	t.Helper()
	m, err := FromRows(rows)
	require.NoError(t, err)
	return m
}

func TestParseKind(t *testing.T) {
	for _, name := range []string{"A", "B", "C", "D", "L", "U", "B_dqi", "D_dqi", "U_dqi"} {
		k, ok := ParseKind(name)
		require.True(t, ok, name)
		assert.Equal(t, name, k.String())
	}
	for _, name := range []string{"", "a", "X", "A_dqi", "L_dqi", "b_dqi"} {
		_, ok := ParseKind(name)
		assert.False(t, ok, name)
	}
}

func TestKindAxes(t *testing.T) {
	c := Cardinalities{Sectors: 3, Flows: 2, Indicators: 4}
	cases := map[Kind][2]int{
		A: {3, 3}, L: {3, 3}, B: {2, 3}, C: {4, 2}, D: {4, 3}, U: {4, 3},
		BDQI: {2, 3}, DDQI: {4, 3}, UDQI: {4, 3},
	}
	for k, want := range cases {
		r, col := c.Shape(k)
		assert.Equal(t, want, [2]int{r, col}, k.String())
	}
	for _, k := range NumericKinds() {
		assert.False(t, k.IsDQI())
	}
	for _, k := range DQIKinds() {
		assert.True(t, k.IsDQI())
		partner, ok := k.Numeric().DQI()
		require.True(t, ok)
		assert.Equal(t, k, partner)
	}
}

func TestFromRowsRejectsRagged(t *testing.T) {
	_, err := FromRows([][]float64{{1, 2}, {3}})
	require.Error(t, err)
}

func TestColumnMajorRoundTrip(t *testing.T) {
	m, err := FromColumnMajor(2, 3, []float64{1, 4, 2, 5, 3, 6})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 2, 3}, {4, 5, 6}}, m.Rows())
	assert.Equal(t, []float64{1, 4, 2, 5, 3, 6}, m.ColumnMajor())
}

func TestMulVec(t *testing.T) {
	m := mustRows(t, [][]float64{{1, 2, 3}, {0, 1, 0}})
	got, err := m.MulVec([]float64{1, 1, 1})
	require.NoError(t, err)
	assert.Equal(t, []float64{6, 1}, got)

	_, err = m.MulVec([]float64{1})
	assert.Error(t, err)
}

func TestMulVecEmpty(t *testing.T) {
	m, err := New(0, 3, nil)
	require.NoError(t, err)
	got, err := m.MulVec([]float64{1, 2, 3})
	require.NoError(t, err)
	assert.Empty(t, got)

	m, err = New(2, 0, nil)
	require.NoError(t, err)
	got, err = m.MulVec(nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0}, got)
}

func TestAtOnEmptyMatrix(t *testing.T) {
	m, err := New(0, 3, nil)
	require.NoError(t, err)
	assert.PanicsWithValue(t, "matrix: index (0, 1) out of range for 0x3 matrix", func() { m.At(0, 1) })

	full := mustRows(t, [][]float64{{1, 2}, {3, 4}})
	assert.Equal(t, 3.0, full.At(1, 0))
}

func TestMulAndScale(t *testing.T) {
	a := mustRows(t, [][]float64{{1, 2}, {3, 4}})
	b := mustRows(t, [][]float64{{0, 1}, {1, 0}})
	ab, err := a.Mul(b)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{2, 1}, {4, 3}}, ab.Rows())

	scaled, err := a.ScaleColumns([]float64{2, 0})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{2, 0}, {6, 0}}, scaled.Rows())
	// the receiver is left untouched
	assert.Equal(t, [][]float64{{1, 2}, {3, 4}}, a.Rows())

	_, err = a.Mul(mustRows(t, [][]float64{{1, 2, 3}}))
	assert.Error(t, err)
}

func TestIdentity(t *testing.T) {
	id := Identity(3)
	got, err := id.MulVec([]float64{10, 0, 5})
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 0, 5}, got)
}

func TestProjectColumnRowAndFull(t *testing.T) {
	m := mustRows(t, [][]float64{{1, 2, 3}, {4, 5, 6}})

	for c := 0; c < 3; c++ {
		p, err := Project(m, ColSelector(c))
		require.NoError(t, err)
		assert.Equal(t, ShapeColumn, p.Shape)
		want := []float64{m.Rows()[0][c], m.Rows()[1][c]}
		assert.Equal(t, want, p.Vector)
	}
	for r := 0; r < 2; r++ {
		p, err := Project(m, RowSelector(r))
		require.NoError(t, err)
		assert.Equal(t, m.Rows()[r], p.Vector)
	}
	p, err := Project(m, Selector{})
	require.NoError(t, err)
	assert.Equal(t, ShapeMatrix, p.Shape)
	assert.Equal(t, m.Rows(), p.Payload())
}

func TestProjectColumnWinsOverRow(t *testing.T) {
	m := mustRows(t, [][]float64{{1, 2, 3}, {4, 5, 6}})
	row, col := 0, 2
	p, err := Project(m, Selector{Row: &row, Col: &col})
	require.NoError(t, err)
	assert.Equal(t, ShapeColumn, p.Shape)
	assert.Equal(t, []float64{3, 6}, p.Vector)

	// an out-of-range row is ignored when a valid column is present
	row = 99
	p, err = Project(m, Selector{Row: &row, Col: &col})
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 6}, p.Vector)
}

func TestProjectOutOfRange(t *testing.T) {
	m := mustRows(t, [][]float64{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}})
	for _, sel := range []Selector{ColSelector(5), ColSelector(3), ColSelector(-1), RowSelector(3), RowSelector(-2)} {
		p, err := Project(m, sel)
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrOutOfRange), err.Error())
		assert.Nil(t, p.Vector)
		assert.Nil(t, p.Cells)
	}
}

func TestParseSelector(t *testing.T) {
	sel, err := ParseSelector("", "")
	require.NoError(t, err)
	assert.Nil(t, sel.Row)
	assert.Nil(t, sel.Col)

	sel, err = ParseSelector(" 2 ", "-1")
	require.NoError(t, err)
	assert.Equal(t, 2, *sel.Row)
	assert.Equal(t, -1, *sel.Col)

	for _, bad := range [][2]string{{"x", ""}, {"", "1.5"}, {"0x1", ""}} {
		_, err := ParseSelector(bad[0], bad[1])
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrInvalidArgument))
		assert.False(t, errors.Is(err, domain.ErrOutOfRange))
	}
}

func TestProjectDQI(t *testing.T) {
	q, err := NewDQI([][]string{{"1", "(2,3)"}, {"4", "n/a"}})
	require.NoError(t, err)

	p, err := ProjectDQI(q, ColSelector(1))
	require.NoError(t, err)
	assert.Equal(t, []string{"(2,3)", "n/a"}, p.Vector)

	p, err = ProjectDQI(q, RowSelector(1))
	require.NoError(t, err)
	assert.Equal(t, []string{"4", "n/a"}, p.Vector)

	_, err = ProjectDQI(q, ColSelector(2))
	assert.True(t, errors.Is(err, domain.ErrOutOfRange))

	_, err = NewDQI([][]string{{"1"}, {"1", "2"}})
	assert.Error(t, err)
}

func TestBinaryRoundTrip(t *testing.T) {
	m := mustRows(t, [][]float64{{1.5, -2}, {0, 1e-9}, {3, 4}})
	var buf bytes.Buffer
	require.NoError(t, WriteBinary(&buf, m))
	assert.Equal(t, 8+6*8, buf.Len())

	got, err := ReadBinary(&buf)
	require.NoError(t, err)
	if diff := cmp.Diff(m.Rows(), got.Rows(), cmpopts.EquateApprox(0, 1e-15)); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestReadBinaryTruncated(t *testing.T) {
	m := mustRows(t, [][]float64{{1, 2}, {3, 4}})
	var buf bytes.Buffer
	require.NoError(t, WriteBinary(&buf, m))
	_, err := ReadBinary(bytes.NewReader(buf.Bytes()[:buf.Len()-4]))
	require.Error(t, err)

	_, err = ReadBinary(bytes.NewReader([]byte{1, 0}))
	require.Error(t, err)
}

func TestReadCSV(t *testing.T) {
	m, err := ReadCSV(strings.NewReader("1,2,3\n4, 5 ,6\n"))
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 2, 3}, {4, 5, 6}}, m.Rows())

	_, err = ReadCSV(strings.NewReader("1,x\n"))
	assert.Error(t, err)
	_, err = ReadCSV(strings.NewReader("1,2\n3\n"))
	assert.Error(t, err)
	_, err = ReadCSV(strings.NewReader("NaN\n"))
	assert.Error(t, err)

	q, err := ReadDQICSV(strings.NewReader("\"(1,2)\", 3\n4,5\n"))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"(1,2)", "3"}, {"4", "5"}}, q.Rows())
}
