package core_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"useeio/internal/core"
	"useeio/internal/matrix"
	"useeio/testutil"
)

func TestRegistryOrdersByIndex(t *testing.T) {
	reg, err := core.NewRegistry([]core.Flow{
		{ID: "water", Index: 2},
		{ID: "co2", Index: 0},
		{ID: "ch4", Index: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, reg.Len())
	assert.Equal(t, []string{"co2", "ch4", "water"}, reg.IDs())
	assert.Equal(t, "water", reg.At(2).ID)

	idx, ok := reg.IndexOf("ch4")
	assert.True(t, ok)
	assert.Equal(t, 1, idx)
	_, ok = reg.Get("so2")
	assert.False(t, ok)

	list := reg.List()
	list[0].ID = "mutated"
	assert.Equal(t, "co2", reg.At(0).ID)
}

func TestRegistryRejectsBrokenIndices(t *testing.T) {
	for name, items := range map[string][]core.Indicator{
		"gap":       {{ID: "a", Index: 0}, {ID: "b", Index: 2}},
		"duplicate": {{ID: "a", Index: 0}, {ID: "b", Index: 0}},
		"repeat id": {{ID: "a", Index: 0}, {ID: "a", Index: 1}},
		"empty id":  {{ID: "", Index: 0}},
		"negative":  {{ID: "a", Index: -1}},
	} {
		_, err := core.NewRegistry(items)
		assert.Error(t, err, name)
	}
	empty, err := core.NewRegistry[core.Sector](nil)
	require.NoError(t, err)
	assert.Zero(t, empty.Len())
}

func TestMatrixStoreKindsAndLookups(t *testing.T) {
	m := testutil.Scenario("M1")
	assert.Equal(t, []matrix.Kind{matrix.A, matrix.B, matrix.C, matrix.D, matrix.L, matrix.U, matrix.BDQI}, m.Store().Kinds())

	_, err := m.Store().GetMatrix("B_dqi")
	assert.Error(t, err)
	_, err = m.Store().GetDQIMatrix("B")
	assert.Error(t, err)
	q, err := m.Store().GetDQIMatrix("B_dqi")
	require.NoError(t, err)
	r, c := q.Dims()
	assert.Equal(t, [2]int{1, 3}, [2]int{r, c})

	card := m.Cardinalities()
	_, err = core.NewMatrixStore(card, map[matrix.Kind]*matrix.Matrix{matrix.BDQI: matrix.Identity(1)}, nil)
	assert.Error(t, err)
	_, err = core.NewMatrixStore(card, map[matrix.Kind]*matrix.Matrix{matrix.L: matrix.Identity(2)}, nil)
	assert.ErrorContains(t, err, "want 3x3")
	_, err = core.NewMatrixStore(card, nil, map[matrix.Kind]*matrix.DQI{matrix.B: testutil.MustDQI([][]string{{"x"}})})
	assert.Error(t, err)
}

func TestCoreStaysTransportAgnostic(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.AnyOf(testutil.InfraImportForbidden, testutil.TransportImportForbidden),
		"the model core must not depend on storage backends or HTTP")
}
