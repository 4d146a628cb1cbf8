package testutil

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"useeio/internal/core"
	"useeio/internal/matrix"
	"useeio/pkg/domain"
)

// MustMatrix builds a matrix from rows or panics.
func MustMatrix(rows [][]float64) *matrix.Matrix {
	m, err := matrix.FromRows(rows)
	if err != nil {
		panic(err)
	}
	return m
}

// MustDQI builds a DQI matrix from rows or panics.
func MustDQI(rows [][]string) *matrix.DQI {
	q, err := matrix.NewDQI(rows)
	if err != nil {
		panic(err)
	}
	return q
}

// ScenarioParts is a three-sector model with one flow and one indicator:
// A = L = I, B = [[1,2,3]], C = [[1]].
func ScenarioParts(id string) core.ModelParts {
	return core.ModelParts{
		Info: domain.ModelInfo{ID: id, Name: "Scenario model", Location: "US"},
		Sectors: []domain.Sector{
			{ID: "1111a0/us", Index: 0, Name: "Oilseed farming", Code: "1111A0", Location: "US"},
			{ID: "221100/us", Index: 1, Name: "Electricity", Code: "221100", Location: "US"},
			{ID: "324110/us", Index: 2, Name: "Petroleum refineries", Code: "324110", Location: "US"},
		},
		Flows: []domain.Flow{
			{ID: "co2/air/kg", Index: 0, Name: "Carbon dioxide", Category: "air", Unit: "kg"},
		},
		Indicators: []domain.Indicator{
			{ID: "GHG", Index: 0, Name: "Greenhouse Gases", Code: "GHG", Unit: "kg CO2 eq", Group: "Impact Potential"},
		},
		Matrices: map[matrix.Kind]*matrix.Matrix{
			matrix.A: matrix.Identity(3),
			matrix.L: matrix.Identity(3),
			matrix.B: MustMatrix([][]float64{{1, 2, 3}}),
			matrix.C: MustMatrix([][]float64{{1}}),
		},
		DQI: map[matrix.Kind]*matrix.DQI{
			matrix.BDQI: MustDQI([][]string{{"(1,2,1,1,1)", "(2,2,1,1,3)", "(3,3,2,1,1)"}}),
		},
		Demands: []domain.Demand{
			{
				Info: domain.DemandInfo{ID: "scenario_demand", Year: 2012, Type: "Consumption", System: "Test", Location: "US"},
				Entries: []domain.DemandEntry{
					{Sector: "1111a0/us", Amount: 10},
					{Sector: "324110/us", Amount: 5},
				},
			},
		},
	}
}

// Scenario assembles ScenarioParts.
func Scenario(id string) *core.Model {
	m, err := core.NewModel(ScenarioParts(id))
	if err != nil {
		panic(fmt.Sprintf("scenario model: %v", err))
	}
	return m
}

// RichParts is a four-sector model with three flows and two indicators
// whose L is the Leontief inverse of A. D and U are left for derivation.
func RichParts(id string) core.ModelParts {
	a := mat.NewDense(4, 4, []float64{
		0.10, 0.05, 0.00, 0.20,
		0.02, 0.15, 0.10, 0.05,
		0.00, 0.10, 0.05, 0.10,
		0.05, 0.00, 0.20, 0.10,
	})
	var ia mat.Dense
	ia.Sub(identity(4), a)
	var l mat.Dense
	if err := l.Inverse(&ia); err != nil {
		panic(fmt.Sprintf("leontief inverse: %v", err))
	}
	sectors := make([]domain.Sector, 4)
	for i := range sectors {
		sectors[i] = domain.Sector{ID: fmt.Sprintf("s%d/us", i), Index: i, Name: fmt.Sprintf("Sector %d", i), Code: fmt.Sprintf("S%d", i), Location: "US"}
	}
	return core.ModelParts{
		Info:    domain.ModelInfo{ID: id, Name: "Rich model", Location: "US", Description: "Synthetic four-sector model"},
		Sectors: sectors,
		Flows: []domain.Flow{
			{ID: "co2", Index: 0, Name: "Carbon dioxide", Category: "air", Unit: "kg"},
			{ID: "ch4", Index: 1, Name: "Methane", Category: "air", Unit: "kg"},
			{ID: "water", Index: 2, Name: "Water", Category: "resource", SubCategory: "fresh", Unit: "m3"},
		},
		Indicators: []domain.Indicator{
			{ID: "GHG", Index: 0, Name: "Greenhouse Gases", Code: "GHG", Unit: "kg CO2 eq"},
			{ID: "WATR", Index: 1, Name: "Water use", Code: "WATR", Unit: "m3"},
		},
		Matrices: map[matrix.Kind]*matrix.Matrix{
			matrix.A: fromDense(a),
			matrix.L: fromDense(&l),
			matrix.B: MustMatrix([][]float64{
				{0.5, 1.2, 0.0, 2.0},
				{0.01, 0.0, 0.3, 0.02},
				{3.0, 0.4, 0.1, 0.0},
			}),
			matrix.C: MustMatrix([][]float64{
				{1, 28, 0},
				{0, 0, 1},
			}),
		},
		DQI: map[matrix.Kind]*matrix.DQI{
			matrix.BDQI: MustDQI([][]string{
				{"(1,1,1,1,1)", "(2,1,1,1,1)", "", "(3,2,1,1,1)"},
				{"(1,1,1,1,1)", "", "(2,2,2,2,2)", "(1,1,1,1,1)"},
				{"(4,4,4,4,4)", "(1,1,1,1,1)", "(1,1,1,1,1)", ""},
			}),
		},
		Demands: []domain.Demand{
			{Info: domain.DemandInfo{ID: "all_ones", Type: "Test"}, Entries: []domain.DemandEntry{
				{Sector: "s0/us", Amount: 1}, {Sector: "s1/us", Amount: 1}, {Sector: "s2/us", Amount: 1}, {Sector: "s3/us", Amount: 1},
			}},
		},
	}
}

// Rich assembles RichParts.
func Rich(id string) *core.Model {
	m, err := core.NewModel(RichParts(id))
	if err != nil {
		panic(fmt.Sprintf("rich model: %v", err))
	}
	return m
}

func identity(n int) *mat.Dense {
	d := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		d.Set(i, i, 1)
	}
	return d
}

func fromDense(d *mat.Dense) *matrix.Matrix {
	r, c := d.Dims()
	rows := make([][]float64, r)
	for i := range rows {
		rows[i] = make([]float64, c)
		mat.Row(rows[i], i, d)
	}
	return MustMatrix(rows)
}
