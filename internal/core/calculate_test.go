package core_test

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"gonum.org/v1/gonum/mat"

	"useeio/internal/core"
	"useeio/internal/matrix"
	"useeio/pkg/domain"
	"useeio/testutil"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

func values(in []core.LabeledValue) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = v.Value
	}
	return out
}

func dense(m *matrix.Matrix) *mat.Dense {
	r, c := m.Dims()
	return mat.NewDense(r, c, flatten(m.Rows()))
}

func flatten(rows [][]float64) []float64 {
	var out []float64
	for _, r := range rows {
		out = append(out, r...)
	}
	return out
}

func indexed(d []float64) domain.DemandVector {
	out := make(domain.DemandVector, len(d))
	for i, v := range d {
		idx := i
		out[i] = domain.DemandEntry{Index: &idx, Amount: v}
	}
	return out
}

func TestScenarioIdentityLeontief(t *testing.T) {
	m := testutil.Scenario("M1")
	res, err := m.Calculate(core.CalculationRequest{Demand: indexed([]float64{10, 0, 5})})
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if diff := cmp.Diff([]float64{10, 0, 5}, values(res.PerSectorOutput), approx); diff != "" {
		t.Fatalf("per sector output (-want +got):\n%s", diff)
	}
	if res.PerSectorOutput[2].ID != "324110/us" {
		t.Fatalf("expected sector labels, got %+v", res.PerSectorOutput)
	}
}

func TestScenarioIndicatorResult(t *testing.T) {
	m := testutil.Scenario("M1")
	res, err := m.Calculate(core.CalculationRequest{Demand: indexed([]float64{1, 1, 1})})
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if diff := cmp.Diff([]float64{6}, values(res.PerIndicatorResult), approx); diff != "" {
		t.Fatalf("indicator result (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{6}, values(res.PerFlowResult), approx); diff != "" {
		t.Fatalf("flow result (-want +got):\n%s", diff)
	}
	if len(res.IndicatorMetadata) != 1 || res.IndicatorMetadata[0].Unit != "kg CO2 eq" {
		t.Fatalf("unexpected indicator metadata %+v", res.IndicatorMetadata)
	}
}

func TestCalculationMatchesChainedProducts(t *testing.T) {
	parts := testutil.RichParts("RICH")
	m := testutil.Rich("RICH")
	l := dense(parts.Matrices[matrix.L])
	b := dense(parts.Matrices[matrix.B])
	c := dense(parts.Matrices[matrix.C])

	rng := rand.New(rand.NewPCG(7, 11))
	for trial := 0; trial < 50; trial++ {
		d := make([]float64, 4)
		for i := range d {
			if rng.IntN(3) > 0 {
				d[i] = rng.Float64() * 1e6
			}
		}
		res, err := m.Calculate(core.CalculationRequest{Demand: indexed(d)})
		if err != nil {
			t.Fatalf("trial %d: %v", trial, err)
		}

		dv := mat.NewVecDense(4, d)
		var x, f, r mat.VecDense
		x.MulVec(l, dv)
		f.MulVec(b, &x)
		r.MulVec(c, &f)

		tol := cmpopts.EquateApprox(1e-9, 1e-6)
		if diff := cmp.Diff(x.RawVector().Data, values(res.PerSectorOutput), tol); diff != "" {
			t.Fatalf("trial %d: x != L·d (-want +got):\n%s", trial, diff)
		}
		if diff := cmp.Diff(r.RawVector().Data, values(res.PerIndicatorResult), tol); diff != "" {
			t.Fatalf("trial %d: r != C·B·L·d (-want +got):\n%s", trial, diff)
		}
	}
}

func TestCalculateStoredDemand(t *testing.T) {
	m := testutil.Scenario("M1")
	res, err := m.Calculate(core.CalculationRequest{DemandID: "scenario_demand"})
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if diff := cmp.Diff([]float64{25}, values(res.PerIndicatorResult), approx); diff != "" {
		t.Fatalf("indicator result (-want +got):\n%s", diff)
	}

	_, err = m.Calculate(core.CalculationRequest{DemandID: "missing"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected NotFound for unknown demand, got %v", err)
	}
	_, err = m.Calculate(core.CalculationRequest{DemandID: "scenario_demand", Demand: indexed([]float64{1})})
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected InvalidArgument for demand plus demandId, got %v", err)
	}
}

func TestCalculateRejectsInvalidDemand(t *testing.T) {
	m := testutil.Scenario("M1")
	five := 5
	one := 1
	cases := map[string]domain.DemandVector{
		"negative":       {{Sector: "1111a0/us", Amount: -1}},
		"unknown sector": {{Sector: "999999/us", Amount: 1}},
		"index range":    {{Index: &five, Amount: 1}},
		"index mismatch": {{Sector: "1111a0/us", Index: &one, Amount: 1}},
		"unnamed":        {{Amount: 1}},
	}
	for name, demand := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := m.Calculate(core.CalculationRequest{Demand: demand})
			if domain.KindOf(err) != domain.KindInvalidArgument {
				t.Fatalf("expected InvalidArgument, got %v", err)
			}
		})
	}
	_, err := m.Calculate(core.CalculationRequest{Perspective: "sideways"})
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected InvalidArgument for perspective, got %v", err)
	}
}

func TestCalculateSumsDuplicateEntries(t *testing.T) {
	m := testutil.Scenario("M1")
	res, err := m.Calculate(core.CalculationRequest{Demand: domain.DemandVector{
		{Sector: "221100/us", Amount: 1},
		{Sector: "221100/us", Amount: 2},
	}})
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if diff := cmp.Diff([]float64{0, 3, 0}, values(res.PerSectorOutput), approx); diff != "" {
		t.Fatalf("per sector output (-want +got):\n%s", diff)
	}
}

func TestPerspectives(t *testing.T) {
	m := testutil.Rich("RICH")
	d := []float64{1, 2, 0, 4}
	base, err := m.Calculate(core.CalculationRequest{Demand: indexed(d)})
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if base.Contributions != nil {
		t.Fatalf("expected no contributions without a perspective")
	}
	for _, p := range []core.Perspective{core.PerspectiveDirect, core.PerspectiveFinal} {
		res, err := m.Calculate(core.CalculationRequest{Demand: indexed(d), Perspective: p})
		if err != nil {
			t.Fatalf("%s: %v", p, err)
		}
		if res.Contributions == nil || len(res.Contributions.Data) != 2 || len(res.Contributions.Data[0]) != 4 {
			t.Fatalf("%s: unexpected contributions %+v", p, res.Contributions)
		}
		for i, row := range res.Contributions.Data {
			sum := 0.0
			for _, v := range row {
				sum += v
			}
			if diff := cmp.Diff(base.PerIndicatorResult[i].Value, sum, cmpopts.EquateApprox(1e-9, 1e-9)); diff != "" {
				t.Fatalf("%s: row %d does not sum to indicator result (-want +got):\n%s", p, i, diff)
			}
		}
		if p == core.PerspectiveFinal && res.Contributions.Data[0][2] != 0 {
			t.Fatalf("final perspective must be zero where demand is zero, got %v", res.Contributions.Data[0][2])
		}
	}
}

func TestStoredImpactMatricesMustMatchProducts(t *testing.T) {
	parts := testutil.ScenarioParts("M1")
	parts.Matrices[matrix.D] = testutil.MustMatrix([][]float64{{1, 2, 3}})
	parts.Matrices[matrix.U] = testutil.MustMatrix([][]float64{{1, 2, 3}})
	m, err := core.NewModel(parts)
	if err != nil {
		t.Fatalf("consistent stored D and U rejected: %v", err)
	}
	if m.Derived(matrix.D) || m.Derived(matrix.U) {
		t.Fatalf("stored D or U reported as derived")
	}
	res, err := m.Calculate(core.CalculationRequest{Demand: indexed([]float64{1, 0, 0})})
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if got := res.PerIndicatorResult[0].Value; got != 1 {
		t.Fatalf("expected r = C·B·L·d = 1, got %v", got)
	}

	cases := map[string]func(p *core.ModelParts){
		"D contradicts C·B": func(p *core.ModelParts) {
			p.Matrices[matrix.D] = testutil.MustMatrix([][]float64{{2, 2, 2}})
		},
		"U contradicts D·L": func(p *core.ModelParts) {
			p.Matrices[matrix.U] = testutil.MustMatrix([][]float64{{3, 2, 1}})
		},
		"U contradicts stored D": func(p *core.ModelParts) {
			delete(p.Matrices, matrix.C)
			p.Matrices[matrix.D] = testutil.MustMatrix([][]float64{{2, 2, 2}})
			p.Matrices[matrix.U] = testutil.MustMatrix([][]float64{{1, 2, 3}})
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			parts := testutil.ScenarioParts("M1")
			mutate(&parts)
			_, err := core.NewModel(parts)
			if !errors.Is(err, domain.ErrInvalidArgument) {
				t.Fatalf("expected InvalidArgument, got %v", err)
			}
		})
	}
}

func TestStoredDirectImpactsWithoutCharacterization(t *testing.T) {
	parts := testutil.ScenarioParts("M1")
	delete(parts.Matrices, matrix.C)
	parts.Matrices[matrix.D] = testutil.MustMatrix([][]float64{{2, 2, 2}})
	m, err := core.NewModel(parts)
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	res, err := m.Calculate(core.CalculationRequest{Demand: indexed([]float64{1, 0, 3})})
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if got := res.PerIndicatorResult[0].Value; got != 8 {
		t.Fatalf("expected r = D·x = 8, got %v", got)
	}
}
