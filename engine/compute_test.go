package engine

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/gunwale-io/bailer/types"
)

func testWorkspace() *Workspace {
	return &Workspace{
		Name: "combined",
		POI:  "mu_SIG",
		Channels: []Channel{
			{Name: "DR-WHO", Observed: 3, Background: 2.3, BackgroundSigma: 0.6, Signal: 1.9},
		},
	}
}

func invertParams(seed uint32) *types.ComputeParams {
	return &types.ComputeParams{
		Calculator: types.CalculatorFrequentist,
		Statistic:  types.StatisticOneSidedProfileLikelihood,
		CL:         0.95,
		Point:      1.5,
		Toys:       200,
		Seed:       seed,
	}
}

func TestRunInversionPointDeterminism(t *testing.T) {
	ws := testWorkspace()

	first, err := RunInversionPoint(ws, invertParams(77))
	if err != nil {
		t.Fatalf("RunInversionPoint failed: %v", err)
	}
	second, err := RunInversionPoint(ws, invertParams(77))
	if err != nil {
		t.Fatalf("RunInversionPoint failed: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Error("identical parameters produced different results")
	}
	if len(first.Points) != 1 {
		t.Fatalf("len(Points) = %d, want 1", len(first.Points))
	}
	p := first.Points[0]
	if !p.HaveToys || len(p.NullStats) != 200 || len(p.AltStats) != 200 {
		t.Errorf("point ensembles = %d/%d toys, want 200/200", len(p.NullStats), len(p.AltStats))
	}
	if p.X != 1.5 {
		t.Errorf("X = %v, want 1.5", p.X)
	}
	if cls := p.CLs(); cls < 0 || cls > 1 {
		t.Errorf("CLs = %v, want within [0, 1]", cls)
	}
}

func TestRunInversionPointSeedsDiverge(t *testing.T) {
	ws := testWorkspace()

	a, err := RunInversionPoint(ws, invertParams(101))
	if err != nil {
		t.Fatalf("RunInversionPoint failed: %v", err)
	}
	b, err := RunInversionPoint(ws, invertParams(102))
	if err != nil {
		t.Fatalf("RunInversionPoint failed: %v", err)
	}

	if reflect.DeepEqual(a.Points[0].NullStats, b.Points[0].NullStats) {
		t.Error("different seeds produced identical toy ensembles")
	}
	if a.Points[0].ObsStat != b.Points[0].ObsStat {
		t.Error("observed statistic depends on the seed")
	}
}

func TestRunInversionPointRejects(t *testing.T) {
	ws := testWorkspace()

	tests := []struct {
		name   string
		mutate func(*types.ComputeParams)
	}{
		{"zero seed", func(p *types.ComputeParams) { p.Seed = 0 }},
		{"no toys", func(p *types.ComputeParams) { p.Toys = 0 }},
		{"closed-form calculator", func(p *types.ComputeParams) { p.Calculator = types.CalculatorAsymptotic }},
		{"unknown statistic", func(p *types.ComputeParams) { p.Statistic = "bayes-factor" }},
		{"unknown calculator", func(p *types.ComputeParams) { p.Calculator = "bootstrap" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := invertParams(77)
			tt.mutate(params)
			if _, err := RunInversionPoint(ws, params); err == nil {
				t.Error("RunInversionPoint accepted invalid parameters")
			}
		})
	}
}

func TestRunInversionScanAsymptotic(t *testing.T) {
	ws := testWorkspace()
	params := &types.ComputeParams{
		Calculator: types.CalculatorAsymptotic,
		Statistic:  types.StatisticOneSidedProfileLikelihood,
		CL:         0.95,
		Seed:       9,
	}

	result, err := RunInversionScan(ws, params, []float64{2, 0, 1})
	if err != nil {
		t.Fatalf("RunInversionScan failed: %v", err)
	}
	if len(result.Points) != 3 {
		t.Fatalf("len(Points) = %d, want 3", len(result.Points))
	}
	for i, want := range []float64{0, 1, 2} {
		if result.Points[i].X != want {
			t.Errorf("Points[%d].X = %v, want %v (ascending order)", i, result.Points[i].X, want)
		}
		if result.Points[i].HaveToys {
			t.Errorf("Points[%d].HaveToys = true for a closed-form scan", i)
		}
	}

	// At zero tested strength nothing is excluded.
	if cls := result.Points[0].CLs(); cls != 1 {
		t.Errorf("CLs at zero = %v, want 1", cls)
	}
	// Exclusion strengthens monotonically along a growing signal.
	for i := 1; i < len(result.Points); i++ {
		if result.Points[i].CLs() > result.Points[i-1].CLs() {
			t.Errorf("CLs rose from point %d to %d", i-1, i)
		}
	}
}

func TestRunInversionScanAsimovMedian(t *testing.T) {
	ws := testWorkspace()
	params := &types.ComputeParams{
		Calculator: types.CalculatorAsimov,
		Statistic:  types.StatisticOneSidedProfileLikelihood,
		CL:         0.95,
		Seed:       9,
	}

	result, err := RunInversionScan(ws, params, []float64{1.5})
	if err != nil {
		t.Fatalf("RunInversionScan failed: %v", err)
	}

	// The asimov flavor scans the background-only expectation, so the
	// observed statistic equals the Asimov statistic and the background
	// p-value sits exactly at its median.
	p := result.Points[0]
	if p.ObsStat != p.AsimovStat {
		t.Errorf("ObsStat = %v, AsimovStat = %v, want equal", p.ObsStat, p.AsimovStat)
	}
	if clb := p.CLb(); clb != 0.5 {
		t.Errorf("CLb = %v, want 0.5", clb)
	}
}

func TestRunInversionScanRejectsClosedFormSimpleLR(t *testing.T) {
	ws := testWorkspace()
	params := &types.ComputeParams{
		Calculator: types.CalculatorAsymptotic,
		Statistic:  types.StatisticSimpleLR,
		Seed:       9,
	}
	if _, err := RunInversionScan(ws, params, []float64{1}); err == nil {
		t.Error("closed-form calculator accepted a statistic without asymptotic p-values")
	}
}

func TestRunHypoTest(t *testing.T) {
	ws := testWorkspace()

	tests := []struct {
		name       string
		fit        types.Fit
		wantNullMu float64
		wantAltMu  float64
	}{
		{"exclusion", types.FitExclusion, 1, 0},
		{"discovery", types.FitDiscovery, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := &types.ComputeParams{
				Calculator: types.CalculatorFrequentist,
				Statistic:  types.StatisticProfileLikelihood,
				Fit:        tt.fit,
				Toys:       150,
				Seed:       55,
			}
			result, err := RunHypoTest(ws, params)
			if err != nil {
				t.Fatalf("RunHypoTest failed: %v", err)
			}
			if result.NullMu != tt.wantNullMu || result.AltMu != tt.wantAltMu {
				t.Errorf("hypotheses = %v vs %v, want %v vs %v", result.NullMu, result.AltMu, tt.wantNullMu, tt.wantAltMu)
			}
			if len(result.NullStats) != 150 || len(result.AltStats) != 150 {
				t.Errorf("ensembles = %d/%d toys, want 150/150", len(result.NullStats), len(result.AltStats))
			}
			if p := result.NullPValue(); p < 0 || p > 1 {
				t.Errorf("NullPValue = %v, want within [0, 1]", p)
			}
		})
	}
}

func TestRunHypoTestDeterminism(t *testing.T) {
	ws := testWorkspace()
	params := &types.ComputeParams{
		Calculator: types.CalculatorHybrid,
		Statistic:  types.StatisticProfileLikelihood,
		Fit:        types.FitExclusion,
		Toys:       100,
		Seed:       31,
	}

	first, err := RunHypoTest(ws, params)
	if err != nil {
		t.Fatalf("RunHypoTest failed: %v", err)
	}
	second, err := RunHypoTest(ws, params)
	if err != nil {
		t.Fatalf("RunHypoTest failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("identical parameters produced different results")
	}
}

func TestSignificanceMatchesPValue(t *testing.T) {
	r := &TestResult{HaveToys: true, ObsStat: 2, NullStats: make([]float64, 1000)}
	// 10 of 1000 toys at or above the observation.
	for i := 0; i < 10; i++ {
		r.NullStats[i] = 3
	}
	if p := r.NullPValue(); p != 0.01 {
		t.Fatalf("NullPValue = %v, want 0.01", p)
	}
	want := 2.3263478740408408 // one-sided z for p = 0.01
	if got := r.Significance(); math.Abs(got-want) > 1e-9 {
		t.Errorf("Significance = %v, want %v", got, want)
	}
}

func TestExpectedCLsBandOrdering(t *testing.T) {
	ws := testWorkspace()
	params := &types.ComputeParams{
		Calculator: types.CalculatorAsymptotic,
		Statistic:  types.StatisticOneSidedProfileLikelihood,
		Seed:       9,
	}
	result, err := RunInversionScan(ws, params, []float64{2})
	if err != nil {
		t.Fatalf("RunInversionScan failed: %v", err)
	}

	p := result.Points[0]
	down, median, up := p.ExpectedCLs(-1), p.ExpectedCLs(0), p.ExpectedCLs(1)
	if !(down < median && median < up) {
		t.Errorf("expected CLs bands = %v / %v / %v, want strictly increasing in nsigma", down, median, up)
	}
}

func TestReseedErrorSurfaces(t *testing.T) {
	ws := testWorkspace()
	params := invertParams(0)
	_, err := RunInversionPoint(ws, params)
	if !errors.Is(err, ErrZeroSeed) {
		t.Errorf("error = %v, want ErrZeroSeed", err)
	}
}
