// Package engine implements the built-in counting-experiment calculator:
// loading workspace files, drawing toy pseudo-experiments, evaluating test
// statistics, and merging partial results. Its compute routines leak no
// state between calls except the process-global generator, which every task
// resets explicitly through Reseed. Production runs call them inside
// disposable worker processes; the direct path calls them in-process for
// calculators that draw nothing.
package engine

import (
	"fmt"

	"github.com/gunwale-io/bailer/types"
)

// RunInversionPoint computes one batch of inversion toys at one scan point:
// the observed statistic plus one statistic ensemble under signal plus
// background and one under background only. The global generator is reseeded
// from params.Seed first; identical parameters reproduce identical
// ensembles.
func RunInversionPoint(ws *Workspace, params *types.ComputeParams) (*InversionResult, error) {
	if err := validateCompute(params); err != nil {
		return nil, err
	}
	if !params.Calculator.UsesToys() {
		return nil, fmt.Errorf("calculator %q draws no toys; scan it directly", params.Calculator)
	}
	if params.Toys <= 0 {
		return nil, fmt.Errorf("invert point %v: toy count %d is not positive", params.Point, params.Toys)
	}
	if err := Reseed(uint64(params.Seed)); err != nil {
		return nil, err
	}

	model := NewModel(ws)
	hybrid := params.Calculator == types.CalculatorHybrid
	point := &ScanPoint{
		X:          params.Point,
		ObsStat:    model.Statistic(params.Statistic, params.Point, model.Observed()),
		AsimovStat: model.Statistic(params.Statistic, params.Point, model.Asimov()),
		HaveToys:   true,
		NullStats:  model.toyEnsemble(params.Statistic, params.Point, params.Point, params.Toys, hybrid),
		AltStats:   model.toyEnsemble(params.Statistic, params.Point, 0, params.Toys, hybrid),
	}
	return newInversionResult(ws, params, []*ScanPoint{point}), nil
}

// RunInversionScan computes a whole scan in one call. Toy calculators run
// every point sequentially on a single random stream; closed-form
// calculators evaluate the asymptotic p-values, with the asimov flavor
// substituting the background-only expectation for the measured counts.
func RunInversionScan(ws *Workspace, params *types.ComputeParams, points []float64) (*InversionResult, error) {
	if err := validateCompute(params); err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("inversion scan has no points")
	}
	if err := Reseed(uint64(params.Seed)); err != nil {
		return nil, err
	}

	model := NewModel(ws)
	result := newInversionResult(ws, params, make([]*ScanPoint, 0, len(points)))
	if params.Calculator.UsesToys() {
		if params.Toys <= 0 {
			return nil, fmt.Errorf("inversion scan: toy count %d is not positive", params.Toys)
		}
		hybrid := params.Calculator == types.CalculatorHybrid
		for _, x := range points {
			result.Points = append(result.Points, &ScanPoint{
				X:          x,
				ObsStat:    model.Statistic(params.Statistic, x, model.Observed()),
				AsimovStat: model.Statistic(params.Statistic, x, model.Asimov()),
				HaveToys:   true,
				NullStats:  model.toyEnsemble(params.Statistic, x, x, params.Toys, hybrid),
				AltStats:   model.toyEnsemble(params.Statistic, x, 0, params.Toys, hybrid),
			})
		}
	} else {
		data := model.Observed()
		if params.Calculator == types.CalculatorAsimov {
			data = model.Asimov()
		}
		for _, x := range points {
			result.Points = append(result.Points, &ScanPoint{
				X:          x,
				ObsStat:    model.Statistic(params.Statistic, x, data),
				AsimovStat: model.Statistic(params.Statistic, x, model.Asimov()),
			})
		}
	}
	result.normalize()
	return result, nil
}

// RunHypoTest computes one batch of hypothesis-test toys: the observed
// statistic at the null hypothesis plus ensembles under both hypotheses.
// Discovery tests background only against unit signal strength; exclusion
// tests the other way around.
func RunHypoTest(ws *Workspace, params *types.ComputeParams) (*TestResult, error) {
	if err := validateCompute(params); err != nil {
		return nil, err
	}
	if err := params.Fit.Validate(); err != nil {
		return nil, err
	}
	if err := Reseed(uint64(params.Seed)); err != nil {
		return nil, err
	}

	nullMu, altMu := 1.0, 0.0
	if params.Fit == types.FitDiscovery {
		nullMu, altMu = 0.0, 1.0
	}
	model := NewModel(ws)
	result := &TestResult{
		Name:       "test_" + ws.POI,
		Workspace:  ws.Name,
		POI:        ws.POI,
		Calculator: params.Calculator,
		Statistic:  params.Statistic,
		Fit:        params.Fit,
		NullMu:     nullMu,
		AltMu:      altMu,
		AsimovStat: model.Statistic(params.Statistic, nullMu, model.Asimov()),
	}
	if params.Calculator.UsesToys() {
		if params.Toys <= 0 {
			return nil, fmt.Errorf("hypothesis test: toy count %d is not positive", params.Toys)
		}
		hybrid := params.Calculator == types.CalculatorHybrid
		result.ObsStat = model.Statistic(params.Statistic, nullMu, model.Observed())
		result.HaveToys = true
		result.NullStats = model.toyEnsemble(params.Statistic, nullMu, nullMu, params.Toys, hybrid)
		result.AltStats = model.toyEnsemble(params.Statistic, nullMu, altMu, params.Toys, hybrid)
		return result, nil
	}
	data := model.Observed()
	if params.Calculator == types.CalculatorAsimov {
		data = model.Asimov()
	}
	result.ObsStat = model.Statistic(params.Statistic, nullMu, data)
	return result, nil
}

// validateCompute rejects parameter combinations before any toy is drawn.
// The closed-form p-values only hold for the profiled likelihood-ratio
// family, so the no-toys calculators refuse the other statistics.
func validateCompute(params *types.ComputeParams) error {
	if err := params.Calculator.Validate(); err != nil {
		return err
	}
	if err := params.Statistic.Validate(); err != nil {
		return err
	}
	if !params.Calculator.UsesToys() {
		switch params.Statistic {
		case types.StatisticProfileLR, types.StatisticProfileLikelihood, types.StatisticOneSidedProfileLikelihood:
		default:
			return fmt.Errorf("statistic %q has no closed-form p-values; use a toy calculator", params.Statistic)
		}
	}
	return nil
}

func newInversionResult(ws *Workspace, params *types.ComputeParams, points []*ScanPoint) *InversionResult {
	return &InversionResult{
		Name:       "result_" + ws.POI,
		Workspace:  ws.Name,
		POI:        ws.POI,
		Calculator: params.Calculator,
		Statistic:  params.Statistic,
		CL:         params.CL,
		Points:     points,
	}
}
