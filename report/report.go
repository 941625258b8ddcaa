// Package report derives the human-facing numbers from a finished scan:
// the interpolated observed and expected upper limits, the background
// confidence at the limit, and the table and CSV renderings of the scan.
package report

import (
	"fmt"

	"github.com/gunwale-io/bailer/engine"
	"github.com/gunwale-io/bailer/log"
	"github.com/gunwale-io/bailer/metrics"
	"github.com/gunwale-io/bailer/types"
)

// Row is one scan point with its derived p-values.
type Row struct {
	X           float64 `json:"x"`
	Toys        int     `json:"toys"`
	CLs         float64 `json:"cls"`
	CLsb        float64 `json:"clsb"`
	CLb         float64 `json:"clb"`
	ExpectedCLs float64 `json:"expected_cls"`
}

// Band is an expected-limit band: the median background-only expectation
// bracketed by one-sigma background fluctuations.
type Band struct {
	Down   float64 `json:"down"`
	Median float64 `json:"median"`
	Up     float64 `json:"up"`
}

// Report is the rendered outcome of one inversion scan.
type Report struct {
	Workspace  string           `json:"workspace"`
	POI        string           `json:"poi"`
	Calculator types.Calculator `json:"calculator"`
	Statistic  types.Statistic  `json:"statistic"`
	CL         float64          `json:"cl"`
	// ObservedLimit is the parameter value where the observed CLs curve
	// crosses 1-CL, found by linear interpolation between scan points.
	ObservedLimit float64 `json:"observed_limit"`
	// ExpectedLimit is the same crossing for the expected CLs curves.
	ExpectedLimit Band `json:"expected_limit"`
	// CLbAtLimit is the background confidence interpolated at the observed
	// limit, 0 when the limit fell outside the scanned range.
	CLbAtLimit float64 `json:"clb_at_limit"`
	Rows       []Row   `json:"rows"`
}

// Build derives a report from a decoded scan result. An operating point
// that falls outside the scanned range is reported as 0 after a logged
// warning; it never fails the build.
func Build(result *engine.InversionResult, logger *log.Logger, collector *metrics.Collector) (*Report, error) {
	if result == nil {
		return nil, fmt.Errorf("no scan result to report on")
	}
	if len(result.Points) == 0 {
		return nil, fmt.Errorf("scan result %q has no points", result.Name)
	}
	if logger == nil {
		logger = log.NewNop()
	}
	if result.CL <= 0 || result.CL >= 1 {
		return nil, fmt.Errorf("scan result %q carries confidence level %v", result.Name, result.CL)
	}
	alpha := 1 - result.CL

	rep := &Report{
		Workspace:  result.Workspace,
		POI:        result.POI,
		Calculator: result.Calculator,
		Statistic:  result.Statistic,
		CL:         result.CL,
		Rows:       make([]Row, 0, len(result.Points)),
	}

	xs := result.Xs()
	cls := make([]float64, len(result.Points))
	clb := make([]float64, len(result.Points))
	expDown := make([]float64, len(result.Points))
	expMedian := make([]float64, len(result.Points))
	expUp := make([]float64, len(result.Points))
	for i, pt := range result.Points {
		cls[i] = pt.CLs()
		clb[i] = pt.CLb()
		expDown[i] = pt.ExpectedCLs(-1)
		expMedian[i] = pt.ExpectedCLs(0)
		expUp[i] = pt.ExpectedCLs(1)
		rep.Rows = append(rep.Rows, Row{
			X:           pt.X,
			Toys:        pt.Toys(),
			CLs:         cls[i],
			CLsb:        pt.CLsb(),
			CLb:         clb[i],
			ExpectedCLs: expMedian[i],
		})
	}

	rep.ObservedLimit = rangeGuard(crossing(xs, cls, alpha))(logger, collector, "observed limit")
	rep.ExpectedLimit = Band{
		Down:   rangeGuard(crossing(xs, expDown, alpha))(logger, collector, "expected limit (-1 sigma)"),
		Median: rangeGuard(crossing(xs, expMedian, alpha))(logger, collector, "expected limit (median)"),
		Up:     rangeGuard(crossing(xs, expUp, alpha))(logger, collector, "expected limit (+1 sigma)"),
	}
	rep.CLbAtLimit = rangeGuard(valueAt(xs, clb, rep.ObservedLimit))(logger, collector, "background confidence at the limit")

	return rep, nil
}

// rangeGuard turns an out-of-range interpolation into the 0 fallback,
// logged and counted.
func rangeGuard(v float64, ok bool) func(*log.Logger, *metrics.Collector, string) float64 {
	return func(logger *log.Logger, collector *metrics.Collector, what string) float64 {
		if ok {
			return v
		}
		logger.Warn("operating point outside scanned range", map[string]any{
			"quantity": what,
		})
		collector.IncRangeWarning()
		return 0
	}
}

// crossing finds where a falling curve first reaches target, by linear
// interpolation between adjacent points. A first point already at or below
// target answers with the scan's lower edge; a curve that never reaches
// target answers ok=false.
func crossing(xs, ys []float64, target float64) (float64, bool) {
	if ys[0] <= target {
		return xs[0], true
	}
	for i := 0; i+1 < len(xs); i++ {
		if ys[i+1] > target {
			continue
		}
		if ys[i] == ys[i+1] {
			return xs[i+1], true
		}
		frac := (ys[i] - target) / (ys[i] - ys[i+1])
		return xs[i] + frac*(xs[i+1]-xs[i]), true
	}
	return 0, false
}

// valueAt is the piecewise-linear interpolation of ys at x over the
// half-open range [xs[0], xs[len-1]): the lower edge is answered exactly,
// the top edge and everything beyond it answer ok=false.
func valueAt(xs, ys []float64, x float64) (float64, bool) {
	if x < xs[0] || x >= xs[len(xs)-1] {
		return 0, false
	}
	if x == xs[0] {
		return ys[0], true
	}
	for i := 0; i+1 < len(xs); i++ {
		if x > xs[i+1] {
			continue
		}
		if xs[i] == xs[i+1] {
			return ys[i+1], true
		}
		frac := (x - xs[i]) / (xs[i+1] - xs[i])
		return ys[i] + frac*(ys[i+1]-ys[i]), true
	}
	return 0, false
}
