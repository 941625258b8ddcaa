package engine

import (
	"math"
	"sort"

	"github.com/gunwale-io/bailer/types"
)

// ScanPoint holds everything computed at one tested signal strength. For
// toy-based calculators the point carries the raw statistic ensembles so
// that independently computed batches can be concatenated later; p-values
// are always derived on demand, never stored.
type ScanPoint struct {
	// X is the tested signal strength.
	X float64 `msgpack:"x"`
	// ObsStat is the test statistic of the measured counts at X.
	ObsStat float64 `msgpack:"obs_stat"`
	// AsimovStat is the test statistic of the background-only expectation
	// at X, the input to the closed-form p-values.
	AsimovStat float64 `msgpack:"asimov_stat"`
	// HaveToys distinguishes toy ensembles from closed-form points.
	HaveToys bool `msgpack:"have_toys"`
	// NullStats is the statistic ensemble under signal plus background.
	NullStats []float64 `msgpack:"null_stats,omitempty"`
	// AltStats is the statistic ensemble under background only.
	AltStats []float64 `msgpack:"alt_stats,omitempty"`
}

// Toys is the size of the point's ensembles, zero for closed-form points.
func (p *ScanPoint) Toys() int {
	if len(p.NullStats) < len(p.AltStats) {
		return len(p.NullStats)
	}
	return len(p.AltStats)
}

// CLsb is the p-value of the signal-plus-background hypothesis at this
// point.
func (p *ScanPoint) CLsb() float64 {
	if p.HaveToys {
		return tailFraction(p.NullStats, p.ObsStat)
	}
	return 1 - normalCDF(sqrtStat(p.ObsStat))
}

// CLb is the p-value of the background-only hypothesis at this point's
// observed statistic.
func (p *ScanPoint) CLb() float64 {
	if p.HaveToys {
		return tailFraction(p.AltStats, p.ObsStat)
	}
	return 1 - normalCDF(sqrtStat(p.ObsStat)-sqrtStat(p.AsimovStat))
}

// CLs is the ratio CLsb/CLb. A vanishing CLb means the observed statistic
// sits beyond every background toy; the ratio is pinned at 1 so the point
// can never be excluded on that evidence.
func (p *ScanPoint) CLs() float64 {
	clb := p.CLb()
	if clb == 0 {
		return 1
	}
	return p.CLsb() / clb
}

// ExpectedCLs is the CLs value a median background-only experiment would
// see, shifted by nsigma background fluctuations. Positive nsigma weakens
// the expected exclusion.
func (p *ScanPoint) ExpectedCLs(nsigma float64) float64 {
	if p.HaveToys {
		threshold := quantile(p.AltStats, normalCDF(-nsigma))
		clb := tailFraction(p.AltStats, threshold)
		if clb == 0 {
			return 1
		}
		return tailFraction(p.NullStats, threshold) / clb
	}
	clb := normalCDF(nsigma)
	if clb == 0 {
		return 1
	}
	return (1 - normalCDF(sqrtStat(p.AsimovStat)-nsigma)) / clb
}

// InversionResult is the outcome of a confidence-interval inversion scan:
// one ScanPoint per tested signal strength, plus the identity needed to
// check that two partial results describe the same scan before merging.
type InversionResult struct {
	// Name identifies the result; it doubles as the artifact name.
	Name string `msgpack:"name"`
	// Workspace and POI name the model the scan ran over.
	Workspace string `msgpack:"workspace"`
	POI       string `msgpack:"poi"`
	// Calculator and Statistic record how the ensembles were built.
	Calculator types.Calculator `msgpack:"calculator"`
	Statistic  types.Statistic  `msgpack:"statistic"`
	// CL is the confidence level the scan was requested at.
	CL float64 `msgpack:"cl"`
	// Points holds the scan points in ascending X order.
	Points []*ScanPoint `msgpack:"points"`
}

// normalize restores the ascending point order every consumer assumes.
// Decoded and merged results pass through here before anything reads them.
func (r *InversionResult) normalize() {
	sort.Slice(r.Points, func(i, j int) bool { return r.Points[i].X < r.Points[j].X })
}

// Xs returns the tested signal strengths in ascending order.
func (r *InversionResult) Xs() []float64 {
	xs := make([]float64, len(r.Points))
	for i, p := range r.Points {
		xs[i] = p.X
	}
	return xs
}

// PointAt finds the scan point at exactly x, nil if the scan never tested
// it.
func (r *InversionResult) PointAt(x float64) *ScanPoint {
	for _, p := range r.Points {
		if p.X == x {
			return p
		}
	}
	return nil
}

// TestResult is the outcome of a single hypothesis test: the observed
// statistic, the ensemble under the null hypothesis, and the ensemble under
// the alternative.
type TestResult struct {
	Name      string `msgpack:"name"`
	Workspace string `msgpack:"workspace"`
	POI       string `msgpack:"poi"`
	// Calculator, Statistic, and Fit record how the test was built.
	Calculator types.Calculator `msgpack:"calculator"`
	Statistic  types.Statistic  `msgpack:"statistic"`
	Fit        types.Fit        `msgpack:"fit"`
	// NullMu and AltMu are the tested signal strengths of the two
	// hypotheses: 0 against 1 for discovery, 1 against 0 for exclusion.
	NullMu float64 `msgpack:"null_mu"`
	AltMu  float64 `msgpack:"alt_mu"`
	// ObsStat is the test statistic of the measured counts at NullMu.
	ObsStat float64 `msgpack:"obs_stat"`
	// AsimovStat is the statistic of the background-only expectation.
	AsimovStat float64 `msgpack:"asimov_stat"`
	// HaveToys distinguishes toy ensembles from closed-form results.
	HaveToys bool `msgpack:"have_toys"`
	// NullStats and AltStats are the statistic ensembles under the two
	// hypotheses.
	NullStats []float64 `msgpack:"null_stats,omitempty"`
	AltStats  []float64 `msgpack:"alt_stats,omitempty"`
}

// Toys is the size of the result's ensembles, zero for closed-form results.
func (r *TestResult) Toys() int {
	if len(r.NullStats) < len(r.AltStats) {
		return len(r.NullStats)
	}
	return len(r.AltStats)
}

// NullPValue is the probability of a statistic at least as extreme as the
// observation under the null hypothesis.
func (r *TestResult) NullPValue() float64 {
	if r.HaveToys {
		return tailFraction(r.NullStats, r.ObsStat)
	}
	return 1 - normalCDF(sqrtStat(r.ObsStat))
}

// AltPValue is the same tail probability under the alternative hypothesis.
func (r *TestResult) AltPValue() float64 {
	if r.HaveToys {
		return tailFraction(r.AltStats, r.ObsStat)
	}
	return 1 - normalCDF(sqrtStat(r.ObsStat)-sqrtStat(r.AsimovStat))
}

// Significance converts the null p-value to one-sided Gaussian sigmas. A
// p-value of zero, possible when no toy reached the observation, maps to
// positive infinity; callers quote a bound from the ensemble size instead.
func (r *TestResult) Significance() float64 {
	return -normalQuantile(r.NullPValue())
}

// sqrtStat guards the asymptotic formulas against tiny negative statistics
// produced by finite fit precision.
func sqrtStat(q float64) float64 {
	if q <= 0 {
		return 0
	}
	return math.Sqrt(q)
}

// quantile is the nearest-rank p-quantile of an ensemble.
func quantile(ensemble []float64, p float64) float64 {
	if len(ensemble) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), ensemble...)
	sort.Float64s(sorted)
	idx := int(math.Ceil(p*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
